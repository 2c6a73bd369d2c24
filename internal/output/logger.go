// Package output provides the coloured diagnostic logger shared by the
// engine and the CLI.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// LoggerInterface is the subset of logging the engine depends on.
type LoggerInterface interface {
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	Debug(format string, args ...interface{})
	Success(format string, args ...interface{})
}

var _ LoggerInterface = (*Logger)(nil)

// Logger writes leveled, optionally coloured messages. Info, Success and
// Debug go to out; Warn and Error go to errOut.
type Logger struct {
	out     io.Writer
	errOut  io.Writer
	noColor bool
	verbose bool
}

// NewLogger creates a Logger on stdout and stderr.
func NewLogger() *Logger {
	return &Logger{
		out:    os.Stdout,
		errOut: os.Stderr,
	}
}

// NewLoggerTo creates a Logger writing to the given streams. Colour is off.
func NewLoggerTo(out, errOut io.Writer) *Logger {
	return &Logger{out: out, errOut: errOut, noColor: true}
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return NewLoggerTo(io.Discard, io.Discard)
}

// SetNoColor disables colored output.
func (l *Logger) SetNoColor(noColor bool) {
	l.noColor = noColor
	color.NoColor = noColor
}

// SetVerbose enables debug messages.
func (l *Logger) SetVerbose(verbose bool) {
	l.verbose = verbose
}

// IsVerbose reports whether debug messages are printed.
func (l *Logger) IsVerbose() bool { return l.verbose }

// Writer returns the standard output stream.
func (l *Logger) Writer() io.Writer { return l.out }

func (l *Logger) paint(w io.Writer, attr color.Attribute, prefix, format string, args ...interface{}) {
	msg := fmt.Sprintf(prefix+format+"\n", args...)
	if l.noColor {
		io.WriteString(w, msg)
		return
	}
	color.New(attr).Fprint(w, msg)
}

// Info prints an informational message in default color.
func (l *Logger) Info(format string, args ...interface{}) {
	fmt.Fprintf(l.out, format+"\n", args...)
}

// Warn prints a warning message in yellow.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.paint(l.errOut, color.FgYellow, "Warning: ", format, args...)
}

// Error prints an error message in red.
func (l *Logger) Error(format string, args ...interface{}) {
	l.paint(l.errOut, color.FgRed, "Error: ", format, args...)
}

// Success prints a success message in green with checkmark.
func (l *Logger) Success(format string, args ...interface{}) {
	l.paint(l.out, color.FgGreen, "✓ ", format, args...)
}

// Debug prints a debug message if verbose mode is enabled.
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.verbose {
		return
	}
	l.paint(l.out, color.FgHiBlack, "[DEBUG] ", format, args...)
}
