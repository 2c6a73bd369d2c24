// Package redact scrubs private source locations out of a rendered module
// dependency tree while leaving the tree structure untouched.
package redact

import (
	"os"
	"regexp"
	"strings"
)

// Redaction tags.
const (
	PathTag     = "(* path)"
	RegistryTag = "(* registry)"
	GitTag      = "(* git)"
)

// marker pairs an annotation pattern with the tag that replaces it. Markers
// are tried in order and the first match wins.
type marker struct {
	re  *regexp.Regexp
	tag string
}

var markers = []marker{
	{regexp.MustCompile(`\(/[^)]*\)`), PathTag},
	{regexp.MustCompile(`\(registry [^)]*\)`), RegistryTag},
	{regexp.MustCompile(`\((?:https?|ssh|git)://[^)]*\)`), GitTag},
}

// suffixRegex matches a trailing parenthesised annotation.
var suffixRegex = regexp.MustCompile(`\(([^()]+)\)\s*$`)

// Redactor rewrites annotated dependency lines.
type Redactor struct {
	exists func(path string) bool
}

// Option configures a Redactor.
type Option func(*Redactor)

// WithExists replaces the filesystem probe used for unrecognised
// annotations.
func WithExists(fn func(path string) bool) Option {
	return func(r *Redactor) { r.exists = fn }
}

// New returns a Redactor that probes the real filesystem unless told
// otherwise.
func New(opts ...Option) *Redactor {
	r := &Redactor{exists: pathExists}
	for _, o := range opts {
		o(r)
	}
	return r
}

func pathExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// Redact rewrites every line of tree. Lines are split and rejoined on "\n"
// so a leading or trailing newline in tree is kept.
func (r *Redactor) Redact(tree string) string {
	lines := strings.Split(tree, "\n")
	for i, line := range lines {
		lines[i] = r.Line(line)
	}
	return strings.Join(lines, "\n")
}

// Line redacts the source annotation of a single dependency line. A line
// without a recognised annotation is returned unchanged.
func (r *Redactor) Line(line string) string {
	if !strings.Contains(line, "(") {
		return line
	}
	for _, m := range markers {
		if loc := m.re.FindStringIndex(line); loc != nil {
			return line[:loc[0]] + m.tag + line[loc[1]:]
		}
	}
	if loc := suffixRegex.FindStringSubmatchIndex(line); loc != nil {
		inner := line[loc[2]:loc[3]]
		if r.exists != nil && r.exists(inner) {
			return line[:loc[0]] + PathTag + line[loc[3]+1:]
		}
	}
	return line
}

// Tree is shorthand for New().Redact(tree).
func Tree(tree string) string {
	return New().Redact(tree)
}
