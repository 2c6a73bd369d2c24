// Package gen renders a fact table as a Go source file of typed
// declarations.
//
// Output is a pure function of the table and Options: the same inputs
// always give the same bytes. Only the header line carrying GeneratedAt is
// expected to differ between runs.
package gen

import (
	"bytes"
	"fmt"
	"go/token"
	"io"
	"strconv"
	"strings"

	"golang.org/x/tools/imports"

	"provenance/internal/fact"
)

// Tool names the generator in the header.
const Tool = "provenance"

// HookMarker separates the generated declarations from text appended by a
// post-generation hook.
const HookMarker = "// Declarations below are appended by a post-generation hook."

// PrintFunc is the name of the generated function that prints every fact.
const PrintFunc = "PrintBuildFacts"

// Options controls rendering.
type Options struct {
	// Package is the package clause of the generated file.
	Package string
	// GeneratedAt is written verbatim into the header.
	GeneratedAt string
	// Filename is used in formatter error messages only.
	Filename string
}

var initialisms = map[string]string{
	"ID":   "ID",
	"OS":   "OS",
	"URL":  "URL",
	"API":  "API",
	"UUID": "UUID",
	"HTTP": "HTTP",
	"JSON": "JSON",
}

// Identifier converts a SCREAMING_SNAKE key into an exported Go name:
// COMMIT_HASH becomes CommitHash and BUILD_ID becomes BuildID.
func Identifier(key string) string {
	var b strings.Builder
	for _, word := range strings.Split(key, "_") {
		if word == "" {
			continue
		}
		upper := strings.ToUpper(word)
		if canon, ok := initialisms[upper]; ok {
			b.WriteString(canon)
			continue
		}
		b.WriteString(upper[:1])
		b.WriteString(strings.ToLower(word[1:]))
	}
	return b.String()
}

// Generate renders tbl. Every fact becomes one declaration preceded by its
// description, followed by the summary strings whose facts all survived
// and by PrintBuildFacts.
func Generate(tbl *fact.Table, opts Options) ([]byte, error) {
	if !token.IsIdentifier(opts.Package) {
		return nil, fmt.Errorf("gen: invalid package name %q", opts.Package)
	}

	facts := tbl.Facts()
	seen := make(map[string]string, len(facts)+len(summaries)+1)
	seen[PrintFunc] = PrintFunc
	for _, f := range facts {
		id := Identifier(f.Key)
		if !token.IsIdentifier(id) || !token.IsExported(id) {
			return nil, fmt.Errorf("gen: key %q does not form an exported identifier", f.Key)
		}
		if prev, ok := seen[id]; ok {
			return nil, fmt.Errorf("gen: keys %q and %q both map to %s", prev, f.Key, id)
		}
		seen[id] = f.Key
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "// Code generated by %s. DO NOT EDIT.\n", Tool)
	fmt.Fprintf(&buf, "// Generated at %s.\n\n", opts.GeneratedAt)
	fmt.Fprintf(&buf, "package %s\n\n", opts.Package)
	if len(facts) > 0 {
		buf.WriteString("import \"fmt\"\n\n")
	}

	for _, f := range facts {
		writeDecl(&buf, f)
	}
	for _, s := range selectSummaries(tbl) {
		if _, ok := seen[s.name]; ok {
			return nil, fmt.Errorf("gen: summary %s collides with a fact", s.name)
		}
		writeSummary(&buf, s)
	}
	writePrintFunc(&buf, facts)

	filename := opts.Filename
	if filename == "" {
		filename = "provenance_gen.go"
	}
	out, err := imports.Process(filename, buf.Bytes(), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("gen: format: %w", err)
	}
	return out, nil
}

func writeComment(w *bytes.Buffer, text string) {
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		w.WriteString("// ")
		w.WriteString(line)
		w.WriteString("\n")
	}
}

func writeDecl(w *bytes.Buffer, f fact.Fact) {
	id := Identifier(f.Key)
	writeComment(w, id+" ("+f.Key+"): "+f.Description)
	switch f.Value.Kind() {
	case fact.KindText:
		fmt.Fprintf(w, "const %s = %s\n\n", id, strconv.Quote(f.Value.Text()))
	case fact.KindBool:
		fmt.Fprintf(w, "const %s = %t\n\n", id, f.Value.Bool())
	case fact.KindInt:
		fmt.Fprintf(w, "const %s = %d\n\n", id, f.Value.Int())
	case fact.KindBytes:
		fmt.Fprintf(w, "var %s = %s\n\n", id, byteArrayLiteral(f.Value.Bytes()))
	}
}

func byteArrayLiteral(b []byte) string {
	parts := make([]string, len(b))
	for i, c := range b {
		parts[i] = fmt.Sprintf("0x%02x", c)
	}
	return "[...]byte{" + strings.Join(parts, ", ") + "}"
}

func writePrintFunc(w *bytes.Buffer, facts []fact.Fact) {
	writeComment(w, PrintFunc+" prints every build fact as \"KEY: value\", in declaration order.")
	fmt.Fprintf(w, "func %s() {\n", PrintFunc)
	for _, f := range facts {
		verb := "%v"
		if f.Value.Kind() == fact.KindBytes {
			verb = "%x"
		}
		fmt.Fprintf(w, "\tfmt.Printf(%s, %s)\n", strconv.Quote(f.Key+": "+verb+"\n"), Identifier(f.Key))
	}
	w.WriteString("}\n")
}

// AppendHook writes the hook marker and lets hook append to w. A nil hook
// writes nothing.
func AppendHook(w io.Writer, hook func(io.Writer) error) error {
	if hook == nil {
		return nil
	}
	if _, err := io.WriteString(w, "\n"+HookMarker+"\n\n"); err != nil {
		return err
	}
	return hook(w)
}
