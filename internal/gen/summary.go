package gen

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"provenance/internal/fact"
)

// term is one operand of a summary expression: a string literal or a
// reference to a fact's declaration.
type term struct {
	lit string
	key string
}

func lit(s string) term { return term{lit: s} }
func ref(k string) term { return term{key: k} }

type summary struct {
	name  string
	doc   string
	terms []term
}

func (s summary) keys() []string {
	var keys []string
	for _, t := range s.terms {
		if t.key != "" {
			keys = append(keys, t.key)
		}
	}
	return keys
}

func (s summary) expr() string {
	parts := make([]string, len(s.terms))
	for i, t := range s.terms {
		if t.key != "" {
			parts[i] = Identifier(t.key)
		} else {
			parts[i] = strconv.Quote(t.lit)
		}
	}
	return strings.Join(parts, " + ")
}

// summaries lists the names of every summary, whichever flavour.
var summaries = []string{"Version", "LongVersion", "ShortVersion"}

// buildSummaries returns the summaries for a tag (label "tag") or a branch
// (label "branch") build.
func buildSummaries(label, refKey string) []summary {
	body := []term{
		lit("\n" + label + ":"), ref(refKey),
		lit("\ncommit_hash:"), ref(fact.ShortCommit),
		lit("\nbuild_time:"), ref(fact.BuildTime),
		lit("\nbuild_env:"), ref(fact.GoVersion), lit(","), ref(fact.BuildTarget),
	}
	return []summary{
		{
			name:  "Version",
			doc:   fmt.Sprintf("Version is a multi-line summary of the package version, %s, commit, build time and build environment.", label),
			terms: append([]term{lit("\npkg_version:"), ref(fact.PkgVersion)}, body...),
		},
		{
			name:  "LongVersion",
			doc:   "LongVersion is Version with the bare package version on the first line, suitable for --version output.",
			terms: append([]term{ref(fact.PkgVersion)}, body...),
		},
		{
			name:  "ShortVersion",
			doc:   fmt.Sprintf("ShortVersion is the package version followed by the %s and abbreviated commit.", label),
			terms: []term{ref(fact.PkgVersion), lit(" ("), ref(refKey), lit(" "), ref(fact.ShortCommit), lit(")")},
		},
	}
}

// selectSummaries picks the tag flavour when TAG is present and non-empty,
// otherwise the branch flavour, and keeps only summaries whose referenced
// facts are all in tbl so the file always compiles.
func selectSummaries(tbl *fact.Table) []summary {
	label, refKey := "branch", fact.Branch
	if tbl.TextOf(fact.Tag) != "" {
		label, refKey = "tag", fact.Tag
	}
	var out []summary
	for _, s := range buildSummaries(label, refKey) {
		ok := true
		for _, k := range s.keys() {
			if !tbl.Has(k) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, s)
		}
	}
	return out
}

func writeSummary(w *bytes.Buffer, s summary) {
	writeComment(w, s.doc)
	fmt.Fprintf(w, "const %s = %s\n\n", s.name, s.expr())
}
