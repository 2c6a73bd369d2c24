// Package settings loads provenance configuration from
// .provenance/settings.yaml at the module root.
//
// The deny list names facts that must not be emitted. Entries may be bare
// keys or globs ("COMMIT_*"), optionally wrapped in an Emit() verb
// ("Emit(MODULE_TREE)").
package settings

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"provenance/internal/fact"
	"provenance/internal/query"
)

// Dir and File locate the settings file relative to the module root.
const (
	Dir  = ".provenance"
	File = "settings.yaml"
)

// Settings holds provenance configuration from .provenance/settings.yaml.
type Settings struct {
	// Output is the generated file, relative to the directory generate runs in.
	Output string `yaml:"output"`
	// Package overrides the package clause of the generated file.
	Package string `yaml:"package"`
	// Deny lists fact keys or globs to leave out of the artifact.
	// Example: ["MODULE_TREE", "Emit(COMMIT_*)"]
	Deny []string `yaml:"deny"`
	// Evidence is an optional Markdown note path, relative to the module root.
	Evidence string `yaml:"evidence"`
	// Backend selects the git backend: auto, cli or lib.
	Backend string `yaml:"backend"`
}

// Path returns the settings file path under root.
func Path(root string) string {
	return filepath.Join(root, Dir, File)
}

// Load reads .provenance/settings.yaml relative to root.
// Returns nil (not an error) if the file does not exist.
func Load(root string) (*Settings, error) {
	p := Path(root)
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", p, err)
	}
	if _, err := query.ParseBackend(s.Backend); err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	for _, rule := range s.Deny {
		if _, err := path.Match(parseDenyRule(rule), ""); err != nil {
			return nil, fmt.Errorf("%s: deny rule %q: %w", p, rule, err)
		}
	}
	return &s, nil
}

// IsDenied reports whether key matches any deny rule. Safe to call on a nil
// *Settings receiver.
func (s *Settings) IsDenied(key string) bool {
	if s == nil {
		return false
	}
	return MatchAny(s.Deny, key)
}

// DenySet expands the deny rules against keys. Safe on a nil receiver.
func (s *Settings) DenySet(keys []string) fact.KeySet {
	if s == nil {
		return fact.NewKeySet()
	}
	return Expand(s.Deny, keys)
}

// Expand returns the keys matched by any of rules.
func Expand(rules, keys []string) fact.KeySet {
	out := fact.NewKeySet()
	for _, k := range keys {
		if MatchAny(rules, k) {
			out.Add(k)
		}
	}
	return out
}

// MatchAny reports whether key matches one of rules.
func MatchAny(rules []string, key string) bool {
	for _, rule := range rules {
		if matchDenyPattern(parseDenyRule(rule), key) {
			return true
		}
	}
	return false
}

// parseDenyRule extracts the key glob from a deny rule.
//
//	"Emit(COMMIT_*)" → "COMMIT_*"
//	" MODULE_TREE "  → "MODULE_TREE"
func parseDenyRule(rule string) string {
	rule = strings.TrimSpace(rule)
	if strings.HasPrefix(rule, "Emit(") && strings.HasSuffix(rule, ")") {
		rule = rule[5 : len(rule)-1]
	}
	return strings.ToUpper(strings.TrimSpace(rule))
}

// matchDenyPattern reports whether key matches a deny glob. Patterns use
// path.Match semantics; keys never contain '/'.
func matchDenyPattern(pattern, key string) bool {
	matched, _ := path.Match(pattern, key)
	return matched
}
