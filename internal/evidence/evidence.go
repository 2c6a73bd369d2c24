// Package evidence writes and reads the Markdown provenance note that can
// accompany a generated artifact.
//
// A note carries YAML frontmatter mirroring the fact table plus the SHA-256
// of the artifact it describes, followed by a human-readable table.
package evidence

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"provenance/internal/fact"
)

// Plugin identifies notes written by this package.
const Plugin = "provenance"

// Entry is one fact as recorded in a note.
type Entry struct {
	Key         string `yaml:"key"`
	Kind        string `yaml:"kind"`
	Value       string `yaml:"value"`
	Description string `yaml:"description"`
}

// Note is the frontmatter of a provenance note.
type Note struct {
	Plugin    string  `yaml:"plugin"`
	Artifact  string  `yaml:"artifact"`
	Hash      string  `yaml:"hash"`
	Generated string  `yaml:"generated"`
	Facts     []Entry `yaml:"facts"`
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// NewNote records tbl as the provenance of artifact, which was written to
// artifactPath at generated.
func NewNote(tbl *fact.Table, artifactPath string, artifact []byte, generated string) Note {
	n := Note{
		Plugin:    Plugin,
		Artifact:  filepath.ToSlash(artifactPath),
		Hash:      Hash(artifact),
		Generated: generated,
	}
	for _, f := range tbl.Facts() {
		n.Facts = append(n.Facts, Entry{
			Key:         f.Key,
			Kind:        f.Value.Kind().String(),
			Value:       f.Value.String(),
			Description: f.Description,
		})
	}
	return n
}

// Render returns the complete Markdown document for n.
func Render(n Note) ([]byte, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "\n# Build provenance\n\n")
	fmt.Fprintf(&b, "Artifact `%s`, generated %s.\n\n", n.Artifact, n.Generated)
	b.WriteString("| Key | Value |\n")
	b.WriteString("|-----|-------|\n")
	for _, e := range n.Facts {
		fmt.Fprintf(&b, "| %s | %s |\n", e.Key, cell(e.Value))
	}
	return joinFrontmatter(n, b.String())
}

// cell makes a value safe for a single Markdown table cell.
func cell(v string) string {
	v = strings.TrimSpace(v)
	v = strings.ReplaceAll(v, "|", `\|`)
	return strings.ReplaceAll(v, "\n", "<br>")
}

// Write renders n to path. The file is left untouched when it already
// records the same artifact hash.
func Write(path string, n Note) (bool, error) {
	if existing, err := os.ReadFile(path); err == nil {
		if h, ok := extractHash(existing); ok && h == n.Hash {
			return false, nil
		}
	}
	data, err := Render(n)
	if err != nil {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("evidence: create dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("evidence: write %s: %w", path, err)
	}
	return true, nil
}

// Read parses the note at path.
func Read(path string) (*Note, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("evidence: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a note document.
func Parse(data []byte) (*Note, error) {
	fm, _, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}
	var n Note
	if err := yaml.Unmarshal(fm, &n); err != nil {
		return nil, fmt.Errorf("evidence: unmarshal frontmatter: %w", err)
	}
	if n.Plugin != Plugin {
		return nil, fmt.Errorf("evidence: note written by %q, not %q", n.Plugin, Plugin)
	}
	return &n, nil
}

// extractHash reads the hash field from an existing note.
func extractHash(data []byte) (string, bool) {
	fm, _, err := splitFrontmatter(data)
	if err != nil {
		return "", false
	}
	var m map[string]any
	if err := yaml.Unmarshal(fm, &m); err != nil {
		return "", false
	}
	h, ok := m["hash"].(string)
	return h, ok
}

// Matches reports whether artifact is the file n was recorded for.
func (n *Note) Matches(artifact []byte) bool {
	return n.Hash == Hash(artifact)
}

// Table rebuilds a frozen fact table from the note. Bytes values are
// stored hex encoded.
func (n *Note) Table() (*fact.Table, error) {
	t := fact.NewTable()
	for _, e := range n.Facts {
		if e.Key == "" || t.Has(e.Key) {
			return nil, fmt.Errorf("evidence: empty or duplicate key %q", e.Key)
		}
		v, err := decodeValue(e)
		if err != nil {
			return nil, err
		}
		desc := e.Description
		if desc == "" {
			desc = e.Key
		}
		t.Declare(e.Key, desc, v)
	}
	return t.Freeze(), nil
}

func decodeValue(e Entry) (fact.Value, error) {
	switch e.Kind {
	case fact.KindText.String():
		return fact.Text(e.Value), nil
	case fact.KindBool.String():
		b, err := strconv.ParseBool(e.Value)
		if err != nil {
			return fact.Value{}, fmt.Errorf("evidence: %s: %w", e.Key, err)
		}
		return fact.Bool(b), nil
	case fact.KindInt.String():
		i, err := strconv.ParseInt(e.Value, 10, 64)
		if err != nil {
			return fact.Value{}, fmt.Errorf("evidence: %s: %w", e.Key, err)
		}
		return fact.Int(i), nil
	case fact.KindBytes.String():
		b, err := hex.DecodeString(e.Value)
		if err != nil {
			return fact.Value{}, fmt.Errorf("evidence: %s: %w", e.Key, err)
		}
		return fact.Bytes(b), nil
	}
	return fact.Value{}, fmt.Errorf("evidence: %s: unknown kind %q", e.Key, e.Kind)
}
