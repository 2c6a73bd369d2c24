package evidence

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

const delim = "---\n"

var (
	errNoOpen  = errors.New("evidence: missing opening --- delimiter")
	errNoClose = errors.New("evidence: missing closing --- delimiter")
)

// splitFrontmatter splits a Markdown document into its YAML frontmatter and
// body. The document must begin with "---\n"; the next "---" line closes
// the block. Windows line endings are normalised first.
func splitFrontmatter(data []byte) (fm []byte, body []byte, err error) {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(data, []byte(delim)) {
		return nil, nil, errNoOpen
	}
	rest := data[len(delim):]
	idx := bytes.Index(rest, []byte("\n---"))
	if idx < 0 {
		return nil, nil, errNoClose
	}
	fm = rest[:idx]
	tail := rest[idx+len("\n---"):]
	if len(tail) > 0 && tail[0] == '\n' {
		tail = tail[1:]
	}
	return fm, tail, nil
}

// joinFrontmatter marshals v as YAML frontmatter followed by body.
func joinFrontmatter(v any, body string) ([]byte, error) {
	fm, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("evidence: marshal frontmatter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(delim)
	buf.Write(fm)
	buf.WriteString(delim)
	buf.WriteString(body)
	return buf.Bytes(), nil
}
