package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/mod/module"
)

// ListedModule is one record of `go list -m -json all`.
type ListedModule struct {
	Path     string        `json:"Path"`
	Version  string        `json:"Version"`
	Main     bool          `json:"Main"`
	Indirect bool          `json:"Indirect"`
	Dir      string        `json:"Dir"`
	Replace  *ListedModule `json:"Replace"`
	Origin   *ModuleOrigin `json:"Origin"`
}

// ModuleOrigin is the VCS provenance go records for directly fetched
// modules.
type ModuleOrigin struct {
	VCS  string `json:"VCS"`
	URL  string `json:"URL"`
	Hash string `json:"Hash"`
	Ref  string `json:"Ref"`
}

// ProxyEnv carries the module proxy settings that decide whether a module
// came from a private registry.
type ProxyEnv struct {
	GOPROXY   string
	GONOPROXY string
	GOPRIVATE string
}

const publicProxy = "https://proxy.golang.org"

// registry returns the proxy URL path was fetched from when that proxy is
// not the public one, or "".
func (p ProxyEnv) registry(path string) string {
	noProxy := p.GONOPROXY
	if noProxy == "" {
		noProxy = p.GOPRIVATE
	}
	if noProxy != "" && module.MatchPrefixPatterns(noProxy, path) {
		return ""
	}
	first := strings.FieldsFunc(p.GOPROXY, func(r rune) bool { return r == ',' || r == '|' })
	if len(first) == 0 {
		return ""
	}
	switch proxy := strings.TrimRight(first[0], "/"); proxy {
	case "direct", "off", publicProxy:
		return ""
	default:
		return proxy
	}
}

// DecodeModules reads the concatenated JSON objects printed by
// `go list -m -json`.
func DecodeModules(r io.Reader) ([]ListedModule, error) {
	dec := json.NewDecoder(r)
	var mods []ListedModule
	for {
		var m ListedModule
		err := dec.Decode(&m)
		if errors.Is(err, io.EOF) {
			return mods, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode module list: %w", err)
		}
		mods = append(mods, m)
	}
}

// RenderModuleTree renders a module list as a one-level tree under the
// main module, in `go list` order:
//
//	example.com/app
//	├── example.com/lib v1.2.3 (/home/me/lib)
//	└── golang.org/x/mod v0.33.0
//
// Dependencies whose source location is local, a VCS URL or a private
// proxy carry that location as a parenthesised annotation. The output
// starts with a newline.
func RenderModuleTree(mods []ListedModule, px ProxyEnv) string {
	var (
		root string
		deps []ListedModule
	)
	for _, m := range mods {
		if m.Main && root == "" {
			root = m.Path
			continue
		}
		deps = append(deps, m)
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(root)
	for i, m := range deps {
		b.WriteString("\n")
		if i == len(deps)-1 {
			b.WriteString("└── ")
		} else {
			b.WriteString("├── ")
		}
		b.WriteString(m.Path)
		if v := moduleVersion(m); v != "" {
			b.WriteString(" ")
			b.WriteString(v)
		}
		if a := annotation(m, px); a != "" {
			b.WriteString(" ")
			b.WriteString(a)
		}
	}
	return b.String()
}

func moduleVersion(m ListedModule) string {
	if m.Replace != nil && m.Replace.Version != "" {
		return m.Replace.Version
	}
	return m.Version
}

func annotation(m ListedModule, px ProxyEnv) string {
	// Workspace modules other than the root are local.
	if m.Main && m.Dir != "" {
		return "(" + m.Dir + ")"
	}
	src := m
	if m.Replace != nil {
		if m.Replace.Version == "" {
			dir := m.Replace.Dir
			if dir == "" {
				dir = m.Replace.Path
			}
			return "(" + dir + ")"
		}
		src = *m.Replace
	}
	if o := src.Origin; o != nil && o.URL != "" {
		if o.Hash != "" {
			return "(" + o.URL + "#" + o.Hash + ")"
		}
		return "(" + o.URL + ")"
	}
	if proxy := px.registry(src.Path); proxy != "" {
		return "(registry `" + proxy + "`)"
	}
	return ""
}
