package redact

import (
	"os"
	"path/filepath"
	"testing"
)

func noPaths(string) bool { return false }

// ---------------------------------------------------------------------------
// Line
// ---------------------------------------------------------------------------

func TestLineMarkers(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"local path",
			"├── example.com/lib v1.2.3 (/home/me/src/lib)",
			"├── example.com/lib v1.2.3 (* path)",
		},
		{
			"registry",
			"├── corp.example/auth v0.4.0 (registry `https://goproxy.corp.example`)",
			"├── corp.example/auth v0.4.0 (* registry)",
		},
		{
			"https",
			"├── github.com/corp/priv v0.0.0-20240101000000-abcdef123456 (https://github.com/corp/priv#abcdef1)",
			"├── github.com/corp/priv v0.0.0-20240101000000-abcdef123456 (* git)",
		},
		{
			"ssh",
			"│   └── corp.example/x v1.0.0 (ssh://git@corp.example/x.git)",
			"│   └── corp.example/x v1.0.0 (* git)",
		},
		{
			"git scheme",
			"└── corp.example/y v1.0.0 (git://corp.example/y)",
			"└── corp.example/y v1.0.0 (* git)",
		},
		{
			"http",
			"└── corp.example/z v1.0.0 (http://corp.example/z#1234)",
			"└── corp.example/z v1.0.0 (* git)",
		},
	}
	r := New(WithExists(noPaths))
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := r.Line(tc.in); got != tc.want {
				t.Errorf("Line(%q)\n got %q\nwant %q", tc.in, got, tc.want)
			}
		})
	}
}

// Lines without a source annotation, or with a parenthesised suffix that is
// not a location, must come back byte-identical.
func TestLineLeavesPlainLinesAlone(t *testing.T) {
	lines := []string{
		"",
		"example.com/app",
		"├── golang.org/x/mod v0.33.0",
		"│   └── golang.org/x/tools v0.42.0 (*)",
		"├── github.com/foo/bar v1.0.0 (indirect)",
		"├── weird (unbalanced",
		"    spaces   and\ttabs   ",
	}
	r := New(WithExists(noPaths))
	for _, line := range lines {
		if got := r.Line(line); got != line {
			t.Errorf("Line(%q) = %q, want unchanged", line, got)
		}
	}
}

func TestLineFallsBackToExistingPath(t *testing.T) {
	seen := ""
	r := New(WithExists(func(p string) bool {
		seen = p
		return p == `C:\src\lib`
	}))

	got := r.Line(`├── example.com/lib v1.0.0 (C:\src\lib)`)
	if want := `├── example.com/lib v1.0.0 (* path)`; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if seen != `C:\src\lib` {
		t.Errorf("probe saw %q", seen)
	}

	line := `├── example.com/lib v1.0.0 (D:\missing)`
	if got := r.Line(line); got != line {
		t.Errorf("non-existent path redacted: %q", got)
	}
}

func TestLineRealFilesystem(t *testing.T) {
	dir := t.TempDir()
	rel := filepath.Join(dir, "vendor-lib")
	if err := os.Mkdir(rel, 0o755); err != nil {
		t.Fatal(err)
	}
	// An absolute path hits the local-path marker; the probe is never needed.
	if got := Tree("├── a v1 (" + rel + ")"); got != "├── a v1 (* path)" {
		t.Errorf("got %q", got)
	}
}

// ---------------------------------------------------------------------------
// Redact
// ---------------------------------------------------------------------------

func TestRedactKeepsShape(t *testing.T) {
	in := "\nexample.com/app\n├── a v1.0.0 (/src/a)\n├── b v2.0.0\n└── c v3.0.0 (https://corp/c#1)\n"
	want := "\nexample.com/app\n├── a v1.0.0 (* path)\n├── b v2.0.0\n└── c v3.0.0 (* git)\n"
	if got := New(WithExists(noPaths)).Redact(in); got != want {
		t.Errorf("Redact\n got %q\nwant %q", got, want)
	}
}

func TestRedactIdempotent(t *testing.T) {
	in := "\nroot\n├── a v1 (/x)\n├── b v1 (registry `https://p`)\n└── c v1 (ssh://h/c)"
	r := New(WithExists(noPaths))
	once := r.Redact(in)
	if twice := r.Redact(once); twice != once {
		t.Errorf("second pass changed output:\n%q\n%q", once, twice)
	}
}
