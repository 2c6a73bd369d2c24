package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"provenance/internal/evidence"
	"provenance/internal/fact"
	"provenance/internal/output"
	"provenance/internal/query"
	"provenance/pkg/provenance"
)

// pinned fixes every outside input for the duration of a test.
func pinned(t *testing.T) {
	t.Helper()
	extraOptions = []provenance.Option{
		provenance.WithQuerier(query.Fixed{
			query.Branch:   "main",
			query.HeadHash: "0123456789abcdef0123456789abcdef01234567",
			query.LastTag:  "v0.3.0",
			query.Describe: "v0.3.0-1-g0123456",
		}),
		provenance.WithEnv(map[string]string{"SOURCE_DATE_EPOCH": "1628080443"}),
		provenance.WithClock(func() time.Time { return time.Unix(0, 0) }),
	}
	t.Cleanup(func() { extraOptions = nil })
}

func moduleDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/app\n\ngo 1.21\n"), 0o644))
	return dir
}

// execute runs the CLI with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(output.NewLoggerTo(&out, &errOut))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// ---------------------------------------------------------------------------
// Help
// ---------------------------------------------------------------------------

func TestHelpListsCommands(t *testing.T) {
	out, _, err := execute(t, "--help")
	require.NoError(t, err)
	for _, name := range []string{"generate", "show", "version"} {
		assert.Contains(t, out, name)
	}
}

func TestUnknownCommand(t *testing.T) {
	_, _, err := execute(t, "frobnicate")
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// generate
// ---------------------------------------------------------------------------

func TestGenerate(t *testing.T) {
	pinned(t)
	dir := moduleDir(t)

	out, _, err := execute(t, "generate", "--dir", dir, "-p", "buildinfo", "--deny", "COMMIT_AUTHOR,COMMIT_EMAIL")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ wrote")

	data, err := os.ReadFile(filepath.Join(dir, provenance.DefaultOutput))
	require.NoError(t, err)
	src := string(data)
	assert.Contains(t, src, "package buildinfo")
	assert.Contains(t, src, `Branch = "main"`)
	assert.NotContains(t, src, "CommitAuthor")
	assert.NotContains(t, src, "CommitEmail")
}

func TestRootRunsGenerate(t *testing.T) {
	pinned(t)
	dir := moduleDir(t)

	_, _, err := execute(t, "-C", dir, "-p", "buildinfo", "-o", "meta_gen.go")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "meta_gen.go"))
	assert.NoError(t, err)
}

func TestGenerateWithEvidence(t *testing.T) {
	pinned(t)
	dir := moduleDir(t)

	_, _, err := execute(t, "generate", "-C", dir, "-p", "buildinfo", "--evidence", "PROVENANCE.md")
	require.NoError(t, err)

	note, err := evidence.Read(filepath.Join(dir, "PROVENANCE.md"))
	require.NoError(t, err)
	artifact, err := os.ReadFile(filepath.Join(dir, provenance.DefaultOutput))
	require.NoError(t, err)
	assert.True(t, note.Matches(artifact))
}

func TestGenerateBadBackend(t *testing.T) {
	dir := moduleDir(t)
	_, _, err := execute(t, "generate", "-C", dir, "--backend", "svn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "svn")
}

func TestGenerateMissingDir(t *testing.T) {
	_, _, err := execute(t, "generate", "-C", filepath.Join(t.TempDir(), "missing"))
	var ioErr *provenance.IOError
	assert.ErrorAs(t, err, &ioErr)
}

// ---------------------------------------------------------------------------
// show
// ---------------------------------------------------------------------------

func TestShowPlain(t *testing.T) {
	pinned(t)
	dir := moduleDir(t)

	out, _, err := execute(t, "show", "-C", dir, "--deny", "BUILD_*")
	require.NoError(t, err)
	assert.Regexp(t, `(?m)^BRANCH\s+main$`, out)
	assert.Regexp(t, `(?m)^COMMITS_SINCE_TAG\s+1$`, out)
	assert.NotContains(t, out, "BUILD_TIME")

	_, err = os.Stat(filepath.Join(dir, provenance.DefaultOutput))
	assert.True(t, os.IsNotExist(err), "show must not write the artifact")
}

func TestShowRejectsOutputFlags(t *testing.T) {
	dir := moduleDir(t)
	for _, flag := range []string{"--output=x.go", "--evidence=note.md"} {
		_, _, err := execute(t, "show", "-C", dir, flag)
		require.Error(t, err, flag)
		assert.Contains(t, err.Error(), "unknown flag")
	}
}

func TestShowFromNote(t *testing.T) {
	pinned(t)
	dir := moduleDir(t)
	_, _, err := execute(t, "generate", "-C", dir, "-p", "buildinfo", "--evidence", "PROVENANCE.md")
	require.NoError(t, err)

	out, _, err := execute(t, "show", "-C", dir, "--from", filepath.Join(dir, "PROVENANCE.md"))
	require.NoError(t, err)
	assert.Contains(t, out, "matches the note")
	assert.Regexp(t, `(?m)^BRANCH\s+main$`, out)

	// Touch the artifact: the note no longer matches.
	path := filepath.Join(dir, provenance.DefaultOutput)
	require.NoError(t, os.WriteFile(path, []byte("package buildinfo\n"), 0o644))
	_, errOut, err := execute(t, "show", "-C", dir, "--from", filepath.Join(dir, "PROVENANCE.md"))
	require.NoError(t, err)
	assert.Contains(t, errOut, "has changed")
}

func TestPrintFactsMultiline(t *testing.T) {
	tbl := fact.NewTable()
	tbl.Declare(fact.Branch, "Branch.", fact.Text("main"))
	tbl.Declare(fact.ModuleTree, "Tree.", fact.Text("\nexample.com/app\n└── golang.org/x/mod v0.33.0"))
	tbl.Declare(fact.GitClean, "Clean.", fact.Bool(true))

	var buf bytes.Buffer
	printFacts(&buf, tbl.Freeze())
	want := "BRANCH       main\n" +
		"MODULE_TREE  example.com/app\n" +
		"             └── golang.org/x/mod v0.33.0\n" +
		"GIT_CLEAN    true\n"
	assert.Equal(t, want, buf.String())
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "provenance")
}

func TestVersionJSON(t *testing.T) {
	version = "v9.9.9"
	t.Cleanup(func() { version = "" })

	out, _, err := execute(t, "version", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, "v9.9.9")
}
