package provenance

import (
	"context"
	"errors"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"provenance/internal/evidence"
	"provenance/internal/fact"
	"provenance/internal/gen"
	"provenance/internal/modinfo"
	"provenance/internal/query"
)

func answers() query.Fixed {
	return query.Fixed{
		query.Branch:      "main",
		query.HeadHash:    "0123456789abcdef0123456789abcdef01234567",
		query.AuthorName:  "Ada Lovelace",
		query.AuthorEmail: "ada@example.com",
		query.CommitDate:  "2021-08-04T12:34:03+00:00",
		query.CommitUnix:  "1628080443",
		query.LastTag:     "v1.2.0",
		query.Describe:    "v1.2.0-3-g0123456",
		query.GoVersion:   "go version go1.26.0 linux/amd64",
	}
}

func fixedClock() time.Time { return time.Unix(1700000000, 0).UTC() }

func fixedModule(_ context.Context, dir string) (modinfo.Info, error) {
	return modinfo.Info{Path: "example.com/app", Dir: dir, GoVersion: "1.26"}, nil
}

// newBuilder returns a Builder over a fresh module directory with every
// outside input pinned.
func newBuilder(t *testing.T, opts ...Option) (*Builder, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/app\n\ngo 1.26\n"), 0o644))

	base := []Option{
		WithDir(dir),
		WithPackage("buildinfo"),
		WithQuerier(answers()),
		WithEnv(map[string]string{"SOURCE_DATE_EPOCH": "1628080443"}),
		WithClock(fixedClock),
	}
	b := New(append(base, opts...)...)
	b.loadModule = fixedModule
	return b, dir
}

func build(t *testing.T, b *Builder) *Result {
	t.Helper()
	res, err := b.Build(context.Background())
	require.NoError(t, err)
	return res
}

// assertParses checks that src parses and type-checks as a package.
func assertParses(t *testing.T, src []byte) {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "gen.go", src, parser.AllErrors)
	require.NoError(t, err, "generated source:\n%s", src)
	conf := types.Config{Importer: importer.ForCompiler(fset, "source", nil)}
	_, err = conf.Check(f.Name.Name, fset, []*ast.File{f}, nil)
	require.NoError(t, err, "generated source:\n%s", src)
}

// ---------------------------------------------------------------------------
// Build
// ---------------------------------------------------------------------------

func TestBuildWritesArtifact(t *testing.T) {
	b, dir := newBuilder(t)
	res := build(t, b)

	assert.Equal(t, filepath.Join(dir, DefaultOutput), res.Path)
	onDisk, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, res.Artifact, onDisk)
	assertParses(t, onDisk)

	src := string(onDisk)
	assert.Contains(t, src, "package buildinfo")
	assert.Contains(t, src, `CommitHash = "0123456789abcdef0123456789abcdef01234567"`)
	assert.Contains(t, src, `Branch = "main"`)
	assert.Contains(t, src, "CommitsSinceTag = 3")
	assert.Contains(t, src, `BuildTime3339 = "2021-08-04T12:34:03Z"`)
	assert.Contains(t, src, "// Generated at 2021-08-04 12:34:03 +00:00.")
	assert.Contains(t, src, "func "+gen.PrintFunc+"()")
	assert.Empty(t, res.Denied)
	assert.Equal(t, len(fact.Catalog), res.Table.Len())
}

func TestBuildIsDeterministic(t *testing.T) {
	b, _ := newBuilder(t)
	first := build(t, b)
	second := build(t, b)
	assert.Equal(t, string(first.Artifact), string(second.Artifact))
}

func TestBuildOverwritesExisting(t *testing.T) {
	b, dir := newBuilder(t)
	path := filepath.Join(dir, DefaultOutput)
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("stale\n", 1000)), 0o644))

	build(t, b)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")
}

func TestBuildOutsideRepository(t *testing.T) {
	b, _ := newBuilder(t, WithQuerier(query.Fixed{}))
	res := build(t, b)

	assertParses(t, res.Artifact)
	assert.Equal(t, len(fact.Catalog), res.Table.Len())
	assert.Equal(t, "", res.Facts()[fact.CommitHash])
	assert.Contains(t, string(res.Artifact), `CommitHash = ""`)
}

func TestBuildCustomOutput(t *testing.T) {
	b, dir := newBuilder(t, WithOutput("version_gen.go"))
	res := build(t, b)
	assert.Equal(t, filepath.Join(dir, "version_gen.go"), res.Path)
	_, err := os.Stat(filepath.Join(dir, DefaultOutput))
	assert.True(t, os.IsNotExist(err))
}

func TestBuildPackageFallsBackToDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "buildmeta")
	require.NoError(t, os.Mkdir(dir, 0o755))
	b := New(WithDir(dir), WithQuerier(query.Fixed{}), WithClock(fixedClock), WithEnv(nil), WithoutSettings())
	b.loadModule = fixedModule

	res := build(t, b)
	assert.Contains(t, string(res.Artifact), "package buildmeta")
}

// ---------------------------------------------------------------------------
// Deny set
// ---------------------------------------------------------------------------

func TestBuildDeny(t *testing.T) {
	b, _ := newBuilder(t, WithDeny("COMMIT_*", "module_tree"))
	res := build(t, b)

	assertParses(t, res.Artifact)
	src := string(res.Artifact)
	assert.NotContains(t, src, "CommitHash")
	assert.NotContains(t, src, "ModuleTree")
	assert.Contains(t, src, "ShortCommit")
	assert.Contains(t, res.Denied, fact.CommitHash)
	assert.Contains(t, res.Denied, fact.ModuleTree)
	assert.False(t, res.Table.Has(fact.CommitAuthor))
}

func TestBuildDenyEverything(t *testing.T) {
	b, _ := newBuilder(t, WithDeny("*"))
	res := build(t, b)

	assert.Equal(t, 0, res.Table.Len())
	assert.Len(t, res.Denied, len(fact.Catalog))
	assertParses(t, res.Artifact)
}

func TestBuildDenyFromSettings(t *testing.T) {
	b, dir := newBuilder(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".provenance"), 0o755))
	cfg := "output: meta_gen.go\ndeny:\n  - BUILD_ID\n  - GIT_STATUS_FILE\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".provenance", "settings.yaml"), []byte(cfg), 0o644))

	res := build(t, b)
	assert.Equal(t, filepath.Join(dir, "meta_gen.go"), res.Path)
	assert.Equal(t, []string{fact.BuildID, fact.GitStatusFile}, res.SortedDenied())
	assert.NotContains(t, string(res.Artifact), "BuildID")
}

func TestBuildInvalidSettings(t *testing.T) {
	b, dir := newBuilder(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".provenance"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".provenance", "settings.yaml"), []byte("deny: [\n"), 0o644))

	_, err := b.Build(context.Background())
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "load settings", ioErr.Op)
}

// ---------------------------------------------------------------------------
// Hooks
// ---------------------------------------------------------------------------

func TestBuildHook(t *testing.T) {
	hook := func(w io.Writer) error {
		_, err := io.WriteString(w, "const Channel = \"stable\"\n")
		return err
	}
	b, _ := newBuilder(t, WithHook(hook))
	res := build(t, b)

	src := string(res.Artifact)
	marker := strings.Index(src, gen.HookMarker)
	require.GreaterOrEqual(t, marker, 0)
	assert.Greater(t, strings.Index(src, `const Channel = "stable"`), marker)
	assertParses(t, res.Artifact)
}

func TestBuildHookError(t *testing.T) {
	boom := errors.New("boom")
	b, _ := newBuilder(t, WithHook(func(io.Writer) error { return boom }))

	_, err := b.Build(context.Background())
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "hook", ioErr.Op)
	assert.ErrorIs(t, err, boom)
}

// ---------------------------------------------------------------------------
// I/O failures
// ---------------------------------------------------------------------------

func TestBuildMissingDir(t *testing.T) {
	b := New(WithDir(filepath.Join(t.TempDir(), "missing")))
	_, err := b.Build(context.Background())
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "stat", ioErr.Op)
}

func TestBuildUnwritableOutput(t *testing.T) {
	b, dir := newBuilder(t)
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	b.output = filepath.Join(blocker, "gen.go")

	_, err := b.Build(context.Background())
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "create", ioErr.Op)
}

func TestBuildCancelled(t *testing.T) {
	b, _ := newBuilder(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Build(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildUnknownBackend(t *testing.T) {
	b, _ := newBuilder(t, WithBackend("svn"))
	b.querier = nil
	_, err := b.Build(context.Background())
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Evidence
// ---------------------------------------------------------------------------

func TestBuildEvidence(t *testing.T) {
	b, dir := newBuilder(t, WithEvidence(".provenance/PROVENANCE.md"), WithDeny("BUILD_ID"))
	res := build(t, b)

	require.Equal(t, filepath.Join(dir, ".provenance", "PROVENANCE.md"), res.Evidence)
	note, err := evidence.Read(res.Evidence)
	require.NoError(t, err)
	assert.True(t, note.Matches(res.Artifact))
	assert.Equal(t, DefaultOutput, note.Artifact)
	assert.Len(t, note.Facts, res.Table.Len())
	for _, e := range note.Facts {
		assert.NotEqual(t, fact.BuildID, e.Key)
	}
}

func TestResolveWritesNothing(t *testing.T) {
	b, dir := newBuilder(t, WithDeny("BUILD_*"))
	res, err := b.Resolve(context.Background())
	require.NoError(t, err)

	assert.Empty(t, res.Path)
	assert.Nil(t, res.Artifact)
	assert.False(t, res.Table.Has(fact.BuildTime))
	assert.Equal(t, "main", res.Facts()[fact.Branch])
	_, err = os.Stat(filepath.Join(dir, DefaultOutput))
	assert.True(t, os.IsNotExist(err))
}
