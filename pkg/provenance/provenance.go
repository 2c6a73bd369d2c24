// Package provenance resolves build provenance facts for a Go package and
// writes them into a generated source file.
//
// The usual entry point is a go:generate directive running the provenance
// command. Projects that need to append their own declarations call the
// engine from their own generator:
//
//	err := provenance.New(
//		provenance.WithPackage("buildinfo"),
//		provenance.WithHook(func(w io.Writer) error {
//			_, err := io.WriteString(w, "const Channel = \"stable\"\n")
//			return err
//		}),
//	).Build(ctx)
//
// Everything except I/O on the output paths degrades gracefully: facts that
// cannot be determined are emitted with their zero value.
package provenance

import (
	"bytes"
	"context"
	"fmt"
	"go/token"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"provenance/internal/evidence"
	"provenance/internal/fact"
	"provenance/internal/gen"
	"provenance/internal/modinfo"
	"provenance/internal/output"
	"provenance/internal/query"
	"provenance/internal/resolve"
	"provenance/internal/settings"
)

// DefaultOutput is the artifact file name when none is configured.
const DefaultOutput = "provenance_gen.go"

// IOError reports a failure to read or write one of the run's files. It is
// the only kind of error that aborts a build.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("provenance: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Builder holds the configuration of a build. Create one with New.
type Builder struct {
	dir        string
	output     string
	pkg        string
	deny       []string
	hook       Hook
	querier    query.Querier
	backend    string
	env        *resolve.Env
	clock      func() time.Time
	log        output.LoggerInterface
	evidence   string
	noSettings bool

	// loadModule overrides module discovery in tests.
	loadModule func(ctx context.Context, dir string) (modinfo.Info, error)
}

// New returns a Builder configured by opts.
func New(opts ...Option) *Builder {
	b := &Builder{}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Result describes a completed build.
type Result struct {
	// Path is the artifact that was written.
	Path string
	// Artifact is the full content written to Path, hook output included.
	Artifact []byte
	// Table holds the emitted facts, after the deny set.
	Table *fact.Table
	// Denied lists the keys left out, in declaration order.
	Denied []string
	// Evidence is the note path, or "" when no note was configured.
	Evidence string
}

// run carries the state shared by Resolve and Build.
type run struct {
	log  output.LoggerInterface
	dir  string
	root string
	cfg  *settings.Settings
	full *fact.Table
}

// Resolve determines the facts and applies the deny set without writing
// anything. Path, Artifact and Evidence are left empty.
func (b *Builder) Resolve(ctx context.Context) (*Result, error) {
	_, res, err := b.resolve(ctx)
	return res, err
}

func (b *Builder) resolve(ctx context.Context) (*run, *Result, error) {
	r := &run{log: b.log}
	if r.log == nil {
		r.log = output.Discard()
	}

	dir := b.dir
	if dir == "" {
		dir = "."
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, nil, &IOError{Op: "resolve", Path: b.dir, Err: err}
	}
	if fi, err := os.Stat(dir); err != nil {
		return nil, nil, &IOError{Op: "stat", Path: dir, Err: err}
	} else if !fi.IsDir() {
		return nil, nil, &IOError{Op: "stat", Path: dir, Err: fmt.Errorf("not a directory")}
	}
	r.dir = dir

	r.root, err = modinfo.FindRoot(dir)
	if err != nil {
		r.log.Debug("%v; using %s as module root", err, dir)
		r.root = dir
	}

	if !b.noSettings {
		r.cfg, err = settings.Load(r.root)
		if err != nil {
			return nil, nil, &IOError{Op: "load settings", Path: settings.Path(r.root), Err: err}
		}
	}
	if r.cfg == nil {
		r.cfg = &settings.Settings{}
	}

	querier := b.querier
	if querier == nil {
		mode, err := query.ParseBackend(firstNonEmpty(b.backend, r.cfg.Backend))
		if err != nil {
			return nil, nil, err
		}
		querier = query.Default(mode, r.log)
	}
	env := resolve.Snapshot()
	if b.env != nil {
		env = *b.env
	}

	res, err := resolve.Resolve(ctx, resolve.Config{
		Dir:     dir,
		Package: firstNonEmpty(b.pkg, r.cfg.Package),
		Querier: querier,
		Env:     env,
		Clock:   b.clock,
		Log:     r.log,

		LoadModule: b.loadModule,
	})
	if err != nil {
		return nil, nil, err
	}
	r.full = res.Table

	rules := append(append([]string(nil), r.cfg.Deny...), b.deny...)
	deny := settings.Expand(rules, r.full.Keys())
	var denied []string
	for _, k := range r.full.Keys() {
		if deny.Has(k) {
			denied = append(denied, k)
		}
	}
	if len(denied) > 0 {
		r.log.Debug("denied: %v", denied)
	}
	return r, &Result{Table: r.full.Without(deny), Denied: denied}, nil
}

// Build resolves the facts, writes the artifact, runs the hook and writes
// the evidence note if one is configured.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	r, result, err := b.resolve(ctx)
	if err != nil {
		return nil, err
	}
	log := r.log

	pkgName := r.full.TextOf(fact.PackageName)
	if pkgName == "" {
		pkgName = defaultPackage(r.dir)
		log.Debug("package name unknown; using %s", pkgName)
	}
	generatedAt := r.full.TextOf(fact.BuildTime)

	outPath := firstNonEmpty(b.output, r.cfg.Output, DefaultOutput)
	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(r.dir, outPath)
	}

	src, err := gen.Generate(result.Table, gen.Options{
		Package:     pkgName,
		GeneratedAt: generatedAt,
		Filename:    filepath.Base(outPath),
	})
	if err != nil {
		return nil, err
	}

	artifact, err := writeArtifact(outPath, src, b.hook)
	if err != nil {
		return nil, err
	}
	log.Success("wrote %s (%d facts)", outPath, result.Table.Len())
	result.Path = outPath
	result.Artifact = artifact

	if notePath := firstNonEmpty(b.evidence, r.cfg.Evidence); notePath != "" {
		if !filepath.IsAbs(notePath) {
			notePath = filepath.Join(r.root, notePath)
		}
		rel, err := filepath.Rel(r.root, outPath)
		if err != nil {
			rel = outPath
		}
		wrote, err := evidence.Write(notePath, evidence.NewNote(result.Table, rel, artifact, generatedAt))
		if err != nil {
			return nil, &IOError{Op: "write evidence", Path: notePath, Err: err}
		}
		if wrote {
			log.Success("wrote %s", notePath)
		} else {
			log.Debug("%s is up to date", notePath)
		}
		result.Evidence = notePath
	}
	return result, nil
}

// writeArtifact overwrites path with src, then lets hook append through the
// still-open file. It returns everything written.
func writeArtifact(path string, src []byte, hook Hook) ([]byte, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, &IOError{Op: "create", Path: path, Err: err}
	}
	var written bytes.Buffer
	w := io.MultiWriter(f, &written)

	if _, err := w.Write(src); err != nil {
		f.Close()
		return nil, &IOError{Op: "write", Path: path, Err: err}
	}
	if err := gen.AppendHook(w, hook); err != nil {
		f.Close()
		return nil, &IOError{Op: "hook", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return nil, &IOError{Op: "close", Path: path, Err: err}
	}
	return written.Bytes(), nil
}

func defaultPackage(dir string) string {
	if name := filepath.Base(dir); token.IsIdentifier(name) {
		return name
	}
	return "main"
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Facts returns the emitted facts as rendered strings keyed by fact key.
func (r *Result) Facts() map[string]string {
	out := make(map[string]string, r.Table.Len())
	for _, f := range r.Table.Facts() {
		out[f.Key] = f.Value.String()
	}
	return out
}

// Keys returns the emitted keys in declaration order.
func (r *Result) Keys() []string {
	return r.Table.Keys()
}

// SortedDenied returns Denied sorted alphabetically.
func (r *Result) SortedDenied() []string {
	out := append([]string(nil), r.Denied...)
	sort.Strings(out)
	return out
}
