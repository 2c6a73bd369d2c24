// Package resolve assembles the fact table for one build.
//
// Resolution is a single linear pass: environment and module metadata, git
// HEAD facts, branch and tag facts, the CI override, then the dependency
// tree. A later step overrides an earlier one for the same key. Nothing in
// this package aborts a run: a query that comes back empty or a value that
// fails to parse leaves the fact at its zero value and is logged.
package resolve

import (
	"context"
	"go/build"
	"path"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	goversion "github.com/hashicorp/go-version"

	"provenance/internal/ci"
	"provenance/internal/datetime"
	"provenance/internal/describe"
	"provenance/internal/fact"
	"provenance/internal/modinfo"
	"provenance/internal/output"
	"provenance/internal/query"
	"provenance/internal/redact"
)

// ShortHashLen is the length of SHORT_COMMIT.
const ShortHashLen = 8

// Config is the input of one resolution run.
type Config struct {
	// Dir is the directory the facts are generated for. Queries run here.
	Dir string
	// Package overrides the package name reported by the go command.
	Package string

	Querier query.Querier
	Env     Env
	Clock   func() time.Time
	Log     output.LoggerInterface

	// LoadModule reads module metadata. Defaults to modinfo.Load.
	LoadModule func(ctx context.Context, dir string) (modinfo.Info, error)
	// Redactor scrubs MODULE_TREE. Defaults to redact.New().
	Redactor *redact.Redactor
}

// Result is the outcome of a run.
type Result struct {
	// Table is frozen.
	Table    *fact.Table
	Describe describe.Result
	CI       ci.Kind
	Module   modinfo.Info
}

type resolver struct {
	cfg   Config
	table *fact.Table
	res   Result
}

// Resolve runs every step against cfg. The only error it returns is the
// context's.
func Resolve(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.Log == nil {
		cfg.Log = output.Discard()
	}
	if cfg.Querier == nil {
		cfg.Querier = query.Default(query.BackendAuto, cfg.Log)
	}
	if cfg.LoadModule == nil {
		cfg.LoadModule = modinfo.Load
	}
	if cfg.Redactor == nil {
		cfg.Redactor = redact.New()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Env.vars == nil {
		cfg.Env = EnvFrom(nil)
	}

	r := &resolver{cfg: cfg, table: fact.NewTable()}
	fact.DeclareCatalog(r.table)

	steps := []func(context.Context){
		r.environment,
		r.head,
		r.refs,
		r.ciOverride,
		r.pkgVersion,
		r.moduleTree,
		r.buildTime,
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		step(ctx)
	}

	r.res.Table = r.table.Freeze()
	return &r.res, nil
}

// set stores v under key. The catalog fixes every variant, so a failure
// here is a bug in this package.
func (r *resolver) set(key string, v fact.Value) {
	if err := r.table.Set(key, v); err != nil {
		panic(err)
	}
}

func (r *resolver) text(key, v string) { r.set(key, fact.Text(v)) }

func (r *resolver) query(ctx context.Context, op query.Op) (string, bool) {
	out, ok := r.cfg.Querier.Query(ctx, op, r.cfg.Dir)
	if !ok {
		r.cfg.Log.Debug("%s: no answer, leaving dependent facts empty", op)
	}
	return out, ok
}

// ---------------------------------------------------------------------------
// Step 1: environment, module and toolchain
// ---------------------------------------------------------------------------

func (r *resolver) environment(ctx context.Context) {
	env := r.cfg.Env

	mod, err := r.cfg.LoadModule(ctx, r.cfg.Dir)
	if err != nil {
		r.cfg.Log.Debug("module metadata: %v", err)
	}
	r.res.Module = mod

	project := env.Get("PROJECT_NAME")
	if project == "" && mod.Path != "" {
		project = path.Base(mod.Path)
	}
	r.text(fact.ProjectName, project)

	pkg := r.cfg.Package
	if pkg == "" {
		pkg = env.Get("GOPACKAGE")
	}
	if pkg == "" {
		pkg = mod.PackageName
	}
	r.text(fact.PackageName, pkg)

	r.text(fact.PkgVersion, env.Get("PKG_VERSION"))
	r.text(fact.PkgDescription, env.Get("PKG_DESCRIPTION"))
	r.text(fact.ModulePath, mod.Path)
	r.text(fact.ModuleGoVersion, mod.GoVersion)
	r.text(fact.ModuleDir, mod.Dir)

	goos, goarch := env.Get("GOOS"), env.Get("GOARCH")
	if goos == "" {
		goos = runtime.GOOS
	}
	if goarch == "" {
		goarch = runtime.GOARCH
	}
	r.text(fact.BuildOS, runtime.GOOS+"-"+runtime.GOARCH)
	r.text(fact.BuildTarget, goos+"/"+goarch)
	r.text(fact.BuildTargetArch, goarch)
	r.set(fact.CgoEnabled, fact.Bool(cgoEnabled(env)))

	if v, ok := r.query(ctx, query.GoVersion); ok {
		r.text(fact.GoVersion, strings.TrimSpace(v))
	}
}

func cgoEnabled(env Env) bool {
	v, ok := env.Lookup("CGO_ENABLED")
	if !ok || v == "" {
		return build.Default.CgoEnabled
	}
	return v == "1" || v == "true"
}

// ---------------------------------------------------------------------------
// Step 2: HEAD commit and working tree
// ---------------------------------------------------------------------------

func (r *resolver) head(ctx context.Context) {
	if hash, ok := r.query(ctx, query.HeadHash); ok {
		hash = strings.TrimSpace(hash)
		r.text(fact.CommitHash, hash)
		r.text(fact.ShortCommit, shortHash(hash))
	}
	if v, ok := r.query(ctx, query.AuthorName); ok {
		r.text(fact.CommitAuthor, strings.TrimSpace(v))
	}
	if v, ok := r.query(ctx, query.AuthorEmail); ok {
		r.text(fact.CommitEmail, strings.TrimSpace(v))
	}

	if t, ok := r.commitTime(ctx); ok {
		r.text(fact.CommitDate, t.Human())
		r.text(fact.CommitDate2822, t.RFC2822())
		r.text(fact.CommitDate3339, t.RFC3339())
		r.set(fact.CommitTimestamp, fact.Int(t.Unix()))
	}

	if status, ok := r.query(ctx, query.Status); ok {
		r.set(fact.GitClean, fact.Bool(strings.TrimSpace(status) == ""))
		r.text(fact.GitStatusFile, FormatStatus(status))
	}
}

// commitTime prefers the offset-aware date and falls back to the raw Unix
// timestamp, which loses the offset.
func (r *resolver) commitTime(ctx context.Context) (datetime.Time, bool) {
	if raw, ok := r.query(ctx, query.CommitDate); ok {
		t, err := datetime.Parse(raw)
		if err == nil {
			return t, true
		}
		r.cfg.Log.Debug("commit date: %v; trying unix timestamp", err)
	}
	if raw, ok := r.query(ctx, query.CommitUnix); ok {
		t, err := datetime.ParseUnix(raw)
		if err == nil {
			return t, true
		}
		r.cfg.Log.Debug("commit timestamp: %v", err)
	}
	return datetime.Time{}, false
}

func shortHash(hash string) string {
	if len(hash) > ShortHashLen {
		return hash[:ShortHashLen]
	}
	return hash
}

// FormatStatus turns `git status --porcelain` output into the GIT_STATUS_FILE
// listing: every path with worktree changes as "  * <path> (dirty)", then
// every path with staged changes as "  * <path> (staged)".
func FormatStatus(porcelain string) string {
	var dirty, staged []string
	for _, line := range strings.Split(porcelain, "\n") {
		if len(line) < 4 {
			continue
		}
		x, y, file := line[0], line[1], line[3:]
		if _, to, ok := strings.Cut(file, " -> "); ok {
			file = to
		}
		if strings.HasPrefix(file, `"`) {
			if s, err := strconv.Unquote(file); err == nil {
				file = s
			}
		}
		if y != ' ' {
			dirty = append(dirty, "  * "+file+" (dirty)")
		}
		if x != ' ' && x != '?' {
			staged = append(staged, "  * "+file+" (staged)")
		}
	}
	return strings.Join(append(dirty, staged...), "\n")
}

// ---------------------------------------------------------------------------
// Step 3: branch and tags
// ---------------------------------------------------------------------------

func (r *resolver) refs(ctx context.Context) {
	if v, ok := r.query(ctx, query.Branch); ok {
		r.text(fact.Branch, strings.TrimSpace(v))
	}
	if v, ok := r.query(ctx, query.TagsContaining); ok {
		first, _, _ := strings.Cut(strings.TrimSpace(v), "\n")
		r.text(fact.Tag, strings.TrimSpace(first))
	}

	lastTag, ok := r.query(ctx, query.LastTag)
	if !ok {
		return
	}
	lastTag = strings.TrimSpace(lastTag)
	r.text(fact.LastTag, lastTag)

	desc, ok := r.query(ctx, query.Describe)
	if !ok {
		return
	}
	res, err := describe.Parse(lastTag, strings.TrimSpace(desc))
	if err != nil {
		r.cfg.Log.Warn("%v", err)
		return
	}
	r.res.Describe = res
	r.set(fact.CommitsSinceTag, fact.Int(int64(res.Distance())))
}

// ---------------------------------------------------------------------------
// Step 4: CI override
// ---------------------------------------------------------------------------

// ciOverride replaces branch and tag with what the CI system reports. A CI
// tag also becomes LAST_TAG. Commit facts are left alone.
func (r *resolver) ciOverride(context.Context) {
	kind := ci.Detect(r.cfg.Env.vars)
	r.res.CI = kind
	refs, ok := ci.Lookup(kind, r.cfg.Env.vars)
	if !ok {
		return
	}
	r.cfg.Log.Debug("ci %s: branch=%q tag=%q", kind, refs.Branch, refs.Tag)
	if refs.Branch != "" {
		r.text(fact.Branch, refs.Branch)
	}
	if refs.Tag != "" {
		r.text(fact.Tag, refs.Tag)
		r.text(fact.LastTag, refs.Tag)
	}
}

// ---------------------------------------------------------------------------
// Package version
// ---------------------------------------------------------------------------

// pkgVersion splits PKG_VERSION into its components. Without PKG_VERSION
// the tag at HEAD, then the last tag, stands in when it is a version.
func (r *resolver) pkgVersion(context.Context) {
	raw := r.table.TextOf(fact.PkgVersion)
	if raw == "" {
		for _, key := range []string{fact.Tag, fact.LastTag} {
			candidate := r.table.TextOf(key)
			if candidate == "" {
				continue
			}
			if _, err := goversion.NewVersion(candidate); err == nil {
				raw = candidate
				r.text(fact.PkgVersion, raw)
				break
			}
		}
	}
	if raw == "" {
		return
	}
	v, err := goversion.NewVersion(raw)
	if err != nil {
		r.cfg.Log.Debug("PKG_VERSION %q: %v", raw, err)
		return
	}
	segs := v.Segments()
	r.text(fact.PkgVersionMajor, strconv.Itoa(segs[0]))
	r.text(fact.PkgVersionMinor, strconv.Itoa(segs[1]))
	r.text(fact.PkgVersionPatch, strconv.Itoa(segs[2]))
	r.text(fact.PkgVersionPre, v.Prerelease())
}

// ---------------------------------------------------------------------------
// Step 5: dependency tree
// ---------------------------------------------------------------------------

func (r *resolver) moduleTree(ctx context.Context) {
	raw, ok := r.query(ctx, query.ModuleList)
	if !ok {
		return
	}
	mods, err := query.DecodeModules(strings.NewReader(raw))
	if err != nil {
		r.cfg.Log.Debug("%v", err)
		return
	}
	env := r.cfg.Env
	tree := query.RenderModuleTree(mods, query.ProxyEnv{
		GOPROXY:   env.Get("GOPROXY"),
		GONOPROXY: env.Get("GONOPROXY"),
		GOPRIVATE: env.Get("GOPRIVATE"),
	})
	r.text(fact.ModuleTree, r.cfg.Redactor.Redact(tree))
}

// ---------------------------------------------------------------------------
// Build time and identity
// ---------------------------------------------------------------------------

func (r *resolver) buildTime(context.Context) {
	t, err := datetime.Now(r.cfg.Env.vars, r.cfg.Clock)
	if err != nil {
		r.cfg.Log.Warn("%v; using the current time", err)
		t = datetime.FromTime(r.cfg.Clock())
	}
	r.text(fact.BuildTime, t.Human())
	r.text(fact.BuildTime2822, t.RFC2822())
	r.text(fact.BuildTime3339, t.RFC3339())
	r.set(fact.BuildTimestamp, fact.Int(t.Unix()))

	id := BuildID(r.table.TextOf(fact.ModulePath), r.table.TextOf(fact.CommitHash), t.Unix())
	r.set(fact.BuildID, fact.Bytes(id[:]))
}

// BuildID is the name-based (SHA-1, version 5) UUID of a module path,
// commit hash and build timestamp. Identical inputs give identical IDs.
func BuildID(modulePath, commitHash string, buildUnix int64) uuid.UUID {
	name := modulePath + "\x00" + commitHash + "\x00" + strconv.FormatInt(buildUnix, 10)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name))
}
