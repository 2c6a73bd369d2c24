package provenance

import (
	"io"
	"time"

	"provenance/internal/output"
	"provenance/internal/query"
	"provenance/internal/resolve"
)

// Hook appends declarations to the still-open artifact after the generated
// ones.
type Hook func(w io.Writer) error

// Option configures a Builder.
type Option func(*Builder)

// WithDir sets the directory facts are generated for. Defaults to ".".
func WithDir(dir string) Option {
	return func(b *Builder) { b.dir = dir }
}

// WithOutput sets the artifact path. Relative paths are taken from the
// generation directory. Defaults to provenance_gen.go.
func WithOutput(path string) Option {
	return func(b *Builder) { b.output = path }
}

// WithPackage sets the package clause of the artifact.
func WithPackage(name string) Option {
	return func(b *Builder) { b.pkg = name }
}

// WithDeny adds keys or globs to the deny set.
func WithDeny(rules ...string) Option {
	return func(b *Builder) { b.deny = append(b.deny, rules...) }
}

// WithHook registers a post-generation hook.
func WithHook(h Hook) Option {
	return func(b *Builder) { b.hook = h }
}

// WithQuerier replaces the query backend entirely.
func WithQuerier(q query.Querier) Option {
	return func(b *Builder) { b.querier = q }
}

// WithBackend selects the stock backend: auto, cli or lib.
func WithBackend(name string) Option {
	return func(b *Builder) { b.backend = name }
}

// WithEnv replaces the process environment snapshot.
func WithEnv(env map[string]string) Option {
	return func(b *Builder) {
		e := resolve.EnvFrom(env)
		b.env = &e
	}
}

// WithClock replaces the build clock.
func WithClock(clock func() time.Time) Option {
	return func(b *Builder) { b.clock = clock }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l output.LoggerInterface) Option {
	return func(b *Builder) { b.log = l }
}

// WithEvidence writes a Markdown provenance note to path. Relative paths
// are taken from the module root.
func WithEvidence(path string) Option {
	return func(b *Builder) { b.evidence = path }
}

// WithoutSettings ignores .provenance/settings.yaml.
func WithoutSettings() Option {
	return func(b *Builder) { b.noSettings = true }
}
