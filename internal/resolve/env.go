package resolve

import (
	"os"
	"strings"
)

// Env is an immutable snapshot of the build environment.
type Env struct {
	vars map[string]string
}

// Snapshot captures the process environment once.
func Snapshot() Env {
	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vars[k] = v
	}
	return Env{vars: vars}
}

// EnvFrom builds a snapshot from m. m is copied.
func EnvFrom(m map[string]string) Env {
	vars := make(map[string]string, len(m))
	for k, v := range m {
		vars[k] = v
	}
	return Env{vars: vars}
}

// Get returns the value of key, or "".
func (e Env) Get(key string) string { return e.vars[key] }

// Lookup returns the value of key and whether it was set.
func (e Env) Lookup(key string) (string, bool) {
	v, ok := e.vars[key]
	return v, ok
}

// Map returns a copy of the snapshot.
func (e Env) Map() map[string]string {
	out := make(map[string]string, len(e.vars))
	for k, v := range e.vars {
		out[k] = v
	}
	return out
}
