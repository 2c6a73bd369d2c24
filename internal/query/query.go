// Package query answers read-only metadata questions about a working tree:
// git state and the Go toolchain.
//
// Every backend reports failure as absence. A missing binary, a directory
// that is not a repository, a non-zero exit or output that is not valid
// UTF-8 all yield ("", false); callers treat that as "fact unknown".
package query

import (
	"context"
	"fmt"
)

// Op names one query.
type Op string

const (
	Branch         Op = "branch"
	HeadHash       Op = "head-hash"
	AuthorName     Op = "author-name"
	AuthorEmail    Op = "author-email"
	CommitDate     Op = "commit-date"
	CommitUnix     Op = "commit-unix"
	Status         Op = "status"
	TagsContaining Op = "tags-containing"
	LastTag        Op = "last-tag"
	Describe       Op = "describe"
	GoVersion      Op = "go-version"
	ModuleList     Op = "module-list"
)

// Ops lists every operation.
var Ops = []Op{
	Branch, HeadHash, AuthorName, AuthorEmail, CommitDate, CommitUnix,
	Status, TagsContaining, LastTag, Describe, GoVersion, ModuleList,
}

// Querier is the query capability.
type Querier interface {
	Query(ctx context.Context, op Op, dir string) (string, bool)
}

// Func adapts a function to Querier.
type Func func(ctx context.Context, op Op, dir string) (string, bool)

func (f Func) Query(ctx context.Context, op Op, dir string) (string, bool) {
	return f(ctx, op, dir)
}

// Fixed answers from a map, ignoring dir. Ops missing from the map are
// absent.
type Fixed map[Op]string

func (f Fixed) Query(_ context.Context, op Op, _ string) (string, bool) {
	v, ok := f[op]
	return v, ok
}

// Logger receives the reason a query degraded.
type Logger interface {
	Debug(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}

// Backend selects which implementation answers git operations.
type Backend string

const (
	BackendAuto Backend = "auto"
	BackendCLI  Backend = "cli"
	BackendLib  Backend = "lib"
)

// ParseBackend validates a backend name. The empty string means auto.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case "":
		return BackendAuto, nil
	case BackendAuto, BackendCLI, BackendLib:
		return b, nil
	}
	return "", fmt.Errorf("query: unknown backend %q (want auto, cli or lib)", s)
}
