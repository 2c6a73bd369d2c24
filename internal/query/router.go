package query

import "context"

// headOps are answered from the HEAD commit alone. go-git reads them
// directly from the object store, so auto mode routes them there.
var headOps = map[Op]bool{
	Branch:      true,
	HeadHash:    true,
	AuthorName:  true,
	AuthorEmail: true,
	CommitDate:  true,
	CommitUnix:  true,
}

// Router sends each operation to exactly one backend. Answers are never
// merged across backends.
type Router struct {
	routes map[Op]Querier
}

// NewRouter builds the route table for mode. Toolchain operations always go
// to cli; in lib mode every git operation goes to lib; in auto mode only
// the HEAD operations do.
func NewRouter(mode Backend, cli, lib Querier) *Router {
	r := &Router{routes: make(map[Op]Querier, len(Ops))}
	for _, op := range Ops {
		switch {
		case op == GoVersion || op == ModuleList:
			r.routes[op] = cli
		case mode == BackendLib:
			r.routes[op] = lib
		case mode == BackendAuto && headOps[op]:
			r.routes[op] = lib
		default:
			r.routes[op] = cli
		}
	}
	return r
}

// Route returns the backend responsible for op.
func (r *Router) Route(op Op) Querier {
	return r.routes[op]
}

func (r *Router) Query(ctx context.Context, op Op, dir string) (string, bool) {
	q := r.routes[op]
	if q == nil {
		return "", false
	}
	return q.Query(ctx, op, dir)
}

// Default returns the router for mode over the stock CLI and go-git
// backends.
func Default(mode Backend, log Logger) *Router {
	return NewRouter(mode, NewGitCLI(log), NewGitLib(log))
}
