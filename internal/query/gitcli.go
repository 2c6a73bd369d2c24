package query

import (
	"context"
	"os/exec"
	"strings"
	"unicode/utf8"
)

// GitCLI answers queries by running the git and go binaries.
type GitCLI struct {
	// Git and Go are the binaries to run. Empty means "git" and "go" on PATH.
	Git string
	Go  string
	Log Logger
}

// NewGitCLI returns a GitCLI using the binaries on PATH.
func NewGitCLI(log Logger) *GitCLI {
	return &GitCLI{Log: log}
}

func (g *GitCLI) argv(op Op) (string, []string) {
	gitBin, goBin := g.Git, g.Go
	if gitBin == "" {
		gitBin = "git"
	}
	if goBin == "" {
		goBin = "go"
	}
	switch op {
	case Branch:
		return gitBin, []string{"symbolic-ref", "--short", "-q", "HEAD"}
	case HeadHash:
		return gitBin, []string{"rev-parse", "HEAD"}
	case AuthorName:
		return gitBin, []string{"log", "-1", "--format=%an"}
	case AuthorEmail:
		return gitBin, []string{"log", "-1", "--format=%ae"}
	case CommitDate:
		return gitBin, []string{"log", "-1", "--format=%cI"}
	case CommitUnix:
		return gitBin, []string{"log", "-1", "--format=%ct"}
	case Status:
		return gitBin, []string{"status", "--porcelain"}
	case TagsContaining:
		return gitBin, []string{"tag", "-l", "--contains", "HEAD"}
	case LastTag:
		return gitBin, []string{"describe", "--tags", "--abbrev=0", "HEAD"}
	case Describe:
		return gitBin, []string{"describe", "--tags", "HEAD"}
	case GoVersion:
		return goBin, []string{"version"}
	case ModuleList:
		return goBin, []string{"list", "-m", "-json", "all"}
	}
	return "", nil
}

// Query runs the command for op in dir. Trailing newlines are trimmed;
// leading whitespace is kept because porcelain status lines depend on it.
func (g *GitCLI) Query(ctx context.Context, op Op, dir string) (string, bool) {
	log := g.Log
	if log == nil {
		log = nopLogger{}
	}
	bin, args := g.argv(op)
	if bin == "" {
		log.Debug("query %s: unsupported by cli backend", op)
		return "", false
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		log.Debug("query %s: %s %s: %v", op, bin, strings.Join(args, " "), err)
		return "", false
	}
	if !utf8.Valid(out) {
		log.Debug("query %s: output is not valid UTF-8", op)
		return "", false
	}
	return strings.TrimRight(string(out), "\r\n"), true
}
