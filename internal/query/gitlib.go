package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

var (
	errDetached = errors.New("HEAD is detached")
	errNoTags   = errors.New("no tag reachable from HEAD")
)

// abbrevLen matches git's default object name abbreviation.
const abbrevLen = 7

// GitLib answers git queries from the repository on disk through go-git,
// without a git binary. Toolchain operations are not supported.
type GitLib struct {
	Log Logger
}

// NewGitLib returns a GitLib.
func NewGitLib(log Logger) *GitLib {
	return &GitLib{Log: log}
}

func (g *GitLib) Query(ctx context.Context, op Op, dir string) (string, bool) {
	log := g.Log
	if log == nil {
		log = nopLogger{}
	}
	if op == GoVersion || op == ModuleList {
		log.Debug("query %s: unsupported by lib backend", op)
		return "", false
	}
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		log.Debug("query %s: open %s: %v", op, dir, err)
		return "", false
	}
	out, err := g.answer(ctx, repo, op)
	if err != nil {
		log.Debug("query %s: %v", op, err)
		return "", false
	}
	return out, true
}

func (g *GitLib) answer(ctx context.Context, repo *git.Repository, op Op) (string, error) {
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}

	switch op {
	case Branch:
		if !head.Name().IsBranch() {
			return "", errDetached
		}
		return head.Name().Short(), nil
	case HeadHash:
		return head.Hash().String(), nil
	case Status:
		return worktreeStatus(repo)
	case TagsContaining:
		return tagsContaining(ctx, repo, head.Hash())
	case LastTag, Describe:
		tag, distance, err := nearestTag(ctx, repo, head.Hash())
		if err != nil {
			return "", err
		}
		if op == LastTag || distance == 0 {
			return tag, nil
		}
		return fmt.Sprintf("%s-%d-g%s", tag, distance, head.Hash().String()[:abbrevLen]), nil
	}

	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return "", fmt.Errorf("read HEAD commit: %w", err)
	}
	switch op {
	case AuthorName:
		return commit.Author.Name, nil
	case AuthorEmail:
		return commit.Author.Email, nil
	case CommitDate:
		return commit.Committer.When.Format(time.RFC3339), nil
	case CommitUnix:
		return strconv.FormatInt(commit.Committer.When.Unix(), 10), nil
	}
	return "", fmt.Errorf("unknown op %q", op)
}

// worktreeStatus renders the worktree in `git status --porcelain` form,
// sorted by path.
func worktreeStatus(repo *git.Repository) (string, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("open worktree: %w", err)
	}
	st, err := wt.Status()
	if err != nil {
		return "", fmt.Errorf("worktree status: %w", err)
	}
	paths := make([]string, 0, len(st))
	for p, fs := range st {
		if fs.Staging == git.Unmodified && fs.Worktree == git.Unmodified {
			continue
		}
		paths = append(paths, p)
	}
	sort.Strings(paths)

	lines := make([]string, len(paths))
	for i, p := range paths {
		fs := st[p]
		lines[i] = fmt.Sprintf("%c%c %s", fs.Staging, fs.Worktree, p)
	}
	return strings.Join(lines, "\n"), nil
}

// tagCommit peels a tag reference to its commit. Lightweight tags point at
// the commit directly.
func tagCommit(repo *git.Repository, ref *plumbing.Reference) (*object.Commit, error) {
	if tag, err := repo.TagObject(ref.Hash()); err == nil {
		return tag.Commit()
	}
	return repo.CommitObject(ref.Hash())
}

// tagsByCommit maps each tagged commit to its tag names, sorted.
func tagsByCommit(repo *git.Repository) (map[plumbing.Hash][]string, error) {
	iter, err := repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	out := make(map[plumbing.Hash][]string)
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		c, err := tagCommit(repo, ref)
		if err != nil {
			// Tags on trees or blobs do not name a commit.
			return nil
		}
		out[c.Hash] = append(out[c.Hash], ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, err
	}
	for h := range out {
		sort.Strings(out[h])
	}
	return out, nil
}

func tagsContaining(ctx context.Context, repo *git.Repository, head plumbing.Hash) (string, error) {
	byCommit, err := tagsByCommit(repo)
	if err != nil {
		return "", err
	}
	headCommit, err := repo.CommitObject(head)
	if err != nil {
		return "", fmt.Errorf("read HEAD commit: %w", err)
	}
	var names []string
	for h, tags := range byCommit {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if h == head {
			names = append(names, tags...)
			continue
		}
		c, err := repo.CommitObject(h)
		if err != nil {
			continue
		}
		if ok, err := headCommit.IsAncestor(c); err == nil && ok {
			names = append(names, tags...)
		}
	}
	sort.Strings(names)
	return strings.Join(names, "\n"), nil
}

// nearestTag walks history from head and returns the first tagged commit
// it meets together with the number of commits walked past. When several
// tags name that commit, the last one in sort order wins.
func nearestTag(ctx context.Context, repo *git.Repository, head plumbing.Hash) (string, int, error) {
	byCommit, err := tagsByCommit(repo)
	if err != nil {
		return "", 0, err
	}
	if len(byCommit) == 0 {
		return "", 0, errNoTags
	}
	iter, err := repo.Log(&git.LogOptions{From: head})
	if err != nil {
		return "", 0, fmt.Errorf("walk history: %w", err)
	}
	defer iter.Close()

	var (
		found    string
		distance int
	)
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if tags, ok := byCommit[c.Hash]; ok {
			found = tags[len(tags)-1]
			return storer.ErrStop
		}
		distance++
		return nil
	})
	if err != nil {
		return "", 0, err
	}
	if found == "" {
		return "", 0, errNoTags
	}
	return found, distance, nil
}
