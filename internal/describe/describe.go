// Package describe parses `git describe --tags` output into its tag,
// distance and abbreviated hash parts.
package describe

import (
	"fmt"
	"strconv"
	"strings"
)

// HashPrefix precedes the abbreviated object name in describe output.
const HashPrefix = "g"

// Result is a parsed describe string. CommitsSince and Hash are either both
// set (HasSuffix) or both empty.
type Result struct {
	Tag          string
	CommitsSince *int
	Hash         string
	HasSuffix    bool
}

// Distance returns the commit count since Tag, or 0 when HEAD is the tag.
func (r Result) Distance() int {
	if r.CommitsSince == nil {
		return 0
	}
	return *r.CommitsSince
}

// FormatError reports a describe string that is inconsistent with the last
// tag or does not follow the <tag>-<n>-g<hash> layout.
type FormatError struct {
	LastTag  string
	Describe string
	Reason   string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("describe: %q (last tag %q): %s", e.Describe, e.LastTag, e.Reason)
}

// Parse splits describe into its parts. lastTag is the nearest reachable tag
// obtained separately; describe must start with it.
//
// The suffix is read from the right: the last segment is the hash, the one
// before it the distance, and everything to the left belongs to the tag, so
// tags that contain hyphens survive intact.
func Parse(lastTag, describe string) (Result, error) {
	if !strings.HasPrefix(describe, lastTag) {
		return Result{}, &FormatError{LastTag: lastTag, Describe: describe, Reason: "does not start with last tag"}
	}
	if describe == lastTag {
		return Result{Tag: lastTag}, nil
	}

	parts := strings.Split(describe, "-")
	if len(parts) < 3 {
		return Result{}, &FormatError{LastTag: lastTag, Describe: describe, Reason: "expected <tag>-<n>-g<hash>"}
	}

	hashSeg := parts[len(parts)-1]
	if !strings.HasPrefix(hashSeg, HashPrefix) || len(hashSeg) == len(HashPrefix) {
		return Result{}, &FormatError{LastTag: lastTag, Describe: describe, Reason: fmt.Sprintf("hash segment %q lacks %q prefix", hashSeg, HashPrefix)}
	}

	countSeg := parts[len(parts)-2]
	n, err := strconv.ParseUint(countSeg, 10, 31)
	if err != nil {
		return Result{}, &FormatError{LastTag: lastTag, Describe: describe, Reason: fmt.Sprintf("commit count %q is not a non-negative integer", countSeg)}
	}
	count := int(n)

	tag := strings.Join(parts[:len(parts)-2], "-")
	if tag != lastTag {
		return Result{}, &FormatError{LastTag: lastTag, Describe: describe, Reason: fmt.Sprintf("names tag %q", tag)}
	}

	return Result{
		Tag:          tag,
		CommitsSince: &count,
		Hash:         strings.TrimPrefix(hashSeg, HashPrefix),
		HasSuffix:    true,
	}, nil
}
