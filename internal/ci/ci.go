// Package ci recognises the CI system a build runs under and extracts the
// branch or tag it reports.
package ci

import "strings"

// Kind is a recognised CI system.
type Kind int

const (
	None Kind = iota
	GitHub
	GitLab
)

func (k Kind) String() string {
	switch k {
	case GitHub:
		return "github"
	case GitLab:
		return "gitlab"
	}
	return "none"
}

// Ref prefixes used by GITHUB_REF.
const (
	headsPrefix = "refs/heads/"
	tagsPrefix  = "refs/tags/"
)

// Detect returns the CI system named by env. GitLab wins when both
// sentinels are set.
func Detect(env map[string]string) Kind {
	if env["GITLAB_CI"] == "true" {
		return GitLab
	}
	if env["GITHUB_ACTIONS"] == "true" {
		return GitHub
	}
	return None
}

// Refs is the branch/tag pair a CI system reports. An empty field means the
// CI said nothing about it.
type Refs struct {
	Branch string
	Tag    string
}

// Lookup returns the refs reported by kind. ok is false when kind is None or
// its variables are unset, in which case the git-derived values stand.
func Lookup(kind Kind, env map[string]string) (Refs, bool) {
	switch kind {
	case GitHub:
		ref := env["GITHUB_REF"]
		switch {
		case strings.HasPrefix(ref, tagsPrefix):
			return Refs{Tag: strings.TrimPrefix(ref, tagsPrefix)}, true
		case strings.HasPrefix(ref, headsPrefix):
			return Refs{Branch: strings.TrimPrefix(ref, headsPrefix)}, true
		}
	case GitLab:
		if tag := env["CI_COMMIT_TAG"]; tag != "" {
			return Refs{Tag: tag}, true
		}
		if name := env["CI_COMMIT_REF_NAME"]; name != "" {
			return Refs{Branch: name}, true
		}
	}
	return Refs{}, false
}
