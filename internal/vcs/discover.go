// Package vcs implements the VCS backends (Git, Mercurial, and the
// hg-git bridge) and upward root discovery. The Git backend reads
// repositories through go-git plumbing; the Mercurial backend shells
// out to hg.
package vcs

import (
	"os"
	"path/filepath"
	"strings"
)

// Backend is a VCS backend: Git, Mercurial, or the hg-git bridge.
type Backend interface {
	// Name identifies the backend for diagnostics ("git", "hg").
	Name() string

	// Detect reports whether path's control directory marks this
	// backend as present.
	Detect(path string) bool

	// Parse produces an ScmVersion from the repository rooted at path.
	Parse(path string, opts ParseOptions) (*Result, error)

	// ListFiles returns the paths the VCS tracks under path, consumed by
	// the file-finder collaborator (the CLI's ls subcommand); version
	// inference itself never calls it.
	ListFiles(path string, opts ParseOptions) ([]string, error)
}

// DefaultBackends is the probe order Discover uses when the caller has no
// reason to restrict it: the hg-git bridge must come before plain
// Mercurial so a bridged checkout is not claimed by the hg backend first.
func DefaultBackends() []Backend {
	return []Backend{GitBackend{}, HgGitBackend{}, HgBackend{}}
}

// Discover walks from start toward the filesystem root looking for a
// directory any registered backend detects, honoring the ignore list and
// searchParents flag. With searchParents false, only start is probed.
//
// Returns the resolved root and the matching backend, or ("", nil, false)
// if none matched.
func Discover(start string, backends []Backend, ignore []string, searchParents bool) (string, Backend, bool) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", nil, false
	}

	ignoreSet := make(map[string]struct{}, len(ignore))
	for _, p := range ignore {
		abs, err := filepath.Abs(p)
		if err == nil {
			ignoreSet[abs] = struct{}{}
		}
	}

	for {
		if _, skip := ignoreSet[dir]; !skip {
			for _, b := range backends {
				if b.Detect(dir) {
					return dir, b, true
				}
			}
		}

		if !searchParents {
			return "", nil, false
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil, false
		}
		dir = parent
	}
}

// IgnoreListFromEnv splits an OS-pathsep separated ignore list, as read
// from SCMVER_IGNORE_VCS_ROOTS.
func IgnoreListFromEnv(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, string(os.PathListSeparator))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
