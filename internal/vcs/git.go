package vcs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/storage/filesystem"

	"github.com/jaxxstorm/scmver/internal/errs"
	"github.com/jaxxstorm/scmver/internal/pep440"
)

// GitBackend is the Git VCS backend. Its describe step walks commit
// history through go-git plumbing rather than shelling out, so archives
// extracted into odd environments still resolve as long as .git is
// intact.
type GitBackend struct{}

func (GitBackend) Name() string { return "git" }

// Detect reports whether path contains a .git entry — a directory for a
// normal checkout, or a file (gitdir: ...) for a worktree or submodule.
func (GitBackend) Detect(path string) bool {
	_, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil
}

// OpenRepository opens the Git repository enclosing path, following
// worktree and common-dir indirection.
func OpenRepository(path string) (*git.Repository, error) {
	return git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
}

func (GitBackend) Parse(path string, opts ParseOptions) (*Result, error) {
	repo, err := OpenRepository(path)
	if err != nil {
		return nil, fmt.Errorf("opening git repository: %w", err)
	}

	gitDir := gitDirOf(repo, path)

	if err := runPreParseHook(repo, gitDir, path, opts); err != nil {
		return nil, err
	}

	headRef, err := repo.Head()
	if err != nil {
		// Unborn/empty repository: no commits yet.
		if err == plumbing.ErrReferenceNotFound {
			dirty, derr := gitWorkTreeIsDirty(repo, gitDir, opts)
			if derr != nil {
				return nil, derr
			}
			return &Result{Tag: pep440.Zero(), Distance: 0, Dirty: dirty, Config: opts.SchemeConfig}, nil
		}
		return nil, &errs.VcsCommandError{Argv: []string{"git", "rev-parse", "HEAD"}, Cause: err}
	}

	headCommit, err := repo.CommitObject(headRef.Hash())
	if err != nil {
		return nil, &errs.VcsCommandError{Argv: []string{"git", "log", "-1"}, Cause: err}
	}

	tagStr, distance, shortHash, _, found, err := gitDescribe(repo, headRef.Hash(), opts)
	if err != nil {
		return nil, err
	}

	var tag *pep440.Version
	if !found {
		tag = pep440.Zero()
		distance, err = gitCommitCount(repo, headRef.Hash())
		if err != nil {
			return nil, err
		}
		shortHash = shortenHash(headRef.Hash().String())
	} else {
		tag, err = pep440.ParseTag(opts.TagRegex, tagStr, opts.Normalize, false)
		if err != nil {
			return nil, &errs.TagParseError{Tag: tagStr, Cause: err}
		}
	}

	dirty, err := gitWorkTreeIsDirty(repo, gitDir, opts)
	if err != nil {
		return nil, err
	}

	branch := ""
	if headRef.Name().IsBranch() {
		branch = headRef.Name().Short()
	}

	nodeDate := headCommit.Committer.When.UTC()

	return &Result{
		Tag:      tag,
		Distance: distance,
		Node:     "g" + shortHash,
		Dirty:    dirty,
		Branch:   branch,
		NodeDate: &nodeDate,
		Config:   opts.SchemeConfig,
	}, nil
}

func shortenHash(full string) string {
	if len(full) > 7 {
		return full[:7]
	}
	return full
}

// gitDirOf returns the real .git control directory for repo, falling
// back to path when the storer isn't filesystem-backed (e.g. in-memory
// test repositories).
func gitDirOf(repo *git.Repository, path string) string {
	if fsStorage, ok := repo.Storer.(*filesystem.Storage); ok {
		return fsStorage.Filesystem().Root()
	}
	return filepath.Join(path, ".git")
}

func runPreParseHook(repo *git.Repository, gitDir, path string, opts ParseOptions) error {
	mode := opts.PreParse
	if mode == "" {
		mode = WarnOnShallow
	}

	shallow := isShallowClone(gitDir)

	switch mode {
	case WarnOnShallow:
		if shallow {
			opts.Warn.Warn("git repository at %s is a shallow clone; version inference may be unreliable", path)
		}
	case FailOnShallow:
		if shallow {
			return &errs.RepoShallowError{Root: path}
		}
	case FetchOnShallow:
		if shallow {
			res, err := opts.Runner.Run(path, "git", "fetch", "--unshallow")
			if err != nil || res.ExitCode != 0 {
				return &errs.RepoShallowError{Root: path}
			}
		}
	case FailOnMissingSubmodules:
		missing, err := missingSubmodules(path)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return &errs.SubmoduleMissingError{Path: missing[0]}
		}
	}

	return nil
}

func isShallowClone(gitDir string) bool {
	_, err := os.Stat(filepath.Join(gitDir, "shallow"))
	return err == nil
}

// missingSubmodules parses .gitmodules for declared submodule paths and
// reports which are not populated on disk (no entries at all, which is
// what "declared but never initialized" looks like).
func missingSubmodules(root string) ([]string, error) {
	f, err := os.Open(filepath.Join(root, ".gitmodules"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading .gitmodules: %w", err)
	}
	defer f.Close()

	var missing []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "path") {
			continue
		}
		idx := strings.IndexByte(line, '=')
		if idx < 0 {
			continue
		}
		subPath := strings.TrimSpace(line[idx+1:])
		if subPath == "" {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(root, subPath))
		if err != nil || len(entries) == 0 {
			missing = append(missing, subPath)
		}
	}
	return missing, nil
}

// gitDescribe walks commit history from head looking for the nearest
// reachable tag the configured tag regex/filter accepts, the equivalent
// of `git describe --tags --long` restricted to version-shaped tags.
func gitDescribe(repo *git.Repository, head plumbing.Hash, opts ParseOptions) (tag string, distance int, shortHash string, exact bool, found bool, err error) {
	tagsAtCommit, err := collectTagsByCommit(repo, opts)
	if err != nil {
		return "", 0, "", false, false, err
	}

	if name, ok := tagsAtCommit[head]; ok {
		return name, 0, shortenHash(head.String()), true, true, nil
	}

	headCommit, err := repo.CommitObject(head)
	if err != nil {
		return "", 0, "", false, false, &errs.VcsCommandError{Argv: []string{"git", "log"}, Cause: err}
	}

	steps := 0
	var foundTag string
	walker := object.NewCommitPreorderIter(headCommit, nil, nil)
	walkErr := walker.ForEach(func(c *object.Commit) error {
		if c.Hash == head {
			return nil // already checked above
		}
		steps++
		if name, ok := tagsAtCommit[c.Hash]; ok {
			foundTag = name
			return storer.ErrStop
		}
		return nil
	})
	if walkErr != nil && walkErr != storer.ErrStop {
		return "", 0, "", false, false, &errs.VcsCommandError{Argv: []string{"git", "log", "--all"}, Cause: walkErr}
	}

	if foundTag == "" {
		return "", 0, "", false, false, nil
	}
	return foundTag, steps, shortenHash(head.String()), false, true, nil
}

// collectTagsByCommit resolves every tag reference to its target commit
// hash, filtered through the configured TagFilter and tag regex. Tags
// the regex cannot parse are excluded rather than causing describe to
// fail, so one stray non-version tag cannot poison inference.
func collectTagsByCommit(repo *git.Repository, opts ParseOptions) (map[plumbing.Hash]string, error) {
	tagRefs, err := repo.Tags()
	if err != nil {
		return nil, &errs.VcsCommandError{Argv: []string{"git", "tag", "-l"}, Cause: err}
	}

	result := make(map[plumbing.Hash]string)
	err = tagRefs.ForEach(func(ref *plumbing.Reference) error {
		name := strings.TrimPrefix(ref.Name().String(), "refs/tags/")

		if opts.TagFilter != nil && !opts.TagFilter(name) {
			return nil
		}
		if _, perr := pep440.ExtractVersionSubstring(opts.TagRegex, name); perr != nil {
			return nil
		}

		commitHash, ok := resolveTagCommit(repo, ref)
		if !ok {
			return nil
		}
		// Prefer the first tag seen if two tags point at the same
		// commit; real git describe picks one deterministically too.
		if _, exists := result[commitHash]; !exists {
			result[commitHash] = name
		}
		return nil
	})
	return result, err
}

func resolveTagCommit(repo *git.Repository, ref *plumbing.Reference) (plumbing.Hash, bool) {
	if ref.Type() != plumbing.HashReference {
		return plumbing.ZeroHash, false
	}
	if tagObj, err := repo.TagObject(ref.Hash()); err == nil {
		return tagObj.Target, true
	} else if err == plumbing.ErrObjectNotFound {
		return ref.Hash(), true
	}
	return plumbing.ZeroHash, false
}

// gitCommitCount counts commits reachable from head, the equivalent of
// `git rev-list --count HEAD`, used as the fallback distance when no tag
// is reachable at all.
func gitCommitCount(repo *git.Repository, head plumbing.Hash) (int, error) {
	commit, err := repo.CommitObject(head)
	if err != nil {
		return 0, &errs.VcsCommandError{Argv: []string{"git", "rev-list", "--count", "HEAD"}, Cause: err}
	}
	count := 0
	walker := object.NewCommitPreorderIter(commit, nil, nil)
	err = walker.ForEach(func(*object.Commit) error {
		count++
		return nil
	})
	if err != nil {
		return 0, &errs.VcsCommandError{Argv: []string{"git", "rev-list", "--count", "HEAD"}, Cause: err}
	}
	return count, nil
}

// gitWorkTreeIsDirty checks for tracked-content changes: a fast path
// shelling out to git for on-disk repositories (git refreshes the index
// first, so a pure mtime touch doesn't count), falling back to go-git's
// own status check for repositories without a real working filesystem
// (e.g. in-memory test fixtures).
func gitWorkTreeIsDirty(repo *git.Repository, gitDir string, opts ParseOptions) (bool, error) {
	workTree, err := repo.Worktree()
	if err != nil {
		// Bare repository: never dirty.
		return false, nil
	}

	if _, ok := repo.Storer.(*filesystem.Storage); ok {
		return gitDirtyViaCommand(workTree.Filesystem.Root(), opts)
	}

	status, err := workTree.Status()
	if err != nil {
		return false, fmt.Errorf("getting git status: %w", err)
	}
	return !status.IsClean(), nil
}

func gitDirtyViaCommand(repoPath string, opts ParseOptions) (bool, error) {
	if _, err := opts.Runner.Run(repoPath, "git", "update-index", "-q", "--refresh"); err != nil {
		// If even refreshing the index fails, assume dirty rather than
		// propagate: this is a best-effort freshness check, not a
		// required VCS query.
		return true, nil
	}

	res, err := opts.Runner.Run(repoPath, "git", "diff-files", "--name-status", "--ignore-space-at-eol")
	if err != nil {
		return false, err
	}
	if res.ExitCode != 0 {
		return true, nil
	}
	return res.Stdout != "", nil
}

// DefaultDescribeCommand is the default describe argv the configuration
// layer exposes, even though this backend's own describe step is
// implemented via go-git plumbing rather than shelling out to it.
var DefaultDescribeCommand = []string{"git", "describe", "--dirty", "--tags", "--long", "--match", "*[0-9]*"}

// ListFiles returns the tracked files under path via `git ls-files`.
func (GitBackend) ListFiles(path string, opts ParseOptions) ([]string, error) {
	res, err := opts.Runner.Run(path, "git", "ls-files")
	if err != nil {
		return nil, &errs.VcsCommandError{Argv: []string{"git", "ls-files"}, Cause: err}
	}
	if res.ExitCode != 0 {
		return nil, &errs.VcsCommandError{Argv: []string{"git", "ls-files"}, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return splitLines(res.Stdout), nil
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// CommitterTime exposes a commit's committer timestamp in UTC as a
// concrete time.Time, without going through the full backend.
func CommitterTime(repo *git.Repository, hash plumbing.Hash) (time.Time, error) {
	c, err := repo.CommitObject(hash)
	if err != nil {
		return time.Time{}, err
	}
	return c.Committer.When.UTC(), nil
}
