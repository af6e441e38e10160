package vcs

import (
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/jaxxstorm/scmver/internal/diagnostics"
	"github.com/jaxxstorm/scmver/internal/errs"
	"github.com/jaxxstorm/scmver/internal/pep440"
	"github.com/jaxxstorm/scmver/internal/runner"
)

var testSignature = &object.Signature{
	Name:  "test",
	Email: "test@example.com",
	When:  time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
}

// testRepoFSCreate creates an on-disk repository with the standard .git
// layout, the form Detect/OpenRepository and gitWorkTreeIsDirty's
// shell-out fast path require.
func testRepoFSCreate(t *testing.T) (*git.Repository, string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return repo, dir
}

func writeFile(fs billy.Filesystem, filename, content string) error {
	f, err := fs.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write([]byte(content))
	return err
}

func commitFile(t *testing.T, repo *git.Repository, filename, content string) plumbing.Hash {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, writeFile(wt.Filesystem, filename, content))
	_, err = wt.Add(filename)
	require.NoError(t, err)
	hash, err := wt.Commit("commit "+filename, &git.CommitOptions{Author: testSignature})
	require.NoError(t, err)
	return hash
}

func testOpts(t *testing.T) ParseOptions {
	t.Helper()
	return ParseOptions{
		TagRegex:  regexp.MustCompile(pep440.DefaultTagRegexPattern),
		Normalize: true,
		Runner:    runner.Runner{},
		Warn:      diagnostics.NewSink(),
		Now:       time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
	}
}

func TestGitBackendDetect(t *testing.T) {
	_, dir := testRepoFSCreate(t)
	require.True(t, GitBackend{}.Detect(dir))
	require.False(t, GitBackend{}.Detect(t.TempDir()))
}

func TestGitBackendParseExactTag(t *testing.T) {
	repo, dir := testRepoFSCreate(t)
	hash := commitFile(t, repo, "a.txt", "hello")
	_, err := repo.CreateTag("v1.2.3", hash, nil)
	require.NoError(t, err)

	res, err := GitBackend{}.Parse(dir, testOpts(t))
	require.NoError(t, err)
	require.Equal(t, "1.2.3", res.Tag.String())
	require.Equal(t, 0, res.Distance)
	require.False(t, res.Dirty)
	require.True(t, res.Clean())
}

func TestGitBackendParseDistanceSinceTag(t *testing.T) {
	repo, dir := testRepoFSCreate(t)
	hash := commitFile(t, repo, "a.txt", "hello")
	_, err := repo.CreateTag("v1.0.0", hash, nil)
	require.NoError(t, err)
	commitFile(t, repo, "b.txt", "world")
	commitFile(t, repo, "c.txt", "again")

	res, err := GitBackend{}.Parse(dir, testOpts(t))
	require.NoError(t, err)
	require.Equal(t, "1.0.0", res.Tag.String())
	require.Equal(t, 2, res.Distance)
	require.False(t, res.Clean())
}

func TestGitBackendParseNoTags(t *testing.T) {
	repo, dir := testRepoFSCreate(t)
	commitFile(t, repo, "a.txt", "hello")
	commitFile(t, repo, "b.txt", "world")

	res, err := GitBackend{}.Parse(dir, testOpts(t))
	require.NoError(t, err)
	require.Equal(t, "0.0", res.Tag.String())
	require.Equal(t, 2, res.Distance)
}

func TestGitBackendParseDirtyWorktree(t *testing.T) {
	repo, dir := testRepoFSCreate(t)
	hash := commitFile(t, repo, "a.txt", "hello")
	_, err := repo.CreateTag("v1.0.0", hash, nil)
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, writeFile(wt.Filesystem, "a.txt", "changed"))

	res, err := GitBackend{}.Parse(dir, testOpts(t))
	require.NoError(t, err)
	require.True(t, res.Dirty)
	require.False(t, res.Clean())
}

func TestGitBackendParseMtimeTouchIsNotDirty(t *testing.T) {
	repo, dir := testRepoFSCreate(t)
	hash := commitFile(t, repo, "a.txt", "hello")
	_, err := repo.CreateTag("v1.0.0", hash, nil)
	require.NoError(t, err)

	// Touch the tracked file's timestamps without altering its content.
	touched := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(dir+"/a.txt", touched, touched))

	res, err := GitBackend{}.Parse(dir, testOpts(t))
	require.NoError(t, err)
	require.False(t, res.Dirty)
	require.True(t, res.Clean())
}

func TestGitBackendParseAnnotatedTag(t *testing.T) {
	repo, dir := testRepoFSCreate(t)
	hash := commitFile(t, repo, "a.txt", "hello")
	_, err := repo.CreateTag("v2.0.0", hash, &git.CreateTagOptions{
		Tagger:  testSignature,
		Message: "release 2.0.0",
	})
	require.NoError(t, err)

	res, err := GitBackend{}.Parse(dir, testOpts(t))
	require.NoError(t, err)
	require.Equal(t, "2.0.0", res.Tag.String())
	require.Equal(t, 0, res.Distance)
}

func TestGitBackendParseTagFilterExcludesCandidate(t *testing.T) {
	repo, dir := testRepoFSCreate(t)
	hash := commitFile(t, repo, "a.txt", "hello")
	_, err := repo.CreateTag("ignore-me", hash, nil)
	require.NoError(t, err)
	_, err = repo.CreateTag("v1.5.0", hash, nil)
	require.NoError(t, err)
	commitFile(t, repo, "b.txt", "world")

	opts := testOpts(t)
	opts.TagFilter = func(name string) bool { return name != "ignore-me" }

	res, err := GitBackend{}.Parse(dir, opts)
	require.NoError(t, err)
	require.Equal(t, "1.5.0", res.Tag.String())
}

func TestGitBackendBranchName(t *testing.T) {
	repo, dir := testRepoFSCreate(t)
	commitFile(t, repo, "a.txt", "hello")

	res, err := GitBackend{}.Parse(dir, testOpts(t))
	require.NoError(t, err)
	require.Contains(t, []string{"master", "main"}, res.Branch)
}

func TestIsShallowClone(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.False(t, isShallowClone(dir))

	require.NoError(t, os.WriteFile(dir+"/shallow", []byte(""), 0o644))
	require.True(t, isShallowClone(dir))
}

func TestRunPreParseHookFailOnShallow(t *testing.T) {
	repo, dir := testRepoFSCreate(t)
	commitFile(t, repo, "a.txt", "hello")

	gitDir := gitDirOf(repo, dir)
	require.NoError(t, os.WriteFile(gitDir+"/shallow", []byte(""), 0o644))

	opts := testOpts(t)
	opts.PreParse = FailOnShallow
	err := runPreParseHook(repo, gitDir, dir, opts)
	require.Error(t, err)
	require.IsType(t, &errs.RepoShallowError{}, err)
}

func TestMissingSubmodules(t *testing.T) {
	dir := t.TempDir()
	gitmodules := "[submodule \"vendor/lib\"]\n\tpath = vendor/lib\n\turl = https://example.com/lib.git\n"
	require.NoError(t, os.WriteFile(dir+"/.gitmodules", []byte(gitmodules), 0o644))

	missing, err := missingSubmodules(dir)
	require.NoError(t, err)
	require.Equal(t, []string{"vendor/lib"}, missing)

	require.NoError(t, os.MkdirAll(dir+"/vendor/lib", 0o755))
	require.NoError(t, os.WriteFile(dir+"/vendor/lib/file.txt", []byte("x"), 0o644))
	missing, err = missingSubmodules(dir)
	require.NoError(t, err)
	require.Empty(t, missing)
}

func TestDiscover(t *testing.T) {
	_, dir := testRepoFSCreate(t)
	sub := dir + "/nested/deeper"
	require.NoError(t, os.MkdirAll(sub, 0o755))

	root, backend, ok := Discover(sub, []Backend{GitBackend{}}, nil, true)
	require.True(t, ok)
	require.Equal(t, dir, root)
	require.Equal(t, "git", backend.Name())

	_, _, ok = Discover(sub, []Backend{GitBackend{}}, nil, false)
	require.False(t, ok)
}
