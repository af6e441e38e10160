package scmver

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

var testSignature = &object.Signature{
	Name:  "test",
	Email: "test@example.com",
	When:  time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
}

// testRepoCreate initializes an on-disk git repository with the standard
// .git layout under a fresh temp directory.
func testRepoCreate(t *testing.T) (*git.Repository, string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return repo, dir
}

func testWriteFile(t *testing.T, fs billy.Filesystem, filename, content string) {
	t.Helper()
	f, err := fs.Create(filename)
	require.NoError(t, err)
	_, err = f.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

// testCommit writes filename and commits it, returning the commit hash.
func testCommit(t *testing.T, repo *git.Repository, filename, content string) plumbing.Hash {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err)
	testWriteFile(t, wt.Filesystem, filename, content)
	_, err = wt.Add(filename)
	require.NoError(t, err)
	hash, err := wt.Commit("commit "+filename, &git.CommitOptions{Author: testSignature})
	require.NoError(t, err)
	return hash
}

func testTag(t *testing.T, repo *git.Repository, name string, hash plumbing.Hash) {
	t.Helper()
	_, err := repo.CreateTag(name, hash, nil)
	require.NoError(t, err)
}

// testModifyTracked changes a tracked file's content without committing,
// leaving the working tree dirty.
func testModifyTracked(t *testing.T, repo *git.Repository, filename, content string) {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err)
	testWriteFile(t, wt.Filesystem, filename, content)
}

func testWriteRootFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
