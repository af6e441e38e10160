package vcs

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// HgGitBackend handles a Mercurial repository driven through the hg-git
// bridge extension: history and dirty state still come from hg, but the
// node exposed to callers is translated to its mirrored Git commit hash
// via .hg/git-mapfile, since downstream tooling consuming the VCS-derived
// node generally expects a Git-shaped hash in this setup.
type HgGitBackend struct{}

func (HgGitBackend) Name() string { return "hg-git" }

func (HgGitBackend) Detect(path string) bool {
	if !(HgBackend{}).Detect(path) {
		return false
	}
	_, err := os.Stat(filepath.Join(path, ".hg", "git-mapfile"))
	return err == nil
}

func (HgGitBackend) Parse(path string, opts ParseOptions) (*Result, error) {
	res, err := (HgBackend{}).Parse(path, opts)
	if err != nil {
		return nil, err
	}

	hgNode := strings.TrimPrefix(res.Node, "h")
	gitHash, err := lookupGitMapfile(filepath.Join(path, ".hg", "git-mapfile"), hgNode)
	if err == nil && gitHash != "" {
		res.Node = "g" + shortenHash(gitHash)
	}

	return res, nil
}

// ListFiles delegates to the Mercurial backend: the working copy is an
// hg checkout even when its history mirrors Git.
func (HgGitBackend) ListFiles(path string, opts ParseOptions) ([]string, error) {
	return (HgBackend{}).ListFiles(path, opts)
}

// lookupGitMapfile reads .hg/git-mapfile, whose lines are "<git-sha>
// <hg-node>", and returns the Git sha whose mapped hg node is a prefix
// match for hgNode (hg-git stores full 40-char hg node ids, while our
// node came back from {node|short}, so the match is by prefix).
func lookupGitMapfile(path, hgNode string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 {
			continue
		}
		gitSha, hgSha := fields[0], fields[1]
		if strings.HasPrefix(hgSha, hgNode) {
			return gitSha, nil
		}
	}
	return "", scanner.Err()
}
