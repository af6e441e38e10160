package vcs

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jaxxstorm/scmver/internal/errs"
	"github.com/jaxxstorm/scmver/internal/pep440"
)

// HgBackend is the Mercurial VCS backend. A single templated `hg log`
// call packs tag/distance/node/branch/date into one invocation rather
// than four separate hg calls.
type HgBackend struct{}

func (HgBackend) Name() string { return "hg" }

func (HgBackend) Detect(path string) bool {
	info, err := os.Stat(filepath.Join(path, ".hg"))
	return err == nil && info.IsDir()
}

// hgFieldSep is ASCII unit separator, used so none of the templated
// field values (branch names, dates) can be mistaken for a delimiter.
const hgFieldSep = "\x1f"

const hgLogTemplate = "{node|short}" + hgFieldSep +
	"{latesttag}" + hgFieldSep +
	"{latesttagdistance}" + hgFieldSep +
	"{branch}" + hgFieldSep +
	"{date|rfc3339date}" + hgFieldSep +
	"{rev}"

func (HgBackend) Parse(path string, opts ParseOptions) (*Result, error) {
	hgCmd := opts.HgCommand
	if hgCmd == "" {
		hgCmd = "hg"
	}

	res, err := opts.Runner.Run(path, hgCmd, "log", "-r", ".", "--template", hgLogTemplate)
	if err != nil {
		return nil, &errs.VcsCommandError{Argv: []string{hgCmd, "log"}, Cause: err}
	}
	if res.ExitCode != 0 {
		// An empty repository (no commits yet) fails `hg log -r .`;
		// every other failure mode with .hg present is unexpected.
		dirty, derr := hgWorkTreeIsDirty(path, hgCmd, opts)
		if derr != nil {
			return nil, derr
		}
		return &Result{Tag: pep440.Zero(), Distance: 0, Dirty: dirty, Config: opts.SchemeConfig}, nil
	}

	fields := strings.Split(res.Stdout, hgFieldSep)
	if len(fields) != 6 {
		return nil, &errs.VcsCommandError{Argv: []string{hgCmd, "log"}, Stderr: res.Stdout, Cause: nil}
	}
	nodeShort, latestTag, latestTagDistance, branch, dateStr, revStr := fields[0], fields[1], fields[2], fields[3], fields[4], fields[5]

	dirty, err := hgWorkTreeIsDirty(path, hgCmd, opts)
	if err != nil {
		return nil, err
	}

	var tag *pep440.Version
	var distance int

	if latestTag == "" || latestTag == "null" || (opts.TagFilter != nil && !opts.TagFilter(latestTag)) {
		tag = pep440.Zero()
		rev, err := strconv.Atoi(revStr)
		if err != nil {
			return nil, &errs.VcsCommandError{Argv: []string{hgCmd, "log"}, Cause: err}
		}
		distance = rev + 1
	} else {
		parsed, err := pep440.ParseTag(opts.TagRegex, latestTag, opts.Normalize, false)
		if err != nil {
			// The regex/version type rejected the tag text: fall back
			// to the zero sentinel rather than failing the whole
			// inference. Unlike the git backend, which skips candidate
			// tags the regex does not match and returns a TagParseError
			// for the tag describe lands on, the single templated log
			// offers no other candidate tag here.
			tag = pep440.Zero()
			rev, _ := strconv.Atoi(revStr)
			distance = rev + 1
		} else {
			tag = parsed
			d, err := strconv.Atoi(latestTagDistance)
			if err != nil {
				return nil, &errs.VcsCommandError{Argv: []string{hgCmd, "log"}, Cause: err}
			}
			distance = d
		}
	}

	var nodeDate *time.Time
	if t, err := time.Parse(time.RFC3339, dateStr); err == nil {
		t = t.UTC()
		nodeDate = &t
	}

	return &Result{
		Tag:      tag,
		Distance: distance,
		Node:     "h" + nodeShort,
		Branch:   branch,
		Dirty:    dirty,
		NodeDate: nodeDate,
		Config:   opts.SchemeConfig,
	}, nil
}

// ListFiles returns the tracked files under path via `hg files`.
func (HgBackend) ListFiles(path string, opts ParseOptions) ([]string, error) {
	hgCmd := opts.HgCommand
	if hgCmd == "" {
		hgCmd = "hg"
	}
	res, err := opts.Runner.Run(path, hgCmd, "files")
	if err != nil {
		return nil, &errs.VcsCommandError{Argv: []string{hgCmd, "files"}, Cause: err}
	}
	if res.ExitCode != 0 {
		return nil, &errs.VcsCommandError{Argv: []string{hgCmd, "files"}, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	if res.Stdout == "" {
		return nil, nil
	}
	return strings.Split(res.Stdout, "\n"), nil
}

func hgWorkTreeIsDirty(path, hgCmd string, opts ParseOptions) (bool, error) {
	res, err := opts.Runner.Run(path, hgCmd, "status")
	if err != nil {
		return false, &errs.VcsCommandError{Argv: []string{hgCmd, "status"}, Cause: err}
	}
	if res.ExitCode != 0 {
		return false, &errs.VcsCommandError{Argv: []string{hgCmd, "status"}, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return res.Stdout != "", nil
}
