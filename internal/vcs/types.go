package vcs

import (
	"regexp"
	"time"

	"github.com/jaxxstorm/scmver/internal/diagnostics"
	"github.com/jaxxstorm/scmver/internal/runner"
	"github.com/jaxxstorm/scmver/internal/scmversion"
)

// PreParseMode selects the Git pre-parse hook behavior: how shallow
// clones and missing submodules are handled before describe runs.
type PreParseMode string

const (
	WarnOnShallow           PreParseMode = "warn_on_shallow"
	FailOnShallow           PreParseMode = "fail_on_shallow"
	FetchOnShallow          PreParseMode = "fetch_on_shallow"
	FailOnMissingSubmodules PreParseMode = "fail_on_missing_submodules"
)

// ParseOptions carries everything a backend's Parse needs from the
// resolved Configuration without importing the config package (which
// itself needs to import vcs to build ScmVersion values).
type ParseOptions struct {
	TagRegex     *regexp.Regexp
	Normalize    bool
	TagFilter    func(string) bool
	DescribeCmd  []string
	PreParse     PreParseMode
	HgCommand    string
	Now          time.Time // resolved build time (SOURCE_DATE_EPOCH or wall clock)
	Runner       runner.Runner
	Warn         *diagnostics.Sink
	SchemeConfig scmversion.SchemeConfig
}

// Result is a backend's raw parse outcome. Backends fill Config from
// ParseOptions.SchemeConfig; the orchestrator attaches its Configuration
// only when Config is still nil.
type Result = scmversion.ScmVersion
