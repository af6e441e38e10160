package scmver

import (
	"github.com/jaxxstorm/scmver/internal/errs"
	"github.com/jaxxstorm/scmver/internal/pep440"
	"github.com/jaxxstorm/scmver/internal/runner"
)

// The concrete error kinds an inference call can fail with, surfaced as
// aliases so callers can match them with errors.As without reaching into
// internal packages.
type (
	// ConfigurationError covers regex compile failure, unknown scheme
	// names, and malformed environment values.
	ConfigurationError = errs.ConfigurationError

	// RepoShallowError reports a shallow git clone under
	// pre_parse=fail_on_shallow.
	RepoShallowError = errs.RepoShallowError

	// SubmoduleMissingError reports an unpopulated declared submodule
	// under pre_parse=fail_on_missing_submodules.
	SubmoduleMissingError = errs.SubmoduleMissingError

	// VcsCommandError wraps a failed VCS invocation from a backend whose
	// marker had already matched.
	VcsCommandError = errs.VcsCommandError

	// TagParseError reports a tag that did not match the tag regex or
	// whose captured body the version type rejected.
	TagParseError = errs.TagParseError

	// NoVersionInferredError reports that every resolution stage failed;
	// its Stages field names each attempt and why it did not apply.
	NoVersionInferredError = errs.NoVersionInferredError

	// OverrideDecodeError reports an environment override whose TOML
	// could not be parsed or failed schema validation.
	OverrideDecodeError = errs.OverrideDecodeError

	// VersionParseError reports a version string the PEP 440 parser
	// rejected.
	VersionParseError = pep440.ParseError

	// CommandTimeoutError reports a VCS subprocess killed for exceeding
	// its timeout.
	CommandTimeoutError = runner.TimeoutError
)
