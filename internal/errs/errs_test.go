package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigurationErrorUnwraps(t *testing.T) {
	cause := errors.New("bad regex")
	err := &ConfigurationError{Reason: "compiling tag_regex", Cause: cause}
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "bad regex")
}

func TestNoVersionInferredErrorListsStages(t *testing.T) {
	err := &NoVersionInferredError{
		Root: "/repo",
		Stages: []StageAttempt{
			{Name: "archive", Reason: "no .git_archival.txt present"},
			{Name: "live vcs", Reason: "no .git or .hg directory found"},
		},
	}
	msg := err.Error()
	require.Contains(t, msg, "archive")
	require.Contains(t, msg, "live vcs")
	require.Contains(t, msg, "fallback_version")
}

func TestVcsCommandErrorUnwraps(t *testing.T) {
	cause := errors.New("exit status 128")
	err := &VcsCommandError{Argv: []string{"git", "describe"}, Cause: cause}
	require.ErrorIs(t, err, cause)
}
