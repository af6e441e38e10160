package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jaxxstorm/scmver/internal/errs"
	"github.com/jaxxstorm/scmver/internal/pyproject"
)

func TestResolveDefaults(t *testing.T) {
	cfg, warnings, err := Resolve(Input{Root: "."})
	require.NoError(t, err)
	require.Empty(t, warnings)

	require.Equal(t, []string{"guess-next-dev"}, cfg.VersionScheme)
	require.Equal(t, "node-and-date", cfg.LocalScheme)
	require.True(t, cfg.Normalize())
	require.NotNil(t, cfg.TagRegex())
	require.False(t, cfg.SearchParentDirectories)
}

func TestResolvePyprojectOverlay(t *testing.T) {
	py := &pyproject.Data{
		Project: map[string]any{"name": "My.Project"},
		Section: map[string]any{
			"local_scheme":   "dirty-tag",
			"version_scheme": "post-release",
		},
	}
	cfg, _, err := Resolve(Input{Root: ".", Pyproject: py})
	require.NoError(t, err)
	require.Equal(t, "dirty-tag", cfg.LocalScheme)
	require.Equal(t, []string{"post-release"}, cfg.VersionScheme)
	require.Equal(t, "my-project", cfg.CanonicalDistName())
}

func TestResolveCallSiteBeatsPyproject(t *testing.T) {
	py := &pyproject.Data{Section: map[string]any{"local_scheme": "dirty-tag"}}
	cfg, _, err := Resolve(Input{
		Root:      ".",
		Pyproject: py,
		CallSite:  map[string]any{"local_scheme": "no-local-version"},
	})
	require.NoError(t, err)
	require.Equal(t, "no-local-version", cfg.LocalScheme)
}

func TestResolveEnvOverridesBeatCallSite(t *testing.T) {
	cfg, _, err := Resolve(Input{
		Root:     ".",
		DistName: "my-pkg",
		CallSite: map[string]any{"local_scheme": "dirty-tag"},
		Environ:  []string{`SCMVER_OVERRIDES_FOR_MY_PKG={local_scheme="no-local-version"}`},
	})
	require.NoError(t, err)
	require.Equal(t, "no-local-version", cfg.LocalScheme)
}

func TestResolveVersionSchemeList(t *testing.T) {
	cfg, _, err := Resolve(Input{
		Root:     ".",
		CallSite: map[string]any{"version_scheme": []any{"calver-by-date", "guess-next-dev"}},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"calver-by-date", "guess-next-dev"}, cfg.VersionScheme)
}

func TestResolveUnknownSchemeFails(t *testing.T) {
	_, _, err := Resolve(Input{
		Root:     ".",
		CallSite: map[string]any{"version_scheme": "does-not-exist"},
	})
	require.Error(t, err)
	var cfgErr *errs.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestResolveBadTagRegexFails(t *testing.T) {
	_, _, err := Resolve(Input{
		Root:     ".",
		CallSite: map[string]any{"tag_regex": "("},
	})
	require.Error(t, err)
	var cfgErr *errs.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestResolveWriteToDeprecationWarning(t *testing.T) {
	cfg, warnings, err := Resolve(Input{
		Root: ".",
		CallSite: map[string]any{
			"write_to":     "pkg/_version.py",
			"version_file": "pkg/_version.py",
		},
	})
	require.NoError(t, err)
	require.Contains(t, warnings, "write_to is deprecated; use version_file instead")
	require.Equal(t, "pkg/_version.py", cfg.VersionFile)
	require.Equal(t, "pkg/_version.py", cfg.WriteTo)
}

func TestResolveDeprecatedGitDescribeCommand(t *testing.T) {
	cfg, warnings, err := Resolve(Input{
		Root:     ".",
		CallSite: map[string]any{"git_describe_command": "git describe --tags --long"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, warnings)
	require.Equal(t, []string{"git", "describe", "--tags", "--long"}, cfg.DescribeCommand)
}

func TestResolveFuzzyDiagnosticForNearMissSuffix(t *testing.T) {
	_, warnings, err := Resolve(Input{
		Root:     ".",
		DistName: "my-project",
		Environ:  []string{`SCMVER_OVERRIDES_FOR_MY_PROJEKT={local_scheme="dirty-tag"}`},
	})
	require.NoError(t, err)
	require.NotEmpty(t, warnings)
}

func TestResolveNowFromSourceDateEpoch(t *testing.T) {
	now, err := ResolveNow([]string{"SOURCE_DATE_EPOCH=1704067200"})
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), now)
}

func TestResolveNowMalformedEpoch(t *testing.T) {
	_, err := ResolveNow([]string{"SOURCE_DATE_EPOCH=not-a-number"})
	require.Error(t, err)
	var cfgErr *errs.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestResolveHgCommandFromEnv(t *testing.T) {
	cfg, _, err := Resolve(Input{
		Root:    ".",
		Environ: []string{"SCMVER_HG_COMMAND=/opt/hg/bin/hg"},
	})
	require.NoError(t, err)
	require.Equal(t, "/opt/hg/bin/hg", cfg.HgCommand)
}

func TestResolveIgnoreVCSRootsFromEnv(t *testing.T) {
	cfg, _, err := Resolve(Input{
		Root:    ".",
		Environ: []string{"SCMVER_IGNORE_VCS_ROOTS=/srv/checkouts"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"/srv/checkouts"}, cfg.IgnoreVCSRoots)
}
