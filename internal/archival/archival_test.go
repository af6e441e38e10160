package archival

import (
	"regexp"
	"testing"

	"github.com/jaxxstorm/scmver/internal/diagnostics"
	"github.com/jaxxstorm/scmver/internal/pep440"
	"github.com/stretchr/testify/require"
)

type fakeConfig struct {
	re *regexp.Regexp
}

func (f fakeConfig) TagRegex() *regexp.Regexp           { return f.re }
func (f fakeConfig) Normalize() bool                    { return true }
func (f fakeConfig) ReleaseBranchRegex() *regexp.Regexp { return nil }
func (f fakeConfig) MajorVersionZero() bool             { return false }

func defaultTagRe(t *testing.T) *regexp.Regexp {
	t.Helper()
	re, err := pep440.CompileTagRegex(pep440.DefaultTagRegexPattern)
	require.NoError(t, err)
	return re
}

func TestParseGitArchivalDescribeName(t *testing.T) {
	re := defaultTagRe(t)
	data := []byte("node: deadbeefcafebabe\n" +
		"node-date: 2024-01-01T00:00:00+00:00\n" +
		"describe-name: v2.0.0-3-gdeadbee\n" +
		"ref-names: tag: v2.0.0\n")

	warn := diagnostics.NewSink()
	v, err := ParseGitArchival(data, re, true, fakeConfig{re: re}, warn)
	require.NoError(t, err)
	require.NotNil(t, v)
	require.Equal(t, "2.0.0", v.TagString())
	require.Equal(t, 3, v.Distance)
	require.Equal(t, "gdeadbee", v.Node)
	require.False(t, v.Dirty)
	require.Empty(t, warn.Warnings)
}

func TestParseGitArchivalDescribeNameDirty(t *testing.T) {
	re := defaultTagRe(t)
	data := []byte("node: deadbeef\n" +
		"describe-name: v1.0.0-0-gdeadbee-dirty\n")

	warn := diagnostics.NewSink()
	v, err := ParseGitArchival(data, re, true, fakeConfig{re: re}, warn)
	require.NoError(t, err)
	require.NotNil(t, v)
	require.True(t, v.Dirty)
}

func TestParseGitArchivalUnexpandedPlaceholder(t *testing.T) {
	re := defaultTagRe(t)
	data := []byte("node: $Format:%H$\n" +
		"describe-name: $Format:%(describe)$\n")

	warn := diagnostics.NewSink()
	v, err := ParseGitArchival(data, re, true, fakeConfig{re: re}, warn)
	require.NoError(t, err)
	require.Nil(t, v)
	require.NotEmpty(t, warn.Warnings)
}

func TestParseGitArchivalRefNamesOnly(t *testing.T) {
	re := defaultTagRe(t)
	data := []byte("node: cafebabe\n" +
		"ref-names: HEAD -> main, tag: v3.1.4\n")

	warn := diagnostics.NewSink()
	v, err := ParseGitArchival(data, re, true, fakeConfig{re: re}, warn)
	require.NoError(t, err)
	require.NotNil(t, v)
	require.Equal(t, "3.1.4", v.TagString())
	require.Equal(t, 0, v.Distance)
}

func TestParseHgArchival(t *testing.T) {
	re := defaultTagRe(t)
	data := []byte("node: 1234567890ab\n" +
		"branch: default\n" +
		"latesttag: 0.5\n" +
		"latesttagdistance: 2\n")

	warn := diagnostics.NewSink()
	v, err := ParseHgArchival(data, re, true, fakeConfig{re: re}, warn)
	require.NoError(t, err)
	require.NotNil(t, v)
	require.Equal(t, "0.5", v.TagString())
	require.Equal(t, 2, v.Distance)
	require.Equal(t, "h1234567890ab", v.Node)
	require.Equal(t, "default", v.Branch)
}

func TestParseHgArchivalNoTag(t *testing.T) {
	re := defaultTagRe(t)
	data := []byte("node: 1234567890ab\nbranch: default\n")

	warn := diagnostics.NewSink()
	v, err := ParseHgArchival(data, re, true, fakeConfig{re: re}, warn)
	require.NoError(t, err)
	require.Nil(t, v)
	require.NotEmpty(t, warn.Warnings)
}
