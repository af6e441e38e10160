package scmversion

import (
	"testing"
	"time"

	"github.com/jaxxstorm/scmver/internal/pep440"
	"github.com/stretchr/testify/require"
)

func mustTag(t *testing.T, s string) *pep440.Version {
	t.Helper()
	v, err := pep440.Parse(s)
	require.NoError(t, err)
	return v
}

func TestCleanRequiresZeroDistanceAndNotDirty(t *testing.T) {
	v := &ScmVersion{Tag: mustTag(t, "1.0.0")}
	require.True(t, v.Clean())

	v.Distance = 1
	require.False(t, v.Clean())

	v.Distance = 0
	v.Dirty = true
	require.False(t, v.Clean())
}

func TestFormatWith(t *testing.T) {
	v := &ScmVersion{
		Tag:      mustTag(t, "1.2.3"),
		Distance: 4,
		Node:     "gabcdefg",
		Branch:   "main",
		Dirty:    true,
	}

	got := v.FormatWith("{tag}+{distance}.{node}.{branch}.{dirty}")
	require.Equal(t, "1.2.3+4.gabcdefg.main.true", got)
}

func TestFormatNextVersion(t *testing.T) {
	v := &ScmVersion{Tag: mustTag(t, "1.2.3"), Distance: 2}
	got := v.FormatNextVersion(func(ver *pep440.Version) *pep440.Version { return ver.Bump() }, "{guessed}.dev{distance}")
	require.Equal(t, "1.2.4.dev2", got)
}

func TestFormatChoice(t *testing.T) {
	clean := &ScmVersion{Tag: mustTag(t, "1.0.0")}
	require.Equal(t, "1.0.0", clean.FormatChoice("{tag}", "{tag}+dirty"))

	dirty := &ScmVersion{Tag: mustTag(t, "1.0.0"), Dirty: true}
	require.Equal(t, "1.0.0+dirty", dirty.FormatChoice("{tag}", "{tag}+dirty"))

	distant := &ScmVersion{Tag: mustTag(t, "1.0.0"), Distance: 3}
	require.Equal(t, "1.0.0+dirty", distant.FormatChoice("{tag}", "{tag}+dirty"))
}

func TestDatePrefersNodeDateWhenRequested(t *testing.T) {
	nodeDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	buildTime := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	v := &ScmVersion{Time: buildTime, NodeDate: &nodeDate}

	require.Equal(t, "20240101", v.Date(true))
	require.Equal(t, "20240615", v.Date(false))
}

func TestTimestampFormat(t *testing.T) {
	v := &ScmVersion{Time: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}
	require.Equal(t, "20240102030405", v.Timestamp())
}
