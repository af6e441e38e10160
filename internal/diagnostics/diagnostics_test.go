package diagnostics

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWarnDeduplicates(t *testing.T) {
	s := NewSink()
	s.Warn("shallow repository detected")
	s.Warn("shallow repository detected")
	s.Warn("something else")

	require.Equal(t, []string{"shallow repository detected", "something else"}, s.Warnings)
}

func TestWarnFormats(t *testing.T) {
	s := NewSink()
	s.Warn("tag %q is unparseable", "v1.x")
	require.Equal(t, []string{`tag "v1.x" is unparseable`}, s.Warnings)
}

func TestEmit(t *testing.T) {
	var buf bytes.Buffer
	Emit(&buf, []string{"first", "second"})
	require.Equal(t, "scmver: warning: first\nscmver: warning: second\n", buf.String())
}
