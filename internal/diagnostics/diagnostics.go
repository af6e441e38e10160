// Package diagnostics collects one-shot warnings: the same warning text
// produced multiple times within a single inference call is surfaced
// only once.
package diagnostics

import (
	"fmt"
	"io"
)

// Sink accumulates warnings for one inference call and de-duplicates them.
type Sink struct {
	seen     map[string]struct{}
	Warnings []string
}

// NewSink returns an empty warning sink.
func NewSink() *Sink {
	return &Sink{seen: make(map[string]struct{})}
}

// Warn records msg if it has not already been recorded by this sink.
func (s *Sink) Warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if _, ok := s.seen[msg]; ok {
		return
	}
	s.seen[msg] = struct{}{}
	s.Warnings = append(s.Warnings, msg)
}

// Emit writes warnings to w, one line each, with the scmver warning
// prefix.
func Emit(w io.Writer, warnings []string) {
	for _, msg := range warnings {
		fmt.Fprintf(w, "scmver: warning: %s\n", msg)
	}
}
