// Package pep440 implements parsing, normalization, and comparison of
// PEP 440 version strings, along with a non-normalizing variant that
// preserves the original tag text for rendering.
package pep440

import (
	"fmt"
	"strconv"
	"strings"
)

// PreReleasePhase is the normalized pre-release letter: "a", "b", or "rc".
type PreReleasePhase string

const (
	PhaseAlpha PreReleasePhase = "a"
	PhaseBeta  PreReleasePhase = "b"
	PhaseRC    PreReleasePhase = "rc"
)

// PreRelease is the pre-release segment of a version, e.g. "a1", "rc2".
type PreRelease struct {
	Phase  PreReleasePhase
	Number int
}

// Version is a parsed PEP 440 version. When Normalized is false, String
// returns the original captured text instead of the canonical rendering;
// every other accessor still reflects the parsed structure, so schemes can
// bump release segments and compare versions regardless of normalization.
type Version struct {
	raw        string
	Normalized bool

	Epoch   int
	Release []int
	Pre     *PreRelease
	Post    *int
	Dev     *int
	Local   string
}

// ParseError reports a tag or version string that could not be parsed.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse version %q: %s", e.Input, e.Reason)
}

// Parse parses s as a normalizing PEP 440 version: String() returns the
// canonical form regardless of how s was spelled.
func Parse(s string) (*Version, error) {
	v, err := parse(s)
	if err != nil {
		return nil, err
	}
	v.Normalized = true
	return v, nil
}

// ParseRaw parses s but keeps String() returning s verbatim, preserving
// casing, leading zeros, and prefixes a caller may want to keep.
func ParseRaw(s string) (*Version, error) {
	v, err := parse(s)
	if err != nil {
		return nil, err
	}
	v.Normalized = false
	v.raw = s
	return v, nil
}

func parse(input string) (*Version, error) {
	if input == "" {
		return nil, &ParseError{Input: input, Reason: "empty version string"}
	}

	v := &Version{raw: input}
	s := strings.ToLower(strings.TrimSpace(input))
	// A leading "v" is permitted by PEP 440 and dropped by normalization.
	s = strings.TrimPrefix(s, "v")

	if idx := strings.IndexByte(s, '!'); idx > 0 {
		epoch, err := strconv.Atoi(s[:idx])
		if err != nil {
			return nil, &ParseError{Input: input, Reason: fmt.Sprintf("invalid epoch: %s", s[:idx])}
		}
		v.Epoch = epoch
		s = s[idx+1:]
	}

	if idx := strings.IndexByte(s, '+'); idx >= 0 {
		v.Local = s[idx+1:]
		s = s[:idx]
	}

	if idx := strings.Index(s, ".dev"); idx >= 0 {
		dev, rest, err := readNumberSuffix(input, s[idx+4:])
		if err != nil {
			return nil, err
		}
		v.Dev = &dev
		s = s[:idx] + rest
	} else if idx := strings.Index(s, "dev"); idx >= 0 {
		dev, rest, err := readNumberSuffix(input, s[idx+3:])
		if err != nil {
			return nil, err
		}
		v.Dev = &dev
		s = s[:idx] + rest
	}

	if idx := strings.Index(s, ".post"); idx >= 0 {
		post, rest, err := readNumberSuffix(input, s[idx+5:])
		if err != nil {
			return nil, err
		}
		v.Post = &post
		s = s[:idx] + rest
	} else if idx := strings.Index(s, "post"); idx >= 0 {
		post, rest, err := readNumberSuffix(input, s[idx+4:])
		if err != nil {
			return nil, err
		}
		v.Post = &post
		s = s[:idx] + rest
	} else if idx := strings.LastIndexByte(s, '-'); idx >= 0 && idx+1 < len(s) && isAllDigits(s[idx+1:]) {
		post, err := strconv.Atoi(s[idx+1:])
		if err == nil {
			v.Post = &post
			s = s[:idx]
		}
	}

	preIdx, prePhase := -1, ""
	for _, phase := range []string{"rc", "c", "beta", "b", "alpha", "a"} {
		if idx := strings.Index(s, phase); idx >= 0 && (preIdx == -1 || idx < preIdx) {
			preIdx, prePhase = idx, phase
		}
	}
	if preIdx >= 0 {
		numStr := s[preIdx+len(prePhase):]
		s = s[:preIdx]

		switch prePhase {
		case "alpha", "a":
			prePhase = string(PhaseAlpha)
		case "beta", "b":
			prePhase = string(PhaseBeta)
		case "c", "rc":
			prePhase = string(PhaseRC)
		}

		numStr = strings.TrimLeft(numStr, "._-")
		num := 0
		if numStr != "" {
			n, err := strconv.Atoi(numStr)
			if err != nil {
				return nil, &ParseError{Input: input, Reason: fmt.Sprintf("invalid pre-release number: %s", numStr)}
			}
			num = n
		}
		v.Pre = &PreRelease{Phase: PreReleasePhase(prePhase), Number: num}
	}

	s = strings.TrimRight(s, "._-")
	if s == "" {
		return nil, &ParseError{Input: input, Reason: "no release segment"}
	}

	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '.' || r == '_' || r == '-' }) {
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, &ParseError{Input: input, Reason: fmt.Sprintf("invalid release segment: %s", part)}
		}
		v.Release = append(v.Release, n)
	}
	if len(v.Release) == 0 {
		return nil, &ParseError{Input: input, Reason: "no valid release segments"}
	}

	return v, nil
}

// readNumberSuffix consumes a (possibly empty) numeric suffix, returning
// the parsed value and anything left over in s after the digits.
func readNumberSuffix(original, s string) (int, string, error) {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, s, nil
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, "", &ParseError{Input: original, Reason: fmt.Sprintf("invalid number: %s", s[:end])}
	}
	return n, s[end:], nil
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// String renders the version. Normalized versions render canonically;
// raw versions render exactly as parsed.
func (v *Version) String() string {
	if !v.Normalized {
		return v.raw
	}
	return v.Canonical()
}

// Canonical renders the PEP 440 canonical form regardless of Normalized.
func (v *Version) Canonical() string {
	var b strings.Builder

	if v.Epoch > 0 {
		b.WriteString(strconv.Itoa(v.Epoch))
		b.WriteByte('!')
	}
	for i, n := range v.Release {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(n))
	}
	if v.Pre != nil {
		b.WriteString(string(v.Pre.Phase))
		b.WriteString(strconv.Itoa(v.Pre.Number))
	}
	if v.Post != nil {
		b.WriteString(".post")
		b.WriteString(strconv.Itoa(*v.Post))
	}
	if v.Dev != nil {
		b.WriteString(".dev")
		b.WriteString(strconv.Itoa(*v.Dev))
	}
	if v.Local != "" {
		b.WriteByte('+')
		b.WriteString(v.Local)
	}
	return b.String()
}

// Clean reports whether the version has no pre/post/dev/local qualifiers,
// i.e. it is a plain release.
func (v *Version) Clean() bool {
	return v.Pre == nil && v.Post == nil && v.Dev == nil && v.Local == ""
}

// Bump returns a copy of v with the last release segment incremented by
// one and all pre/post/dev/local qualifiers dropped, mirroring the "add 1
// to the last numeric release segment" rule guess-next-dev and friends
// use to project a next version.
func (v *Version) Bump() *Version {
	next := &Version{
		Normalized: v.Normalized,
		Epoch:      v.Epoch,
		Release:    append([]int(nil), v.Release...),
	}
	if len(next.Release) == 0 {
		next.Release = []int{0}
	}
	next.Release[len(next.Release)-1]++
	next.raw = next.Canonical()
	return next
}

// BumpSegment returns a copy of v with the release segment at index
// incremented by one and every following segment reset to zero, and all
// qualifiers dropped. Used by the SemVer-flavored schemes to bump minor or
// patch explicitly rather than always the last segment.
func (v *Version) BumpSegment(index int) *Version {
	release := append([]int(nil), v.Release...)
	for len(release) <= index {
		release = append(release, 0)
	}
	release[index]++
	for i := index + 1; i < len(release); i++ {
		release[i] = 0
	}
	next := &Version{Normalized: v.Normalized, Epoch: v.Epoch, Release: release}
	next.raw = next.Canonical()
	return next
}

// Segment returns the release segment at index, or 0 if the version has
// fewer segments.
func (v *Version) Segment(index int) int {
	if index < 0 || index >= len(v.Release) {
		return 0
	}
	return v.Release[index]
}

// Compare orders versions per PEP 440: higher epoch/release/post/pre wins;
// a dev release sorts before its non-dev counterpart; local segments are
// not ordered. Returns -1, 0, or 1.
func (v *Version) Compare(o *Version) int {
	if v.Epoch != o.Epoch {
		return cmpInt(v.Epoch, o.Epoch)
	}

	n := len(v.Release)
	if len(o.Release) > n {
		n = len(o.Release)
	}
	for i := 0; i < n; i++ {
		if c := cmpInt(v.Segment(i), o.Segment(i)); c != 0 {
			return c
		}
	}

	switch {
	case v.Pre == nil && o.Pre != nil:
		return 1
	case v.Pre != nil && o.Pre == nil:
		return -1
	case v.Pre != nil && o.Pre != nil:
		phaseOrder := map[PreReleasePhase]int{PhaseAlpha: 1, PhaseBeta: 2, PhaseRC: 3}
		if c := cmpInt(phaseOrder[v.Pre.Phase], phaseOrder[o.Pre.Phase]); c != 0 {
			return c
		}
		if c := cmpInt(v.Pre.Number, o.Pre.Number); c != 0 {
			return c
		}
	}

	switch {
	case v.Post == nil && o.Post != nil:
		return -1
	case v.Post != nil && o.Post == nil:
		return 1
	case v.Post != nil && o.Post != nil:
		if c := cmpInt(*v.Post, *o.Post); c != 0 {
			return c
		}
	}

	switch {
	case v.Dev == nil && o.Dev != nil:
		return 1
	case v.Dev != nil && o.Dev == nil:
		return -1
	case v.Dev != nil && o.Dev != nil:
		if c := cmpInt(*v.Dev, *o.Dev); c != 0 {
			return c
		}
	}

	return 0
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Zero is the "0.0" sentinel pre-tag version used by backends when no tag
// is reachable yet.
func Zero() *Version {
	v, _ := Parse("0.0")
	return v
}
