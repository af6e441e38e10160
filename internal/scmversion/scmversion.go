// Package scmversion holds the ScmVersion output model: the structured
// result of a single inference call, plus the pure rendering helpers the
// scheme registry composes into a final version string. It has no
// dependency on configuration resolution or VCS backends so that both
// can depend on it without a cycle.
package scmversion

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jaxxstorm/scmver/internal/pep440"
)

// SchemeConfig is the minimal slice of Configuration a scheme callable
// needs via ScmVersion.Config: the tag regex (for re-deriving a tag's
// structure) and whether the normalizing version type is in use. Kept as
// an interface here, rather than importing the config package directly,
// to avoid a scmversion<->config import cycle (config builds ScmVersion
// values and therefore must import this package).
type SchemeConfig interface {
	TagRegex() *regexp.Regexp
	Normalize() bool

	// ReleaseBranchRegex and MajorVersionZero back the
	// semver-pep440-release-branch main scheme's branch-name heuristic.
	ReleaseBranchRegex() *regexp.Regexp
	MajorVersionZero() bool
}

// ScmVersion is the structured result of one inference call. Immutable
// once constructed.
type ScmVersion struct {
	// Tag is the parsed tag version. For a Preformatted ScmVersion this
	// still holds a *pep440.Version (parsed with the configured version
	// type, or with ParseRaw for PKG-INFO and fallback_version) so
	// String() has something sensible to render if a caller inspects it
	// directly, but rendering a final version string for a preformatted
	// ScmVersion never goes through the scheme registry.
	Tag *pep440.Version

	Distance int
	Node     string
	Dirty    bool
	Branch   string

	// NodeDate is the commit date (UTC, date component only meaningful).
	NodeDate *time.Time

	// Time is the build timestamp local schemes consult; derived from
	// SOURCE_DATE_EPOCH if set, else wall-clock UTC.
	Time time.Time

	Preformatted bool

	Config SchemeConfig
}

// Clean reports whether this is exactly a tagged, non-dirty commit.
func (v *ScmVersion) Clean() bool {
	return v.Distance == 0 && !v.Dirty
}

// TagString renders the tag the way the configured version type would:
// canonical when normalizing, verbatim otherwise.
func (v *ScmVersion) TagString() string {
	if v.Tag == nil {
		return ""
	}
	return v.Tag.String()
}

// FormatWith expands {tag}, {distance}, {node}, {branch}, {dirty} in
// template against this ScmVersion.
func (v *ScmVersion) FormatWith(template string) string {
	r := strings.NewReplacer(
		"{tag}", v.TagString(),
		"{distance}", strconv.Itoa(v.Distance),
		"{node}", v.Node,
		"{branch}", v.Branch,
		"{dirty}", strconv.FormatBool(v.Dirty),
	)
	return r.Replace(template)
}

// FormatNextVersion composes a next-version template: guess computes the
// projected tag (e.g. Bump()), and template may reference {guessed} in
// addition to the ScmVersion fields FormatWith supports.
func (v *ScmVersion) FormatNextVersion(guess func(*pep440.Version) *pep440.Version, template string) string {
	guessed := ""
	if v.Tag != nil {
		guessed = guess(v.Tag).String()
	}
	expanded := v.FormatWith(template)
	return strings.ReplaceAll(expanded, "{guessed}", guessed)
}

// FormatChoice picks cleanFormat when the version is an exact, clean tag
// and dirtyFormat otherwise (dirty or distance > 0), expanding either
// template via FormatWith.
func (v *ScmVersion) FormatChoice(cleanFormat, dirtyFormat string) string {
	if v.Clean() {
		return v.FormatWith(cleanFormat)
	}
	return v.FormatWith(dirtyFormat)
}

// Date returns Time (or NodeDate if preferDate is true and set) formatted
// as YYYYMMDD, used by the node-and-date local scheme.
func (v *ScmVersion) Date(preferNodeDate bool) string {
	t := v.Time
	if preferNodeDate && v.NodeDate != nil {
		t = *v.NodeDate
	}
	return t.UTC().Format("20060102")
}

// Timestamp returns Time formatted as YYYYMMDDhhmmss, used by the
// node-and-timestamp local scheme.
func (v *ScmVersion) Timestamp() string {
	return v.Time.UTC().Format("20060102150405")
}

// String implements fmt.Stringer for debugging/%v.
func (v *ScmVersion) String() string {
	return fmt.Sprintf("ScmVersion{tag=%s distance=%d node=%s dirty=%v branch=%s}",
		v.TagString(), v.Distance, v.Node, v.Dirty, v.Branch)
}
