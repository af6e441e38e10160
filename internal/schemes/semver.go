package schemes

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/blang/semver"
	"github.com/jaxxstorm/scmver/internal/pep440"
	"github.com/jaxxstorm/scmver/internal/scmversion"
)

// featureBranchPattern classifies a branch name as feature-like (bump
// minor); every other branch, bugfix branches included, bumps patch.
var featureBranchPattern = regexp.MustCompile(`(?i)^(feature|feat)[/-]`)

// SemverPEP440 bumps minor on feature-like branches and patch on
// bugfix-like (or unrecognized) branches, rendering the result as
// PEP 440: it mimics SemVer bump semantics without emitting SemVer
// syntax.
func SemverPEP440(v *scmversion.ScmVersion) (string, error) {
	if v.Clean() {
		return v.TagString(), nil
	}
	if v.Tag == nil {
		return "", nil
	}

	segment := 2 // patch, default (bugfix-like and unrecognized branches)
	switch {
	case v.Tag.Segment(0) == 0:
		// A 0.x release line always bumps patch, regardless of branch.
		segment = 2
	case featureBranchPattern.MatchString(v.Branch):
		segment = 1 // minor
	}

	next := v.Tag.BumpSegment(segment)
	return v.FormatNextVersion(func(*pep440.Version) *pep440.Version { return next }, "{guessed}.dev{distance}"), nil
}

// SemverPEP440ReleaseBranch consults the branch name against a
// release-branch pattern ("release-1.2", "rel/2.0", ...) to choose a
// major vs minor bump; every other branch bumps patch. Unless
// MajorVersionZero is set, a 0.x release-branch line bumps minor
// instead of major, following SemVer's pre-1.0 convention.
func SemverPEP440ReleaseBranch(v *scmversion.ScmVersion) (string, error) {
	if v.Clean() {
		return v.TagString(), nil
	}
	if v.Tag == nil {
		return "", nil
	}

	re := v.Config.ReleaseBranchRegex()
	if re == nil {
		re = defaultReleaseBranchRegex
	}

	segment := 2 // patch by default
	if m := re.FindStringSubmatch(v.Branch); m != nil {
		branchVersion, err := semver.ParseTolerant(branchCaptureToVersionString(re, m))
		if err == nil {
			if branchVersion.Major == 0 && !v.Config.MajorVersionZero() {
				segment = 1
			} else {
				segment = 0
			}
		} else {
			segment = 0
		}
	}

	next := v.Tag.BumpSegment(segment)
	return v.FormatNextVersion(func(*pep440.Version) *pep440.Version { return next }, "{guessed}.dev{distance}"), nil
}

var defaultReleaseBranchRegex = regexp.MustCompile(`(?i)^(?:release|rel)[/-](?P<version>\d+(?:\.\d+)*)`)

func branchCaptureToVersionString(re *regexp.Regexp, m []string) string {
	idx := re.SubexpIndex("version")
	if idx == -1 || idx >= len(m) {
		return "0.0.0"
	}
	parts := strings.Split(m[idx], ".")
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	return strings.Join(parts[:3], ".")
}

// CalverByDate emits the tag unchanged when clean; otherwise emits
// YYYY.MM.DD[.devN] derived from the commit's node date (preferred) or
// the build timestamp.
func CalverByDate(v *scmversion.ScmVersion) (string, error) {
	if v.Clean() {
		return v.TagString(), nil
	}
	date := v.Date(true)
	calver := date[:4] + "." + date[4:6] + "." + date[6:8]
	if v.Distance > 0 {
		calver += ".dev" + strconv.Itoa(v.Distance)
	}
	return calver, nil
}

// TowncrierFragments inspects changelog.d/*.{type}.md fragments to
// choose a major/minor/patch bump, then delegates to GuessNextDev for
// the dev-suffix rendering. A missing changelog.d directory, or one with
// no recognized fragments, falls back to GuessNextDev, which bumps the
// last release segment.
func TowncrierFragments(v *scmversion.ScmVersion) (string, error) {
	if v.Clean() {
		return v.TagString(), nil
	}

	entries, err := os.ReadDir("changelog.d")
	if err != nil {
		return GuessNextDev(v)
	}

	segment := -1
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch fragmentKind(entry.Name()) {
		case "breaking", "major":
			segment = 0
		case "feature", "minor":
			if segment == -1 || segment > 1 {
				segment = 1
			}
		case "bugfix", "patch", "doc", "misc":
			if segment == -1 {
				segment = 2
			}
		}
	}

	if segment == -1 || v.Tag == nil {
		return GuessNextDev(v)
	}

	next := v.Tag.BumpSegment(segment)
	return v.FormatNextVersion(func(*pep440.Version) *pep440.Version { return next }, "{guessed}.dev{distance}"), nil
}

func fragmentKind(filename string) string {
	parts := strings.Split(strings.TrimSuffix(filename, filepath.Ext(filename)), ".")
	if len(parts) < 2 {
		return ""
	}
	return strings.ToLower(parts[len(parts)-1])
}
