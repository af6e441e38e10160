// Package schemes implements the version scheme registries: named
// "main" schemes projecting an ScmVersion to a version string, and
// named "local" schemes rendering the dirty/distance local segment.
// Both are registries of function values keyed by short names.
package schemes

import (
	"fmt"

	"github.com/jaxxstorm/scmver/internal/pep440"
	"github.com/jaxxstorm/scmver/internal/scmversion"
)

// Main is a main version scheme: (ScmVersion) -> version string.
type Main func(*scmversion.ScmVersion) (string, error)

// Local is a local version scheme: (ScmVersion) -> local segment (without
// the leading "+", or "" for none).
type Local func(*scmversion.ScmVersion) string

// UnknownSchemeError reports a configured scheme name with no registry
// entry.
type UnknownSchemeError struct {
	Kind string // "main" or "local"
	Name string
}

func (e *UnknownSchemeError) Error() string {
	return fmt.Sprintf("unknown %s version scheme %q", e.Kind, e.Name)
}

// MainSchemes is the registry of named main schemes.
var MainSchemes = map[string]Main{
	"guess-next-dev":               GuessNextDev,
	"no-guess-dev":                 NoGuessDev,
	"post-release":                 PostRelease,
	"only-version":                 OnlyVersion,
	"semver-pep440":                SemverPEP440,
	"semver-pep440-release-branch": SemverPEP440ReleaseBranch,
	"calver-by-date":               CalverByDate,
	"towncrier-fragments":          TowncrierFragments,
	// Historic aliases, kept so configurations written before the rename
	// keep resolving.
	"python-simplified-semver": SemverPEP440,
	"release-branch-semver":    SemverPEP440ReleaseBranch,
}

// LocalSchemes is the registry of named local schemes.
var LocalSchemes = map[string]Local{
	"node-and-date":      NodeAndDate,
	"node-and-timestamp": NodeAndTimestamp,
	"dirty-tag":          DirtyTag,
	"no-local-version":   NoLocalVersion,
}

// LookupMain resolves name, returning UnknownSchemeError if unregistered.
func LookupMain(name string) (Main, error) {
	fn, ok := MainSchemes[name]
	if !ok {
		return nil, &UnknownSchemeError{Kind: "main", Name: name}
	}
	return fn, nil
}

// LookupLocal resolves name, returning UnknownSchemeError if unregistered.
func LookupLocal(name string) (Local, error) {
	fn, ok := LocalSchemes[name]
	if !ok {
		return nil, &UnknownSchemeError{Kind: "local", Name: name}
	}
	return fn, nil
}

// MainChain runs each named scheme in order and returns the first
// non-empty result.
func MainChain(names []string, v *scmversion.ScmVersion) (string, error) {
	for _, name := range names {
		fn, err := LookupMain(name)
		if err != nil {
			return "", err
		}
		out, err := fn(v)
		if err != nil {
			return "", err
		}
		if out != "" {
			return out, nil
		}
	}
	return "", nil
}

func bump(t *pep440.Version) *pep440.Version { return t.Bump() }

// GuessNextDev is the default main scheme: a clean tag renders as-is;
// otherwise the tag's last release segment is bumped by one and suffixed
// with ".dev{distance}".
func GuessNextDev(v *scmversion.ScmVersion) (string, error) {
	if v.Clean() {
		return v.TagString(), nil
	}
	return v.FormatNextVersion(bump, "{guessed}.dev{distance}"), nil
}

// NoGuessDev behaves like GuessNextDev on a clean tag, but otherwise
// appends ".post1.dev{distance}" to the tag itself rather than guessing a
// next version.
func NoGuessDev(v *scmversion.ScmVersion) (string, error) {
	if v.Clean() {
		return v.TagString(), nil
	}
	return v.FormatWith("{tag}.post1.dev{distance}"), nil
}

// PostRelease behaves like GuessNextDev on a clean tag, but otherwise
// appends ".post{distance}" to the tag itself.
func PostRelease(v *scmversion.ScmVersion) (string, error) {
	if v.Clean() {
		return v.TagString(), nil
	}
	return v.FormatWith("{tag}.post{distance}"), nil
}

// OnlyVersion always emits the tag, ignoring distance and dirty state.
func OnlyVersion(v *scmversion.ScmVersion) (string, error) {
	return v.TagString(), nil
}
