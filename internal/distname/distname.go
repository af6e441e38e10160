// Package distname implements PEP 503 distribution name normalization,
// used both for the pyproject project name and for deriving per-dist
// environment variable suffixes.
package distname

import (
	"regexp"
	"strings"
)

var runOfSeparators = regexp.MustCompile(`[-_.]+`)

// Canonicalize lower-cases name and collapses runs of "-", "_", "."
// into a single "-", the PEP 503 normalization rule.
func Canonicalize(name string) string {
	return runOfSeparators.ReplaceAllString(strings.ToLower(name), "-")
}

// EnvSuffix derives the per-dist environment variable suffix from name:
// its canonical form with "-" replaced by "_" and upper-cased.
func EnvSuffix(name string) string {
	return strings.ToUpper(strings.ReplaceAll(Canonicalize(name), "-", "_"))
}
