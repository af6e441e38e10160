// Package envoverride reads the prefixed, dist-name-aware environment
// overrides: pretend version, pretend metadata, and per-dist
// configuration overrides, the latter two as TOML inline tables with
// schema validation.
package envoverride

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/jaxxstorm/scmver/internal/distname"
	"github.com/jaxxstorm/scmver/internal/errs"
)

// defaultPrefixes are tried after any embedder-registered tool-name
// prefix. SCMVER is this module's own name; SETUPTOOLS_SCM is kept so a
// project migrating from setuptools_scm keeps its existing CI env vars
// working unchanged.
var defaultPrefixes = []string{"SCMVER", "SETUPTOOLS_SCM"}

// Reader resolves generic/per-dist environment variables across the
// active prefix list.
type Reader struct {
	Prefixes []string
	Env      map[string]string
	DistName string
}

// NewReader builds a Reader from environ (os.Environ() form, "K=V"
// strings) with toolNamePrefix — if set, from the override context —
// consulted before the built-in SCMVER/SETUPTOOLS_SCM prefixes.
func NewReader(environ []string, toolNamePrefix, distName string) *Reader {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if idx := strings.IndexByte(kv, '='); idx >= 0 {
			env[kv[:idx]] = kv[idx+1:]
		}
	}

	prefixes := make([]string, 0, len(defaultPrefixes)+1)
	if toolNamePrefix != "" {
		prefixes = append(prefixes, toolNamePrefix)
	}
	prefixes = append(prefixes, defaultPrefixes...)

	return &Reader{Prefixes: prefixes, Env: env, DistName: distName}
}

// Read resolves name (e.g. "PRETEND_VERSION") across every prefix,
// per-dist suffix first, returning the winning value and whether
// anything matched.
func (r *Reader) Read(name string) (string, bool) {
	for _, prefix := range r.Prefixes {
		if r.DistName != "" {
			key := prefix + "_" + name + "_FOR_" + distname.EnvSuffix(r.DistName)
			if v, ok := r.Env[key]; ok {
				return v, true
			}
		}
		if v, ok := r.Env[prefix+"_"+name]; ok {
			return v, true
		}
	}
	return "", false
}

// FuzzyDiagnostic reports a near-miss env var name for name's per-dist
// form: an env var sharing a recognized prefix+name combination whose
// suffix is a close match for the expected dist suffix, but not an exact
// one. Returns "" when nothing close was found.
func (r *Reader) FuzzyDiagnostic(name string) string {
	if r.DistName == "" {
		return ""
	}
	expected := distname.EnvSuffix(r.DistName)

	for _, prefix := range r.Prefixes {
		marker := prefix + "_" + name + "_FOR_"
		var candidates []string
		for key := range r.Env {
			if strings.HasPrefix(key, marker) {
				suffix := strings.TrimPrefix(key, marker)
				if suffix != expected {
					candidates = append(candidates, suffix)
				}
			}
		}
		sort.Strings(candidates)
		for _, suffix := range candidates {
			if similarity(expected, suffix) >= 0.6 {
				return fmt.Sprintf("found %s%s, expected %s%s", marker, suffix, marker, expected)
			}
		}
	}
	return ""
}

// ValidFields is the schema for pretend-metadata inline tables.
var ValidFields = map[string]struct{}{
	"tag": {}, "distance": {}, "node": {}, "dirty": {}, "preformatted": {},
	"branch": {}, "node_date": {}, "time": {},
}

// LoadTOMLOrInlineMap parses data either as a bare TOML inline table
// (starting with "{") or as a full TOML document, then drops any key not
// in validFields (nil means "no schema, accept everything"), returning
// the dropped keys for diagnostic reporting.
func LoadTOMLOrInlineMap(source, data string, validFields map[string]struct{}) (map[string]any, []string, error) {
	if data == "" {
		return map[string]any{}, nil, nil
	}

	text := data
	isInline := strings.HasPrefix(strings.TrimSpace(data), "{")
	if isInline {
		text = "cheat=" + data
	}

	var doc map[string]any
	if err := toml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, nil, &errs.OverrideDecodeError{Source: source, Reason: "invalid TOML", Cause: err}
	}

	result := doc
	if isInline {
		inline, ok := doc["cheat"].(map[string]any)
		if !ok {
			return nil, nil, &errs.OverrideDecodeError{Source: source, Reason: "expected an inline table"}
		}
		result = inline
	}

	if validFields == nil {
		return result, nil, nil
	}

	var dropped []string
	for k := range result {
		if _, ok := validFields[k]; !ok {
			dropped = append(dropped, k)
		}
	}
	sort.Strings(dropped)
	for _, k := range dropped {
		delete(result, k)
	}
	return result, dropped, nil
}

// similarity is an LCS-based match ratio in [0, 1], enough to decide
// whether an env var suffix is a near-miss worth mentioning.
func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	lcs := longestCommonSubsequence(a, b)
	return 2 * float64(lcs) / float64(len(a)+len(b))
}

func longestCommonSubsequence(a, b string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
