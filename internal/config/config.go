// Package config implements configuration resolution: a layered merge
// of hard-coded defaults, pyproject.toml's tool section, call-site
// overrides, and per-dist environment overrides, then frozen into a
// Configuration whose regexes and scheme names are already validated.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jaxxstorm/scmver/internal/diagnostics"
	"github.com/jaxxstorm/scmver/internal/distname"
	"github.com/jaxxstorm/scmver/internal/envoverride"
	"github.com/jaxxstorm/scmver/internal/errs"
	"github.com/jaxxstorm/scmver/internal/pep440"
	"github.com/jaxxstorm/scmver/internal/pyproject"
	"github.com/jaxxstorm/scmver/internal/runner"
	"github.com/jaxxstorm/scmver/internal/schemes"
	"github.com/jaxxstorm/scmver/internal/scmversion"
	"github.com/jaxxstorm/scmver/internal/vcs"
)

// ParseFunc is a caller-supplied parser override: when set, it is
// called instead of probing archives and VCS backends.
type ParseFunc func(root string, cfg *Configuration) (*scmversion.ScmVersion, error)

// Configuration is the frozen result of resolving every override layer.
// It implements scmversion.SchemeConfig.
type Configuration struct {
	Root     string
	DistName string

	tagRegexPattern string
	tagRegex        *regexp.Regexp
	normalize       bool

	VersionScheme []string
	LocalScheme   string

	DescribeCommand []string
	PreParse        vcs.PreParseMode
	HgCommand       string

	SearchParentDirectories bool
	IgnoreVCSRoots          []string

	ParentDirPrefixVersion string
	FallbackVersion        string

	VersionFile string
	WriteTo     string // deprecated alias for VersionFile

	// Parse is only settable from a call site, never from TOML.
	Parse ParseFunc

	releaseBranchRegexPattern string
	releaseBranchRegex        *regexp.Regexp
	majorVersionZero          bool

	ToolNamePrefix string
}

// TagRegex implements scmversion.SchemeConfig.
func (c *Configuration) TagRegex() *regexp.Regexp { return c.tagRegex }

// Normalize implements scmversion.SchemeConfig.
func (c *Configuration) Normalize() bool { return c.normalize }

// ReleaseBranchRegex implements scmversion.SchemeConfig.
func (c *Configuration) ReleaseBranchRegex() *regexp.Regexp { return c.releaseBranchRegex }

// MajorVersionZero implements scmversion.SchemeConfig.
func (c *Configuration) MajorVersionZero() bool { return c.majorVersionZero }

// defaults returns the hard-coded baseline every other layer overlays.
func defaults() map[string]any {
	return map[string]any{
		"tag_regex":                 pep440.DefaultTagRegexPattern,
		"normalize":                 true,
		"version_scheme":            "guess-next-dev",
		"local_scheme":              "node-and-date",
		"pre_parse":                 string(vcs.WarnOnShallow),
		"hg_command":                "hg",
		"search_parent_directories": false,
		"describe_command":          strings.Join(vcs.DefaultDescribeCommand, " "),
		"release_branch_regex":      "",
		"major_on_zero":             false,
	}
}

// Input carries everything Resolve needs beyond the defaults.
type Input struct {
	Root     string
	DistName string

	// Pyproject is the parsed pyproject.toml payload, or nil when the
	// file is absent.
	Pyproject *pyproject.Data

	// CallSite is the override map passed by an external collaborator
	// (e.g. the CLI's flags), taking precedence over pyproject.
	CallSite map[string]any

	// Parse overrides the orchestrator's archive/VCS probing entirely.
	Parse ParseFunc

	// Environ is os.Environ()'s form, injected so callers (and tests) can
	// supply a synthetic environment rather than the live process one.
	Environ []string

	ToolNamePrefix string
}

// Resolve overlays pyproject, call-site, and per-dist env layers over
// the defaults, then freezes the merged map into a Configuration.
func Resolve(in Input) (*Configuration, []string, error) {
	merged := defaults()

	if in.Pyproject != nil {
		overlay(merged, in.Pyproject.Section)
	}
	overlay(merged, in.CallSite)

	distName := in.DistName
	if distName == "" && in.Pyproject != nil {
		distName = in.Pyproject.ProjectName()
	}

	var warnings []string
	reader := envoverride.NewReader(in.Environ, in.ToolNamePrefix, distName)
	if raw, ok := reader.Read("OVERRIDES"); ok {
		decoded, _, err := envoverride.LoadTOMLOrInlineMap("env override", raw, nil)
		if err != nil {
			return nil, nil, err
		}
		overlay(merged, decoded)
	}
	if msg := reader.FuzzyDiagnostic("OVERRIDES"); msg != "" {
		warnings = append(warnings, msg)
	}

	if raw, ok := reader.Read("IGNORE_VCS_ROOTS"); ok {
		merged["ignore_vcs_roots"] = vcs.IgnoreListFromEnv(raw)
	}
	if raw, ok := reader.Read("HG_COMMAND"); ok && raw != "" {
		merged["hg_command"] = raw
	}

	// The deprecated top-level git_describe_command spelling is honored
	// only when the newer key is absent or still at its default value.
	if old, ok := merged["git_describe_command"]; ok {
		warnings = append(warnings, "git_describe_command is deprecated; use scm.git.describe_command")
		if _, newer := merged["describe_command"]; !newer || merged["describe_command"] == defaults()["describe_command"] {
			merged["describe_command"] = old
		}
	}

	cfg, err := freeze(in.Root, distName, in.ToolNamePrefix, merged)
	if err != nil {
		return nil, warnings, err
	}
	cfg.Parse = in.Parse
	if msg := cfg.DeprecationWarning(); msg != "" {
		warnings = append(warnings, msg)
	}
	return cfg, warnings, nil
}

// overlay copies every present key from src into dst: a layer only
// overrides what it actually sets. Keys of a nested scm.git table
// (describe_command, pre_parse) land at the top level, where freeze
// reads them.
func overlay(dst, src map[string]any) {
	for k, v := range src {
		dst[k] = v
	}
	if scm, ok := src["scm"].(map[string]any); ok {
		if gitTable, ok := scm["git"].(map[string]any); ok {
			for k, v := range gitTable {
				dst[k] = v
			}
		}
	}
}

func freeze(root, distName, toolNamePrefix string, merged map[string]any) (*Configuration, error) {
	cfg := &Configuration{
		Root:           root,
		DistName:       distName,
		ToolNamePrefix: toolNamePrefix,
	}

	cfg.tagRegexPattern = stringValue(merged, "tag_regex", pep440.DefaultTagRegexPattern)
	re, err := pep440.CompileTagRegex(cfg.tagRegexPattern)
	if err != nil {
		return nil, &errs.ConfigurationError{Reason: "compiling tag_regex", Cause: err}
	}
	cfg.tagRegex = re

	cfg.normalize = boolValue(merged, "normalize", true)

	cfg.VersionScheme = stringListValue(merged, "version_scheme", []string{"guess-next-dev"})
	cfg.LocalScheme = stringValue(merged, "local_scheme", "node-and-date")

	if raw := stringValue(merged, "describe_command", ""); raw != "" {
		cfg.DescribeCommand = strings.Fields(raw)
	} else {
		cfg.DescribeCommand = append([]string(nil), vcs.DefaultDescribeCommand...)
	}

	cfg.PreParse = vcs.PreParseMode(stringValue(merged, "pre_parse", string(vcs.WarnOnShallow)))
	cfg.HgCommand = stringValue(merged, "hg_command", "hg")

	cfg.SearchParentDirectories = boolValue(merged, "search_parent_directories", false)
	cfg.IgnoreVCSRoots = stringListValue(merged, "ignore_vcs_roots", nil)

	cfg.ParentDirPrefixVersion = stringValue(merged, "parentdir_prefix_version", "")
	cfg.FallbackVersion = stringValue(merged, "fallback_version", "")

	cfg.VersionFile = stringValue(merged, "version_file", "")
	cfg.WriteTo = stringValue(merged, "write_to", "")

	cfg.releaseBranchRegexPattern = stringValue(merged, "release_branch_regex", "")
	if cfg.releaseBranchRegexPattern != "" {
		reb, err := regexp.Compile(cfg.releaseBranchRegexPattern)
		if err != nil {
			return nil, &errs.ConfigurationError{Reason: "compiling release_branch_regex", Cause: err}
		}
		cfg.releaseBranchRegex = reb
	}
	cfg.majorVersionZero = boolValue(merged, "major_on_zero", false)

	for _, name := range cfg.VersionScheme {
		if _, err := schemes.LookupMain(name); err != nil {
			return nil, &errs.ConfigurationError{Reason: "resolving version_scheme", Cause: err}
		}
	}
	if _, err := schemes.LookupLocal(cfg.LocalScheme); err != nil {
		return nil, &errs.ConfigurationError{Reason: "resolving local_scheme", Cause: err}
	}

	return cfg, nil
}

// DeprecationWarning reports whether the deprecated write_to key is
// set. Both keys are kept; only the warning surfaces.
func (c *Configuration) DeprecationWarning() string {
	if c.WriteTo != "" {
		return "write_to is deprecated; use version_file instead"
	}
	return ""
}

func stringValue(m map[string]any, key, def string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

func boolValue(m map[string]any, key string, def bool) bool {
	if v, ok := m[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

func stringListValue(m map[string]any, key string, def []string) []string {
	v, ok := m[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case string:
		return []string{t}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return def
	}
}

// CanonicalDistName normalizes DistName per PEP 503, used to derive
// per-dist environment variable suffixes elsewhere.
func (c *Configuration) CanonicalDistName() string {
	if c.DistName == "" {
		return ""
	}
	return distname.Canonicalize(c.DistName)
}

// ParseOptions builds the vcs.ParseOptions a backend needs from this
// Configuration, factored out so the orchestrator (package scmver) and
// tests can both construct it without duplicating field wiring.
func (c *Configuration) ParseOptions(now time.Time, run runner.Runner, warn *diagnostics.Sink) vcs.ParseOptions {
	return vcs.ParseOptions{
		TagRegex:     c.tagRegex,
		Normalize:    c.normalize,
		DescribeCmd:  c.DescribeCommand,
		PreParse:     c.PreParse,
		HgCommand:    c.HgCommand,
		Now:          now,
		Runner:       run,
		Warn:         warn,
		SchemeConfig: c,
	}
}

// ResolveNow resolves the build timestamp: SOURCE_DATE_EPOCH is
// authoritative when set, else wall-clock UTC. A malformed epoch value
// is a ConfigurationError rather than a silent fallback.
func ResolveNow(environ []string) (time.Time, error) {
	if environ == nil {
		environ = os.Environ()
	}
	for _, kv := range environ {
		raw, ok := strings.CutPrefix(kv, "SOURCE_DATE_EPOCH=")
		if !ok || raw == "" {
			continue
		}
		secs, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return time.Time{}, &errs.ConfigurationError{
				Reason: fmt.Sprintf("SOURCE_DATE_EPOCH %q is not an integer", raw),
				Cause:  err,
			}
		}
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Now().UTC(), nil
}
