// Package scmver infers a canonical PEP 440 package version from the
// state of an enclosing Git or Mercurial checkout, an exported archive of
// one, or a distribution-metadata-bearing source tree.
//
// Infer is the entry point: it resolves configuration from
// pyproject.toml, environment overrides, and call-site options, then
// walks the resolution pipeline (pretend version, parser override,
// archive files, live VCS, parent-directory prefix, PKG-INFO, configured
// fallback) until a stage yields a version.
package scmver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jaxxstorm/scmver/internal/archival"
	"github.com/jaxxstorm/scmver/internal/config"
	"github.com/jaxxstorm/scmver/internal/diagnostics"
	"github.com/jaxxstorm/scmver/internal/envoverride"
	"github.com/jaxxstorm/scmver/internal/errs"
	"github.com/jaxxstorm/scmver/internal/fallback"
	"github.com/jaxxstorm/scmver/internal/overridectx"
	"github.com/jaxxstorm/scmver/internal/pep440"
	"github.com/jaxxstorm/scmver/internal/pyproject"
	"github.com/jaxxstorm/scmver/internal/runner"
	"github.com/jaxxstorm/scmver/internal/schemes"
	"github.com/jaxxstorm/scmver/internal/scmversion"
	"github.com/jaxxstorm/scmver/internal/vcs"
)

// ScmVersion is the structured metadata behind an inferred version
// string: the parsed tag, the commit distance from it, the VCS node (a
// short hash carrying its "g"/"h" SCM prefix), working-tree dirtiness,
// and the timestamps local schemes render from.
type ScmVersion struct {
	Tag          string     `json:"tag"`
	Distance     int        `json:"distance"`
	Node         string     `json:"node,omitempty"`
	Dirty        bool       `json:"dirty"`
	Branch       string     `json:"branch,omitempty"`
	NodeDate     *time.Time `json:"node_date,omitempty"`
	Time         time.Time  `json:"time"`
	Preformatted bool       `json:"preformatted,omitempty"`
}

// ParseFunc is a caller-supplied parser override. When it returns a
// non-nil ScmVersion, archive probing and VCS discovery are skipped for
// this call; returning (nil, nil) falls through to the non-VCS stages.
type ParseFunc func(root string) (*ScmVersion, error)

// Options configures a single inference call.
type Options struct {
	// Root is the directory to infer a version for, relative to the
	// directory of RelativeTo when that is set. Defaults to ".".
	Root string

	// RelativeTo anchors a relative Root; pointing it at a pyproject.toml
	// also makes that the file configuration is read from.
	RelativeTo string

	// DistName names the distribution for per-dist environment overrides.
	// Defaults to pyproject's project.name when available.
	DistName string

	// Overrides is the call-site configuration layer, keyed like
	// [tool.scmver] (version_scheme, local_scheme, tag_regex, ...). It
	// takes precedence over pyproject but yields to env overrides.
	Overrides map[string]any

	// Parse overrides archive/VCS probing entirely.
	Parse ParseFunc

	// Environ replaces os.Environ() for tests and embedders.
	Environ []string

	// Context carries embedder overrides (tool-name prefix, log level)
	// set via overridectx; a nil Context means no overrides.
	Context context.Context
}

// Result is what one inference call produces: the rendered version, the
// structured metadata behind it, and any diagnostics collected on the
// way (each unique warning at most once).
type Result struct {
	Version  string
	Meta     ScmVersion
	Warnings []string
}

// Infer computes the version for opts.Root. It fails with a
// *NoVersionInferredError naming every attempted stage when no source
// yields a version.
func Infer(opts Options) (*Result, error) {
	environ := opts.Environ
	if environ == nil {
		environ = os.Environ()
	}

	ctxOpts := overridectx.FromContext(opts.Context)
	toolPrefix := ctxOpts.ToolNamePrefix
	if toolPrefix == "" {
		toolPrefix = envLookup(environ, "SCMVER_TOOL_NAME_PREFIX")
	}

	root := opts.Root
	if root == "" {
		root = "."
	}
	anchorDir := ""
	if opts.RelativeTo != "" {
		anchorDir = filepath.Dir(opts.RelativeTo)
	}
	absRoot, err := filepath.Abs(filepath.Join(anchorDir, root))
	if err != nil {
		return nil, fmt.Errorf("resolving root %q: %w", root, err)
	}

	pyPath := filepath.Join(absRoot, "pyproject.toml")
	if opts.RelativeTo != "" && filepath.Base(opts.RelativeTo) == "pyproject.toml" {
		pyPath = opts.RelativeTo
	}
	var py *pyproject.Data
	if data, rerr := pyproject.Read(pyPath); rerr == nil {
		py = data
	} else if !os.IsNotExist(rerr) {
		return nil, rerr
	}

	warn := diagnostics.NewSink()

	cfg, cfgWarnings, err := config.Resolve(config.Input{
		Root:           absRoot,
		DistName:       opts.DistName,
		Pyproject:      py,
		CallSite:       opts.Overrides,
		Parse:          wrapParse(opts.Parse),
		Environ:        environ,
		ToolNamePrefix: toolPrefix,
	})
	if err != nil {
		return nil, err
	}
	for _, w := range cfgWarnings {
		warn.Warn("%s", w)
	}

	now, err := config.ResolveNow(environ)
	if err != nil {
		return nil, err
	}

	sv, err := runStages(cfg, environ, toolPrefix, now, warn)
	if err != nil {
		return nil, err
	}
	if sv.Time.IsZero() {
		sv.Time = now
	}
	if sv.Config == nil {
		sv.Config = cfg
	}

	version, err := render(sv, cfg)
	if err != nil {
		return nil, err
	}

	return &Result{
		Version:  version,
		Meta:     snapshot(sv),
		Warnings: warn.Warnings,
	}, nil
}

// Version is a shorthand for Infer over a root directory with default
// options, returning just the rendered string.
func Version(root string) (string, error) {
	res, err := Infer(Options{Root: root})
	if err != nil {
		return "", err
	}
	return res.Version, nil
}

// runStages walks the resolution order from spec stage one through the
// configured fallback. Recoverable per-stage misses (archive file absent,
// no VCS marker, no PKG-INFO) pass control to the next stage; failures
// from a source that did claim the call (a backend whose marker matched,
// a malformed override) propagate immediately.
func runStages(cfg *config.Configuration, environ []string, toolPrefix string, now time.Time, warn *diagnostics.Sink) (*scmversion.ScmVersion, error) {
	var attempts []errs.StageAttempt
	skip := func(name, reason string) {
		attempts = append(attempts, errs.StageAttempt{Name: name, Reason: reason})
	}

	reader := envoverride.NewReader(environ, toolPrefix, cfg.DistName)

	// Pretend version short-circuits everything else.
	if raw, ok := reader.Read("PRETEND_VERSION"); ok && raw != "" {
		sv, err := pretendVersion(raw, reader, cfg, now)
		if err != nil {
			return nil, err
		}
		return sv, nil
	}
	skip("pretend version", "no pretend-version environment variable set")
	if msg := reader.FuzzyDiagnostic("PRETEND_VERSION"); msg != "" {
		warn.Warn("%s", msg)
	}

	if cfg.Parse != nil {
		sv, err := cfg.Parse(cfg.Root, cfg)
		if err != nil {
			return nil, err
		}
		if sv != nil {
			return sv, nil
		}
		skip("parse override", "custom parser returned no version")
	} else {
		sv, err := archiveStage(cfg, warn)
		if err != nil {
			return nil, err
		}
		if sv != nil {
			return sv, nil
		}
		skip("archive file", "no usable .git_archival.txt or .hg_archival.txt at root")

		sv, err = liveVCSStage(cfg, now, warn)
		if err != nil {
			return nil, err
		}
		if sv != nil {
			return sv, nil
		}
		skip("live VCS", "no .git or .hg repository found")
	}

	if cfg.ParentDirPrefixVersion != "" {
		sv, ok, err := fallback.ParentDirPrefixVersion(cfg.Root, cfg.ParentDirPrefixVersion, cfg.TagRegex(), cfg.Normalize(), cfg)
		if err != nil {
			skip("parentdir prefix", err.Error())
		} else if ok {
			return sv, nil
		} else {
			skip("parentdir prefix", fmt.Sprintf("directory name does not start with %q", cfg.ParentDirPrefixVersion))
		}
	} else {
		skip("parentdir prefix", "parentdir_prefix_version not configured")
	}

	if version, err := fallback.ReadPkgInfo(filepath.Join(cfg.Root, "PKG-INFO")); err == nil && version != "" {
		tag, terr := pep440.ParseRaw(version)
		if terr != nil {
			return nil, &errs.TagParseError{Tag: version, Cause: terr}
		}
		return &scmversion.ScmVersion{Tag: tag, Preformatted: true, Config: cfg}, nil
	} else if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	skip("PKG-INFO", "no PKG-INFO file with a Version header at root")

	if cfg.FallbackVersion != "" {
		tag, err := pep440.ParseRaw(cfg.FallbackVersion)
		if err != nil {
			return nil, &errs.TagParseError{Tag: cfg.FallbackVersion, Cause: err}
		}
		return &scmversion.ScmVersion{Tag: tag, Preformatted: true, Config: cfg}, nil
	}
	skip("fallback version", "fallback_version not configured")

	return nil, &errs.NoVersionInferredError{Root: cfg.Root, Stages: attempts}
}

func pretendVersion(raw string, reader *envoverride.Reader, cfg *config.Configuration, now time.Time) (*scmversion.ScmVersion, error) {
	tag, err := parseVersionString(raw, cfg.Normalize())
	if err != nil {
		return nil, &errs.TagParseError{Tag: raw, Cause: err}
	}
	sv := &scmversion.ScmVersion{
		Tag:          tag,
		Preformatted: true,
		Time:         now,
		Config:       cfg,
	}

	if rawMeta, ok := reader.Read("PRETEND_METADATA"); ok && rawMeta != "" {
		fields, _, err := envoverride.LoadTOMLOrInlineMap("pretend metadata", rawMeta, envoverride.ValidFields)
		if err != nil {
			return nil, err
		}
		md, err := envoverride.CoerceMetadata("pretend metadata", fields)
		if err != nil {
			return nil, err
		}
		if err := applyMetadata(sv, md, cfg); err != nil {
			return nil, err
		}
	}
	return sv, nil
}

func applyMetadata(sv *scmversion.ScmVersion, md *envoverride.Metadata, cfg *config.Configuration) error {
	if md.Tag != nil {
		tag, err := parseVersionString(*md.Tag, cfg.Normalize())
		if err != nil {
			return &errs.TagParseError{Tag: *md.Tag, Cause: err}
		}
		sv.Tag = tag
	}
	if md.Distance != nil {
		sv.Distance = *md.Distance
	}
	if md.Node != nil {
		sv.Node = *md.Node
	}
	if md.Dirty != nil {
		sv.Dirty = *md.Dirty
	}
	if md.Branch != nil {
		sv.Branch = *md.Branch
	}
	if md.NodeDate != nil {
		sv.NodeDate = md.NodeDate
	}
	if md.Time != nil {
		sv.Time = *md.Time
	}
	if md.Preformatted != nil {
		sv.Preformatted = *md.Preformatted
	}
	return nil
}

func archiveStage(cfg *config.Configuration, warn *diagnostics.Sink) (*scmversion.ScmVersion, error) {
	if data, err := os.ReadFile(filepath.Join(cfg.Root, ".git_archival.txt")); err == nil {
		return archival.ParseGitArchival(data, cfg.TagRegex(), cfg.Normalize(), cfg, warn)
	}
	if data, err := os.ReadFile(filepath.Join(cfg.Root, ".hg_archival.txt")); err == nil {
		return archival.ParseHgArchival(data, cfg.TagRegex(), cfg.Normalize(), cfg, warn)
	}
	return nil, nil
}

func liveVCSStage(cfg *config.Configuration, now time.Time, warn *diagnostics.Sink) (*scmversion.ScmVersion, error) {
	root, backend, ok := vcs.Discover(cfg.Root, vcs.DefaultBackends(), cfg.IgnoreVCSRoots, cfg.SearchParentDirectories)
	if !ok {
		return nil, nil
	}
	return backend.Parse(root, cfg.ParseOptions(now, runner.Runner{}, warn))
}

// render applies the main scheme chain and the local scheme, then
// validates the final string by re-parsing it under the configured
// version type (skipped for preformatted versions, which are emitted
// verbatim).
func render(sv *scmversion.ScmVersion, cfg *config.Configuration) (string, error) {
	if sv.Preformatted {
		return sv.TagString(), nil
	}

	main, err := schemes.MainChain(cfg.VersionScheme, sv)
	if err != nil {
		return "", err
	}
	localFn, err := schemes.LookupLocal(cfg.LocalScheme)
	if err != nil {
		return "", &errs.ConfigurationError{Reason: "resolving local_scheme", Cause: err}
	}
	final := schemes.Compose(main, localFn(sv))

	if _, err := parseVersionString(final, cfg.Normalize()); err != nil {
		return "", fmt.Errorf("rendered version %q is not valid: %w", final, err)
	}
	return final, nil
}

func parseVersionString(s string, normalize bool) (*pep440.Version, error) {
	if normalize {
		return pep440.Parse(s)
	}
	return pep440.ParseRaw(s)
}

func wrapParse(fn ParseFunc) config.ParseFunc {
	if fn == nil {
		return nil
	}
	return func(root string, cfg *config.Configuration) (*scmversion.ScmVersion, error) {
		pub, err := fn(root)
		if err != nil || pub == nil {
			return nil, err
		}
		tag, err := parseVersionString(pub.Tag, cfg.Normalize())
		if err != nil {
			return nil, &errs.TagParseError{Tag: pub.Tag, Cause: err}
		}
		return &scmversion.ScmVersion{
			Tag:          tag,
			Distance:     pub.Distance,
			Node:         pub.Node,
			Dirty:        pub.Dirty,
			Branch:       pub.Branch,
			NodeDate:     pub.NodeDate,
			Time:         pub.Time,
			Preformatted: pub.Preformatted,
			Config:       cfg,
		}, nil
	}
}

func snapshot(sv *scmversion.ScmVersion) ScmVersion {
	return ScmVersion{
		Tag:          sv.TagString(),
		Distance:     sv.Distance,
		Node:         sv.Node,
		Dirty:        sv.Dirty,
		Branch:       sv.Branch,
		NodeDate:     sv.NodeDate,
		Time:         sv.Time,
		Preformatted: sv.Preformatted,
	}
}

func envLookup(environ []string, key string) string {
	prefix := key + "="
	for _, kv := range environ {
		if len(kv) > len(prefix) && kv[:len(prefix)] == prefix {
			return kv[len(prefix):]
		}
	}
	return ""
}
