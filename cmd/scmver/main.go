package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/jaxxstorm/scmver"
	"github.com/jaxxstorm/scmver/internal/config"
	"github.com/jaxxstorm/scmver/internal/diagnostics"
	"github.com/jaxxstorm/scmver/internal/pep440"
	"github.com/jaxxstorm/scmver/internal/runner"
	"github.com/jaxxstorm/scmver/internal/vcs"
)

// Version will be set by build process
var Version = "dev"

type CLI struct {
	Version VersionCmd `cmd:"" default:"withargs" help:"Infer and print the package version (default)."`
	Ls      LsCmd      `cmd:"" help:"List the files tracked by the enclosing SCM."`

	ShowVersion bool `help:"Show scmver's own version." name:"self-version"`
}

type VersionCmd struct {
	Root          string `short:"r" default:"." help:"Directory to infer the version for."`
	VersionScheme string `help:"Main version scheme name (e.g. guess-next-dev, calver-by-date)."`
	LocalScheme   string `help:"Local version scheme name (e.g. node-and-date, no-local-version)."`
	TagRegex      string `help:"Regex extracting the version body from tags; must expose a 'version' group."`
	StripDev      bool   `help:"Drop the dev segment and local part from the rendered version."`
	JSON          bool   `short:"j" help:"Output the full metadata as JSON."`
}

type LsCmd struct {
	Root string `short:"r" default:"." help:"Directory whose SCM-tracked files to list."`
}

func main() {
	var cli CLI

	ctx := kong.Parse(&cli,
		kong.Name("scmver"),
		kong.Description("Infer a PEP 440 package version from Git or Mercurial repository state"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)

	if cli.ShowVersion {
		fmt.Printf("scmver version %s\n", Version)
		return
	}

	if err := ctx.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (c *VersionCmd) Run() error {
	overrides := map[string]any{}
	if c.VersionScheme != "" {
		overrides["version_scheme"] = c.VersionScheme
	}
	if c.LocalScheme != "" {
		overrides["local_scheme"] = c.LocalScheme
	}
	if c.TagRegex != "" {
		overrides["tag_regex"] = c.TagRegex
	}

	res, err := scmver.Infer(scmver.Options{
		Root:      c.Root,
		Overrides: overrides,
	})
	if err != nil {
		return err
	}

	diagnostics.Emit(os.Stderr, res.Warnings)

	version := res.Version
	if c.StripDev {
		version = stripDev(version)
	}

	if c.JSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{
			"version":  version,
			"metadata": res.Meta,
		})
	}

	fmt.Println(version)
	return nil
}

// stripDev removes the .devN and +local segments, yielding the release
// the working tree is heading toward.
func stripDev(version string) string {
	v, err := pep440.Parse(version)
	if err != nil {
		return version
	}
	v.Dev = nil
	v.Local = ""
	return v.Canonical()
}

func (c *LsCmd) Run() error {
	cfg, warnings, err := config.Resolve(config.Input{Root: c.Root})
	if err != nil {
		return err
	}
	diagnostics.Emit(os.Stderr, warnings)

	root, backend, ok := vcs.Discover(c.Root, vcs.DefaultBackends(), cfg.IgnoreVCSRoots, cfg.SearchParentDirectories)
	if !ok {
		return fmt.Errorf("no .git or .hg repository found at %s", c.Root)
	}

	now, err := config.ResolveNow(nil)
	if err != nil {
		return err
	}

	files, err := backend.ListFiles(root, cfg.ParseOptions(now, runner.Runner{}, diagnostics.NewSink()))
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Println(f)
	}
	return nil
}
