package scmver

import (
	"context"

	"github.com/jaxxstorm/scmver/internal/overridectx"
)

// ContextOverrides are embedder-scoped settings carried on a
// context.Context: a tool-name prefix consulted before the built-in
// SCMVER/SETUPTOOLS_SCM environment prefixes, and a log level. Layers
// nest: deriving a child context overlays only the fields set here, and
// dropping back to the parent context restores the previous values.
type ContextOverrides = overridectx.Options

// WithOverrides returns a child context layering o over any overrides
// already present in ctx. Pass the returned context via Options.Context.
func WithOverrides(ctx context.Context, o ContextOverrides) context.Context {
	return overridectx.WithOverrides(ctx, o)
}

// OverridesFromContext reports the overrides active in ctx.
func OverridesFromContext(ctx context.Context) ContextOverrides {
	return overridectx.FromContext(ctx)
}

// ExportOverrideEnv appends ctx's active overrides to env in the form a
// child process invoking this module would read them back, for embedders
// that spawn subprocesses running the core again.
func ExportOverrideEnv(ctx context.Context, env []string) []string {
	return overridectx.FromContext(ctx).ExportEnv(env)
}
