// Package overridectx implements the embedder override context: a
// tool-name prefix and log level that apply to subsequent inference
// calls, nested strictly, with exit restoring the prior value.
//
// Go has no first-class thread-local storage; context.Context is the
// idiomatic stand-in for scoped, nested, inherited state threaded through
// a call chain, and it gives the required semantics for free: deriving a
// child context "enters" a new override layer, and simply continuing to
// use the parent context after the child goes out of scope is "exit" —
// there is nothing to restore because the parent was never mutated.
// Concurrent callers on different goroutines naturally see independent
// contexts, satisfying the "safe under concurrent callers" requirement
// without a package-level mutex.
package overridectx

import "context"

// Options holds the overridable process-wide settings. A zero value
// field means "not set at this layer" so that nesting can overlay only
// what a given layer actually specifies.
type Options struct {
	ToolNamePrefix string
	LogLevel       string
}

type ctxKey struct{}

// WithOverrides returns a child context layering opts on top of any
// overrides already present in ctx: fields left zero in opts fall back to
// the parent layer's value.
func WithOverrides(ctx context.Context, opts Options) context.Context {
	current := FromContext(ctx)
	if opts.ToolNamePrefix != "" {
		current.ToolNamePrefix = opts.ToolNamePrefix
	}
	if opts.LogLevel != "" {
		current.LogLevel = opts.LogLevel
	}
	return context.WithValue(ctx, ctxKey{}, current)
}

// FromContext returns the overrides active in ctx, or the zero value if
// none have been set.
func FromContext(ctx context.Context) Options {
	if ctx == nil {
		return Options{}
	}
	if v, ok := ctx.Value(ctxKey{}).(Options); ok {
		return v
	}
	return Options{}
}

// ExportEnv appends the active overrides to env in the form child
// processes that themselves invoke this module would expect, for
// embedders that spawn subprocesses running the core again.
func (o Options) ExportEnv(env []string) []string {
	if o.ToolNamePrefix != "" {
		env = append(env, "SCMVER_TOOL_NAME_PREFIX="+o.ToolNamePrefix)
	}
	if o.LogLevel != "" {
		env = append(env, "SCMVER_DEBUG="+o.LogLevel)
	}
	return env
}
