// Package snsctx carries per-call driver settings in a context.
package snsctx

import "context"

type verboseKey struct{}

// IsVerbose reports whether bus level tracing was requested for ctx.
func IsVerbose(ctx context.Context) bool {
	val, ok := ctx.Value(verboseKey{}).(bool)
	return ok && val
}

// WithVerbose enables or disables bus level tracing for calls made with the returned context.
func WithVerbose(parent context.Context, value bool) context.Context {
	return context.WithValue(parent, verboseKey{}, value)
}
