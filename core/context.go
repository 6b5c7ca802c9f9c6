package core

import "context"

type contextKey int

const identityContextKey contextKey = iota

// WithIdentity returns a copy of ctx carrying the authenticated identity
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// IdentityFromContext returns the identity attached by the authentication gate.
// The boolean is false for unauthenticated requests, e.g. those on open paths.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(Identity)
	return id, ok
}
