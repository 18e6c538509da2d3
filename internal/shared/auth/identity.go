package auth

import (
	"context"
	"strings"
)

type identityKey struct{}

// Identity is the caller resolved by the auth middleware.
type Identity struct {
	UserID string
	Email  string
	Name   string
	Guest  bool
}

// WithIdentity returns a context carrying the identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored in ctx, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityKey{}).(Identity)
	if !ok || strings.TrimSpace(id.UserID) == "" {
		return Identity{}, false
	}
	return id, true
}

// ContextIdentity resolves the current user from the request context.
type ContextIdentity struct{}

// UserID returns the authenticated user id carried by ctx.
func (ContextIdentity) UserID(ctx context.Context) (string, bool) {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return "", false
	}
	return id.UserID, true
}
