package domain

import (
	"context"
	"errors"
)

// Scope identifies the actor, and optionally the organization, on whose
// behalf an operation runs. Every query filter is derived from it.
type Scope struct {
	ActorID        string
	OrganizationID string
}

// Validate checks that the scope names an actor.
func (s Scope) Validate() error {
	if s.ActorID == "" {
		return ErrUnauthorized
	}
	return nil
}

type scopeContextKey struct{}

// WithScope stores the scope in ctx.
func WithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, scope)
}

// ScopeFromContext extracts the scope placed by the transport layer.
func ScopeFromContext(ctx context.Context) (Scope, bool) {
	scope, ok := ctx.Value(scopeContextKey{}).(Scope)
	return scope, ok
}

// Authentication errors
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)
