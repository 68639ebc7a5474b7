// Package session carries the authenticated caller through a request
// context.
package session

import (
	"context"

	"github.com/princekumarofficial/submission-service/internal/types"
)

type contextKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s types.Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored by WithSession.
func FromContext(ctx context.Context) (types.Session, bool) {
	s, ok := ctx.Value(contextKey{}).(types.Session)
	if !ok || s.UserID == "" {
		return types.Session{}, false
	}
	return s, true
}

// ContextProvider reads the session placed on the context by the auth
// middleware.
type ContextProvider struct{}

func (ContextProvider) CurrentSession(ctx context.Context) (types.Session, bool) {
	return FromContext(ctx)
}
