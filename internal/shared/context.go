package shared

import (
	"context"

	"github.com/google/uuid"
)

type identityContextKey struct{}

// ContextWithIdentity stores the authenticated identity id in context.
func ContextWithIdentity(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the authenticated identity id from context.
// The boolean is false for unauthenticated requests.
func IdentityFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(identityContextKey{}).(uuid.UUID)
	return id, ok
}
