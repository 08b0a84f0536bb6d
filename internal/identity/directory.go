package identity

import (
	"context"

	"github.com/google/uuid"
)

// Directory defines the authentication subsystem operations the rest of the
// application consumes. Accounts are created pre-confirmed; there is no
// email verification flow.
type Directory interface {
	// Create registers a new identity. A registered email surfaces
	// shared.ErrDuplicateIdentity.
	Create(ctx context.Context, email, password string, meta Metadata) (*Identity, error)
	// List enumerates every identity, used by orphan detection.
	List(ctx context.Context) ([]Identity, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Identity, error)
	GetByEmail(ctx context.Context, email string) (*Identity, error)
	// Authenticate validates credentials, returning
	// shared.ErrInvalidCredentials on any mismatch.
	Authenticate(ctx context.Context, email, password string) (*Identity, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, newPassword string) error
	Delete(ctx context.Context, id uuid.UUID) error
}
