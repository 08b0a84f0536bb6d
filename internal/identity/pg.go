package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/pulseboard/pulseboard/internal/shared"
)

const uniqueViolation = "23505"

// isUniqueViolation matches the pgx/v5 driver error for a unique constraint
// breach.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// PGDirectory implements Directory using PostgreSQL with bcrypt credentials.
type PGDirectory struct {
	pool       *pgxpool.Pool
	bcryptCost int
}

// NewPGDirectory constructs a PostgreSQL backed directory.
func NewPGDirectory(pool *pgxpool.Pool, bcryptCost int) *PGDirectory {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &PGDirectory{pool: pool, bcryptCost: bcryptCost}
}

// Create registers a new identity with a bcrypt-hashed credential.
func (d *PGDirectory) Create(ctx context.Context, email, password string, meta Metadata) (*Identity, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("identity: hash password: %w", err)
	}

	ident := &Identity{ID: uuid.New(), Email: email, Metadata: meta}
	err = d.pool.QueryRow(ctx,
		`INSERT INTO identities (id, email, password_hash, full_name)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		ident.ID, email, string(hash), meta.FullName,
	).Scan(&ident.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, shared.ErrDuplicateIdentity
		}
		return nil, fmt.Errorf("identity: create: %w", err)
	}
	return ident, nil
}

// List enumerates every identity ordered by creation time.
func (d *PGDirectory) List(ctx context.Context) ([]Identity, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT id, email, full_name, created_at FROM identities ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("identity: list: %w", err)
	}
	defer rows.Close()

	var identities []Identity
	for rows.Next() {
		var ident Identity
		if err := rows.Scan(&ident.ID, &ident.Email, &ident.Metadata.FullName, &ident.CreatedAt); err != nil {
			return nil, fmt.Errorf("identity: scan: %w", err)
		}
		identities = append(identities, ident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("identity: list: %w", err)
	}
	return identities, nil
}

// GetByID fetches one identity.
func (d *PGDirectory) GetByID(ctx context.Context, id uuid.UUID) (*Identity, error) {
	return d.get(ctx, `SELECT id, email, full_name, created_at FROM identities WHERE id = $1`, id)
}

// GetByEmail fetches one identity by email.
func (d *PGDirectory) GetByEmail(ctx context.Context, email string) (*Identity, error) {
	return d.get(ctx, `SELECT id, email, full_name, created_at FROM identities WHERE email = $1`, email)
}

func (d *PGDirectory) get(ctx context.Context, query string, arg any) (*Identity, error) {
	var ident Identity
	err := d.pool.QueryRow(ctx, query, arg).Scan(&ident.ID, &ident.Email, &ident.Metadata.FullName, &ident.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("identity: get: %w", err)
	}
	return &ident, nil
}

// Authenticate validates email/password credentials.
func (d *PGDirectory) Authenticate(ctx context.Context, email, password string) (*Identity, error) {
	var ident Identity
	var hash string
	err := d.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, full_name, created_at FROM identities WHERE email = $1`, email,
	).Scan(&ident.ID, &ident.Email, &hash, &ident.Metadata.FullName, &ident.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("identity: authenticate: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return &ident, nil
}

// UpdatePassword replaces the stored credential.
func (d *PGDirectory) UpdatePassword(ctx context.Context, id uuid.UUID, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), d.bcryptCost)
	if err != nil {
		return fmt.Errorf("identity: hash password: %w", err)
	}
	tag, err := d.pool.Exec(ctx, `UPDATE identities SET password_hash = $2 WHERE id = $1`, id, string(hash))
	if err != nil {
		return fmt.Errorf("identity: update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes an identity record.
func (d *PGDirectory) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := d.pool.Exec(ctx, `DELETE FROM identities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("identity: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ Directory = (*PGDirectory)(nil)
