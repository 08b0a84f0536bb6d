package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulseboard/pulseboard/internal/shared"
)

// RepositoryPort defines data access for own-profile maintenance.
type RepositoryPort interface {
	Get(ctx context.Context, id uuid.UUID) (*View, error)
	Update(ctx context.Context, id uuid.UUID, update Update) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get fetches the caller's profile.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*View, error) {
	var v View
	var username, avatar *string
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, full_name, username, avatar_url, created_at, updated_at
		 FROM profiles WHERE id = $1`, id,
	).Scan(&v.ID, &v.Email, &v.FullName, &username, &avatar, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("profile: get: %w", err)
	}
	if username != nil {
		v.Username = *username
	}
	if avatar != nil {
		v.AvatarURL = *avatar
	}
	return &v, nil
}

// Update writes the editable attributes.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, update Update) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE profiles
		 SET full_name = $2, username = NULLIF($3, ''), avatar_url = NULLIF($4, ''), updated_at = now()
		 WHERE id = $1`,
		id, update.FullName, update.Username, update.AvatarURL,
	)
	if err != nil {
		return fmt.Errorf("profile: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)
