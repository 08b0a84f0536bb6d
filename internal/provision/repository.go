package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulseboard/pulseboard/internal/permission"
	"github.com/pulseboard/pulseboard/internal/shared"
)

// ProfileStore defines persistence operations over profiles.
type ProfileStore interface {
	Upsert(ctx context.Context, profile Profile) error
	Get(ctx context.Context, id uuid.UUID) (*Profile, error)
	ListIDs(ctx context.Context) (map[uuid.UUID]struct{}, error)
	ListAccounts(ctx context.Context) ([]Account, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Repository provides PostgreSQL backed persistence for profiles.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert inserts or updates the profile row keyed by identity id.
func (r *Repository) Upsert(ctx context.Context, profile Profile) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO profiles (id, email, full_name, username, avatar_url)
		 VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''))
		 ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			full_name = EXCLUDED.full_name,
			username = EXCLUDED.username,
			avatar_url = EXCLUDED.avatar_url,
			updated_at = now()`,
		profile.ID, profile.Email, profile.FullName, profile.Username, profile.AvatarURL,
	)
	if err != nil {
		return fmt.Errorf("provision: upsert profile: %w", err)
	}
	return nil
}

// Get fetches one profile.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Profile, error) {
	var p Profile
	var username, avatar *string
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, full_name, username, avatar_url, created_at, updated_at
		 FROM profiles WHERE id = $1`, id,
	).Scan(&p.ID, &p.Email, &p.FullName, &username, &avatar, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("provision: get profile: %w", err)
	}
	if username != nil {
		p.Username = *username
	}
	if avatar != nil {
		p.AvatarURL = *avatar
	}
	return &p, nil
}

// ListIDs returns the set of identity ids that have a profile row. Orphan
// detection diffs the directory against this set.
func (r *Repository) ListIDs(ctx context.Context) (map[uuid.UUID]struct{}, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM profiles`)
	if err != nil {
		return nil, fmt.Errorf("provision: list profile ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[uuid.UUID]struct{})
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("provision: scan profile id: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("provision: list profile ids: %w", err)
	}
	return ids, nil
}

// ListAccounts returns all profiles joined with role and page grants.
func (r *Repository) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.id, p.email, p.full_name, p.username, p.avatar_url, p.created_at, p.updated_at,
		        COALESCE(ur.role, 'user')
		 FROM profiles p
		 LEFT JOIN user_roles ur ON ur.user_id = p.id
		 ORDER BY p.created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("provision: list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var a Account
		var username, avatar *string
		var role string
		if err := rows.Scan(
			&a.Profile.ID, &a.Profile.Email, &a.Profile.FullName, &username, &avatar,
			&a.Profile.CreatedAt, &a.Profile.UpdatedAt, &role,
		); err != nil {
			return nil, fmt.Errorf("provision: scan account: %w", err)
		}
		if username != nil {
			a.Profile.Username = *username
		}
		if avatar != nil {
			a.Profile.AvatarURL = *avatar
		}
		a.Role = permission.ParseRole(role)
		a.PageGrants = []permission.PageGrant{}
		index[a.Profile.ID] = len(accounts)
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("provision: list accounts: %w", err)
	}

	grantRows, err := r.pool.Query(ctx, `SELECT user_id, page, can_access FROM user_page_permissions`)
	if err != nil {
		return nil, fmt.Errorf("provision: list account grants: %w", err)
	}
	defer grantRows.Close()
	for grantRows.Next() {
		var g permission.PageGrant
		var page string
		if err := grantRows.Scan(&g.IdentityID, &page, &g.Allowed); err != nil {
			return nil, fmt.Errorf("provision: scan account grant: %w", err)
		}
		g.Page = permission.Page(page)
		if i, ok := index[g.IdentityID]; ok {
			accounts[i].PageGrants = append(accounts[i].PageGrants, g)
		}
	}
	if err := grantRows.Err(); err != nil {
		return nil, fmt.Errorf("provision: list account grants: %w", err)
	}
	return accounts, nil
}

// Delete removes a profile row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("provision: delete profile: %w", err)
	}
	return nil
}

var _ ProfileStore = (*Repository)(nil)
