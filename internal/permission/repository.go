package permission

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulseboard/pulseboard/internal/platform/db"
)

// Store defines persistence operations over roles and grants.
type Store interface {
	GetRole(ctx context.Context, identityID uuid.UUID) (Role, error)
	HasRole(ctx context.Context, identityID uuid.UUID, role Role) (bool, error)
	CountAdmins(ctx context.Context) (int, error)
	UpsertRole(ctx context.Context, identityID uuid.UUID, role Role) error
	ListPageGrants(ctx context.Context, identityID uuid.UUID) ([]PageGrant, error)
	ListChartGrants(ctx context.Context, identityID uuid.UUID) ([]ChartGrant, error)
	ReplacePageGrants(ctx context.Context, identityID uuid.UUID, grants []PageGrant) error
	ReplaceChartGrants(ctx context.Context, identityID uuid.UUID, grants []ChartGrant) error
	DeleteAllForIdentity(ctx context.Context, identityID uuid.UUID) error
}

// Repository provides PostgreSQL backed persistence for roles and grants.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetRole returns the identity's role. No row means RoleUser.
func (r *Repository) GetRole(ctx context.Context, identityID uuid.UUID) (Role, error) {
	var value string
	err := r.pool.QueryRow(ctx, `SELECT role FROM user_roles WHERE user_id = $1`, identityID).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RoleUser, nil
		}
		return RoleUser, fmt.Errorf("permission: get role: %w", err)
	}
	return ParseRole(value), nil
}

// HasRole is the server-side role predicate gating privileged operations.
func (r *Repository) HasRole(ctx context.Context, identityID uuid.UUID, role Role) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_roles WHERE user_id = $1 AND role = $2)`,
		identityID, string(role),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("permission: has role: %w", err)
	}
	return exists, nil
}

// CountAdmins counts admin role rows. This is the only invariant-correct
// input for the bootstrap gate; profile or identity counts are not proxies
// for it.
func (r *Repository) CountAdmins(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM user_roles WHERE role = $1`, string(RoleAdmin),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("permission: count admins: %w", err)
	}
	return count, nil
}

// UpsertRole inserts or updates the single role row for an identity.
func (r *Repository) UpsertRole(ctx context.Context, identityID uuid.UUID, role Role) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role, updated_at = now()`,
		identityID, string(role),
	)
	if err != nil {
		return fmt.Errorf("permission: upsert role: %w", err)
	}
	return nil
}

// ListPageGrants returns all page grant rows for an identity.
func (r *Repository) ListPageGrants(ctx context.Context, identityID uuid.UUID) ([]PageGrant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT page, can_access FROM user_page_permissions WHERE user_id = $1`, identityID,
	)
	if err != nil {
		return nil, fmt.Errorf("permission: list page grants: %w", err)
	}
	defer rows.Close()

	var grants []PageGrant
	for rows.Next() {
		g := PageGrant{IdentityID: identityID}
		var page string
		if err := rows.Scan(&page, &g.Allowed); err != nil {
			return nil, fmt.Errorf("permission: scan page grant: %w", err)
		}
		g.Page = Page(page)
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("permission: list page grants: %w", err)
	}
	return grants, nil
}

// ListChartGrants returns all chart grant rows for an identity.
func (r *Repository) ListChartGrants(ctx context.Context, identityID uuid.UUID) ([]ChartGrant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT chart_type, page, can_view FROM user_chart_permissions WHERE user_id = $1`, identityID,
	)
	if err != nil {
		return nil, fmt.Errorf("permission: list chart grants: %w", err)
	}
	defer rows.Close()

	var grants []ChartGrant
	for rows.Next() {
		g := ChartGrant{IdentityID: identityID}
		var chart, page string
		if err := rows.Scan(&chart, &page, &g.CanView); err != nil {
			return nil, fmt.Errorf("permission: scan chart grant: %w", err)
		}
		g.Chart = ChartType(chart)
		g.Page = Page(page)
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("permission: list chart grants: %w", err)
	}
	return grants, nil
}

// ReplacePageGrants swaps the full page grant set for an identity inside one
// transaction. Delete-all-then-insert, never a partial patch.
func (r *Repository) ReplacePageGrants(ctx context.Context, identityID uuid.UUID, grants []PageGrant) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_page_permissions WHERE user_id = $1`, identityID); err != nil {
			return fmt.Errorf("permission: clear page grants: %w", err)
		}
		for _, g := range grants {
			if _, err := tx.Exec(ctx,
				`INSERT INTO user_page_permissions (user_id, page, can_access) VALUES ($1, $2, $3)`,
				identityID, string(g.Page), g.Allowed,
			); err != nil {
				return fmt.Errorf("permission: insert page grant: %w", err)
			}
		}
		return nil
	})
}

// ReplaceChartGrants swaps the full chart grant set for an identity inside
// one transaction.
func (r *Repository) ReplaceChartGrants(ctx context.Context, identityID uuid.UUID, grants []ChartGrant) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_chart_permissions WHERE user_id = $1`, identityID); err != nil {
			return fmt.Errorf("permission: clear chart grants: %w", err)
		}
		for _, g := range grants {
			if _, err := tx.Exec(ctx,
				`INSERT INTO user_chart_permissions (user_id, chart_type, page, can_view) VALUES ($1, $2, $3, $4)`,
				identityID, string(g.Chart), string(g.Page), g.CanView,
			); err != nil {
				return fmt.Errorf("permission: insert chart grant: %w", err)
			}
		}
		return nil
	})
}

// DeleteAllForIdentity removes the role row and every grant row for an
// identity. Used by the account deletion cascade.
func (r *Repository) DeleteAllForIdentity(ctx context.Context, identityID uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM user_chart_permissions WHERE user_id = $1`,
			`DELETE FROM user_page_permissions WHERE user_id = $1`,
			`DELETE FROM user_roles WHERE user_id = $1`,
		} {
			if _, err := tx.Exec(ctx, stmt, identityID); err != nil {
				return fmt.Errorf("permission: delete for identity: %w", err)
			}
		}
		return nil
	})
}

var _ Store = (*Repository)(nil)
