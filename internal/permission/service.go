package permission

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Service resolves grant sets for identities. Store failures surface as a
// deny-all grant set alongside the error; callers must never interpret a
// failed load as access.
type Service struct {
	store  Store
	cache  *Cache
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(store Store, cache *Cache, logger *slog.Logger) *Service {
	return &Service{store: store, cache: cache, logger: logger}
}

// Load fetches the grant set for an identity. Admins skip the grant lookup
// entirely: their set is synthesized with every page and catalogued chart
// allowed. Non-admin sets come from the cache when fresh, otherwise from the
// store, and are cached on the way out.
func (s *Service) Load(ctx context.Context, identityID uuid.UUID) (GrantSet, error) {
	role, err := s.store.GetRole(ctx, identityID)
	if err != nil {
		s.logger.Error("resolve role failed", slog.String("identity_id", identityID.String()), slog.Any("error", err))
		return EmptyGrantSet(RoleUser), err
	}

	if role == RoleAdmin {
		return s.adminGrantSet(identityID), nil
	}

	if set, ok := s.cache.Get(ctx, identityID, role); ok {
		return set, nil
	}

	pages, err := s.store.ListPageGrants(ctx, identityID)
	if err != nil {
		s.logger.Error("load page grants failed", slog.String("identity_id", identityID.String()), slog.Any("error", err))
		return EmptyGrantSet(role), err
	}
	charts, err := s.store.ListChartGrants(ctx, identityID)
	if err != nil {
		s.logger.Error("load chart grants failed", slog.String("identity_id", identityID.String()), slog.Any("error", err))
		return EmptyGrantSet(role), err
	}

	set := NewGrantSet(role, pages, charts)
	if err := s.cache.Put(ctx, identityID, set); err != nil {
		s.logger.Warn("cache grant set failed", slog.String("identity_id", identityID.String()), slog.Any("error", err))
	}
	return set, nil
}

// Invalidate drops cached grants for an identity after a provisioning write.
func (s *Service) Invalidate(ctx context.Context, identityID uuid.UUID) {
	if err := s.cache.Invalidate(ctx, identityID); err != nil {
		s.logger.Warn("invalidate grant cache failed", slog.String("identity_id", identityID.String()), slog.Any("error", err))
	}
}

// HasRole exposes the server-side role predicate.
func (s *Service) HasRole(ctx context.Context, identityID uuid.UUID, role Role) (bool, error) {
	return s.store.HasRole(ctx, identityID, role)
}

func (s *Service) adminGrantSet(identityID uuid.UUID) GrantSet {
	pages := make([]PageGrant, 0, len(AllPages))
	for _, page := range AllPages {
		pages = append(pages, PageGrant{IdentityID: identityID, Page: page, Allowed: true})
	}
	charts := make([]ChartGrant, 0, len(ChartCatalog))
	for chart, page := range ChartCatalog {
		charts = append(charts, ChartGrant{IdentityID: identityID, Chart: chart, Page: page, CanView: true})
	}
	return NewGrantSet(RoleAdmin, pages, charts)
}
