package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pulseboard/pulseboard/internal/identity"
	"github.com/pulseboard/pulseboard/internal/permission"
	"github.com/pulseboard/pulseboard/internal/shared"
)

// GrantCacheInvalidator drops cached grant snapshots after provisioning
// writes.
type GrantCacheInvalidator interface {
	Invalidate(ctx context.Context, identityID uuid.UUID)
}

// Service creates complete, consistent accounts: identity, profile, role and
// grants, in that order. It never rolls back a created identity; partial
// states are reconciled later by orphan recovery.
type Service struct {
	directory  identity.Directory
	profiles   ProfileStore
	grants     permission.Store
	cache      GrantCacheInvalidator
	logger     *slog.Logger
	validator  *validator.Validate
	adminCheck singleflight.Group
	titleCaser cases.Caser
}

// NewService constructs a Service.
func NewService(directory identity.Directory, profiles ProfileStore, grants permission.Store, cache GrantCacheInvalidator, logger *slog.Logger) *Service {
	return &Service{
		directory:  directory,
		profiles:   profiles,
		grants:     grants,
		cache:      cache,
		logger:     logger,
		validator:  validator.New(),
		titleCaser: cases.Title(language.Und),
	}
}

// Provision creates one account. The step order is fixed because every step
// after the first references the identity id it produced. A failure after
// identity creation is reported as a PartialProvisioningError carrying the
// identity id; the result still holds the created identity.
func (s *Service) Provision(ctx context.Context, in Input) (*Result, error) {
	if err := s.validateInput(&in); err != nil {
		return nil, err
	}

	ident, err := s.directory.Create(ctx, in.Email, in.Password, identity.Metadata{FullName: in.FullName})
	if err != nil {
		if errors.Is(err, shared.ErrDuplicateIdentity) {
			return nil, shared.ErrDuplicateIdentity
		}
		return nil, fmt.Errorf("provision: create identity: %w", err)
	}

	if err := s.completeSetup(ctx, ident, in); err != nil {
		return &Result{Identity: ident, Warning: err.Error()}, err
	}

	s.cache.Invalidate(ctx, ident.ID)
	return &Result{Identity: ident}, nil
}

// completeSetup runs the post-identity steps. Each step is attempted at most
// once; there are no automatic retries.
func (s *Service) completeSetup(ctx context.Context, ident *identity.Identity, in Input) error {
	profile := Profile{
		ID:       ident.ID,
		Email:    in.Email,
		FullName: in.FullName,
		Username: in.Username,
	}
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return s.partialFailure(ident.ID, StepProfile, err)
	}

	if err := s.grants.UpsertRole(ctx, ident.ID, in.Role); err != nil {
		return s.partialFailure(ident.ID, StepRole, err)
	}

	if err := s.grants.ReplacePageGrants(ctx, ident.ID, pageGrantRows(ident.ID, in.PagePermissions)); err != nil {
		return s.partialFailure(ident.ID, StepPageGrants, err)
	}

	if err := s.grants.ReplaceChartGrants(ctx, ident.ID, chartGrantRows(ident.ID, in.ChartPermissions)); err != nil {
		return s.partialFailure(ident.ID, StepChartGrants, err)
	}

	return nil
}

func (s *Service) partialFailure(identityID uuid.UUID, step string, err error) error {
	s.logger.Error("provisioning step failed",
		slog.String("identity_id", identityID.String()),
		slog.String("step", step),
		slog.Any("error", err),
	)
	return &shared.PartialProvisioningError{IdentityID: identityID, Step: step, Err: err}
}

// FirstAdmin provisions the bootstrap administrator. It refuses to create a
// second admin, and prefers recovering stranded identities over creating a
// duplicate: an orphan found here is assumed to be a failed earlier attempt
// at this very operation.
//
// The admin-exists check and the creation below are not one atomic unit;
// two racing first-admin requests can both pass the check. Accepted.
func (s *Service) FirstAdmin(ctx context.Context, in FirstAdminInput) (*Result, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	admins, err := s.grants.CountAdmins(ctx)
	if err != nil {
		return nil, fmt.Errorf("provision: count admins: %w", err)
	}
	if admins > 0 {
		return nil, shared.ErrAdminAlreadyExists
	}

	orphans, err := s.findOrphans(ctx)
	if err != nil {
		return nil, err
	}
	if len(orphans) > 0 {
		recovered := s.recoverOrphans(ctx, orphans, permission.RoleAdmin)
		return &Result{Recovered: true, RecoveredCount: recovered}, nil
	}

	pages := make(map[permission.Page]bool, len(permission.AllPages))
	for _, page := range permission.AllPages {
		pages[page] = true
	}
	charts := make([]ChartPermissionInput, 0, len(permission.ChartCatalog))
	for chart := range permission.ChartCatalog {
		charts = append(charts, ChartPermissionInput{Chart: chart, CanView: true})
	}
	return s.Provision(ctx, Input{
		Email:            in.Email,
		Password:         in.Password,
		FullName:         in.FullName,
		Role:             permission.RoleAdmin,
		PagePermissions:  pages,
		ChartPermissions: charts,
	})
}

// findOrphans diffs the directory against the profile table, preserving the
// directory's enumeration order.
func (s *Service) findOrphans(ctx context.Context) ([]identity.Identity, error) {
	identities, err := s.directory.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("provision: list identities: %w", err)
	}
	profileIDs, err := s.profiles.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("provision: list profiles: %w", err)
	}
	var orphans []identity.Identity
	for _, ident := range identities {
		if _, ok := profileIDs[ident.ID]; !ok {
			orphans = append(orphans, ident)
		}
	}
	return orphans, nil
}

// recoverOrphans repairs identities that lack a profile row, sequentially so
// one identity's failure cannot disturb another's writes. It fills in the
// missing profile, role and page grants, never touching the identity record
// itself, and returns the count of fully repaired identities. Re-running is
// a no-op: a repaired identity no longer matches the orphan predicate.
func (s *Service) recoverOrphans(ctx context.Context, orphans []identity.Identity, role permission.Role) int {
	recovered := 0
	for _, orphan := range orphans {
		if err := s.repairOrphan(ctx, orphan, role); err != nil {
			s.logger.Error("orphan repair failed",
				slog.String("identity_id", orphan.ID.String()),
				slog.Any("error", err),
			)
			continue
		}
		s.cache.Invalidate(ctx, orphan.ID)
		s.logger.Info("orphan identity recovered",
			slog.String("identity_id", orphan.ID.String()),
			slog.String("role", string(role)),
		)
		recovered++
	}
	return recovered
}

func (s *Service) repairOrphan(ctx context.Context, orphan identity.Identity, role permission.Role) error {
	fullName := orphan.Metadata.FullName
	if fullName == "" {
		fullName = s.fullNameFromEmail(orphan.Email)
	}
	if err := s.profiles.Upsert(ctx, Profile{ID: orphan.ID, Email: orphan.Email, FullName: fullName}); err != nil {
		return err
	}
	if err := s.grants.UpsertRole(ctx, orphan.ID, role); err != nil {
		return err
	}
	grants := make([]permission.PageGrant, 0, len(permission.AllPages))
	for _, page := range permission.AllPages {
		grants = append(grants, permission.PageGrant{IdentityID: orphan.ID, Page: page, Allowed: true})
	}
	return s.grants.ReplacePageGrants(ctx, orphan.ID, grants)
}

// CountOrphans reports how many identities currently lack a profile row
// without repairing anything.
func (s *Service) CountOrphans(ctx context.Context) (int, error) {
	orphans, err := s.findOrphans(ctx)
	if err != nil {
		return 0, err
	}
	return len(orphans), nil
}

// SweepOrphans is the recovery entry point for the background sweep, outside
// the bootstrap context. Repaired identities receive the lowest privilege
// tier, not admin: a stranded identity found during routine reconciliation
// carries no evidence of admin intent.
func (s *Service) SweepOrphans(ctx context.Context) (int, error) {
	orphans, err := s.findOrphans(ctx)
	if err != nil {
		return 0, err
	}
	if len(orphans) == 0 {
		return 0, nil
	}
	return s.recoverOrphans(ctx, orphans, permission.RoleUser), nil
}

// AdminExists is the bootstrap gate: true once at least one admin role row
// exists. The result is never cached; singleflight only coalesces checks
// that are in flight at the same moment.
func (s *Service) AdminExists(ctx context.Context) (bool, error) {
	v, err, _ := s.adminCheck.Do("admin-exists", func() (any, error) {
		count, err := s.grants.CountAdmins(ctx)
		if err != nil {
			return false, err
		}
		return count > 0, nil
	})
	if err != nil {
		return false, fmt.Errorf("provision: admin exists: %w", err)
	}
	return v.(bool), nil
}

// ResetPassword sets a new credential for an account. Admin gating happens
// at the transport layer via the stored role predicate.
func (s *Service) ResetPassword(ctx context.Context, identityID uuid.UUID, newPassword string) error {
	if len(newPassword) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", shared.ErrValidation)
	}
	return s.directory.UpdatePassword(ctx, identityID, newPassword)
}

// ListAccounts returns every provisioned account for the admin screen.
func (s *Service) ListAccounts(ctx context.Context) ([]Account, error) {
	return s.profiles.ListAccounts(ctx)
}

// Delete removes an account and everything downstream of it: grants, role,
// profile, then the identity itself. Bearer tokens are keyed by token value,
// not identity, and are left to lapse at TTL; once the role and grant rows
// are gone a surviving token authorizes nothing.
func (s *Service) Delete(ctx context.Context, identityID uuid.UUID) error {
	if err := s.grants.DeleteAllForIdentity(ctx, identityID); err != nil {
		return err
	}
	if err := s.profiles.Delete(ctx, identityID); err != nil {
		return err
	}
	if err := s.directory.Delete(ctx, identityID); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, identityID)
	return nil
}

func (s *Service) validateInput(in *Input) error {
	if err := s.validator.Struct(*in); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	if in.Role == "" {
		in.Role = permission.RoleUser
	}
	if !in.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", shared.ErrValidation, in.Role)
	}
	for page := range in.PagePermissions {
		if !permission.ValidPage(page) {
			return fmt.Errorf("%w: unknown page %q", shared.ErrValidation, page)
		}
	}
	for _, chart := range in.ChartPermissions {
		if _, ok := permission.ChartCatalog[chart.Chart]; !ok {
			return fmt.Errorf("%w: unknown chart %q", shared.ErrValidation, chart.Chart)
		}
	}
	return nil
}

// fullNameFromEmail derives a display name from the email local part when
// signup metadata carries none.
func (s *Service) fullNameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return email
	}
	local = strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(local)
	return s.titleCaser.String(local)
}

// pageGrantRows turns the input map into grant rows. Only pages mapped to
// true are stored; a missing page is denied, not unspecified.
func pageGrantRows(identityID uuid.UUID, pages map[permission.Page]bool) []permission.PageGrant {
	rows := make([]permission.PageGrant, 0, len(pages))
	for page, allowed := range pages {
		if !allowed {
			continue
		}
		rows = append(rows, permission.PageGrant{IdentityID: identityID, Page: page, Allowed: true})
	}
	return rows
}

// chartGrantRows turns chart inputs into grant rows, resolving each chart's
// owning page from the static catalog.
func chartGrantRows(identityID uuid.UUID, charts []ChartPermissionInput) []permission.ChartGrant {
	rows := make([]permission.ChartGrant, 0, len(charts))
	for _, in := range charts {
		if !in.CanView {
			continue
		}
		rows = append(rows, permission.ChartGrant{
			IdentityID: identityID,
			Chart:      in.Chart,
			Page:       permission.ChartCatalog[in.Chart],
			CanView:    true,
		})
	}
	return rows
}
