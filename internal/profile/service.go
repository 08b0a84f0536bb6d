package profile

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pulseboard/pulseboard/internal/identity"
	"github.com/pulseboard/pulseboard/internal/shared"
)

// Service handles own-account maintenance.
type Service struct {
	repo      RepositoryPort
	directory identity.Directory
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, directory identity.Directory) *Service {
	return &Service{repo: repo, directory: directory}
}

// Get returns the caller's profile.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*View, error) {
	return s.repo.Get(ctx, id)
}

// Update writes the caller's editable attributes.
func (s *Service) Update(ctx context.Context, id uuid.UUID, update Update) error {
	return s.repo.Update(ctx, id, update)
}

// ChangePassword verifies the current credential before writing the new one.
func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	if len(next) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", shared.ErrValidation)
	}
	ident, err := s.directory.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.directory.Authenticate(ctx, ident.Email, current); err != nil {
		return shared.ErrInvalidCredentials
	}
	return s.directory.UpdatePassword(ctx, id, next)
}
