package controller

import (
	"context"

	e "github.com/gartstein/safework/internal/safework/errors"
	"github.com/gartstein/safework/internal/safework/events"
	"github.com/gartstein/safework/internal/safework/models"
	"github.com/google/uuid"
)

// CreateProfile adds a custom profile. Custom profiles rank as
// collaborators.
func (s *Service) CreateProfile(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	if _, err := s.requireRole(ctx, events.EntityProfile, models.RoleRoot); err != nil {
		return nil, err
	}
	p.ID = uuid.New()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.CreateProfile(ctx, p); err != nil {
		return nil, err
	}
	s.publish(ctx, events.Created, events.EntityProfile, p.ID)
	return p, nil
}

func (s *Service) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	return s.repo.GetProfile(ctx, id)
}

func (s *Service) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListProfiles(ctx)
}

// DeleteProfile removes a custom profile. Seeded profiles are immutable and
// profiles still held by users cannot be removed.
func (s *Service) DeleteProfile(ctx context.Context, id uuid.UUID) error {
	if _, err := s.requireRole(ctx, events.EntityProfile, models.RoleRoot); err != nil {
		return err
	}
	if models.IsSeedProfile(id) {
		return e.Invalid("id", "seeded profiles cannot be removed")
	}
	if err := s.repo.DeleteProfile(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, events.Deleted, events.EntityProfile, id)
	return nil
}
