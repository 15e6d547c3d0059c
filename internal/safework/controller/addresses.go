package controller

import (
	"context"

	"github.com/gartstein/safework/internal/safework/db"
	"github.com/gartstein/safework/internal/safework/events"
	"github.com/gartstein/safework/internal/safework/models"
	"github.com/google/uuid"
)

func (s *Service) CreateAddress(ctx context.Context, a *models.Address) (*models.Address, error) {
	if _, err := s.requireRole(ctx, events.EntityAddress, models.RoleAdministrator); err != nil {
		return nil, err
	}
	a.ID = uuid.New()
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.CreateAddress(ctx, a); err != nil {
		return nil, err
	}
	s.publish(ctx, events.Created, events.EntityAddress, a.ID)
	return a, nil
}

func (s *Service) GetAddress(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	return s.repo.GetAddress(ctx, id)
}

func (s *Service) ListAddresses(ctx context.Context) ([]models.Address, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListAddresses(ctx)
}

func (s *Service) UpdateAddress(ctx context.Context, id uuid.UUID, patch models.AddressPatch) (*models.Address, error) {
	if _, err := s.requireRole(ctx, events.EntityAddress, models.RoleAdministrator); err != nil {
		return nil, err
	}

	var updated *models.Address
	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		a, err := tx.GetAddress(ctx, id)
		if err != nil {
			return err
		}
		patch.Apply(a)
		if err := a.Validate(); err != nil {
			return err
		}
		if err := tx.UpdateAddress(ctx, a); err != nil {
			return err
		}
		updated = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Updated, events.EntityAddress, id)
	return updated, nil
}

// DeleteAddress removes an address. It fails with ErrReferentialIntegrity
// while any registrant still points at it.
func (s *Service) DeleteAddress(ctx context.Context, id uuid.UUID) error {
	if _, err := s.requireRole(ctx, events.EntityAddress, models.RoleAdministrator); err != nil {
		return err
	}
	if err := s.repo.DeleteAddress(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, events.Deleted, events.EntityAddress, id)
	return nil
}
