package controller

import (
	"context"

	"github.com/gartstein/safework/internal/safework/db"
	"github.com/gartstein/safework/internal/safework/events"
	"github.com/gartstein/safework/internal/safework/models"
	"github.com/google/uuid"
)

// CreateContract links a client company to a service provider. Both must
// exist, otherwise the write fails with ErrReferentialIntegrity.
func (s *Service) CreateContract(ctx context.Context, c *models.Contract) (*models.Contract, error) {
	if _, err := s.requireRole(ctx, events.EntityContract, models.RoleAdministrator); err != nil {
		return nil, err
	}
	c.ID = uuid.New()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.CreateContract(ctx, c); err != nil {
		return nil, err
	}
	s.publish(ctx, events.Created, events.EntityContract, c.ID)
	return c, nil
}

func (s *Service) GetContract(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	return s.repo.GetContract(ctx, id)
}

func (s *Service) ListContracts(ctx context.Context, f models.ContractFilter) ([]models.Contract, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListContracts(ctx, f)
}

func (s *Service) UpdateContract(ctx context.Context, id uuid.UUID, patch models.ContractPatch) (*models.Contract, error) {
	if _, err := s.requireRole(ctx, events.EntityContract, models.RoleAdministrator); err != nil {
		return nil, err
	}

	var updated *models.Contract
	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		c, err := tx.GetContract(ctx, id)
		if err != nil {
			return err
		}
		patch.Apply(c)
		if err := c.Validate(); err != nil {
			return err
		}
		if err := tx.UpdateContract(ctx, c); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Updated, events.EntityContract, id)
	return updated, nil
}

func (s *Service) DeleteContract(ctx context.Context, id uuid.UUID) error {
	if _, err := s.requireRole(ctx, events.EntityContract, models.RoleAdministrator); err != nil {
		return err
	}
	if err := s.repo.DeleteContract(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, events.Deleted, events.EntityContract, id)
	return nil
}
