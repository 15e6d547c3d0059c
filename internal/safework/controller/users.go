package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/gartstein/safework/internal/safework/auth"
	"github.com/gartstein/safework/internal/safework/db"
	e "github.com/gartstein/safework/internal/safework/errors"
	"github.com/gartstein/safework/internal/safework/events"
	"github.com/gartstein/safework/internal/safework/models"
	"github.com/google/uuid"
)

type profileGetter interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

// grantable checks that the caller may hand out profileID. Nobody may grant
// a role above their own.
func (s *Service) grantable(ctx context.Context, repo profileGetter, id *auth.Identity, profileID uuid.UUID) error {
	p, err := repo.GetProfile(ctx, profileID)
	if errors.Is(err, e.ErrNotFound) {
		return fmt.Errorf("%w: profile does not exist", e.ErrReferentialIntegrity)
	}
	if err != nil {
		return err
	}
	if !id.Role().AtLeast(models.RoleOf(p.Name)) {
		return s.deny(id, events.EntityUser, "cannot grant profile "+p.Name)
	}
	return nil
}

// CreateUser hashes the password of in and stores the new user. The
// returned projection never carries the hash.
func (s *Service) CreateUser(ctx context.Context, in models.NewUser) (*models.UserProjection, error) {
	id, err := s.requireRole(ctx, events.EntityUser, models.RoleAdministrator)
	if err != nil {
		return nil, err
	}

	v := e.NewValidationError()
	if in.Active == nil {
		v.Add("active", "this field is required")
	}
	if err := models.ValidatePassword(in.Password); err != nil {
		var ve *e.ValidationError
		if errors.As(err, &ve) {
			v.Merge(ve)
		}
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		ID:                uuid.New(),
		Name:              in.Name,
		Email:             in.Email,
		PasswordHash:      hash,
		ProfileID:         in.ProfileID,
		ServiceProviderID: in.ServiceProviderID,
		Active:            *in.Active,
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}

	var created *models.User
	err = s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if err := s.grantable(ctx, tx, id, u.ProfileID); err != nil {
			return err
		}
		if err := tx.CreateUser(ctx, u); err != nil {
			return err
		}
		created, err = tx.GetUser(ctx, u.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Created, events.EntityUser, u.ID)
	p := created.Projection()
	return &p, nil
}

// GetUser returns a user. Collaborators only see users of their own
// provider.
func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (*models.UserProjection, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !id.Role().AtLeast(models.RoleAdministrator) && u.ServiceProviderID != id.ProviderID {
		return nil, e.ErrNotFound
	}
	p := u.Projection()
	return &p, nil
}

// ListUsers lists users, scoped to the caller's provider for collaborators.
func (s *Service) ListUsers(ctx context.Context, f models.UserFilter) ([]models.UserProjection, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if !id.Role().AtLeast(models.RoleAdministrator) {
		f.ServiceProviderID = &id.ProviderID
	}

	users, err := s.repo.ListUsers(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]models.UserProjection, 0, len(users))
	for i := range users {
		out = append(out, users[i].Projection())
	}
	return out, nil
}

func (s *Service) UpdateUser(ctx context.Context, userID uuid.UUID, patch models.UserPatch) (*models.UserProjection, error) {
	id, err := s.requireRole(ctx, events.EntityUser, models.RoleAdministrator)
	if err != nil {
		return nil, err
	}

	var updated *models.User
	err = s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		u, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		// The target's current role must also be within reach.
		if err := s.grantable(ctx, tx, id, u.ProfileID); err != nil {
			return err
		}
		if patch.ProfileID != nil {
			if err := s.grantable(ctx, tx, id, *patch.ProfileID); err != nil {
				return err
			}
		}

		patch.Apply(u)
		if err := u.Validate(); err != nil {
			return err
		}
		if err := tx.UpdateUser(ctx, u); err != nil {
			return err
		}
		updated, err = tx.GetUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Updated, events.EntityUser, userID)
	p := updated.Projection()
	return &p, nil
}

// DeleteUser removes a user. Callers cannot remove themselves.
func (s *Service) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	id, err := s.requireRole(ctx, events.EntityUser, models.RoleAdministrator)
	if err != nil {
		return err
	}
	if id.UserID == userID {
		return e.Invalid("id", "cannot remove the calling user")
	}

	err = s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		u, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if err := s.grantable(ctx, tx, id, u.ProfileID); err != nil {
			return err
		}
		return tx.DeleteUser(ctx, userID)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.Deleted, events.EntityUser, userID)
	return nil
}
