package controller

import (
	"context"
	"fmt"
	"slices"

	"github.com/gartstein/safework/internal/safework/auth"
	e "github.com/gartstein/safework/internal/safework/errors"
	"github.com/gartstein/safework/internal/safework/metrics"
	"github.com/gartstein/safework/internal/safework/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// caller returns the authenticated identity of the request.
func caller(ctx context.Context) (*auth.Identity, error) {
	id, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return nil, e.ErrInvalidToken
	}
	return id, nil
}

// requireRole admits callers whose role is at least min.
func (s *Service) requireRole(ctx context.Context, entity string, min models.Role) (*auth.Identity, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if !id.Role().AtLeast(min) {
		return nil, s.deny(id, entity, "role "+min.String()+" required")
	}
	return id, nil
}

type contractChecker interface {
	HasActiveContract(ctx context.Context, clientID, providerID uuid.UUID) (bool, error)
}

// requireClientAccess admits administrators for any client company and
// collaborators only for clients under active contract with their provider.
// Inside a transaction repo must be the transaction's repository.
func (s *Service) requireClientAccess(ctx context.Context, repo contractChecker, entity string, clientID uuid.UUID) (*auth.Identity, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if id.Role().AtLeast(models.RoleAdministrator) {
		return id, nil
	}

	ok, err := repo.HasActiveContract(ctx, clientID, id.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("failed to check contract: %w", err)
	}
	if !ok {
		return nil, s.deny(id, entity, "client not under contract")
	}
	return id, nil
}

// readableClients narrows want to the client companies the caller may read.
// Administrators get want back unchanged, nil meaning every company. For
// collaborators the result is never nil: with no active contract it is empty
// and the listing comes back empty.
func (s *Service) readableClients(ctx context.Context, id *auth.Identity, want []uuid.UUID) ([]uuid.UUID, error) {
	if id.Role().AtLeast(models.RoleAdministrator) {
		return want, nil
	}
	contracted, err := s.repo.ContractedClientIDs(ctx, id.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracted clients: %w", err)
	}
	out := make([]uuid.UUID, 0, len(contracted))
	for _, clientID := range contracted {
		if want == nil || slices.Contains(want, clientID) {
			out = append(out, clientID)
		}
	}
	return out, nil
}

func (s *Service) deny(id *auth.Identity, entity, reason string) error {
	metrics.AccessDenied.WithLabelValues(entity).Inc()
	s.logger.Info("Access denied",
		zap.String("user_id", id.UserID.String()),
		zap.String("role", id.Role().String()),
		zap.String("entity", entity),
		zap.String("reason", reason),
	)
	return e.ErrAuthorizationDenied
}
