package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/gartstein/safework/internal/safework/db"
	e "github.com/gartstein/safework/internal/safework/errors"
	"github.com/gartstein/safework/internal/safework/events"
	"github.com/gartstein/safework/internal/safework/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// prepare assigns a fresh id to a new registrant and validates it.
func prepare(r models.Registrar) error {
	r.Base().ID = uuid.New()
	return r.Validate()
}

// storeFailed wraps a failed registrant write, logging conflicts with the
// record's identity key.
func (s *Service) storeFailed(r models.Registrar, op string, err error) error {
	if errors.Is(err, e.ErrReferentialIntegrity) {
		s.logger.Info("Registrant write conflicts with existing data",
			zap.String("key", r.IdentityKey()),
			zap.String("op", op),
		)
		return err
	}
	if errors.Is(err, e.ErrValidation) || errors.Is(err, e.ErrNotFound) {
		return err
	}
	return fmt.Errorf("failed to %s %s: %w", op, r.IdentityKey(), err)
}

// CreateProvider registers a service provider company.
func (s *Service) CreateProvider(ctx context.Context, p *models.ServiceProvider) (*models.ServiceProvider, error) {
	if _, err := s.requireRole(ctx, events.EntityProvider, models.RoleAdministrator); err != nil {
		return nil, err
	}
	if err := prepare(p); err != nil {
		return nil, err
	}
	if err := s.repo.CreateProvider(ctx, p); err != nil {
		return nil, s.storeFailed(p, "create", err)
	}
	s.publish(ctx, events.Created, events.EntityProvider, p.ID)
	return p, nil
}

func (s *Service) GetProvider(ctx context.Context, id uuid.UUID) (*models.ServiceProvider, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	return s.repo.GetProvider(ctx, id)
}

func (s *Service) ListProviders(ctx context.Context, f models.RegistrantFilter) ([]models.ServiceProvider, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListProviders(ctx, f)
}

// UpdateProvider applies a partial update and returns the stored record.
func (s *Service) UpdateProvider(ctx context.Context, id uuid.UUID, patch models.RegistrantPatch) (*models.ServiceProvider, error) {
	p, err := s.updateProvider(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.Updated, events.EntityProvider, id)
	return p, nil
}

func (s *Service) updateProvider(ctx context.Context, id uuid.UUID, patch models.RegistrantPatch) (*models.ServiceProvider, error) {
	if _, err := s.requireRole(ctx, events.EntityProvider, models.RoleAdministrator); err != nil {
		return nil, err
	}

	var updated *models.ServiceProvider
	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		p, err := tx.GetProvider(ctx, id)
		if err != nil {
			return err
		}
		patch.Apply(&p.Registrant)
		if err := p.Validate(); err != nil {
			return err
		}
		if err := tx.UpdateProvider(ctx, p); err != nil {
			return s.storeFailed(p, "update", err)
		}
		updated = p
		return nil
	})
	return updated, err
}

// DeactivateProvider marks a provider inactive. Its users and contracts
// are kept.
func (s *Service) DeactivateProvider(ctx context.Context, id uuid.UUID) error {
	if _, err := s.updateProvider(ctx, id, models.RegistrantPatch{Active: new(bool)}); err != nil {
		return err
	}
	s.publish(ctx, events.Deactivated, events.EntityProvider, id)
	return nil
}

// CreateClient registers a client company.
func (s *Service) CreateClient(ctx context.Context, c *models.ClientCompany) (*models.ClientCompany, error) {
	if _, err := s.requireRole(ctx, events.EntityClient, models.RoleAdministrator); err != nil {
		return nil, err
	}
	if err := prepare(c); err != nil {
		return nil, err
	}
	if err := s.repo.CreateClient(ctx, c); err != nil {
		return nil, s.storeFailed(c, "create", err)
	}
	s.publish(ctx, events.Created, events.EntityClient, c.ID)
	return c, nil
}

func (s *Service) GetClient(ctx context.Context, id uuid.UUID) (*models.ClientCompany, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	return s.repo.GetClient(ctx, id)
}

func (s *Service) ListClients(ctx context.Context, f models.RegistrantFilter) ([]models.ClientCompany, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListClients(ctx, f)
}

// ContractedClients lists the client companies holding an active contract
// with the caller's own provider.
func (s *Service) ContractedClients(ctx context.Context, active *bool) ([]models.ClientCompany, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	ids, err := s.repo.ContractedClientIDs(ctx, id.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracted clients: %w", err)
	}
	return s.repo.ListClients(ctx, models.RegistrantFilter{Active: active, IDs: ids})
}

func (s *Service) UpdateClient(ctx context.Context, id uuid.UUID, patch models.RegistrantPatch) (*models.ClientCompany, error) {
	if _, err := s.requireRole(ctx, events.EntityClient, models.RoleAdministrator); err != nil {
		return nil, err
	}

	var updated *models.ClientCompany
	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		c, err := tx.GetClient(ctx, id)
		if err != nil {
			return err
		}
		patch.Apply(&c.Registrant)
		if err := c.Validate(); err != nil {
			return err
		}
		if err := tx.UpdateClient(ctx, c); err != nil {
			return s.storeFailed(c, "update", err)
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Updated, events.EntityClient, id)
	return updated, nil
}

// DeactivateClient marks a client company inactive. With
// DeactivateEmployees its active employees are deactivated in the same
// transaction; with RetainEmployees they are untouched. Nothing is deleted.
// It returns the number of employees deactivated.
func (s *Service) DeactivateClient(ctx context.Context, id uuid.UUID, policy models.DeactivationPolicy) (int64, error) {
	if _, err := s.requireRole(ctx, events.EntityClient, models.RoleAdministrator); err != nil {
		return 0, err
	}
	if policy == "" {
		policy = models.RetainEmployees
	}
	if !policy.Valid() {
		return 0, e.Invalid("policy", "value must be one of: RETAIN_EMPLOYEES DEACTIVATE_EMPLOYEES")
	}

	var affected int64
	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		c, err := tx.GetClient(ctx, id)
		if err != nil {
			return err
		}
		c.Active = false
		if err := tx.UpdateClient(ctx, c); err != nil {
			return s.storeFailed(c, "deactivate", err)
		}
		if policy == models.DeactivateEmployees {
			affected, err = tx.DeactivateEmployees(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to deactivate employees: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("Client company deactivated",
		zap.String("client_id", id.String()),
		zap.String("policy", string(policy)),
		zap.Int64("employees_deactivated", affected),
	)
	s.publish(ctx, events.Deactivated, events.EntityClient, id)
	return affected, nil
}

// CreateEmployee registers an employee of a client company.
func (s *Service) CreateEmployee(ctx context.Context, emp *models.Employee) (*models.Employee, error) {
	if err := prepare(emp); err != nil {
		return nil, err
	}
	if _, err := s.requireClientAccess(ctx, s.repo, events.EntityEmployee, emp.ClientCompanyID); err != nil {
		return nil, err
	}
	if err := s.repo.CreateEmployee(ctx, emp); err != nil {
		return nil, s.storeFailed(emp, "create", err)
	}
	s.publish(ctx, events.Created, events.EntityEmployee, emp.ID)
	return emp, nil
}

// GetEmployee returns an employee. Collaborators may only read employees
// of client companies under contract with their provider.
func (s *Service) GetEmployee(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	emp, err := s.repo.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireClientAccess(ctx, s.repo, events.EntityEmployee, emp.ClientCompanyID); err != nil {
		return nil, err
	}
	return emp, nil
}

// ListEmployees lists employees, scoped to contracted client companies for
// collaborators.
func (s *Service) ListEmployees(ctx context.Context, f models.EmployeeFilter) ([]models.Employee, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if f.ClientCompanyIDs, err = s.readableClients(ctx, id, f.ClientCompanyIDs); err != nil {
		return nil, err
	}
	return s.repo.ListEmployees(ctx, f)
}

// UpdateEmployee applies a partial update. Moving an employee to another
// client requires access to both companies.
func (s *Service) UpdateEmployee(ctx context.Context, id uuid.UUID, patch models.EmployeePatch) (*models.Employee, error) {
	emp, err := s.updateEmployee(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.Updated, events.EntityEmployee, id)
	return emp, nil
}

func (s *Service) updateEmployee(ctx context.Context, id uuid.UUID, patch models.EmployeePatch) (*models.Employee, error) {
	var updated *models.Employee
	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		emp, err := tx.GetEmployee(ctx, id)
		if err != nil {
			return err
		}
		if _, err := s.requireClientAccess(ctx, tx, events.EntityEmployee, emp.ClientCompanyID); err != nil {
			return err
		}
		if patch.ClientCompanyID != nil && *patch.ClientCompanyID != emp.ClientCompanyID {
			if _, err := s.requireClientAccess(ctx, tx, events.EntityEmployee, *patch.ClientCompanyID); err != nil {
				return err
			}
		}

		patch.Apply(emp)
		if err := emp.Validate(); err != nil {
			return err
		}
		if err := tx.UpdateEmployee(ctx, emp); err != nil {
			return s.storeFailed(emp, "update", err)
		}
		updated = emp
		return nil
	})
	return updated, err
}

// DeactivateEmployee marks an employee inactive. Exam records are kept.
func (s *Service) DeactivateEmployee(ctx context.Context, id uuid.UUID) error {
	if _, err := s.updateEmployee(ctx, id, models.EmployeePatch{
		RegistrantPatch: models.RegistrantPatch{Active: new(bool)},
	}); err != nil {
		return err
	}
	s.publish(ctx, events.Deactivated, events.EntityEmployee, id)
	return nil
}
