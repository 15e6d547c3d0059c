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
)

// CreateExam records a health exam for an employee. Collaborators may only
// record exams of employees whose company is under contract with them.
func (s *Service) CreateExam(ctx context.Context, h *models.HealthExam) (*models.HealthExam, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	h.ID = uuid.New()
	if err := h.Validate(); err != nil {
		return nil, err
	}

	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		emp, err := tx.GetEmployee(ctx, h.EmployeeID)
		if errors.Is(err, e.ErrNotFound) {
			return fmt.Errorf("%w: employee does not exist", e.ErrReferentialIntegrity)
		}
		if err != nil {
			return err
		}
		if _, err := s.requireClientAccess(ctx, tx, events.EntityExam, emp.ClientCompanyID); err != nil {
			return err
		}
		return tx.CreateExam(ctx, h)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Created, events.EntityExam, h.ID)
	return h, nil
}

// GetExam returns an exam record. Collaborators may only read exams of
// employees whose company is under contract with their provider.
func (s *Service) GetExam(ctx context.Context, id uuid.UUID) (*models.HealthExam, error) {
	who, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	h, err := s.repo.GetExam(ctx, id)
	if err != nil {
		return nil, err
	}
	if who.Role().AtLeast(models.RoleAdministrator) {
		return h, nil
	}

	emp, err := s.repo.GetEmployee(ctx, h.EmployeeID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireClientAccess(ctx, s.repo, events.EntityExam, emp.ClientCompanyID); err != nil {
		return nil, err
	}
	return h, nil
}

// ListExams lists the exams of one employee, of every employee of one
// client company, or all exams when both filters are nil. Collaborators
// only see exams of employees of contracted client companies.
func (s *Service) ListExams(ctx context.Context, employeeID, clientID *uuid.UUID) ([]models.HealthExam, error) {
	who, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	scoped := !who.Role().AtLeast(models.RoleAdministrator)
	if !scoped && (employeeID != nil || clientID == nil) {
		return s.repo.ListExams(ctx, employeeID, nil)
	}

	f := models.EmployeeFilter{ClientCompanyID: clientID}
	if f.ClientCompanyIDs, err = s.readableClients(ctx, who, nil); err != nil {
		return nil, err
	}
	employees, err := s.repo.ListEmployees(ctx, f)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(employees))
	for _, emp := range employees {
		ids = append(ids, emp.ID)
	}
	return s.repo.ListExams(ctx, employeeID, ids)
}

func (s *Service) UpdateExam(ctx context.Context, id uuid.UUID, patch models.HealthExamPatch) (*models.HealthExam, error) {
	var updated *models.HealthExam
	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		h, err := s.examForWrite(ctx, tx, id)
		if err != nil {
			return err
		}
		patch.Apply(h)
		if err := h.Validate(); err != nil {
			return err
		}
		if err := tx.UpdateExam(ctx, h); err != nil {
			return err
		}
		updated = h
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Updated, events.EntityExam, id)
	return updated, nil
}

func (s *Service) DeleteExam(ctx context.Context, id uuid.UUID) error {
	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if _, err := s.examForWrite(ctx, tx, id); err != nil {
			return err
		}
		return tx.DeleteExam(ctx, id)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.Deleted, events.EntityExam, id)
	return nil
}

// examForWrite loads an exam and checks the caller may change it.
func (s *Service) examForWrite(ctx context.Context, tx *db.Repository, id uuid.UUID) (*models.HealthExam, error) {
	h, err := tx.GetExam(ctx, id)
	if err != nil {
		return nil, err
	}
	emp, err := tx.GetEmployee(ctx, h.EmployeeID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireClientAccess(ctx, tx, events.EntityExam, emp.ClientCompanyID); err != nil {
		return nil, err
	}
	return h, nil
}
