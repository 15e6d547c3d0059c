package db

import (
	"context"

	"github.com/gartstein/safework/internal/safework/models"
	"github.com/google/uuid"
)

func (r *Repository) CreateExam(ctx context.Context, h *models.HealthExam) error {
	return create(ctx, r.db, h)
}

func (r *Repository) GetExam(ctx context.Context, id uuid.UUID) (*models.HealthExam, error) {
	return get[models.HealthExam](ctx, r.db, id)
}

func (r *Repository) UpdateExam(ctx context.Context, h *models.HealthExam) error {
	return update(ctx, r.db, h)
}

func (r *Repository) DeleteExam(ctx context.Context, id uuid.UUID) error {
	return remove[models.HealthExam](ctx, r.db, id)
}

// ListExams returns exam records, narrowed to one employee and to the
// employees in employeeIDs when those are set. A non-nil empty employeeIDs
// matches nothing.
func (r *Repository) ListExams(ctx context.Context, employeeID *uuid.UUID, employeeIDs []uuid.UUID) ([]models.HealthExam, error) {
	var out []models.HealthExam
	q := r.db.WithContext(ctx)
	if employeeID != nil {
		q = q.Where("employee_id = ?", *employeeID)
	}
	if employeeIDs != nil {
		q = q.Where("employee_id IN ?", employeeIDs)
	}
	err := q.Order("exam_date DESC").Find(&out).Error
	return out, translateError(err)
}
