package db

import (
	"context"

	"github.com/gartstein/safework/internal/safework/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (r *Repository) CreateProvider(ctx context.Context, p *models.ServiceProvider) error {
	return create(ctx, r.db, p)
}

func (r *Repository) GetProvider(ctx context.Context, id uuid.UUID) (*models.ServiceProvider, error) {
	return get[models.ServiceProvider](ctx, r.db, id)
}

func (r *Repository) UpdateProvider(ctx context.Context, p *models.ServiceProvider) error {
	return update(ctx, r.db, p)
}

func (r *Repository) ListProviders(ctx context.Context, f models.RegistrantFilter) ([]models.ServiceProvider, error) {
	var out []models.ServiceProvider
	err := registrantQuery(r.db.WithContext(ctx), f).Order("legal_name").Find(&out).Error
	return out, translateError(err)
}

func (r *Repository) CreateClient(ctx context.Context, c *models.ClientCompany) error {
	return create(ctx, r.db, c)
}

func (r *Repository) GetClient(ctx context.Context, id uuid.UUID) (*models.ClientCompany, error) {
	return get[models.ClientCompany](ctx, r.db, id)
}

func (r *Repository) UpdateClient(ctx context.Context, c *models.ClientCompany) error {
	return update(ctx, r.db, c)
}

func (r *Repository) ListClients(ctx context.Context, f models.RegistrantFilter) ([]models.ClientCompany, error) {
	var out []models.ClientCompany
	err := registrantQuery(r.db.WithContext(ctx), f).Order("legal_name").Find(&out).Error
	return out, translateError(err)
}

func (r *Repository) CreateEmployee(ctx context.Context, emp *models.Employee) error {
	return create(ctx, r.db, emp)
}

func (r *Repository) GetEmployee(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	return get[models.Employee](ctx, r.db, id)
}

func (r *Repository) UpdateEmployee(ctx context.Context, emp *models.Employee) error {
	return update(ctx, r.db, emp)
}

func (r *Repository) ListEmployees(ctx context.Context, f models.EmployeeFilter) ([]models.Employee, error) {
	var out []models.Employee
	q := registrantQuery(r.db.WithContext(ctx), models.RegistrantFilter{Active: f.Active})
	if f.ClientCompanyID != nil {
		q = q.Where("client_company_id = ?", *f.ClientCompanyID)
	}
	if f.ClientCompanyIDs != nil {
		q = q.Where("client_company_id IN ?", f.ClientCompanyIDs)
	}
	err := q.Order("legal_name").Find(&out).Error
	return out, translateError(err)
}

// DeactivateEmployees marks every active employee of a client company as
// inactive and returns how many rows changed.
func (r *Repository) DeactivateEmployees(ctx context.Context, clientID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Employee{}).
		Where("client_company_id = ? AND active = ?", clientID, true).
		Update("active", false)
	return result.RowsAffected, translateError(result.Error)
}

func registrantQuery(q *gorm.DB, f models.RegistrantFilter) *gorm.DB {
	if f.Active != nil {
		q = q.Where("active = ?", *f.Active)
	}
	if f.IDs != nil {
		q = q.Where("id IN ?", f.IDs)
	}
	return q
}
