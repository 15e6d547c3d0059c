package db

import (
	"context"

	"github.com/gartstein/safework/internal/safework/models"
	"github.com/google/uuid"
)

func (r *Repository) CreateContract(ctx context.Context, c *models.Contract) error {
	return create(ctx, r.db, c)
}

func (r *Repository) GetContract(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	return get[models.Contract](ctx, r.db, id)
}

func (r *Repository) UpdateContract(ctx context.Context, c *models.Contract) error {
	return update(ctx, r.db, c)
}

func (r *Repository) DeleteContract(ctx context.Context, id uuid.UUID) error {
	return remove[models.Contract](ctx, r.db, id)
}

func (r *Repository) ListContracts(ctx context.Context, f models.ContractFilter) ([]models.Contract, error) {
	var out []models.Contract
	q := r.db.WithContext(ctx)
	if f.ClientCompanyID != nil {
		q = q.Where("client_company_id = ?", *f.ClientCompanyID)
	}
	if f.ServiceProviderID != nil {
		q = q.Where("service_provider_id = ?", *f.ServiceProviderID)
	}
	if f.Active != nil {
		q = q.Where("active = ?", *f.Active)
	}
	err := q.Order("start_date DESC").Find(&out).Error
	return out, translateError(err)
}

// HasActiveContract reports whether the client holds an active contract
// with the provider.
func (r *Repository) HasActiveContract(ctx context.Context, clientID, providerID uuid.UUID) (bool, error) {
	return exists[models.Contract](ctx, r.db,
		"client_company_id = ? AND service_provider_id = ? AND active = ?", clientID, providerID, true)
}

// ContractedClientIDs returns the ids of the client companies holding an
// active contract with the provider.
func (r *Repository) ContractedClientIDs(ctx context.Context, providerID uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	err := r.db.WithContext(ctx).Model(&models.Contract{}).
		Distinct("client_company_id").
		Where("service_provider_id = ? AND active = ?", providerID, true).
		Pluck("client_company_id", &ids).Error
	return ids, translateError(err)
}
