package db

import (
	"context"

	"github.com/gartstein/safework/internal/safework/models"
	"github.com/google/uuid"
)

func (r *Repository) CreateAddress(ctx context.Context, a *models.Address) error {
	return create(ctx, r.db, a)
}

func (r *Repository) GetAddress(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	return get[models.Address](ctx, r.db, id)
}

func (r *Repository) UpdateAddress(ctx context.Context, a *models.Address) error {
	return update(ctx, r.db, a)
}

// DeleteAddress fails with ErrReferentialIntegrity while any registrant
// still points at the address.
func (r *Repository) DeleteAddress(ctx context.Context, id uuid.UUID) error {
	return remove[models.Address](ctx, r.db, id)
}

func (r *Repository) ListAddresses(ctx context.Context) ([]models.Address, error) {
	var out []models.Address
	err := r.db.WithContext(ctx).Order("municipality, street, number").Find(&out).Error
	return out, translateError(err)
}
