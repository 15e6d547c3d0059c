package db

import (
	"context"

	e "github.com/gartstein/safework/internal/safework/errors"
	"github.com/gartstein/safework/internal/safework/models"
	"github.com/google/uuid"
)

func (r *Repository) CreateProfile(ctx context.Context, p *models.Profile) error {
	return create(ctx, r.db, p)
}

func (r *Repository) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	return get[models.Profile](ctx, r.db, id)
}

func (r *Repository) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	var out []models.Profile
	err := r.db.WithContext(ctx).Order("name").Find(&out).Error
	return out, translateError(err)
}

// DeleteProfile fails with ErrReferentialIntegrity while users hold the profile.
func (r *Repository) DeleteProfile(ctx context.Context, id uuid.UUID) error {
	return remove[models.Profile](ctx, r.db, id)
}

func (r *Repository) CreateUser(ctx context.Context, u *models.User) error {
	return create(ctx, r.db, u)
}

// GetUser returns the user with its profile loaded.
func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return get[models.User](ctx, r.db, id, "Profile")
}

// GetUserByEmail looks a user up by normalised email, with its profile loaded.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).Preload("Profile").
		First(&u, "email = ?", models.NormalizeEmail(email)).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &u, nil
}

func (r *Repository) UpdateUser(ctx context.Context, u *models.User) error {
	return update(ctx, r.db, u)
}

func (r *Repository) UpdateUserPassword(ctx context.Context, id uuid.UUID, hash string) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("password_hash", hash)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return remove[models.User](ctx, r.db, id)
}

func (r *Repository) ListUsers(ctx context.Context, f models.UserFilter) ([]models.User, error) {
	var out []models.User
	q := r.db.WithContext(ctx).Preload("Profile")
	if f.ServiceProviderID != nil {
		q = q.Where("service_provider_id = ?", *f.ServiceProviderID)
	}
	err := q.Order("name").Find(&out).Error
	return out, translateError(err)
}
