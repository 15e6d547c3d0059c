package db

import (
	"context"
	"fmt"

	"github.com/gartstein/safework/internal/safework/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Seed inserts the fixed profiles and the default service provider, keyed by
// their fixed ids, and the bootstrap user when one is given. Rows that
// already exist are left untouched, so Seed can run on every start.
func (r *Repository) Seed(ctx context.Context, bootstrap *models.User) error {
	return r.WithTransaction(ctx, func(tx *Repository) error {
		// A gorm chain must not be shared between inserts.
		doNothing := func() *gorm.DB {
			return tx.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true})
		}

		profiles := models.SeedProfiles()
		if err := doNothing().Create(&profiles).Error; err != nil {
			return fmt.Errorf("failed to seed profiles: %w", translateError(err))
		}

		provider := models.DefaultProvider()
		if err := doNothing().Omit(clause.Associations).Create(&provider).Error; err != nil {
			return fmt.Errorf("failed to seed default provider: %w", translateError(err))
		}

		if bootstrap == nil {
			return nil
		}
		if err := doNothing().Omit(clause.Associations).Create(bootstrap).Error; err != nil {
			return fmt.Errorf("failed to seed bootstrap user: %w", translateError(err))
		}
		return nil
	})
}
