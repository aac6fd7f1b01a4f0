package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/audit-workflow/internal"
	"github.com/frahmantamala/audit-workflow/internal/auth"
	"github.com/frahmantamala/audit-workflow/internal/core/database"
	profileDatamodel "github.com/frahmantamala/audit-workflow/internal/core/datamodel/profile"
)

type ResetRepository struct {
	db *gorm.DB
}

func NewResetRepository(db *gorm.DB) *ResetRepository {
	return &ResetRepository{db: db}
}

func (r *ResetRepository) Create(ctx context.Context, reset *auth.PasswordReset) error {
	dm := &profileDatamodel.PasswordReset{
		ID:        reset.ID,
		ProfileID: reset.ProfileID,
		TokenHash: reset.TokenHash,
		ExpiresAt: reset.ExpiresAt,
	}
	return database.MapError(r.db.WithContext(ctx).Create(dm).Error)
}

// Consume claims the token with a conditional update so it works only once.
func (r *ResetRepository) Consume(ctx context.Context, tokenHash string, now time.Time) (string, error) {
	var profileID string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dm profileDatamodel.PasswordReset
		if err := tx.Where("token_hash = ?", tokenHash).First(&dm).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return internal.ErrResetTokenInvalid
			}
			return database.MapError(err)
		}

		res := tx.Model(&profileDatamodel.PasswordReset{}).
			Where("id = ? AND used_at IS NULL AND expires_at > ?", dm.ID, now).
			Update("used_at", now)
		if res.Error != nil {
			return database.MapError(res.Error)
		}
		if res.RowsAffected == 0 {
			return internal.ErrResetTokenInvalid
		}

		profileID = dm.ProfileID
		return nil
	})
	if err != nil {
		return "", err
	}
	return profileID, nil
}
