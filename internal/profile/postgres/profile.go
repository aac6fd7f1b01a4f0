package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/audit-workflow/internal"
	"github.com/frahmantamala/audit-workflow/internal/core/database"
	profileDatamodel "github.com/frahmantamala/audit-workflow/internal/core/datamodel/profile"
	"github.com/frahmantamala/audit-workflow/internal/core/identity"
	"github.com/frahmantamala/audit-workflow/internal/profile"
)

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) Create(ctx context.Context, p *profile.Profile) error {
	dm := profile.ToDataModel(p)
	dm.Email = strings.ToLower(dm.Email)
	if err := r.db.WithContext(ctx).Create(dm).Error; err != nil {
		err = database.MapError(err)
		if errors.Is(err, database.ErrDuplicate) {
			return internal.ErrEmailTaken
		}
		return err
	}
	p.Email = dm.Email
	p.CreatedAt = dm.CreatedAt
	p.UpdatedAt = dm.UpdatedAt
	return nil
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*profile.Profile, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*profile.Profile, error) {
	return r.first(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *ProfileRepository) first(ctx context.Context, query string, arg interface{}) (*profile.Profile, error) {
	var dm profileDatamodel.Profile
	if err := r.db.WithContext(ctx).Where(query, arg).First(&dm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrProfileNotFound
		}
		return nil, database.MapError(err)
	}
	return profile.FromDataModel(&dm), nil
}

func (r *ProfileRepository) ListByOrganization(ctx context.Context, organizationID string) ([]*profile.Profile, error) {
	var rows []*profileDatamodel.Profile
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("full_name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, database.MapError(err)
	}

	out := make([]*profile.Profile, 0, len(rows))
	for _, row := range rows {
		out = append(out, profile.FromDataModel(row))
	}
	return out, nil
}

func (r *ProfileRepository) Update(ctx context.Context, p *profile.Profile) error {
	dm := profile.ToDataModel(p)
	res := r.db.WithContext(ctx).
		Model(&profileDatamodel.Profile{ID: p.ID}).
		Select("full_name", "department", "role", "status", "updated_at").
		Updates(dm)
	if res.Error != nil {
		return database.MapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return internal.ErrProfileNotFound
	}
	return nil
}

func (r *ProfileRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res := r.db.WithContext(ctx).
		Model(&profileDatamodel.Profile{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"password_hash": passwordHash,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return database.MapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return internal.ErrProfileNotFound
	}
	return nil
}

// Reviewers returns every admin of the organization plus the managers of
// department.
func (r *ProfileRepository) Reviewers(ctx context.Context, organizationID, department string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&profileDatamodel.Profile{}).
		Where("organization_id = ?", organizationID).
		Where("(role = ? OR (role = ? AND department = ?))", string(identity.RoleAdmin), string(identity.RoleManager), department).
		Order("created_at ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, database.MapError(err)
	}
	return ids, nil
}
