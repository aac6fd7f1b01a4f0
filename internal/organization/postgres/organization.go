package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/frahmantamala/audit-workflow/internal/core/database"
	organizationDatamodel "github.com/frahmantamala/audit-workflow/internal/core/datamodel/organization"
	"github.com/frahmantamala/audit-workflow/internal/organization"
)

type OrganizationRepository struct {
	db *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) organization.RepositoryAPI {
	return &OrganizationRepository{db: db}
}

func (r *OrganizationRepository) FindByName(ctx context.Context, name string) (*organization.Organization, error) {
	var dm organizationDatamodel.Organization
	err := r.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&dm).Error
	if err != nil {
		return nil, database.MapError(err)
	}
	return organization.OrganizationFromDataModel(&dm), nil
}

func (r *OrganizationRepository) Create(ctx context.Context, org *organization.Organization, departments []*organization.Department) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(org.ToDataModel()).Error; err != nil {
			return database.MapError(err)
		}
		if len(departments) == 0 {
			return nil
		}
		rows := make([]*organizationDatamodel.Department, 0, len(departments))
		for _, d := range departments {
			rows = append(rows, d.ToDataModel())
		}
		if err := tx.Create(&rows).Error; err != nil {
			return database.MapError(err)
		}
		return nil
	})
}

func (r *OrganizationRepository) ListDepartments(ctx context.Context, organizationID string) ([]*organization.Department, error) {
	var rows []*organizationDatamodel.Department
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, database.MapError(err)
	}

	out := make([]*organization.Department, 0, len(rows))
	for _, row := range rows {
		out = append(out, organization.DepartmentFromDataModel(row))
	}
	return out, nil
}

func (r *OrganizationRepository) CreateDepartment(ctx context.Context, d *organization.Department) error {
	if err := r.db.WithContext(ctx).Create(d.ToDataModel()).Error; err != nil {
		return database.MapError(err)
	}
	return nil
}

func (r *OrganizationRepository) DepartmentExists(ctx context.Context, organizationID, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&organizationDatamodel.Department{}).
		Where("organization_id = ? AND name = ?", organizationID, name).
		Count(&count).Error
	if err != nil {
		return false, database.MapError(err)
	}
	return count > 0, nil
}
