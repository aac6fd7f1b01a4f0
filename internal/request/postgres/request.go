package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/audit-workflow/internal"
	"github.com/frahmantamala/audit-workflow/internal/core/database"
	commentDatamodel "github.com/frahmantamala/audit-workflow/internal/core/datamodel/comment"
	requestDatamodel "github.com/frahmantamala/audit-workflow/internal/core/datamodel/request"
	"github.com/frahmantamala/audit-workflow/internal/request"
)

// resubmitColumns are the columns an owner's edit may rewrite. Owner and
// organization are never part of it.
var resubmitColumns = []string{
	"title",
	"category",
	"custom_category",
	"department",
	"description",
	"total_amount",
	"audit_date",
	"status",
	"ai_completeness_score",
	"ai_summary",
	"ai_feedback",
	"attachments",
	"updated_at",
}

// RequestRepository implements request.Repository using GORM
type RequestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) request.Repository {
	return &RequestRepository{db: db}
}

func (r *RequestRepository) Create(ctx context.Context, req *request.Request) error {
	dm := req.ToDataModel()
	if err := r.db.WithContext(ctx).Create(dm).Error; err != nil {
		return database.MapError(err)
	}
	req.CreatedAt = dm.CreatedAt
	req.UpdatedAt = dm.UpdatedAt
	return nil
}

func (r *RequestRepository) GetByID(ctx context.Context, id string) (*request.Request, error) {
	var dm requestDatamodel.Request
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&dm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrRequestNotFound
		}
		return nil, database.MapError(err)
	}
	return request.FromDataModel(&dm), nil
}

func (r *RequestRepository) List(ctx context.Context, q request.Query) ([]*request.Request, int64, error) {
	scoped := func() *gorm.DB {
		tx := r.db.WithContext(ctx).
			Model(&requestDatamodel.Request{}).
			Where("organization_id = ?", q.OrganizationID)

		if !q.AllInOrganization {
			if q.Visibility.Department != "" {
				tx = tx.Where("(department = ? OR employee_id = ?)", q.Visibility.Department, q.EmployeeID)
			} else {
				tx = tx.Where("employee_id = ?", q.EmployeeID)
			}
		}

		if len(q.Statuses) > 0 {
			statuses := make([]string, 0, len(q.Statuses))
			for _, st := range q.Statuses {
				statuses = append(statuses, string(st))
			}
			tx = tx.Where("status IN ?", statuses)
		}

		if q.Department != "" {
			tx = tx.Where("department = ?", q.Department)
		}
		return tx
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, database.MapError(err)
	}

	var rows []*requestDatamodel.Request
	tx := scoped().Order("created_at DESC")
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}
	if err := tx.Find(&rows).Error; err != nil {
		return nil, 0, database.MapError(err)
	}

	return request.FromDataModelSlice(rows), total, nil
}

// UpdateStatus is a compare-and-swap on the status column.
func (r *RequestRepository) UpdateStatus(ctx context.Context, id string, from, to request.Status) error {
	res := r.db.WithContext(ctx).
		Model(&requestDatamodel.Request{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(map[string]interface{}{
			"status":     string(to),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return database.MapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return r.missOrConflict(ctx, id)
	}
	return nil
}

func (r *RequestRepository) Resubmit(ctx context.Context, req *request.Request, from request.Status) error {
	dm := req.ToDataModel()
	res := r.db.WithContext(ctx).
		Model(&requestDatamodel.Request{ID: req.ID}).
		Where("status = ?", string(from)).
		Select(resubmitColumns).
		Updates(dm)
	if res.Error != nil {
		return database.MapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return r.missOrConflict(ctx, req.ID)
	}
	return nil
}

func (r *RequestRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("request_id = ?", id).Delete(&commentDatamodel.Comment{}).Error; err != nil {
			return database.MapError(err)
		}
		res := tx.Where("id = ?", id).Delete(&requestDatamodel.Request{})
		if res.Error != nil {
			return database.MapError(res.Error)
		}
		if res.RowsAffected == 0 {
			return internal.ErrRequestNotFound
		}
		return nil
	})
}

func (r *RequestRepository) missOrConflict(ctx context.Context, id string) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&requestDatamodel.Request{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return database.MapError(err)
	}
	if count == 0 {
		return internal.ErrRequestNotFound
	}
	return internal.ErrStatusConflict
}
