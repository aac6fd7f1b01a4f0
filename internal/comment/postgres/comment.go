package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/frahmantamala/audit-workflow/internal/comment"
	"github.com/frahmantamala/audit-workflow/internal/core/database"
	commentDatamodel "github.com/frahmantamala/audit-workflow/internal/core/datamodel/comment"
)

type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) comment.Repository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) Create(ctx context.Context, c *comment.Comment) error {
	dm := c.ToDataModel()
	if err := r.db.WithContext(ctx).Create(dm).Error; err != nil {
		return database.MapError(err)
	}
	c.CreatedAt = dm.CreatedAt
	return nil
}

// ListByRequest returns the thread oldest first.
func (r *CommentRepository) ListByRequest(ctx context.Context, requestID string) ([]*comment.Comment, error) {
	var rows []*commentDatamodel.Comment
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, database.MapError(err)
	}

	out := make([]*comment.Comment, 0, len(rows))
	for _, row := range rows {
		out = append(out, comment.FromDataModel(row))
	}
	return out, nil
}
