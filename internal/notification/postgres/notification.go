package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/frahmantamala/audit-workflow/internal"
	"github.com/frahmantamala/audit-workflow/internal/core/database"
	notificationDatamodel "github.com/frahmantamala/audit-workflow/internal/core/datamodel/notification"
	"github.com/frahmantamala/audit-workflow/internal/notification"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) notification.Repository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) CreateBatch(ctx context.Context, ns []*notification.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	rows := make([]*notificationDatamodel.Notification, 0, len(ns))
	for _, n := range ns {
		rows = append(rows, n.ToDataModel())
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return database.MapError(err)
	}
	return nil
}

func (r *NotificationRepository) List(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]*notification.Notification, error) {
	tx := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		tx = tx.Where("is_read = ?", false)
	}
	tx = tx.Order("created_at DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if offset > 0 {
		tx = tx.Offset(offset)
	}

	var rows []*notificationDatamodel.Notification
	if err := tx.Find(&rows).Error; err != nil {
		return nil, database.MapError(err)
	}

	out := make([]*notification.Notification, 0, len(rows))
	for _, row := range rows {
		out = append(out, notification.FromDataModel(row))
	}
	return out, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).
		Model(&notificationDatamodel.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return database.MapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return internal.ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&notificationDatamodel.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, database.MapError(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *NotificationRepository) Delete(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&notificationDatamodel.Notification{})
	if res.Error != nil {
		return database.MapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return internal.ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepository) Clear(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&notificationDatamodel.Notification{})
	if res.Error != nil {
		return 0, database.MapError(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *NotificationRepository) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&notificationDatamodel.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, database.MapError(err)
	}
	return count, nil
}
