package repositories

import (
	"context"

	"github.com/anonto42/storyhive/backend/internal/models"
	"gorm.io/gorm"
)

type postgresNotificationRepository struct {
	db *gorm.DB
}

func NewPostgresNotificationRepository(db *gorm.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

func (r *postgresNotificationRepository) CreateNotification(ctx context.Context, notification *models.Notification) error {
	return translateGormError(r.db.WithContext(ctx).Create(notification).Error, "Notification")
}

func (r *postgresNotificationRepository) GetByRecipientID(ctx context.Context, recipientID string, page, limit int, unreadOnly bool) ([]models.Notification, int64, error) {
	var notifications []models.Notification
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient_id = ?", recipientID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateGormError(err, "Notification")
	}

	offset := (page - 1) * limit
	err := query.Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&notifications).Error

	return notifications, total, translateGormError(err, "Notification")
}

func (r *postgresNotificationRepository) GetUnreadCount(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient_id = ? AND is_read = ?", recipientID, false).Count(&count).Error
	return count, translateGormError(err, "Notification")
}

// MarkAsRead is idempotent: an already read notification matches and is left read.
func (r *postgresNotificationRepository) MarkAsRead(ctx context.Context, recipientID string, notificationID uint) error {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", notificationID, recipientID).
		Update("is_read", true)
	if res.Error != nil {
		return translateGormError(res.Error, "Notification")
	}
	if res.RowsAffected == 0 {
		return translateGormError(gorm.ErrRecordNotFound, "Notification")
	}
	return nil
}

func (r *postgresNotificationRepository) MarkAllAsRead(ctx context.Context, recipientID string) error {
	err := r.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient_id = ? AND is_read = ?", recipientID, false).Update("is_read", true).Error
	return translateGormError(err, "Notification")
}

func (r *postgresNotificationRepository) DeleteNotification(ctx context.Context, recipientID string, notificationID uint) error {
	res := r.db.WithContext(ctx).Where("id = ? AND recipient_id = ?", notificationID, recipientID).Delete(&models.Notification{})
	if res.Error != nil {
		return translateGormError(res.Error, "Notification")
	}
	if res.RowsAffected == 0 {
		return translateGormError(gorm.ErrRecordNotFound, "Notification")
	}
	return nil
}

func (r *postgresNotificationRepository) DeleteByUser(ctx context.Context, userID string) error {
	err := r.db.WithContext(ctx).Where("recipient_id = ? OR sender_id = ?", userID, userID).Delete(&models.Notification{}).Error
	return translateGormError(err, "Notification")
}
