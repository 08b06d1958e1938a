package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"gorm.io/gorm"
)

// NotificationRepository 通知仓库
type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// CreateWithRecipients 创建通知及其接收记录
func (r *NotificationRepository) CreateWithRecipients(tx *gorm.DB, notif *entity.Notification, recipients []entity.NotificationRecipient) error {
	if err := tx.Create(notif).Error; err != nil {
		return err
	}
	if len(recipients) == 0 {
		return nil
	}
	return tx.Create(&recipients).Error
}

// FindMine 查询某人收到的通知（按发送时间倒序）
func (r *NotificationRepository) FindMine(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]entity.NotificationRecipient, int64, error) {
	var items []entity.NotificationRecipient
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.NotificationRecipient{}).
		Where("recipient_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Notification").
		Joins("JOIN wh_notifications ON wh_notifications.id = wh_notification_recipients.notification_id").
		Order("wh_notifications.send_time DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// CountUnread 某人的未读通知数
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.NotificationRecipient{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRead 标记单条通知已读
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, recipientID string) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&entity.NotificationRecipient{}).
		Where("id = ? AND recipient_id = ? AND is_read = ?", recipientID, userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_time": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead 标记某人全部通知已读，返回更新条数
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&entity.NotificationRecipient{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_time": now})
	return res.RowsAffected, res.Error
}

// DeleteRecipient 删除某人的一条接收记录
func (r *NotificationRepository) DeleteRecipient(ctx context.Context, userID, recipientID string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", recipientID, userID).
		Delete(&entity.NotificationRecipient{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByID 根据ID查找通知（含接收记录）
func (r *NotificationRepository) FindByID(ctx context.Context, id string) (*entity.Notification, error) {
	var notif entity.Notification
	err := r.db.WithContext(ctx).
		Preload("Recipients").
		Where("id = ?", id).
		First(&notif).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &notif, nil
}
