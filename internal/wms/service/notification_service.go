package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"github.com/bitfantasy/nimo-wms/internal/wms/repository"
	"github.com/bitfantasy/nimo-wms/internal/wms/sse"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NotificationService 通知服务
type NotificationService struct {
	db     *gorm.DB
	repos  *repository.Repositories
	logger *zap.Logger
}

func NewNotificationService(db *gorm.DB, repos *repository.Repositories, logger *zap.Logger) *NotificationService {
	return &NotificationService{db: db, repos: repos, logger: logger}
}

// NotifyReq 发送通知参数
type NotifyReq struct {
	Title        string
	Content      string
	Type         entity.NotificationType
	Level        entity.NotificationLevel
	BusinessKey  string
	BusinessType string
	SenderID     string
	RecipientIDs []string
}

// NotifyTx 在调用方事务内创建通知及接收记录，返回通知实体。
// SSE 推送由调用方在事务提交后通过 PushCreated 触发。
func (s *NotificationService) NotifyTx(tx *gorm.DB, req NotifyReq) (*entity.Notification, error) {
	if req.Level == "" {
		req.Level = entity.NotificationLevelInfo
	}

	notif := &entity.Notification{
		ID:               uuid.New().String()[:32],
		Title:            req.Title,
		Content:          req.Content,
		NotificationType: req.Type,
		Level:            req.Level,
		BusinessKey:      req.BusinessKey,
		BusinessType:     req.BusinessType,
		SenderID:         req.SenderID,
		SendTime:         time.Now(),
	}

	recipients := make([]entity.NotificationRecipient, 0, len(req.RecipientIDs))
	for _, uid := range req.RecipientIDs {
		recipients = append(recipients, entity.NotificationRecipient{
			ID:             uuid.New().String()[:32],
			NotificationID: notif.ID,
			RecipientID:    uid,
		})
	}

	if err := s.repos.Notification.CreateWithRecipients(tx, notif, recipients); err != nil {
		return nil, fmt.Errorf("创建通知失败: %w", err)
	}
	notif.Recipients = recipients
	return notif, nil
}

// Notify 独立事务发送通知并立即推送
func (s *NotificationService) Notify(ctx context.Context, req NotifyReq) (*entity.Notification, error) {
	var notif *entity.Notification
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		notif, err = s.NotifyTx(tx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.PushCreated(notif)
	return notif, nil
}

// PushCreated 事务提交后向各接收人推送 SSE 事件
func (s *NotificationService) PushCreated(notif *entity.Notification) {
	if notif == nil {
		return
	}
	for _, r := range notif.Recipients {
		sse.PublishNotification(r.RecipientID, notif.ID, notif.Title)
	}
}

// ListMineResult 我的通知列表结果
type ListMineResult struct {
	Items       []entity.NotificationRecipient `json:"items"`
	Total       int64                          `json:"total"`
	UnreadCount int64                          `json:"unread_count"`
}

// ListMine 查询我的通知（含未读数）
func (s *NotificationService) ListMine(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) (*ListMineResult, error) {
	items, total, err := s.repos.Notification.FindMine(ctx, userID, unreadOnly, page, pageSize)
	if err != nil {
		return nil, err
	}
	unread, err := s.repos.Notification.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ListMineResult{Items: items, Total: total, UnreadCount: unread}, nil
}

// MarkRead 标记已读
func (s *NotificationService) MarkRead(ctx context.Context, userID, recipientID string) error {
	err := s.repos.Notification.MarkRead(ctx, userID, recipientID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotificationNotFound
	}
	return err
}

// MarkAllRead 全部已读，返回更新条数
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.repos.Notification.MarkAllRead(ctx, userID)
}

// Delete 删除我的一条通知记录
func (s *NotificationService) Delete(ctx context.Context, userID, recipientID string) error {
	err := s.repos.Notification.DeleteRecipient(ctx, userID, recipientID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotificationNotFound
	}
	return err
}
