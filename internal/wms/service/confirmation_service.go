package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"github.com/bitfantasy/nimo-wms/internal/wms/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ConfirmationService 交付确认单服务
type ConfirmationService struct {
	db     *gorm.DB
	repos  *repository.Repositories
	logger *zap.Logger
}

func NewConfirmationService(db *gorm.DB, repos *repository.Repositories, logger *zap.Logger) *ConfirmationService {
	return &ConfirmationService{db: db, repos: repos, logger: logger}
}

// ListConfirmations 确认单列表
func (s *ConfirmationService) ListConfirmations(ctx context.Context, page, pageSize int, status string) ([]entity.DeliveryConfirmation, int64, error) {
	return s.repos.Confirmation.FindAll(ctx, page, pageSize, status)
}

// GetConfirmation 确认单详情
func (s *ConfirmationService) GetConfirmation(ctx context.Context, id string) (*entity.DeliveryConfirmation, error) {
	conf, err := s.repos.Confirmation.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrConfirmationNotFound
	}
	return conf, err
}

// Generate 为已完成确认工作流的订单生成交付确认单。
// 幂等：同一订单重复调用返回已有确认单。保管员与质检员信息
// 从工作流任务中取用，保持与确认动作一致。
func (s *ConfirmationService) Generate(ctx context.Context, orderID, operatorID string) (*entity.DeliveryConfirmation, error) {
	order, err := s.repos.Order.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if existing, err := s.repos.Confirmation.FindByOrderID(ctx, order.ID); err == nil {
		return existing, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	// 取该订单已完成的确认工作流
	var instance entity.WorkflowInstance
	err = s.db.WithContext(ctx).
		Preload("Tasks").
		Where("business_key = ? AND workflow_type = ? AND status = ?",
			order.OrderNo, entity.WorkflowTypePurchaseConfirmation, entity.WorkflowStatusCompleted).
		Order("updated_at DESC").
		First(&instance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkflowNotDone
		}
		return nil, err
	}

	conf := &entity.DeliveryConfirmation{
		ID: uuid.New().String()[:32],
		// 随机片段避免同秒生成撞唯一索引
		ConfirmationNo: "DC" + time.Now().Format("20060102150405") + uuid.New().String()[:6],
		OrderID:        order.ID,
		Status:         entity.ConfirmationStatusGenerated,
	}
	for _, task := range instance.Tasks {
		switch task.TaskName {
		case entity.TaskNameKeeperConfirm:
			conf.KeeperID = task.AssigneeID
			conf.KeeperConfirmTime = task.CompleteTime
		case entity.TaskNameInspectorConfirm:
			conf.InspectorID = task.AssigneeID
			conf.InspectorConfirmTime = task.CompleteTime
		}
	}

	if err := s.repos.Confirmation.Create(ctx, conf); err != nil {
		return nil, fmt.Errorf("创建确认单失败: %w", err)
	}

	s.logger.Info("交付确认单已生成",
		zap.String("confirmation_no", conf.ConfirmationNo),
		zap.String("order_no", order.OrderNo),
		zap.String("operator", operatorID))
	return conf, nil
}

// Print 记录打印：首次打印置为已打印并记录时间与操作人，重复打印只更新时间
func (s *ConfirmationService) Print(ctx context.Context, id, userID string) (*entity.DeliveryConfirmation, error) {
	conf, err := s.repos.Confirmation.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrConfirmationNotFound
		}
		return nil, err
	}
	if conf.Status == entity.ConfirmationStatusCancelled {
		return nil, fmt.Errorf("%w: 确认单已取消", ErrInvalidParam)
	}

	now := time.Now()
	conf.PrintTime = &now
	conf.PrintBy = userID
	if conf.Status == entity.ConfirmationStatusGenerated {
		conf.Status = entity.ConfirmationStatusPrinted
	}
	if err := s.repos.Confirmation.Update(ctx, conf); err != nil {
		return nil, fmt.Errorf("更新确认单失败: %w", err)
	}
	return conf, nil
}
