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

// WorkflowService 确认工作流服务：实例启动、任务完成与分配规则管理
type WorkflowService struct {
	db       *gorm.DB
	repos    *repository.Repositories
	notifSvc *NotificationService
	logger   *zap.Logger
}

func NewWorkflowService(db *gorm.DB, repos *repository.Repositories, notifSvc *NotificationService, logger *zap.Logger) *WorkflowService {
	return &WorkflowService{db: db, repos: repos, notifSvc: notifSvc, logger: logger}
}

// StartWorkflowReq 启动工作流参数
type StartWorkflowReq struct {
	OrderID      string              `json:"order_id"`
	OrderNo      string              `json:"order_no"`
	WorkflowType entity.WorkflowType `json:"workflow_type"`
	DeliveryType entity.DeliveryType `json:"delivery_type"` // 可选，启动时一并修正交付类型
}

// StartWorkflow 为采购订单启动确认工作流。
// 先完成全部前置校验与两个角色的处理人解析，再在单个事务内写入
// 实例、任务、订单状态与通知，避免出现部分提交的半成品流程。
func (s *WorkflowService) StartWorkflow(ctx context.Context, req StartWorkflowReq, initiatorID string) (*entity.WorkflowInstance, error) {
	wfType := req.WorkflowType
	if wfType == "" {
		wfType = entity.WorkflowTypePurchaseConfirmation
	}
	if !wfType.Valid() {
		return nil, fmt.Errorf("%w: workflow_type=%s", ErrInvalidParam, req.WorkflowType)
	}
	if req.DeliveryType != "" && !req.DeliveryType.Valid() {
		return nil, fmt.Errorf("%w: delivery_type=%s", ErrInvalidParam, req.DeliveryType)
	}

	// 定位订单
	var order *entity.PurchaseOrder
	var err error
	switch {
	case req.OrderID != "":
		order, err = s.repos.Order.FindByID(ctx, req.OrderID)
	case req.OrderNo != "":
		order, err = s.repos.Order.FindByOrderNo(ctx, req.OrderNo)
	default:
		return nil, fmt.Errorf("%w: 需要 order_id 或 order_no", ErrInvalidParam)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	// 同一订单同一类型只允许一个进行中的工作流
	if _, err := s.repos.Workflow.FindActiveInstance(ctx, order.OrderNo, wfType); err == nil {
		return nil, ErrDuplicateWorkflow
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	// 先解析两个角色的处理人，任一缺失则整体失败，不产生任何写入
	keeper, err := s.ResolveAssignee(ctx, entity.RoleTypeKeeper, order.Category, order.UserUnit)
	if err != nil {
		return nil, err
	}
	inspector, err := s.ResolveAssignee(ctx, entity.RoleTypeInspector, order.Category, order.UserUnit)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	// 时间戳保持编号可读，随机片段避免同秒启动撞唯一索引
	seq := now.Format("20060102150405") + uuid.New().String()[:6]

	instance := &entity.WorkflowInstance{
		ID:                uuid.New().String()[:32],
		ProcessInstanceID: "WF" + seq,
		BusinessKey:       order.OrderNo,
		WorkflowType:      wfType,
		Status:            entity.WorkflowStatusRunning,
		InitiatorID:       initiatorID,
		PurchaseOrderID:   order.ID,
	}

	tasks := []entity.WorkflowTask{
		{
			ID:                 uuid.New().String()[:32],
			TaskID:             "TASK" + seq + "1",
			WorkflowInstanceID: instance.ID,
			TaskName:           entity.TaskNameKeeperConfirm,
			Status:             entity.TaskStatusPending,
			AssigneeID:         keeper.StaffID,
		},
		{
			ID:                 uuid.New().String()[:32],
			TaskID:             "TASK" + seq + "2",
			WorkflowInstanceID: instance.ID,
			TaskName:           entity.TaskNameInspectorConfirm,
			Status:             entity.TaskStatusPending,
			AssigneeID:         inspector.StaffID,
		},
	}

	var notif *entity.Notification
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(instance).Error; err != nil {
			return fmt.Errorf("创建工作流实例失败: %w", err)
		}
		if err := tx.Create(&tasks).Error; err != nil {
			return fmt.Errorf("创建工作流任务失败: %w", err)
		}

		orderUpdates := map[string]interface{}{
			"status":     entity.OrderStatusProcessing,
			"updated_at": now,
		}
		if req.DeliveryType != "" {
			orderUpdates["delivery_type"] = req.DeliveryType
		}
		if err := tx.Model(&entity.PurchaseOrder{}).
			Where("id = ?", order.ID).
			Updates(orderUpdates).Error; err != nil {
			return fmt.Errorf("更新订单状态失败: %w", err)
		}

		notif, err = s.notifSvc.NotifyTx(tx, NotifyReq{
			Title:        "新的确认任务",
			Content:      fmt.Sprintf("采购订单 %s 已发起确认流程，请及时处理待办任务", order.OrderNo),
			Type:         entity.NotificationTypeWorkflow,
			BusinessKey:  order.OrderNo,
			BusinessType: string(wfType),
			SenderID:     initiatorID,
			RecipientIDs: []string{keeper.StaffID, inspector.StaffID},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	instance.Tasks = tasks
	s.notifSvc.PushCreated(notif)
	for _, t := range tasks {
		sse.PublishTodoUpdate(t.AssigneeID, t.TaskID, "created")
	}

	s.logger.Info("工作流已启动",
		zap.String("process_instance_id", instance.ProcessInstanceID),
		zap.String("order_no", order.OrderNo),
		zap.String("keeper", keeper.StaffID),
		zap.String("inspector", inspector.StaffID))

	return instance, nil
}

// CompleteTaskReq 完成任务参数
type CompleteTaskReq struct {
	Approved *bool  `json:"approved" binding:"required"`
	Comment  string `json:"comment"`
}

// CompleteTask 完成一个确认任务。锁定父实例后再判定兄弟任务，
// 两个并发的最后完成者不会同时看到"对方未完成"。
// 全部任务处理完毕即完成实例并把订单置为已确认，驳回结果同样计入完成。
func (s *WorkflowService) CompleteTask(ctx context.Context, taskID, userID string, req CompleteTaskReq) (*entity.WorkflowTask, error) {
	if req.Approved == nil {
		return nil, fmt.Errorf("%w: 需要 approved", ErrInvalidParam)
	}
	result := entity.TaskResultRejected
	if *req.Approved {
		result = entity.TaskResultApproved
	}

	var task *entity.WorkflowTask
	var instance *entity.WorkflowInstance
	var notif *entity.Notification
	workflowDone := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t entity.WorkflowTask
		if err := tx.Where("task_id = ?", taskID).First(&t).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTaskNotFound
			}
			return err
		}
		task = &t

		if task.Status != entity.TaskStatusPending {
			return ErrTaskAlreadyDone
		}
		if task.AssigneeID != userID {
			return ErrNotAssignee
		}

		wf, err := s.repos.Workflow.LockInstance(tx, task.WorkflowInstanceID)
		if err != nil {
			return err
		}
		instance = wf

		now := time.Now()
		task.Status = entity.TaskStatusCompleted
		task.Result = result
		task.Comment = req.Comment
		task.CompleteTime = &now
		if err := tx.Save(task).Error; err != nil {
			return fmt.Errorf("更新任务失败: %w", err)
		}

		siblings, err := s.repos.Workflow.SiblingTasks(tx, instance.ID)
		if err != nil {
			return err
		}
		for _, sib := range siblings {
			if sib.Status == entity.TaskStatusPending {
				return nil // 还有兄弟任务未处理，实例保持运行
			}
		}

		workflowDone = true
		if err := tx.Model(&entity.WorkflowInstance{}).
			Where("id = ?", instance.ID).
			Updates(map[string]interface{}{
				"status":     entity.WorkflowStatusCompleted,
				"updated_at": now,
			}).Error; err != nil {
			return fmt.Errorf("更新实例状态失败: %w", err)
		}
		instance.Status = entity.WorkflowStatusCompleted

		if instance.PurchaseOrderID != "" {
			if err := tx.Model(&entity.PurchaseOrder{}).
				Where("id = ?", instance.PurchaseOrderID).
				Updates(map[string]interface{}{
					"status":     entity.OrderStatusConfirmed,
					"updated_at": now,
				}).Error; err != nil {
				return fmt.Errorf("更新订单状态失败: %w", err)
			}
		}

		if instance.InitiatorID != "" {
			notif, err = s.notifSvc.NotifyTx(tx, NotifyReq{
				Title:        "确认流程已完成",
				Content:      fmt.Sprintf("采购订单 %s 的确认流程已全部处理完毕", instance.BusinessKey),
				Type:         entity.NotificationTypeWorkflow,
				BusinessKey:  instance.BusinessKey,
				BusinessType: string(instance.WorkflowType),
				RecipientIDs: []string{instance.InitiatorID},
			})
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifSvc.PushCreated(notif)
	sse.PublishTodoUpdate(userID, taskID, "completed")
	if workflowDone {
		sse.PublishWorkflowUpdate(instance.BusinessKey, string(instance.WorkflowType), "completed")
		s.logger.Info("工作流已完成",
			zap.String("process_instance_id", instance.ProcessInstanceID),
			zap.String("business_key", instance.BusinessKey))
	}

	return task, nil
}

// ResolveAssignee 按三级精确匹配解析处理人：
// 大类+用户单位 → 仅大类 → 仅用户单位，均无匹配时报错。
func (s *WorkflowService) ResolveAssignee(ctx context.Context, roleType, category, userUnit string) (*entity.StaffAssignment, error) {
	sa, err := s.repos.Workflow.FindAssignment(ctx, roleType, category, userUnit)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: role=%s category=%s user_unit=%s", ErrNoAssignee, roleType, category, userUnit)
		}
		return nil, err
	}
	return sa, nil
}

// TodoTasks 查询我的待办任务
func (s *WorkflowService) TodoTasks(ctx context.Context, userID string, wfType entity.WorkflowType, page, pageSize int) ([]entity.WorkflowTask, int64, error) {
	if wfType != "" && !wfType.Valid() {
		return nil, 0, fmt.Errorf("%w: workflow_type=%s", ErrInvalidParam, wfType)
	}
	return s.repos.Workflow.FindTodoTasks(ctx, repository.TodoFilters{
		AssigneeID:   userID,
		WorkflowType: wfType,
	}, page, pageSize)
}

// GetInstance 查询工作流实例详情（含任务）
func (s *WorkflowService) GetInstance(ctx context.Context, id string) (*entity.WorkflowInstance, error) {
	wf, err := s.repos.Workflow.FindInstanceByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrWorkflowNotFound
	}
	return wf, err
}

// === 员工分配规则管理 ===

// CreateAssignmentReq 创建分配规则参数
type CreateAssignmentReq struct {
	StaffID  string `json:"staff_id" binding:"required"`
	RoleType string `json:"role_type" binding:"required"`
	Category string `json:"category"`
	UserUnit string `json:"user_unit"`
}

// CreateAssignment 创建分配规则
func (s *WorkflowService) CreateAssignment(ctx context.Context, req CreateAssignmentReq) (*entity.StaffAssignment, error) {
	if req.RoleType != entity.RoleTypeKeeper && req.RoleType != entity.RoleTypeInspector {
		return nil, fmt.Errorf("%w: role_type=%s", ErrInvalidParam, req.RoleType)
	}
	if req.Category == "" && req.UserUnit == "" {
		return nil, fmt.Errorf("%w: category 与 user_unit 至少填写一项", ErrInvalidParam)
	}
	if _, err := s.repos.User.FindByID(ctx, req.StaffID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	sa := &entity.StaffAssignment{
		ID:       uuid.New().String()[:32],
		StaffID:  req.StaffID,
		RoleType: req.RoleType,
		Category: req.Category,
		UserUnit: req.UserUnit,
	}
	if err := s.repos.Workflow.CreateAssignment(ctx, sa); err != nil {
		return nil, fmt.Errorf("创建分配规则失败: %w", err)
	}
	return sa, nil
}

// ListAssignments 分配规则列表
func (s *WorkflowService) ListAssignments(ctx context.Context, roleType string) ([]entity.StaffAssignment, error) {
	return s.repos.Workflow.ListAssignments(ctx, roleType)
}

// DeleteAssignment 删除分配规则
func (s *WorkflowService) DeleteAssignment(ctx context.Context, id string) error {
	err := s.repos.Workflow.DeleteAssignment(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: id=%s", ErrInvalidParam, id)
	}
	return err
}
