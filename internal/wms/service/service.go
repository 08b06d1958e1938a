package service

import (
	"errors"

	"github.com/bitfantasy/nimo-wms/internal/config"
	"github.com/bitfantasy/nimo-wms/internal/wms/repository"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 业务错误，由 handler 层映射为对应的 HTTP 状态码
var (
	ErrOrderNotFound     = errors.New("采购订单不存在")
	ErrOrderNoExists     = errors.New("采购订单号已存在")
	ErrDuplicateWorkflow = errors.New("该订单已存在进行中的工作流")
	ErrNoAssignee        = errors.New("未找到匹配的员工分配规则")
	ErrWorkflowNotFound  = errors.New("工作流实例不存在")
	ErrTaskNotFound      = errors.New("任务不存在")
	ErrTaskAlreadyDone   = errors.New("任务已处理")
	ErrNotAssignee       = errors.New("当前用户不是该任务的处理人")
	ErrInvalidParam      = errors.New("参数无效")

	ErrInventoryNotFound    = errors.New("库存记录不存在")
	ErrMaterialExists       = errors.New("该物料编码已有库存记录")
	ErrInsufficientStock    = errors.New("库存数量不足")
	ErrOutboundNotFound     = errors.New("出库单不存在")
	ErrVoucherExists        = errors.New("物料凭证已存在")
	ErrOutboundNotPending   = errors.New("出库单状态不允许该操作")
	ErrConfirmationNotFound = errors.New("确认单不存在")
	ErrConfirmationExists   = errors.New("该订单已生成确认单")
	ErrWorkflowNotDone      = errors.New("确认工作流尚未完成")
	ErrNotificationNotFound = errors.New("通知不存在")

	ErrUserNotFound       = errors.New("用户不存在")
	ErrUsernameExists     = errors.New("用户名已存在")
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrUserDisabled       = errors.New("用户已被禁用")
)

// Services WMS服务集合
type Services struct {
	Auth         *AuthService
	Order        *OrderService
	Workflow     *WorkflowService
	Inventory    *InventoryService
	Outbound     *OutboundService
	Confirmation *ConfirmationService
	Notification *NotificationService
	Dashboard    *DashboardService
}

// NewServices 创建WMS服务集合并完成内部装配
func NewServices(db *gorm.DB, repos *repository.Repositories, cfg *config.Config, logger *zap.Logger) *Services {
	notification := NewNotificationService(db, repos, logger)
	workflow := NewWorkflowService(db, repos, notification, logger)

	return &Services{
		Auth:         NewAuthService(repos.User, cfg, logger),
		Order:        NewOrderService(db, repos, logger),
		Workflow:     workflow,
		Inventory:    NewInventoryService(db, repos, logger),
		Outbound:     NewOutboundService(db, repos, logger),
		Confirmation: NewConfirmationService(db, repos, logger),
		Notification: notification,
		Dashboard:    NewDashboardService(db, repos, logger),
	}
}

// SetRedisClient 注入Redis客户端（看板缓存，可选）
func (s *Services) SetRedisClient(rdb *redis.Client) {
	s.Dashboard.SetRedisClient(rdb)
}

// SetMinioClient 注入MinIO客户端（导入文件归档，可选）
func (s *Services) SetMinioClient(mc *minio.Client, bucket string) {
	s.Order.SetMinioClient(mc, bucket)
	s.Outbound.SetMinioClient(mc, bucket)
}
