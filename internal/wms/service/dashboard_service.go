package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"github.com/bitfantasy/nimo-wms/internal/wms/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 看板缓存TTL
const dashboardCacheTTL = 60 * time.Second

// DashboardService 看板服务
type DashboardService struct {
	db     *gorm.DB
	repos  *repository.Repositories
	logger *zap.Logger
	rdb    *redis.Client
}

func NewDashboardService(db *gorm.DB, repos *repository.Repositories, logger *zap.Logger) *DashboardService {
	return &DashboardService{db: db, repos: repos, logger: logger}
}

// SetRedisClient 注入Redis客户端（缓存，可选）
func (s *DashboardService) SetRedisClient(rdb *redis.Client) {
	s.rdb = rdb
}

// LeadershipDashboard 领导看板：订单与金额全貌
type LeadershipDashboard struct {
	OrderCounts        map[string]int64 `json:"order_counts"` // 按状态
	TotalOrders        int64            `json:"total_orders"`
	MonthOrderAmount   float64          `json:"month_order_amount"`
	MonthOutboundValue float64          `json:"month_outbound_value"`
	InventoryValue     float64          `json:"inventory_value"`
	PendingWorkflows   int64            `json:"pending_workflows"`
	InspectionPassRate float64          `json:"inspection_pass_rate"` // 质检通过率，无已完成质检任务时为0
	OrderTrend         []MonthBucket    `json:"order_trend"`          // 近6个月订单趋势
}

// MonthBucket 月度订单统计
type MonthBucket struct {
	Month  string  `json:"month"`
	Count  int64   `json:"count"`
	Amount float64 `json:"amount"`
}

// GetLeadershipDashboard 领导看板数据，60秒缓存
func (s *DashboardService) GetLeadershipDashboard(ctx context.Context) (*LeadershipDashboard, error) {
	const cacheKey = "wms:dashboard:leadership"
	var cached LeadershipDashboard
	if s.getCached(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	board := &LeadershipDashboard{OrderCounts: make(map[string]int64)}

	var rows []struct {
		Status string
		Count  int64
	}
	if err := s.db.WithContext(ctx).Model(&entity.PurchaseOrder{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		board.OrderCounts[row.Status] = row.Count
		board.TotalOrders += row.Count
	}

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	nextMonth := monthStart.AddDate(0, 1, 0)

	if err := s.db.WithContext(ctx).Model(&entity.PurchaseOrder{}).
		Select("COALESCE(SUM(total_amount), 0)").
		Where("order_date >= ? AND order_date < ?", monthStart, nextMonth).
		Scan(&board.MonthOrderAmount).Error; err != nil {
		return nil, err
	}

	outValue, err := s.repos.Outbound.MonthlyAmount(ctx, monthStart, nextMonth)
	if err != nil {
		return nil, err
	}
	board.MonthOutboundValue = outValue

	invValue, err := s.repos.Inventory.TotalValue(ctx)
	if err != nil {
		return nil, err
	}
	board.InventoryValue = invValue

	if err := s.db.WithContext(ctx).Model(&entity.WorkflowInstance{}).
		Where("status IN ?", []entity.WorkflowStatus{entity.WorkflowStatusCreated, entity.WorkflowStatusRunning}).
		Count(&board.PendingWorkflows).Error; err != nil {
		return nil, err
	}

	// 质检通过率：已完成的质检员确认任务中APPROVED的占比
	var inspected, passed int64
	if err := s.db.WithContext(ctx).Model(&entity.WorkflowTask{}).
		Where("task_name = ? AND status = ?", entity.TaskNameInspectorConfirm, entity.TaskStatusCompleted).
		Count(&inspected).Error; err != nil {
		return nil, err
	}
	if inspected > 0 {
		if err := s.db.WithContext(ctx).Model(&entity.WorkflowTask{}).
			Where("task_name = ? AND status = ? AND result = ?",
				entity.TaskNameInspectorConfirm, entity.TaskStatusCompleted, entity.TaskResultApproved).
			Count(&passed).Error; err != nil {
			return nil, err
		}
		board.InspectionPassRate = float64(passed) / float64(inspected)
	}

	// 近6个月订单趋势
	trendStart := monthStart.AddDate(0, -5, 0)
	if err := s.db.WithContext(ctx).Model(&entity.PurchaseOrder{}).
		Select("to_char(order_date, 'YYYY-MM') AS month, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS amount").
		Where("order_date >= ? AND order_date < ?", trendStart, nextMonth).
		Group("month").
		Order("month").
		Scan(&board.OrderTrend).Error; err != nil {
		return nil, err
	}

	s.setCached(ctx, cacheKey, board)
	return board, nil
}

// OperationDashboard 运营看板：待办与出入库动态
type OperationDashboard struct {
	PendingTasks      int64            `json:"pending_tasks"`
	OutboundCounts    map[string]int64 `json:"outbound_counts"` // 按状态
	TodayTransactions int64            `json:"today_transactions"`
	LowStockCount     int64            `json:"low_stock_count"`
	UserUnitAmounts   []UserUnitAmount `json:"user_unit_amounts"`
}

// UserUnitAmount 用户单位月度出库金额
type UserUnitAmount struct {
	UserUnit string  `json:"user_unit"`
	Amount   float64 `json:"amount"`
}

// 低库存预警阈值
const lowStockThreshold = 10

// GetOperationDashboard 运营看板数据，60秒缓存
func (s *DashboardService) GetOperationDashboard(ctx context.Context) (*OperationDashboard, error) {
	const cacheKey = "wms:dashboard:operation"
	var cached OperationDashboard
	if s.getCached(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	board := &OperationDashboard{}

	if err := s.db.WithContext(ctx).Model(&entity.WorkflowTask{}).
		Where("status = ?", entity.TaskStatusPending).
		Count(&board.PendingTasks).Error; err != nil {
		return nil, err
	}

	counts, err := s.repos.Outbound.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	board.OutboundCounts = counts

	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := s.db.WithContext(ctx).Model(&entity.InventoryTransaction{}).
		Where("transaction_time >= ?", dayStart).
		Count(&board.TodayTransactions).Error; err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&entity.Inventory{}).
		Where("quantity < ?", lowStockThreshold).
		Count(&board.LowStockCount).Error; err != nil {
		return nil, err
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	if err := s.db.WithContext(ctx).Model(&entity.OutboundOrder{}).
		Select("user_unit, COALESCE(SUM(total_amount), 0) AS amount").
		Where("status = ? AND voucher_date >= ?", entity.OutboundStatusCompleted, monthStart).
		Group("user_unit").
		Order("amount DESC").
		Limit(10).
		Scan(&board.UserUnitAmounts).Error; err != nil {
		return nil, err
	}

	s.setCached(ctx, cacheKey, board)
	return board, nil
}

// getCached 从Redis读缓存，未配置或未命中返回false
func (s *DashboardService) getCached(ctx context.Context, key string, dest interface{}) bool {
	if s.rdb == nil {
		return false
	}
	raw, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		s.logger.Warn("看板缓存解析失败", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// setCached 写Redis缓存，失败仅记日志
func (s *DashboardService) setCached(ctx context.Context, key string, val interface{}) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, key, raw, dashboardCacheTTL).Err(); err != nil {
		s.logger.Warn("看板缓存写入失败", zap.String("key", key), zap.Error(err))
	}
}
