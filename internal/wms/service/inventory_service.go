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

// InventoryService 库存服务
type InventoryService struct {
	db     *gorm.DB
	repos  *repository.Repositories
	logger *zap.Logger
}

func NewInventoryService(db *gorm.DB, repos *repository.Repositories, logger *zap.Logger) *InventoryService {
	return &InventoryService{db: db, repos: repos, logger: logger}
}

// ListInventory 库存列表
func (s *InventoryService) ListInventory(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Inventory, int64, error) {
	return s.repos.Inventory.FindAll(ctx, page, pageSize, filters)
}

// GetInventory 库存详情
func (s *InventoryService) GetInventory(ctx context.Context, id string) (*entity.Inventory, error) {
	inv, err := s.repos.Inventory.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInventoryNotFound
	}
	return inv, err
}

// ListTransactions 库存事务列表
func (s *InventoryService) ListTransactions(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.InventoryTransaction, int64, error) {
	return s.repos.Inventory.FindTransactions(ctx, page, pageSize, filters)
}

// CreateInventoryReq 新建库存记录参数
type CreateInventoryReq struct {
	MaterialCode        string  `json:"material_code" binding:"required"`
	MaterialDescription string  `json:"material_description"`
	Category            string  `json:"category"`
	Unit                string  `json:"unit"`
	Quantity            float64 `json:"quantity"`
	Location            string  `json:"location"`
	UnitPrice           float64 `json:"unit_price"`
	Remark              string  `json:"remark"`
}

// CreateInventory 新建库存记录，初始数量记一条INBOUND事务
func (s *InventoryService) CreateInventory(ctx context.Context, req CreateInventoryReq, operatorID string) (*entity.Inventory, error) {
	if req.Quantity < 0 {
		return nil, fmt.Errorf("%w: 初始数量不能为负", ErrInvalidParam)
	}
	if _, err := s.repos.Inventory.FindByMaterialCode(ctx, req.MaterialCode); err == nil {
		return nil, ErrMaterialExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	inv := &entity.Inventory{
		ID:                  uuid.New().String()[:32],
		MaterialCode:        req.MaterialCode,
		MaterialDescription: req.MaterialDescription,
		Category:            req.Category,
		Unit:                req.Unit,
		Quantity:            req.Quantity,
		Location:            req.Location,
		UnitPrice:           req.UnitPrice,
		TotalValue:          req.Quantity * req.UnitPrice,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(inv).Error; err != nil {
			return fmt.Errorf("创建库存记录失败: %w", err)
		}
		if inv.Quantity == 0 {
			return nil
		}
		txn := entity.InventoryTransaction{
			ID:              uuid.New().String()[:32],
			InventoryID:     inv.ID,
			TransactionType: entity.TransactionTypeInbound,
			Quantity:        inv.Quantity,
			TransactionTime: time.Now(),
			OperatorID:      operatorID,
			Remark:          req.Remark,
		}
		return tx.Create(&txn).Error
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// AdjustReq 库存调整参数
type AdjustReq struct {
	MaterialCode string  `json:"material_code" binding:"required"`
	Quantity     float64 `json:"quantity" binding:"required"` // 调整量，正为增负为减
	Remark       string  `json:"remark"`
}

// Adjust 人工调整库存，记一条ADJUSTMENT事务
func (s *InventoryService) Adjust(ctx context.Context, req AdjustReq, operatorID string) (*entity.Inventory, error) {
	var result *entity.Inventory
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 锁定库存行，避免并发调整丢失更新
		inv, err := s.repos.Inventory.LockByMaterialCode(tx, req.MaterialCode)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrInventoryNotFound
			}
			return err
		}

		newQty := inv.Quantity + req.Quantity
		if newQty < 0 {
			return fmt.Errorf("%w: 物料 %s 当前 %.2f, 调整 %.2f",
				ErrInsufficientStock, req.MaterialCode, inv.Quantity, req.Quantity)
		}

		inv.Quantity = newQty
		inv.TotalValue = newQty * inv.UnitPrice
		if err := tx.Save(inv).Error; err != nil {
			return fmt.Errorf("更新库存失败: %w", err)
		}

		txn := entity.InventoryTransaction{
			ID:              uuid.New().String()[:32],
			InventoryID:     inv.ID,
			TransactionType: entity.TransactionTypeAdjustment,
			Quantity:        req.Quantity,
			TransactionTime: time.Now(),
			OperatorID:      operatorID,
			Remark:          req.Remark,
		}
		if err := tx.Create(&txn).Error; err != nil {
			return fmt.Errorf("创建库存事务失败: %w", err)
		}

		result = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("库存已调整",
		zap.String("material_code", req.MaterialCode),
		zap.Float64("delta", req.Quantity),
		zap.String("operator", operatorID))
	return result, nil
}

// InboundOrder 将已确认的入库类采购订单收入库存。
// 按物料编码合并，已有库存累加数量并重算总值，没有的新建记录，
// 每个行项记一条INBOUND事务，完成后订单置为已完成。
func (s *InventoryService) InboundOrder(ctx context.Context, orderID, operatorID string) error {
	order, err := s.repos.Order.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrOrderNotFound
		}
		return err
	}
	if order.Status != entity.OrderStatusConfirmed {
		return fmt.Errorf("%w: 订单状态为 %s", ErrInvalidParam, order.Status)
	}
	if order.DeliveryType != entity.DeliveryTypeWarehouse {
		return fmt.Errorf("%w: 直达订单不入库", ErrInvalidParam)
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range order.Items {
			// 已有库存行先锁定再累加，避免并发入库丢失更新
			inv, err := s.repos.Inventory.LockByMaterialCode(tx, item.MaterialCode)
			switch {
			case errors.Is(err, repository.ErrNotFound):
				inv = &entity.Inventory{
					ID:                  uuid.New().String()[:32],
					MaterialCode:        item.MaterialCode,
					MaterialDescription: item.MaterialDescription,
					Category:            order.Category,
					Unit:                item.Unit,
					Quantity:            item.RequestedQuantity,
					UnitPrice:           item.ContractPrice,
					TotalValue:          item.RequestedQuantity * item.ContractPrice,
				}
				if err := tx.Create(inv).Error; err != nil {
					return fmt.Errorf("创建库存记录失败: %w", err)
				}
			case err != nil:
				return err
			default:
				inv.Quantity += item.RequestedQuantity
				if item.ContractPrice > 0 {
					inv.UnitPrice = item.ContractPrice
				}
				inv.TotalValue = inv.Quantity * inv.UnitPrice
				if err := tx.Save(inv).Error; err != nil {
					return fmt.Errorf("更新库存失败: %w", err)
				}
			}

			txn := entity.InventoryTransaction{
				ID:              uuid.New().String()[:32],
				InventoryID:     inv.ID,
				TransactionType: entity.TransactionTypeInbound,
				Quantity:        item.RequestedQuantity,
				TransactionTime: now,
				ReferenceNo:     order.OrderNo,
				ReferenceType:   "PURCHASE_ORDER",
				OperatorID:      operatorID,
			}
			if err := tx.Create(&txn).Error; err != nil {
				return fmt.Errorf("创建库存事务失败: %w", err)
			}
		}

		return tx.Model(&entity.PurchaseOrder{}).
			Where("id = ?", order.ID).
			Updates(map[string]interface{}{
				"status":     entity.OrderStatusCompleted,
				"updated_at": now,
			}).Error
	})
	if err != nil {
		return err
	}

	s.logger.Info("采购订单已入库",
		zap.String("order_no", order.OrderNo),
		zap.Int("items", len(order.Items)),
		zap.String("operator", operatorID))
	return nil
}
