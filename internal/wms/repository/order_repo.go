package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"gorm.io/gorm"
)

// OrderRepository 采购订单仓库
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// OrderFilters 采购订单查询条件
type OrderFilters struct {
	Status    string
	Category  string
	UserUnit  string
	Search    string // 按订单号模糊匹配
	DateFrom  *time.Time
	DateTo    *time.Time
}

// FindAll 查询采购订单列表
func (r *OrderRepository) FindAll(ctx context.Context, page, pageSize int, f OrderFilters) ([]entity.PurchaseOrder, int64, error) {
	var items []entity.PurchaseOrder
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.PurchaseOrder{})

	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		query = query.Where("category = ?", f.Category)
	}
	if f.UserUnit != "" {
		query = query.Where("user_unit = ?", f.UserUnit)
	}
	if f.Search != "" {
		query = query.Where("order_no ILIKE ?", "%"+f.Search+"%")
	}
	if f.DateFrom != nil {
		query = query.Where("order_date >= ?", f.DateFrom)
	}
	if f.DateTo != nil {
		query = query.Where("order_date <= ?", f.DateTo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找采购订单（含行项）
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	var order entity.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindByOrderNo 根据订单号查找采购订单
func (r *OrderRepository) FindByOrderNo(ctx context.Context, orderNo string) (*entity.PurchaseOrder, error) {
	var order entity.PurchaseOrder
	err := r.db.WithContext(ctx).
		Where("order_no = ?", orderNo).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// ExistsByOrderNo 订单号是否已存在
func (r *OrderRepository) ExistsByOrderNo(ctx context.Context, orderNo string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.PurchaseOrder{}).
		Where("order_no = ?", orderNo).
		Count(&count).Error
	return count > 0, err
}

// Create 创建采购订单（含行项）
func (r *OrderRepository) Create(ctx context.Context, order *entity.PurchaseOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// Update 更新采购订单
func (r *OrderRepository) Update(ctx context.Context, order *entity.PurchaseOrder) error {
	return r.db.WithContext(ctx).Save(order).Error
}

// DistinctUserUnits 所有出现过的用户单位
func (r *OrderRepository) DistinctUserUnits(ctx context.Context) ([]string, error) {
	var units []string
	err := r.db.WithContext(ctx).Model(&entity.PurchaseOrder{}).
		Distinct("user_unit").
		Where("user_unit <> ''").
		Order("user_unit").
		Pluck("user_unit", &units).Error
	return units, err
}
