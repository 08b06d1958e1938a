package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InventoryRepository 库存仓库
type InventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// FindAll 查询库存列表
func (r *InventoryRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Inventory, int64, error) {
	var items []entity.Inventory
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Inventory{})

	if category := filters["category"]; category != "" {
		query = query.Where("category = ?", category)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("material_code ILIKE ? OR material_description ILIKE ?",
			"%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("material_code").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找库存
func (r *InventoryRepository) FindByID(ctx context.Context, id string) (*entity.Inventory, error) {
	var inv entity.Inventory
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// FindByMaterialCode 根据物料编码查找库存
func (r *InventoryRepository) FindByMaterialCode(ctx context.Context, code string) (*entity.Inventory, error) {
	var inv entity.Inventory
	err := r.db.WithContext(ctx).Where("material_code = ?", code).First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// LockByMaterialCode 以 FOR UPDATE 锁定物料库存行，串行化并发扣减
func (r *InventoryRepository) LockByMaterialCode(tx *gorm.DB, code string) (*entity.Inventory, error) {
	var inv entity.Inventory
	err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("material_code = ?", code).
		First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// Create 创建库存记录
func (r *InventoryRepository) Create(ctx context.Context, inv *entity.Inventory) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

// Update 更新库存记录
func (r *InventoryRepository) Update(ctx context.Context, inv *entity.Inventory) error {
	return r.db.WithContext(ctx).Save(inv).Error
}

// CreateTransaction 创建库存事务记录
func (r *InventoryRepository) CreateTransaction(ctx context.Context, txn *entity.InventoryTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

// FindTransactions 查询库存事务列表
func (r *InventoryRepository) FindTransactions(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.InventoryTransaction, int64, error) {
	var items []entity.InventoryTransaction
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.InventoryTransaction{})

	if invID := filters["inventory_id"]; invID != "" {
		query = query.Where("inventory_id = ?", invID)
	}
	if txnType := filters["transaction_type"]; txnType != "" {
		query = query.Where("transaction_type = ?", txnType)
	}
	if refNo := filters["reference_no"]; refNo != "" {
		query = query.Where("reference_no = ?", refNo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Inventory").
		Order("transaction_time DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// TotalValue 库存总价值
func (r *InventoryRepository) TotalValue(ctx context.Context) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).Model(&entity.Inventory{}).
		Select("COALESCE(SUM(total_value), 0)").
		Scan(&total).Error
	return total, err
}
