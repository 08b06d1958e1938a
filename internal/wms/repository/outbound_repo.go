package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"gorm.io/gorm"
)

// OutboundRepository 出库单仓库
type OutboundRepository struct {
	db *gorm.DB
}

func NewOutboundRepository(db *gorm.DB) *OutboundRepository {
	return &OutboundRepository{db: db}
}

// OutboundFilters 出库单查询条件
type OutboundFilters struct {
	Status   string
	UserUnit string
	Search   string // 按物料凭证模糊匹配
	DateFrom *time.Time
	DateTo   *time.Time
}

// FindAll 查询出库单列表
func (r *OutboundRepository) FindAll(ctx context.Context, page, pageSize int, f OutboundFilters) ([]entity.OutboundOrder, int64, error) {
	var items []entity.OutboundOrder
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.OutboundOrder{})

	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.UserUnit != "" {
		query = query.Where("user_unit = ?", f.UserUnit)
	}
	if f.Search != "" {
		query = query.Where("material_voucher ILIKE ?", "%"+f.Search+"%")
	}
	if f.DateFrom != nil {
		query = query.Where("voucher_date >= ?", f.DateFrom)
	}
	if f.DateTo != nil {
		query = query.Where("voucher_date <= ?", f.DateTo)
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

// FindByID 根据ID查找出库单（含行项）
func (r *OutboundRepository) FindByID(ctx context.Context, id string) (*entity.OutboundOrder, error) {
	var order entity.OutboundOrder
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

// ExistsByMaterialVoucher 物料凭证是否已存在
func (r *OutboundRepository) ExistsByMaterialVoucher(ctx context.Context, voucher string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.OutboundOrder{}).
		Where("material_voucher = ?", voucher).
		Count(&count).Error
	return count > 0, err
}

// Create 创建出库单（含行项）
func (r *OutboundRepository) Create(ctx context.Context, order *entity.OutboundOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// Update 更新出库单
func (r *OutboundRepository) Update(ctx context.Context, order *entity.OutboundOrder) error {
	return r.db.WithContext(ctx).Save(order).Error
}

// Delete 删除出库单，级联删除行项
func (r *OutboundRepository) Delete(tx *gorm.DB, id string) error {
	if err := tx.Where("outbound_id = ?", id).Delete(&entity.OutboundItem{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", id).Delete(&entity.OutboundOrder{}).Error
}

// CreateDeletedRecord 写入删除审计记录
func (r *OutboundRepository) CreateDeletedRecord(tx *gorm.DB, record *entity.DeletedOutboundRecord) error {
	return tx.Create(record).Error
}

// FindDeletedRecords 查询删除审计记录
func (r *OutboundRepository) FindDeletedRecords(ctx context.Context, page, pageSize int) ([]entity.DeletedOutboundRecord, int64, error) {
	var items []entity.DeletedOutboundRecord
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.DeletedOutboundRecord{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("delete_time DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// MonthlyAmount 指定月份的出库总金额
func (r *OutboundRepository) MonthlyAmount(ctx context.Context, from, to time.Time) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).Model(&entity.OutboundOrder{}).
		Select("COALESCE(SUM(total_amount), 0)").
		Where("status = ? AND voucher_date >= ? AND voucher_date < ?",
			entity.OutboundStatusCompleted, from, to).
		Scan(&total).Error
	return total, err
}

// CountByStatus 按状态统计出库单数量
func (r *OutboundRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&entity.OutboundOrder{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make(map[string]int64, len(rows))
	for _, row := range rows {
		result[row.Status] = row.Count
	}
	return result, nil
}
