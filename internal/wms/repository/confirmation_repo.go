package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"gorm.io/gorm"
)

// ConfirmationRepository 交付确认单仓库
type ConfirmationRepository struct {
	db *gorm.DB
}

func NewConfirmationRepository(db *gorm.DB) *ConfirmationRepository {
	return &ConfirmationRepository{db: db}
}

// FindAll 查询确认单列表
func (r *ConfirmationRepository) FindAll(ctx context.Context, page, pageSize int, status string) ([]entity.DeliveryConfirmation, int64, error) {
	var items []entity.DeliveryConfirmation
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.DeliveryConfirmation{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Order").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找确认单
func (r *ConfirmationRepository) FindByID(ctx context.Context, id string) (*entity.DeliveryConfirmation, error) {
	var conf entity.DeliveryConfirmation
	err := r.db.WithContext(ctx).
		Preload("Order").
		Preload("Order.Items").
		Where("id = ?", id).
		First(&conf).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &conf, nil
}

// FindByOrderID 根据采购订单ID查找确认单
func (r *ConfirmationRepository) FindByOrderID(ctx context.Context, orderID string) (*entity.DeliveryConfirmation, error) {
	var conf entity.DeliveryConfirmation
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&conf).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &conf, nil
}

// Create 创建确认单
func (r *ConfirmationRepository) Create(ctx context.Context, conf *entity.DeliveryConfirmation) error {
	return r.db.WithContext(ctx).Create(conf).Error
}

// Update 更新确认单
func (r *ConfirmationRepository) Update(ctx context.Context, conf *entity.DeliveryConfirmation) error {
	return r.db.WithContext(ctx).Save(conf).Error
}
