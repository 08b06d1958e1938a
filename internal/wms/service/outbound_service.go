package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"github.com/bitfantasy/nimo-wms/internal/wms/repository"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OutboundService 出库单服务
type OutboundService struct {
	db     *gorm.DB
	repos  *repository.Repositories
	logger *zap.Logger

	minioClient *minio.Client
	minioBucket string
}

func NewOutboundService(db *gorm.DB, repos *repository.Repositories, logger *zap.Logger) *OutboundService {
	return &OutboundService{db: db, repos: repos, logger: logger}
}

// SetMinioClient 注入MinIO客户端（导入文件归档，可选）
func (s *OutboundService) SetMinioClient(mc *minio.Client, bucket string) {
	s.minioClient = mc
	s.minioBucket = bucket
}

// ListOutbounds 出库单列表
func (s *OutboundService) ListOutbounds(ctx context.Context, page, pageSize int, f repository.OutboundFilters) ([]entity.OutboundOrder, int64, error) {
	return s.repos.Outbound.FindAll(ctx, page, pageSize, f)
}

// GetOutbound 出库单详情（含行项）
func (s *OutboundService) GetOutbound(ctx context.Context, id string) (*entity.OutboundOrder, error) {
	order, err := s.repos.Outbound.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrOutboundNotFound
	}
	return order, err
}

// CreateOutboundItemReq 创建出库行项参数
type CreateOutboundItemReq struct {
	MaterialCode         string  `json:"material_code" binding:"required"`
	MaterialDescription  string  `json:"material_description"`
	Unit                 string  `json:"unit"`
	ActualQuantity       float64 `json:"actual_quantity" binding:"required"`
	OutboundPrice        float64 `json:"outbound_price"`
	MaterialCategoryCode string  `json:"material_category_code"`
	ProjectCode          string  `json:"project_code"`
	RequestedQuantity    float64 `json:"requested_quantity"`
	PurchaseOrderNo      string  `json:"purchase_order_no"`
	Remark               string  `json:"remark"`
}

// CreateOutboundReq 创建出库单参数
type CreateOutboundReq struct {
	MaterialVoucher   string                  `json:"material_voucher" binding:"required"`
	VoucherDate       *time.Time              `json:"voucher_date"`
	Department        string                  `json:"department" binding:"required"`
	UserUnit          string                  `json:"user_unit" binding:"required"`
	DocumentType      string                  `json:"document_type"`
	SalesAmount       float64                 `json:"sales_amount"`
	TransferOrder     string                  `json:"transfer_order"`
	ManagementFeeRate float64                 `json:"management_fee_rate"`
	MaterialCategory  string                  `json:"material_category"`
	Items             []CreateOutboundItemReq `json:"items" binding:"required"`
}

// CreateOutbound 创建出库单（含行项），物料凭证唯一
func (s *OutboundService) CreateOutbound(ctx context.Context, req CreateOutboundReq, operatorID string) (*entity.OutboundOrder, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: 出库单至少需要一个行项", ErrInvalidParam)
	}

	exists, err := s.repos.Outbound.ExistsByMaterialVoucher(ctx, req.MaterialVoucher)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrVoucherExists
	}

	order := &entity.OutboundOrder{
		ID:                uuid.New().String()[:32],
		MaterialVoucher:   req.MaterialVoucher,
		VoucherDate:       req.VoucherDate,
		Department:        req.Department,
		UserUnit:          req.UserUnit,
		DocumentType:      req.DocumentType,
		SalesAmount:       req.SalesAmount,
		TransferOrder:     req.TransferOrder,
		ManagementFeeRate: req.ManagementFeeRate,
		MaterialCategory:  req.MaterialCategory,
		Status:            entity.OutboundStatusPending,
		OperatorID:        operatorID,
	}

	var total float64
	for _, it := range req.Items {
		amount := it.ActualQuantity * it.OutboundPrice
		total += amount
		order.Items = append(order.Items, entity.OutboundItem{
			ID:                   uuid.New().String()[:32],
			OutboundID:           order.ID,
			MaterialCode:         it.MaterialCode,
			MaterialDescription:  it.MaterialDescription,
			Unit:                 it.Unit,
			ActualQuantity:       it.ActualQuantity,
			OutboundPrice:        it.OutboundPrice,
			MaterialCategoryCode: it.MaterialCategoryCode,
			ProjectCode:          it.ProjectCode,
			RequestedQuantity:    it.RequestedQuantity,
			OutboundAmount:       amount,
			PurchaseOrderNo:      it.PurchaseOrderNo,
			Remark:               it.Remark,
		})
	}
	order.TotalAmount = total

	if err := s.repos.Outbound.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("创建出库单失败: %w", err)
	}
	return order, nil
}

// Complete 完成出库：逐行项扣减库存并记OUTBOUND事务，整单一个事务，
// 任一物料缺库存则全部回滚。
func (s *OutboundService) Complete(ctx context.Context, id, operatorID string) (*entity.OutboundOrder, error) {
	order, err := s.repos.Outbound.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOutboundNotFound
		}
		return nil, err
	}
	if order.Status != entity.OutboundStatusPending && order.Status != entity.OutboundStatusProcessing {
		return nil, fmt.Errorf("%w: 当前状态为 %s", ErrOutboundNotPending, order.Status)
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range order.Items {
			// 锁定库存行，并发完成出库时余量校验不会基于同一快照
			inv, err := s.repos.Inventory.LockByMaterialCode(tx, item.MaterialCode)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return fmt.Errorf("%w: 物料 %s 无库存记录", ErrInventoryNotFound, item.MaterialCode)
				}
				return err
			}
			if inv.Quantity < item.ActualQuantity {
				return fmt.Errorf("%w: 物料 %s 库存 %.2f, 需出库 %.2f",
					ErrInsufficientStock, item.MaterialCode, inv.Quantity, item.ActualQuantity)
			}

			inv.Quantity -= item.ActualQuantity
			inv.TotalValue = inv.Quantity * inv.UnitPrice
			if err := tx.Save(inv).Error; err != nil {
				return fmt.Errorf("更新库存失败: %w", err)
			}

			txn := entity.InventoryTransaction{
				ID:              uuid.New().String()[:32],
				TransactionType: entity.TransactionTypeOutbound,
				InventoryID:     inv.ID,
				Quantity:        -item.ActualQuantity,
				TransactionTime: now,
				ReferenceNo:     order.MaterialVoucher,
				ReferenceType:   "OUTBOUND_ORDER",
				OperatorID:      operatorID,
			}
			if err := tx.Create(&txn).Error; err != nil {
				return fmt.Errorf("创建库存事务失败: %w", err)
			}
		}

		return tx.Model(&entity.OutboundOrder{}).
			Where("id = ?", order.ID).
			Updates(map[string]interface{}{
				"status":     entity.OutboundStatusCompleted,
				"issue_date": now,
				"updated_at": now,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	order.Status = entity.OutboundStatusCompleted
	order.IssueDate = &now
	s.logger.Info("出库单已完成",
		zap.String("material_voucher", order.MaterialVoucher),
		zap.Int("items", len(order.Items)),
		zap.String("operator", operatorID))
	return order, nil
}

// Delete 删除出库单，删除前将整单连同行项快照写入审计表
func (s *OutboundService) Delete(ctx context.Context, id, reason, operatorID string) error {
	order, err := s.repos.Outbound.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrOutboundNotFound
		}
		return err
	}

	itemsData, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("序列化行项快照失败: %w", err)
	}

	record := &entity.DeletedOutboundRecord{
		ID:               uuid.New().String()[:32],
		OriginalID:       order.ID,
		MaterialVoucher:  order.MaterialVoucher,
		VoucherDate:      order.VoucherDate,
		Department:       order.Department,
		UserUnit:         order.UserUnit,
		DocumentType:     order.DocumentType,
		TotalAmount:      order.TotalAmount,
		MaterialCategory: order.MaterialCategory,
		Status:           string(order.Status),
		DeleteTime:       time.Now(),
		DeleteReason:     reason,
		ItemsData:        itemsData,
		OperatorID:       operatorID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repos.Outbound.CreateDeletedRecord(tx, record); err != nil {
			return fmt.Errorf("写入删除审计记录失败: %w", err)
		}
		return s.repos.Outbound.Delete(tx, order.ID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("出库单已删除",
		zap.String("material_voucher", order.MaterialVoucher),
		zap.String("reason", reason),
		zap.String("operator", operatorID))
	return nil
}

// BatchDeleteResult 批量删除结果
type BatchDeleteResult struct {
	Deleted int      `json:"deleted"`
	Errors  []string `json:"errors,omitempty"`
}

// BatchDelete 批量删除出库单，逐单独立事务，单个失败不影响其余
func (s *OutboundService) BatchDelete(ctx context.Context, ids []string, reason, operatorID string) (*BatchDeleteResult, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: ids 不能为空", ErrInvalidParam)
	}

	result := &BatchDeleteResult{}
	for _, id := range ids {
		if err := s.Delete(ctx, id, reason, operatorID); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", id, err))
			continue
		}
		result.Deleted++
	}
	return result, nil
}

// ListDeleted 删除审计记录列表
func (s *OutboundService) ListDeleted(ctx context.Context, page, pageSize int) ([]entity.DeletedOutboundRecord, int64, error) {
	return s.repos.Outbound.FindDeletedRecords(ctx, page, pageSize)
}

// 出库单导入模板列序（首行为表头）
const (
	colVoucher = iota
	colVoucherDate
	colDepartment
	colOutUserUnit
	colDocumentType
	colOutMaterialCategory
	colOutMaterialCode
	colOutMaterialDesc
	colOutUnit
	colActualQty
	colOutPrice
	colOutMinColumns
)

// ImportExcel 从Excel导入出库单。行按物料凭证分组，已存在的凭证整单跳过。
func (s *OutboundService) ImportExcel(ctx context.Context, filename string, r io.Reader, operatorID string) (*ImportResult, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("读取上传文件失败: %w", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("解析Excel失败: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: Excel中没有数据行", ErrInvalidParam)
	}

	orders := make(map[string]*entity.OutboundOrder)
	orderSeq := make([]string, 0)
	result := &ImportResult{}

	for i, row := range rows[1:] {
		rowNum := i + 2
		if len(row) < colOutMinColumns {
			padded := make([]string, colOutMinColumns)
			copy(padded, row)
			row = padded
		}

		voucher := strings.TrimSpace(row[colVoucher])
		materialCode := strings.TrimSpace(row[colOutMaterialCode])
		if voucher == "" && materialCode == "" {
			continue
		}
		if voucher == "" || materialCode == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("第%d行: 物料凭证或物料编码为空", rowNum))
			continue
		}

		order, ok := orders[voucher]
		if !ok {
			order = &entity.OutboundOrder{
				ID:               uuid.New().String()[:32],
				MaterialVoucher:  voucher,
				VoucherDate:      parseExcelDate(row[colVoucherDate]),
				Department:       strings.TrimSpace(row[colDepartment]),
				UserUnit:         strings.TrimSpace(row[colOutUserUnit]),
				DocumentType:     strings.TrimSpace(row[colDocumentType]),
				MaterialCategory: strings.TrimSpace(row[colOutMaterialCategory]),
				Status:           entity.OutboundStatusPending,
				OperatorID:       operatorID,
			}
			orders[voucher] = order
			orderSeq = append(orderSeq, voucher)
		}

		quantity := parseExcelFloat(row[colActualQty])
		price := parseExcelFloat(row[colOutPrice])
		amount := quantity * price
		order.Items = append(order.Items, entity.OutboundItem{
			ID:                  uuid.New().String()[:32],
			OutboundID:          order.ID,
			MaterialCode:        materialCode,
			MaterialDescription: strings.TrimSpace(row[colOutMaterialDesc]),
			Unit:                strings.TrimSpace(row[colOutUnit]),
			ActualQuantity:      quantity,
			OutboundPrice:       price,
			OutboundAmount:      amount,
		})
		order.TotalAmount += amount
	}

	result.Total = len(orderSeq)
	if result.Total == 0 {
		return nil, fmt.Errorf("%w: Excel中没有有效出库单", ErrInvalidParam)
	}

	for _, voucher := range orderSeq {
		order := orders[voucher]
		exists, err := s.repos.Outbound.ExistsByMaterialVoucher(ctx, voucher)
		if err != nil {
			return nil, err
		}
		if exists {
			result.Skipped++
			continue
		}
		if err := s.repos.Outbound.Create(ctx, order); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("出库单 %s 创建失败: %v", voucher, err))
			continue
		}
		result.Created++
	}

	s.archiveImportFile(ctx, "outbound-orders", filename, raw)

	s.logger.Info("出库单导入完成",
		zap.String("file", filename),
		zap.String("operator", operatorID),
		zap.Int("total", result.Total),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

// archiveImportFile 归档导入的原始文件，失败仅记日志
func (s *OutboundService) archiveImportFile(ctx context.Context, prefix, filename string, raw []byte) {
	if s.minioClient == nil {
		return
	}
	objectName := fmt.Sprintf("%s/%s_%s", prefix, time.Now().Format("20060102150405"), filename)
	_, err := s.minioClient.PutObject(ctx, s.minioBucket, objectName,
		bytes.NewReader(raw), int64(len(raw)),
		minio.PutObjectOptions{ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"})
	if err != nil {
		s.logger.Warn("导入文件归档失败", zap.String("object", objectName), zap.Error(err))
	}
}
