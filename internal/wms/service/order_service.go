package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
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

// OrderService 采购订单服务
type OrderService struct {
	db     *gorm.DB
	repos  *repository.Repositories
	logger *zap.Logger

	minioClient *minio.Client
	minioBucket string
}

func NewOrderService(db *gorm.DB, repos *repository.Repositories, logger *zap.Logger) *OrderService {
	return &OrderService{db: db, repos: repos, logger: logger}
}

// SetMinioClient 注入MinIO客户端（导入文件归档，可选）
func (s *OrderService) SetMinioClient(mc *minio.Client, bucket string) {
	s.minioClient = mc
	s.minioBucket = bucket
}

// ListOrders 采购订单列表
func (s *OrderService) ListOrders(ctx context.Context, page, pageSize int, f repository.OrderFilters) ([]entity.PurchaseOrder, int64, error) {
	return s.repos.Order.FindAll(ctx, page, pageSize, f)
}

// GetOrder 采购订单详情（含行项与工作流）
func (s *OrderService) GetOrder(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	order, err := s.repos.Order.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	// 附带当前确认工作流（如有）
	if wf, err := s.repos.Workflow.FindActiveInstance(ctx, order.OrderNo, entity.WorkflowTypePurchaseConfirmation); err == nil {
		order.Workflow = wf
	}
	return order, nil
}

// CreateOrderItemReq 创建订单行项参数
type CreateOrderItemReq struct {
	LineItemNumber      string  `json:"line_item_number"`
	MaterialCode        string  `json:"material_code" binding:"required"`
	MaterialDescription string  `json:"material_description"`
	Unit                string  `json:"unit"`
	RequestedQuantity   float64 `json:"requested_quantity"`
	ContractPrice       float64 `json:"contract_price"`
	ProductStandard     string  `json:"product_standard"`
	ContractAmount      float64 `json:"contract_amount"`
	LongDescription     string  `json:"long_description"`
	PriceFlag           string  `json:"price_flag"`
}

// CreateOrderReq 创建采购订单参数
type CreateOrderReq struct {
	OrderNo           string               `json:"order_no" binding:"required"`
	PlanNumber        string               `json:"plan_number"`
	UserUnit          string               `json:"user_unit"`
	Category          string               `json:"category"`
	OrderDate         *time.Time           `json:"order_date"`
	SupplierName      string               `json:"supplier_name"`
	SupplierCode      string               `json:"supplier_code"`
	MaterialGroup     string               `json:"material_group"`
	FirstLevelProduct string               `json:"first_level_product"`
	Factory           string               `json:"factory"`
	DeliveryType      entity.DeliveryType  `json:"delivery_type"`
	Items             []CreateOrderItemReq `json:"items"`
}

// CreateOrder 创建采购订单（含行项）
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderReq) (*entity.PurchaseOrder, error) {
	exists, err := s.repos.Order.ExistsByOrderNo(ctx, req.OrderNo)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrOrderNoExists
	}

	deliveryType := req.DeliveryType
	if deliveryType == "" {
		deliveryType = entity.DeliveryTypeWarehouse
	}
	if !deliveryType.Valid() {
		return nil, fmt.Errorf("%w: delivery_type=%s", ErrInvalidParam, req.DeliveryType)
	}

	order := &entity.PurchaseOrder{
		ID:                uuid.New().String()[:32],
		OrderNo:           req.OrderNo,
		PlanNumber:        req.PlanNumber,
		UserUnit:          req.UserUnit,
		Category:          req.Category,
		OrderDate:         req.OrderDate,
		SupplierName:      req.SupplierName,
		SupplierCode:      req.SupplierCode,
		MaterialGroup:     req.MaterialGroup,
		FirstLevelProduct: req.FirstLevelProduct,
		Factory:           req.Factory,
		DeliveryType:      deliveryType,
		Status:            entity.OrderStatusPending,
	}

	var total float64
	for _, it := range req.Items {
		amount := it.ContractAmount
		if amount == 0 {
			amount = it.RequestedQuantity * it.ContractPrice
		}
		total += amount
		order.Items = append(order.Items, entity.PurchaseOrderItem{
			ID:                  uuid.New().String()[:32],
			OrderID:             order.ID,
			LineItemNumber:      it.LineItemNumber,
			MaterialCode:        it.MaterialCode,
			MaterialDescription: it.MaterialDescription,
			Unit:                it.Unit,
			RequestedQuantity:   it.RequestedQuantity,
			ContractPrice:       it.ContractPrice,
			ProductStandard:     it.ProductStandard,
			ContractAmount:      amount,
			LongDescription:     it.LongDescription,
			PriceFlag:           it.PriceFlag,
		})
	}
	order.TotalAmount = total

	if err := s.repos.Order.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("创建采购订单失败: %w", err)
	}
	return order, nil
}

// UpdateOrderReq 更新采购订单参数（零值字段不更新）
type UpdateOrderReq struct {
	UserUnit     string              `json:"user_unit"`
	Category     string              `json:"category"`
	DeliveryType entity.DeliveryType `json:"delivery_type"`
	Status       entity.OrderStatus  `json:"status"`
}

// UpdateOrder 更新采购订单
func (s *OrderService) UpdateOrder(ctx context.Context, id string, req UpdateOrderReq) (*entity.PurchaseOrder, error) {
	order, err := s.repos.Order.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if req.UserUnit != "" {
		order.UserUnit = req.UserUnit
	}
	if req.Category != "" {
		order.Category = req.Category
	}
	if req.DeliveryType != "" {
		if !req.DeliveryType.Valid() {
			return nil, fmt.Errorf("%w: delivery_type=%s", ErrInvalidParam, req.DeliveryType)
		}
		order.DeliveryType = req.DeliveryType
	}
	if req.Status != "" {
		order.Status = req.Status
	}

	if err := s.repos.Order.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("更新采购订单失败: %w", err)
	}
	return order, nil
}

// UserUnits 所有出现过的用户单位（下拉筛选用）
func (s *OrderService) UserUnits(ctx context.Context) ([]string, error) {
	return s.repos.Order.DistinctUserUnits(ctx)
}

// ImportResult 导入结果
type ImportResult struct {
	Total   int      `json:"total"`   // Excel 中识别到的订单数
	Created int      `json:"created"` // 成功创建数
	Skipped int      `json:"skipped"` // 因订单号已存在而跳过数
	Errors  []string `json:"errors,omitempty"`
}

// 采购订单导入模板列序（首行为表头）
const (
	colOrderNo = iota
	colPlanNumber
	colUserUnit
	colCategory
	colOrderDate
	colSupplierName
	colSupplierCode
	colMaterialGroup
	colFirstLevelProduct
	colFactory
	colLineItemNumber
	colMaterialCode
	colMaterialDesc
	colUnit
	colQuantity
	colPrice
	colOrderMinColumns
)

// ImportExcel 从Excel导入采购订单。行按订单号分组，同号多行合并为
// 一个订单的多个行项；已存在的订单号整单跳过。原始文件归档到MinIO。
func (s *OrderService) ImportExcel(ctx context.Context, filename string, r io.Reader, operatorID string) (*ImportResult, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("读取上传文件失败: %w", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("解析Excel失败: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: Excel中没有数据行", ErrInvalidParam)
	}

	// 按订单号分组
	orders := make(map[string]*entity.PurchaseOrder)
	orderSeq := make([]string, 0)
	result := &ImportResult{}

	for i, row := range rows[1:] {
		rowNum := i + 2
		if len(row) < colOrderMinColumns {
			// 右侧空单元格会被截断，补齐后再取值
			padded := make([]string, colOrderMinColumns)
			copy(padded, row)
			row = padded
		}

		orderNo := strings.TrimSpace(row[colOrderNo])
		materialCode := strings.TrimSpace(row[colMaterialCode])
		if orderNo == "" && materialCode == "" {
			continue
		}
		if orderNo == "" || materialCode == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("第%d行: 订单号或物料编码为空", rowNum))
			continue
		}

		order, ok := orders[orderNo]
		if !ok {
			order = &entity.PurchaseOrder{
				ID:                uuid.New().String()[:32],
				OrderNo:           orderNo,
				PlanNumber:        strings.TrimSpace(row[colPlanNumber]),
				UserUnit:          strings.TrimSpace(row[colUserUnit]),
				Category:          strings.TrimSpace(row[colCategory]),
				OrderDate:         parseExcelDate(row[colOrderDate]),
				SupplierName:      strings.TrimSpace(row[colSupplierName]),
				SupplierCode:      strings.TrimSpace(row[colSupplierCode]),
				MaterialGroup:     strings.TrimSpace(row[colMaterialGroup]),
				FirstLevelProduct: strings.TrimSpace(row[colFirstLevelProduct]),
				Factory:           strings.TrimSpace(row[colFactory]),
				DeliveryType:      entity.DeliveryTypeWarehouse,
				Status:            entity.OrderStatusPending,
			}
			orders[orderNo] = order
			orderSeq = append(orderSeq, orderNo)
		}

		quantity := parseExcelFloat(row[colQuantity])
		price := parseExcelFloat(row[colPrice])
		amount := quantity * price
		order.Items = append(order.Items, entity.PurchaseOrderItem{
			ID:                  uuid.New().String()[:32],
			OrderID:             order.ID,
			LineItemNumber:      strings.TrimSpace(row[colLineItemNumber]),
			MaterialCode:        materialCode,
			MaterialDescription: strings.TrimSpace(row[colMaterialDesc]),
			Unit:                strings.TrimSpace(row[colUnit]),
			RequestedQuantity:   quantity,
			ContractPrice:       price,
			ContractAmount:      amount,
		})
		order.TotalAmount += amount
	}

	result.Total = len(orderSeq)
	if result.Total == 0 {
		return nil, fmt.Errorf("%w: Excel中没有有效订单", ErrInvalidParam)
	}

	// 逐单创建，已存在的整单跳过
	for _, orderNo := range orderSeq {
		order := orders[orderNo]
		exists, err := s.repos.Order.ExistsByOrderNo(ctx, orderNo)
		if err != nil {
			return nil, err
		}
		if exists {
			result.Skipped++
			continue
		}
		if err := s.repos.Order.Create(ctx, order); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("订单 %s 创建失败: %v", orderNo, err))
			continue
		}
		result.Created++
	}

	s.archiveImportFile(ctx, "purchase-orders", filename, raw)

	s.logger.Info("采购订单导入完成",
		zap.String("file", filename),
		zap.String("operator", operatorID),
		zap.Int("total", result.Total),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped))

	return result, nil
}

// archiveImportFile 归档导入的原始文件，失败仅记日志不影响导入结果
func (s *OrderService) archiveImportFile(ctx context.Context, prefix, filename string, raw []byte) {
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

// parseExcelDate 解析单元格日期，支持常见格式，解析失败返回nil
func parseExcelDate(cell string) *time.Time {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	layouts := []string{"2006-01-02", "2006/01/02", "01-02-06", "1/2/06", "2006-01-02 15:04:05"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, cell); err == nil {
			return &t
		}
	}
	return nil
}

// parseExcelFloat 解析单元格数值，去掉千分位逗号，解析失败返回0
func parseExcelFloat(cell string) float64 {
	cell = strings.ReplaceAll(strings.TrimSpace(cell), ",", "")
	if cell == "" {
		return 0
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0
	}
	return v
}
