package service_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"github.com/bitfantasy/nimo-wms/internal/wms/repository"
	"github.com/bitfantasy/nimo-wms/internal/wms/service"
	"github.com/bitfantasy/nimo-wms/internal/wms/testutil"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupOrderTest(t *testing.T) (*gorm.DB, *service.OrderService) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	return db, service.NewOrderService(db, repos, zap.NewNop())
}

func TestCreateOrder(t *testing.T) {
	_, svc := setupOrderTest(t)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, service.CreateOrderReq{
		OrderNo:  "PO20250301",
		UserUnit: "生产部",
		Category: "原材料",
		Items: []service.CreateOrderItemReq{
			{MaterialCode: "M001", RequestedQuantity: 10, ContractPrice: 5},
			{MaterialCode: "M002", ContractAmount: 200},
		},
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.Status != entity.OrderStatusPending {
		t.Errorf("expected PENDING, got %s", order.Status)
	}
	if order.DeliveryType != entity.DeliveryTypeWarehouse {
		t.Errorf("delivery type should default to WAREHOUSE, got %s", order.DeliveryType)
	}
	// 行项金额：未填合同金额的按数量*单价计算
	if order.TotalAmount != 250 {
		t.Errorf("expected total 250, got %.2f", order.TotalAmount)
	}

	// 订单号重复
	_, err = svc.CreateOrder(ctx, service.CreateOrderReq{OrderNo: "PO20250301"})
	if !errors.Is(err, service.ErrOrderNoExists) {
		t.Errorf("expected ErrOrderNoExists, got %v", err)
	}

	// 未知交付类型
	_, err = svc.CreateOrder(ctx, service.CreateOrderReq{OrderNo: "PO20250302", DeliveryType: "EXPRESS"})
	if !errors.Is(err, service.ErrInvalidParam) {
		t.Errorf("expected ErrInvalidParam, got %v", err)
	}
}

func TestUpdateOrder(t *testing.T) {
	db, svc := setupOrderTest(t)
	ctx := context.Background()

	order := testutil.SeedOrder(t, db, "order-1", "PO20250303", "原材料", "生产部")

	updated, err := svc.UpdateOrder(ctx, order.ID, service.UpdateOrderReq{
		UserUnit:     "办公室",
		DeliveryType: entity.DeliveryTypeDirect,
	})
	if err != nil {
		t.Fatalf("UpdateOrder: %v", err)
	}
	if updated.UserUnit != "办公室" || updated.DeliveryType != entity.DeliveryTypeDirect {
		t.Errorf("fields not updated: %+v", updated)
	}
	// 未提供的字段保持原值
	if updated.Category != "原材料" {
		t.Errorf("category should be untouched, got %s", updated.Category)
	}

	_, err = svc.UpdateOrder(ctx, "no-such-id", service.UpdateOrderReq{UserUnit: "x"})
	if !errors.Is(err, service.ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got %v", err)
	}
}

// buildOrderImportFile 构造采购订单导入模板格式的Excel
func buildOrderImportFile(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	header := []interface{}{
		"订单号", "计划编号", "用户单位", "大类", "订单日期", "供应商名称", "供应商代码",
		"物料组", "一级产品", "工厂", "行项目号", "物料编码", "物料描述", "单位", "数量", "单价",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		t.Fatalf("write header: %v", err)
	}
	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("write row %d: %v", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf
}

func TestImportExcel(t *testing.T) {
	db, svc := setupOrderTest(t)
	ctx := context.Background()

	buf := buildOrderImportFile(t, [][]interface{}{
		// 同一订单号两行，合并为一个订单的两个行项
		{"PO20250310", "PL001", "生产部", "原材料", "2025-03-01", "供应商A", "S001",
			"MG1", "P1", "F1", "10", "M001", "螺栓", "个", "100", "2.5"},
		{"PO20250310", "PL001", "生产部", "原材料", "2025-03-01", "供应商A", "S001",
			"MG1", "P1", "F1", "20", "M002", "螺母", "个", "200", "1.5"},
		{"PO20250311", "PL002", "办公室", "办公用品", "2025-03-02", "供应商B", "S002",
			"MG2", "P2", "F1", "10", "M003", "打印纸", "箱", "10", "30"},
		// 有订单号但缺物料编码，记为错误行
		{"PO20250312", "", "", "", "", "", "", "", "", "", "", "", "", "", "", ""},
	})

	result, err := svc.ImportExcel(ctx, "orders.xlsx", buf, "op-1")
	if err != nil {
		t.Fatalf("ImportExcel: %v", err)
	}
	if result.Total != 2 || result.Created != 2 || result.Skipped != 0 {
		t.Errorf("unexpected result %+v", result)
	}
	if len(result.Errors) != 1 {
		t.Errorf("expected 1 error row, got %v", result.Errors)
	}

	var order entity.PurchaseOrder
	if err := db.Preload("Items").Where("order_no = ?", "PO20250310").First(&order).Error; err != nil {
		t.Fatalf("imported order not found: %v", err)
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(order.Items))
	}
	if order.TotalAmount != 550 {
		t.Errorf("expected total 550, got %.2f", order.TotalAmount)
	}
	if order.OrderDate == nil {
		t.Error("order date should be parsed")
	}
	if order.Status != entity.OrderStatusPending || order.DeliveryType != entity.DeliveryTypeWarehouse {
		t.Errorf("unexpected defaults %s/%s", order.Status, order.DeliveryType)
	}

	// 重新导入：已存在的订单号整单跳过
	buf = buildOrderImportFile(t, [][]interface{}{
		{"PO20250310", "PL001", "生产部", "原材料", "2025-03-01", "供应商A", "S001",
			"MG1", "P1", "F1", "10", "M001", "螺栓", "个", "100", "2.5"},
	})
	result, err = svc.ImportExcel(ctx, "orders.xlsx", buf, "op-1")
	if err != nil {
		t.Fatalf("ImportExcel reimport: %v", err)
	}
	if result.Skipped != 1 || result.Created != 0 {
		t.Errorf("expected skip on reimport, got %+v", result)
	}
}

func TestImportExcelEmpty(t *testing.T) {
	_, svc := setupOrderTest(t)
	ctx := context.Background()

	buf := buildOrderImportFile(t, nil)
	_, err := svc.ImportExcel(ctx, "empty.xlsx", buf, "op-1")
	if !errors.Is(err, service.ErrInvalidParam) {
		t.Errorf("expected ErrInvalidParam for empty file, got %v", err)
	}
}
