package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"github.com/bitfantasy/nimo-wms/internal/wms/repository"
	"github.com/bitfantasy/nimo-wms/internal/wms/service"
	"github.com/bitfantasy/nimo-wms/internal/wms/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupOutboundTest(t *testing.T) (*gorm.DB, *service.OutboundService) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	return db, service.NewOutboundService(db, repos, zap.NewNop())
}

func seedInventory(t *testing.T, db *gorm.DB, materialCode string, quantity, unitPrice float64) *entity.Inventory {
	t.Helper()
	inv := &entity.Inventory{
		ID:           "inv-" + materialCode,
		MaterialCode: materialCode,
		Category:     "原材料",
		Unit:         "个",
		Quantity:     quantity,
		UnitPrice:    unitPrice,
		TotalValue:   quantity * unitPrice,
	}
	if err := db.Create(inv).Error; err != nil {
		t.Fatalf("Failed to seed inventory: %v", err)
	}
	return inv
}

func TestCreateOutbound(t *testing.T) {
	_, svc := setupOutboundTest(t)
	ctx := context.Background()

	req := service.CreateOutboundReq{
		MaterialVoucher: "MV20250001",
		Department:      "仓储部",
		UserUnit:        "生产部",
		Items: []service.CreateOutboundItemReq{
			{MaterialCode: "M001", ActualQuantity: 10, OutboundPrice: 5},
			{MaterialCode: "M002", ActualQuantity: 2, OutboundPrice: 100},
		},
	}

	order, err := svc.CreateOutbound(ctx, req, "op-1")
	if err != nil {
		t.Fatalf("CreateOutbound: %v", err)
	}
	if order.Status != entity.OutboundStatusPending {
		t.Errorf("expected PENDING, got %s", order.Status)
	}
	if order.TotalAmount != 250 {
		t.Errorf("expected total 250, got %.2f", order.TotalAmount)
	}
	if len(order.Items) != 2 || order.Items[0].OutboundAmount != 50 {
		t.Errorf("item amounts not computed: %+v", order.Items)
	}

	// 物料凭证重复
	_, err = svc.CreateOutbound(ctx, req, "op-1")
	if !errors.Is(err, service.ErrVoucherExists) {
		t.Errorf("expected ErrVoucherExists, got %v", err)
	}

	// 无行项
	_, err = svc.CreateOutbound(ctx, service.CreateOutboundReq{
		MaterialVoucher: "MV20250002", Department: "仓储部", UserUnit: "生产部",
	}, "op-1")
	if !errors.Is(err, service.ErrInvalidParam) {
		t.Errorf("expected ErrInvalidParam for empty items, got %v", err)
	}
}

func TestCompleteOutboundDeductsStock(t *testing.T) {
	db, svc := setupOutboundTest(t)
	ctx := context.Background()

	seedInventory(t, db, "M001", 100, 5)

	order, err := svc.CreateOutbound(ctx, service.CreateOutboundReq{
		MaterialVoucher: "MV20250010",
		Department:      "仓储部",
		UserUnit:        "生产部",
		Items: []service.CreateOutboundItemReq{
			{MaterialCode: "M001", ActualQuantity: 30, OutboundPrice: 5},
		},
	}, "op-1")
	if err != nil {
		t.Fatalf("CreateOutbound: %v", err)
	}

	completed, err := svc.Complete(ctx, order.ID, "op-1")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if completed.Status != entity.OutboundStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", completed.Status)
	}
	if completed.IssueDate == nil {
		t.Error("issue date should be set on completion")
	}

	var inv entity.Inventory
	db.Where("material_code = ?", "M001").First(&inv)
	if inv.Quantity != 70 {
		t.Errorf("expected quantity 70 after deduction, got %.2f", inv.Quantity)
	}
	if inv.TotalValue != 350 {
		t.Errorf("expected total value 350, got %.2f", inv.TotalValue)
	}

	var txn entity.InventoryTransaction
	if err := db.Where("reference_no = ?", "MV20250010").First(&txn).Error; err != nil {
		t.Fatalf("outbound transaction not recorded: %v", err)
	}
	if txn.TransactionType != entity.TransactionTypeOutbound || txn.Quantity != -30 {
		t.Errorf("unexpected transaction %s/%.2f", txn.TransactionType, txn.Quantity)
	}

	// 已完成的出库单不能再次完成
	_, err = svc.Complete(ctx, order.ID, "op-1")
	if !errors.Is(err, service.ErrOutboundNotPending) {
		t.Errorf("expected ErrOutboundNotPending, got %v", err)
	}
}

func TestCompleteOutboundBlocksOverdraw(t *testing.T) {
	db, svc := setupOutboundTest(t)
	ctx := context.Background()

	seedInventory(t, db, "M001", 100, 5)

	var orders []*entity.OutboundOrder
	for _, voucher := range []string{"MV20250050", "MV20250051"} {
		order, err := svc.CreateOutbound(ctx, service.CreateOutboundReq{
			MaterialVoucher: voucher,
			Department:      "仓储部",
			UserUnit:        "生产部",
			Items: []service.CreateOutboundItemReq{
				{MaterialCode: "M001", ActualQuantity: 70, OutboundPrice: 5},
			},
		}, "op-1")
		if err != nil {
			t.Fatalf("CreateOutbound %s: %v", voucher, err)
		}
		orders = append(orders, order)
	}

	// 两张出库单合计超出库存，第二张必须在余量校验处失败
	if _, err := svc.Complete(ctx, orders[0].ID, "op-1"); err != nil {
		t.Fatalf("Complete first: %v", err)
	}
	_, err := svc.Complete(ctx, orders[1].ID, "op-1")
	if !errors.Is(err, service.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	var inv entity.Inventory
	db.Where("material_code = ?", "M001").First(&inv)
	if inv.Quantity != 30 {
		t.Errorf("expected quantity 30 after single draw, got %.2f", inv.Quantity)
	}

	var txns int64
	db.Model(&entity.InventoryTransaction{}).Count(&txns)
	if txns != 1 {
		t.Errorf("expected 1 outbound transaction, got %d", txns)
	}

	var reloaded entity.OutboundOrder
	db.Where("id = ?", orders[1].ID).First(&reloaded)
	if reloaded.Status != entity.OutboundStatusPending {
		t.Errorf("second order should stay PENDING, got %s", reloaded.Status)
	}
}

func TestCompleteOutboundInsufficientStockRollsBack(t *testing.T) {
	db, svc := setupOutboundTest(t)
	ctx := context.Background()

	seedInventory(t, db, "M001", 100, 5)
	seedInventory(t, db, "M002", 1, 100)

	// 第一行项库存充足，第二行项不足，整单必须回滚
	order, err := svc.CreateOutbound(ctx, service.CreateOutboundReq{
		MaterialVoucher: "MV20250020",
		Department:      "仓储部",
		UserUnit:        "生产部",
		Items: []service.CreateOutboundItemReq{
			{MaterialCode: "M001", ActualQuantity: 10, OutboundPrice: 5},
			{MaterialCode: "M002", ActualQuantity: 5, OutboundPrice: 100},
		},
	}, "op-1")
	if err != nil {
		t.Fatalf("CreateOutbound: %v", err)
	}

	_, err = svc.Complete(ctx, order.ID, "op-1")
	if !errors.Is(err, service.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	var inv entity.Inventory
	db.Where("material_code = ?", "M001").First(&inv)
	if inv.Quantity != 100 {
		t.Errorf("M001 deduction should be rolled back, got %.2f", inv.Quantity)
	}

	var txns int64
	db.Model(&entity.InventoryTransaction{}).Count(&txns)
	if txns != 0 {
		t.Errorf("expected no transactions after rollback, got %d", txns)
	}

	var reloaded entity.OutboundOrder
	db.Where("id = ?", order.ID).First(&reloaded)
	if reloaded.Status != entity.OutboundStatusPending {
		t.Errorf("order should stay PENDING, got %s", reloaded.Status)
	}

	// 无库存记录的物料
	order2, err := svc.CreateOutbound(ctx, service.CreateOutboundReq{
		MaterialVoucher: "MV20250021",
		Department:      "仓储部",
		UserUnit:        "生产部",
		Items: []service.CreateOutboundItemReq{
			{MaterialCode: "M999", ActualQuantity: 1, OutboundPrice: 1},
		},
	}, "op-1")
	if err != nil {
		t.Fatalf("CreateOutbound: %v", err)
	}
	_, err = svc.Complete(ctx, order2.ID, "op-1")
	if !errors.Is(err, service.ErrInventoryNotFound) {
		t.Errorf("expected ErrInventoryNotFound, got %v", err)
	}
}

func TestDeleteOutboundWritesAudit(t *testing.T) {
	db, svc := setupOutboundTest(t)
	ctx := context.Background()

	order, err := svc.CreateOutbound(ctx, service.CreateOutboundReq{
		MaterialVoucher: "MV20250030",
		Department:      "仓储部",
		UserUnit:        "办公室",
		Items: []service.CreateOutboundItemReq{
			{MaterialCode: "M001", ActualQuantity: 3, OutboundPrice: 7},
		},
	}, "op-1")
	if err != nil {
		t.Fatalf("CreateOutbound: %v", err)
	}

	if err := svc.Delete(ctx, order.ID, "录入错误", "op-2"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	// 出库单及行项已删除
	if _, err := svc.GetOutbound(ctx, order.ID); !errors.Is(err, service.ErrOutboundNotFound) {
		t.Errorf("expected ErrOutboundNotFound after delete, got %v", err)
	}
	var items int64
	db.Model(&entity.OutboundItem{}).Where("outbound_id = ?", order.ID).Count(&items)
	if items != 0 {
		t.Errorf("expected items removed, got %d", items)
	}

	// 审计记录保留整单快照
	records, total, err := svc.ListDeleted(ctx, 1, 20)
	if err != nil {
		t.Fatalf("ListDeleted: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected 1 deleted record, got %d", total)
	}
	record := records[0]
	if record.OriginalID != order.ID || record.MaterialVoucher != "MV20250030" {
		t.Errorf("unexpected audit record %+v", record)
	}
	if record.DeleteReason != "录入错误" || record.OperatorID != "op-2" {
		t.Errorf("audit metadata not recorded: %+v", record)
	}

	var snapshot []entity.OutboundItem
	if err := json.Unmarshal(record.ItemsData, &snapshot); err != nil {
		t.Fatalf("items snapshot not valid JSON: %v", err)
	}
	if len(snapshot) != 1 || snapshot[0].MaterialCode != "M001" {
		t.Errorf("unexpected items snapshot %+v", snapshot)
	}

	// 重复删除
	if err := svc.Delete(ctx, order.ID, "again", "op-2"); !errors.Is(err, service.ErrOutboundNotFound) {
		t.Errorf("expected ErrOutboundNotFound on double delete, got %v", err)
	}
}

func TestBatchDeleteOutbound(t *testing.T) {
	_, svc := setupOutboundTest(t)
	ctx := context.Background()

	var ids []string
	for _, voucher := range []string{"MV20250040", "MV20250041"} {
		order, err := svc.CreateOutbound(ctx, service.CreateOutboundReq{
			MaterialVoucher: voucher,
			Department:      "仓储部",
			UserUnit:        "办公室",
			Items: []service.CreateOutboundItemReq{
				{MaterialCode: "M001", ActualQuantity: 1, OutboundPrice: 1},
			},
		}, "op-1")
		if err != nil {
			t.Fatalf("CreateOutbound %s: %v", voucher, err)
		}
		ids = append(ids, order.ID)
	}

	// 混入一个不存在的ID，其余照常删除
	result, err := svc.BatchDelete(ctx, append(ids, "no-such-id"), "清理", "op-1")
	if err != nil {
		t.Fatalf("BatchDelete: %v", err)
	}
	if result.Deleted != 2 {
		t.Errorf("expected 2 deleted, got %d", result.Deleted)
	}
	if len(result.Errors) != 1 {
		t.Errorf("expected 1 error entry, got %v", result.Errors)
	}

	_, total, err := svc.ListDeleted(ctx, 1, 20)
	if err != nil {
		t.Fatalf("ListDeleted: %v", err)
	}
	if total != 2 {
		t.Errorf("expected 2 audit records, got %d", total)
	}
}
