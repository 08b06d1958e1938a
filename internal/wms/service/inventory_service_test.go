package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"github.com/bitfantasy/nimo-wms/internal/wms/repository"
	"github.com/bitfantasy/nimo-wms/internal/wms/service"
	"github.com/bitfantasy/nimo-wms/internal/wms/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupInventoryTest(t *testing.T) (*gorm.DB, *service.InventoryService) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	return db, service.NewInventoryService(db, repos, zap.NewNop())
}

func TestAdjustInventory(t *testing.T) {
	db, svc := setupInventoryTest(t)
	ctx := context.Background()

	seedInventory(t, db, "M001", 50, 10)

	inv, err := svc.Adjust(ctx, service.AdjustReq{MaterialCode: "M001", Quantity: -20, Remark: "盘亏"}, "op-1")
	if err != nil {
		t.Fatalf("Adjust: %v", err)
	}
	if inv.Quantity != 30 {
		t.Errorf("expected 30 after adjustment, got %.2f", inv.Quantity)
	}
	if inv.TotalValue != 300 {
		t.Errorf("expected total value 300, got %.2f", inv.TotalValue)
	}

	var txn entity.InventoryTransaction
	if err := db.Where("inventory_id = ?", inv.ID).First(&txn).Error; err != nil {
		t.Fatalf("adjustment transaction not recorded: %v", err)
	}
	if txn.TransactionType != entity.TransactionTypeAdjustment || txn.Quantity != -20 {
		t.Errorf("unexpected transaction %s/%.2f", txn.TransactionType, txn.Quantity)
	}
	if txn.Remark != "盘亏" {
		t.Errorf("remark not recorded: %s", txn.Remark)
	}

	// 调整后不能为负
	_, err = svc.Adjust(ctx, service.AdjustReq{MaterialCode: "M001", Quantity: -31}, "op-1")
	if !errors.Is(err, service.ErrInsufficientStock) {
		t.Errorf("expected ErrInsufficientStock, got %v", err)
	}

	// 物料无库存记录
	_, err = svc.Adjust(ctx, service.AdjustReq{MaterialCode: "M999", Quantity: 1}, "op-1")
	if !errors.Is(err, service.ErrInventoryNotFound) {
		t.Errorf("expected ErrInventoryNotFound, got %v", err)
	}
}

func TestInboundOrder(t *testing.T) {
	db, svc := setupInventoryTest(t)
	ctx := context.Background()

	// 已有库存的物料累加，新的物料建记录
	seedInventory(t, db, "M001", 10, 8)

	order := testutil.SeedOrder(t, db, "order-1", "PO20250201", "原材料", "生产部")
	db.Model(&entity.PurchaseOrder{}).Where("id = ?", order.ID).
		Update("status", entity.OrderStatusConfirmed)
	items := []entity.PurchaseOrderItem{
		{ID: "poi-1", OrderID: order.ID, MaterialCode: "M001", Unit: "个", RequestedQuantity: 5, ContractPrice: 9},
		{ID: "poi-2", OrderID: order.ID, MaterialCode: "M100", MaterialDescription: "新物料", Unit: "箱", RequestedQuantity: 3, ContractPrice: 20},
	}
	if err := db.Create(&items).Error; err != nil {
		t.Fatalf("seed order items: %v", err)
	}

	if err := svc.InboundOrder(ctx, order.ID, "op-1"); err != nil {
		t.Fatalf("InboundOrder: %v", err)
	}

	var existing entity.Inventory
	db.Where("material_code = ?", "M001").First(&existing)
	if existing.Quantity != 15 {
		t.Errorf("expected accumulated quantity 15, got %.2f", existing.Quantity)
	}
	// 合同价覆盖旧单价并重算总值
	if existing.UnitPrice != 9 || existing.TotalValue != 135 {
		t.Errorf("unit price not refreshed: %.2f/%.2f", existing.UnitPrice, existing.TotalValue)
	}

	var created entity.Inventory
	if err := db.Where("material_code = ?", "M100").First(&created).Error; err != nil {
		t.Fatalf("new inventory record not created: %v", err)
	}
	if created.Quantity != 3 || created.Category != "原材料" {
		t.Errorf("unexpected new inventory %+v", created)
	}

	var txns int64
	db.Model(&entity.InventoryTransaction{}).
		Where("reference_no = ? AND transaction_type = ?", order.OrderNo, entity.TransactionTypeInbound).
		Count(&txns)
	if txns != 2 {
		t.Errorf("expected 2 inbound transactions, got %d", txns)
	}

	var reloaded entity.PurchaseOrder
	db.Where("id = ?", order.ID).First(&reloaded)
	if reloaded.Status != entity.OrderStatusCompleted {
		t.Errorf("expected COMPLETED order, got %s", reloaded.Status)
	}
}

func TestInboundOrderRequiresConfirmedWarehouseOrder(t *testing.T) {
	db, svc := setupInventoryTest(t)
	ctx := context.Background()

	// 未确认的订单
	pending := testutil.SeedOrder(t, db, "order-1", "PO20250202", "原材料", "生产部")
	if err := svc.InboundOrder(ctx, pending.ID, "op-1"); !errors.Is(err, service.ErrInvalidParam) {
		t.Errorf("expected ErrInvalidParam for pending order, got %v", err)
	}

	// 直达订单不入库
	direct := &entity.PurchaseOrder{
		ID:           "order-2",
		OrderNo:      "PO20250203",
		Category:     "原材料",
		UserUnit:     "生产部",
		DeliveryType: entity.DeliveryTypeDirect,
		Status:       entity.OrderStatusConfirmed,
	}
	if err := db.Create(direct).Error; err != nil {
		t.Fatalf("seed direct order: %v", err)
	}
	if err := svc.InboundOrder(ctx, direct.ID, "op-1"); !errors.Is(err, service.ErrInvalidParam) {
		t.Errorf("expected ErrInvalidParam for direct order, got %v", err)
	}

	if err := svc.InboundOrder(ctx, "no-such-order", "op-1"); !errors.Is(err, service.ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got %v", err)
	}
}
