package entity

import "time"

// ConfirmationStatus 确认单状态
type ConfirmationStatus string

const (
	ConfirmationStatusGenerated ConfirmationStatus = "GENERATED" // 已生成
	ConfirmationStatusPrinted   ConfirmationStatus = "PRINTED"   // 已打印
	ConfirmationStatusCompleted ConfirmationStatus = "COMPLETED" // 已完成
	ConfirmationStatusCancelled ConfirmationStatus = "CANCELLED" // 已取消
)

// DeliveryConfirmation 交付确认单
type DeliveryConfirmation struct {
	ID             string             `json:"id" gorm:"primaryKey;size:32"`
	ConfirmationNo string             `json:"confirmation_no" gorm:"size:32;uniqueIndex;not null"`
	OrderID        string             `json:"order_id" gorm:"size:32;not null;index"`
	Status         ConfirmationStatus `json:"status" gorm:"size:20;default:GENERATED"`

	// 确认信息（来自工作流任务）
	KeeperID             string     `json:"keeper_id" gorm:"size:32"`
	InspectorID          string     `json:"inspector_id" gorm:"size:32"`
	KeeperConfirmTime    *time.Time `json:"keeper_confirm_time"`
	InspectorConfirmTime *time.Time `json:"inspector_confirm_time"`

	// 打印信息
	PrintTime *time.Time `json:"print_time"`
	PrintBy   string     `json:"print_by" gorm:"size:32"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Order *PurchaseOrder `json:"order,omitempty" gorm:"foreignKey:OrderID"`
}

func (DeliveryConfirmation) TableName() string {
	return "wh_delivery_confirmations"
}

// Inventory 库存
type Inventory struct {
	ID                  string  `json:"id" gorm:"primaryKey;size:32"`
	MaterialCode        string  `json:"material_code" gorm:"size:32;uniqueIndex;not null"`
	MaterialDescription string  `json:"material_description" gorm:"size:255"`
	Category            string  `json:"category" gorm:"size:50;index"`
	Unit                string  `json:"unit" gorm:"size:20"`
	Quantity            float64 `json:"quantity" gorm:"type:decimal(12,2);default:0"`
	Location            string  `json:"location" gorm:"size:50"`
	UnitPrice           float64 `json:"unit_price" gorm:"type:decimal(12,4)"`
	TotalValue          float64 `json:"total_value" gorm:"type:decimal(15,2)"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Inventory) TableName() string {
	return "wh_inventories"
}

// TransactionType 库存事务类型
type TransactionType string

const (
	TransactionTypeInbound    TransactionType = "INBOUND"    // 入库
	TransactionTypeOutbound   TransactionType = "OUTBOUND"   // 出库
	TransactionTypeAdjustment TransactionType = "ADJUSTMENT" // 调整
)

// InventoryTransaction 库存事务
type InventoryTransaction struct {
	ID              string          `json:"id" gorm:"primaryKey;size:32"`
	InventoryID     string          `json:"inventory_id" gorm:"size:32;not null;index"`
	TransactionType TransactionType `json:"transaction_type" gorm:"size:20;not null"`
	Quantity        float64         `json:"quantity" gorm:"type:decimal(12,2);not null"`
	TransactionTime time.Time       `json:"transaction_time" gorm:"not null"`

	ReferenceNo   string `json:"reference_no" gorm:"size:32;index"` // 参考单号
	ReferenceType string `json:"reference_type" gorm:"size:20"`
	OperatorID    string `json:"operator_id" gorm:"size:32;not null"`
	Remark        string `json:"remark" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`

	Inventory *Inventory `json:"inventory,omitempty" gorm:"foreignKey:InventoryID"`
}

func (InventoryTransaction) TableName() string {
	return "wh_inventory_transactions"
}
