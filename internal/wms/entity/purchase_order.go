package entity

import "time"

// DeliveryType 交付类型
type DeliveryType string

const (
	DeliveryTypeDirect    DeliveryType = "DIRECT"    // 直达
	DeliveryTypeWarehouse DeliveryType = "WAREHOUSE" // 入库
)

// Valid 是否为已知交付类型
func (t DeliveryType) Valid() bool {
	return t == DeliveryTypeDirect || t == DeliveryTypeWarehouse
}

// OrderStatus 采购订单状态
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"    // 待处理
	OrderStatusProcessing OrderStatus = "PROCESSING" // 处理中
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"  // 已确认
	OrderStatusCompleted  OrderStatus = "COMPLETED"  // 已完成
	OrderStatusCancelled  OrderStatus = "CANCELLED"  // 已取消
)

// PurchaseOrder 采购订单
type PurchaseOrder struct {
	ID                string       `json:"id" gorm:"primaryKey;size:32"`
	OrderNo           string       `json:"order_no" gorm:"size:32;uniqueIndex;not null"`
	PlanNumber        string       `json:"plan_number" gorm:"size:32"`
	UserUnit          string       `json:"user_unit" gorm:"size:100;index"` // 用户单位
	Category          string       `json:"category" gorm:"size:50;index"`   // 大类
	OrderDate         *time.Time   `json:"order_date"`
	SupplierName      string       `json:"supplier_name" gorm:"size:100"`
	SupplierCode      string       `json:"supplier_code" gorm:"size:32"`
	MaterialGroup     string       `json:"material_group" gorm:"size:50"`
	FirstLevelProduct string       `json:"first_level_product" gorm:"size:100"`
	Factory           string       `json:"factory" gorm:"size:100"`
	DeliveryType      DeliveryType `json:"delivery_type" gorm:"size:20;default:WAREHOUSE"`
	TotalAmount       float64      `json:"total_amount" gorm:"type:decimal(15,2);default:0"`
	Status            OrderStatus  `json:"status" gorm:"size:20;default:PENDING;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	Items    []PurchaseOrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Workflow *WorkflowInstance   `json:"workflow,omitempty" gorm:"foreignKey:PurchaseOrderID"`
}

func (PurchaseOrder) TableName() string {
	return "wh_purchase_orders"
}

// PurchaseOrderItem 采购订单行项
type PurchaseOrderItem struct {
	ID                  string  `json:"id" gorm:"primaryKey;size:32"`
	OrderID             string  `json:"order_id" gorm:"size:32;not null;index"`
	LineItemNumber      string  `json:"line_item_number" gorm:"size:32"`
	MaterialCode        string  `json:"material_code" gorm:"size:32;index;not null"`
	MaterialDescription string  `json:"material_description" gorm:"size:255"`
	Unit                string  `json:"unit" gorm:"size:20"`
	RequestedQuantity   float64 `json:"requested_quantity" gorm:"type:decimal(12,2)"`
	ContractPrice       float64 `json:"contract_price" gorm:"type:decimal(12,4)"`
	ProductStandard     string  `json:"product_standard" gorm:"size:100"`
	ContractAmount      float64 `json:"contract_amount" gorm:"type:decimal(15,2)"`
	LongDescription     string  `json:"long_description" gorm:"type:text"`
	PriceFlag           string  `json:"price_flag" gorm:"size:20"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PurchaseOrderItem) TableName() string {
	return "wh_purchase_order_items"
}
