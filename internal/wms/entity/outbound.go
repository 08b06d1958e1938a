package entity

import (
	"encoding/json"
	"time"
)

// OutboundStatus 出库单状态
type OutboundStatus string

const (
	OutboundStatusPending    OutboundStatus = "PENDING"    // 待处理
	OutboundStatusProcessing OutboundStatus = "PROCESSING" // 处理中
	OutboundStatusCompleted  OutboundStatus = "COMPLETED"  // 已完成
	OutboundStatusCancelled  OutboundStatus = "CANCELLED"  // 已取消
)

// OutboundOrder 出库单
type OutboundOrder struct {
	ID               string         `json:"id" gorm:"primaryKey;size:32"`
	MaterialVoucher  string         `json:"material_voucher" gorm:"size:32;uniqueIndex;not null"` // 物料凭证
	VoucherDate      *time.Time     `json:"voucher_date"`
	Department       string         `json:"department" gorm:"size:100;not null"` // 具体用料部门
	UserUnit         string         `json:"user_unit" gorm:"size:100;not null;index"`
	DocumentType     string         `json:"document_type" gorm:"size:20"`
	TotalAmount      float64        `json:"total_amount" gorm:"type:decimal(15,2);default:0"`
	IssueDate        *time.Time     `json:"issue_date"`
	SalesAmount      float64        `json:"sales_amount" gorm:"type:decimal(15,2);default:0"`
	TransferOrder    string         `json:"transfer_order" gorm:"size:32"`
	ManagementFeeRate float64       `json:"management_fee_rate" gorm:"type:decimal(8,4)"`
	MaterialCategory string         `json:"material_category" gorm:"size:100"` // 料单分属
	Status           OutboundStatus `json:"status" gorm:"size:20;default:PENDING;index"`

	OperatorID string `json:"operator_id" gorm:"size:32"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []OutboundItem `json:"items,omitempty" gorm:"foreignKey:OutboundID;constraint:OnDelete:CASCADE"`
}

func (OutboundOrder) TableName() string {
	return "wh_outbound_orders"
}

// OutboundItem 出库行项
type OutboundItem struct {
	ID                   string  `json:"id" gorm:"primaryKey;size:32"`
	OutboundID           string  `json:"outbound_id" gorm:"size:32;not null;index"`
	MaterialCode         string  `json:"material_code" gorm:"size:32;index;not null"`
	MaterialDescription  string  `json:"material_description" gorm:"size:255;not null"`
	Unit                 string  `json:"unit" gorm:"size:20;not null"`
	ActualQuantity       float64 `json:"actual_quantity" gorm:"type:decimal(12,2);not null"` // 实拨数量
	OutboundPrice        float64 `json:"outbound_price" gorm:"type:decimal(12,4)"`
	MaterialCategoryCode string  `json:"material_category_code" gorm:"size:20"`
	ProjectCode          string  `json:"project_code" gorm:"size:32"`
	RequestedQuantity    float64 `json:"requested_quantity" gorm:"type:decimal(12,2)"` // 应拨数量
	OutboundAmount       float64 `json:"outbound_amount" gorm:"type:decimal(15,2)"`

	PurchaseOrderNo string `json:"purchase_order_no" gorm:"size:32"`
	Remark          string `json:"remark" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (OutboundItem) TableName() string {
	return "wh_outbound_items"
}

// DeletedOutboundRecord 出库单删除审计记录，保留删除前的行项快照
type DeletedOutboundRecord struct {
	ID              string          `json:"id" gorm:"primaryKey;size:32"`
	OriginalID      string          `json:"original_id" gorm:"size:32"`
	MaterialVoucher string          `json:"material_voucher" gorm:"size:32;index;not null"`
	VoucherDate     *time.Time      `json:"voucher_date"`
	Department      string          `json:"department" gorm:"size:100"`
	UserUnit        string          `json:"user_unit" gorm:"size:100"`
	DocumentType    string          `json:"document_type" gorm:"size:20"`
	TotalAmount     float64         `json:"total_amount" gorm:"type:decimal(15,2)"`
	MaterialCategory string         `json:"material_category" gorm:"size:100"`
	Status          string          `json:"status" gorm:"size:20"` // 删除时的状态
	DeleteTime      time.Time       `json:"delete_time"`
	DeleteReason    string          `json:"delete_reason" gorm:"size:255"`
	ItemsData       json.RawMessage `json:"items_data" gorm:"type:jsonb"`

	OperatorID string `json:"operator_id" gorm:"size:32"`

	CreatedAt time.Time `json:"created_at"`
}

func (DeletedOutboundRecord) TableName() string {
	return "wh_deleted_outbound_records"
}
