package entity

import "time"

// WorkflowType 工作流类型
type WorkflowType string

const (
	WorkflowTypePurchaseConfirmation WorkflowType = "PURCHASE_CONFIRMATION" // 采购订单确认
	WorkflowTypeQualityInspection    WorkflowType = "QUALITY_INSPECTION"    // 质检
	WorkflowTypeOutbound             WorkflowType = "OUTBOUND"              // 出库
)

// Valid 是否为已知工作流类型
func (t WorkflowType) Valid() bool {
	switch t {
	case WorkflowTypePurchaseConfirmation, WorkflowTypeQualityInspection, WorkflowTypeOutbound:
		return true
	}
	return false
}

// WorkflowStatus 工作流实例状态
type WorkflowStatus string

const (
	WorkflowStatusCreated   WorkflowStatus = "CREATED"   // 已创建
	WorkflowStatusRunning   WorkflowStatus = "RUNNING"   // 运行中
	WorkflowStatusCompleted WorkflowStatus = "COMPLETED" // 已完成
	WorkflowStatusCancelled WorkflowStatus = "CANCELLED" // 已取消
)

// Active 是否处于进行中（CREATED/RUNNING 视为占用业务键）
func (s WorkflowStatus) Active() bool {
	return s == WorkflowStatusCreated || s == WorkflowStatusRunning
}

// TaskStatus 任务状态
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "PENDING"   // 待处理
	TaskStatusCompleted TaskStatus = "COMPLETED" // 已完成
	TaskStatusCancelled TaskStatus = "CANCELLED" // 已取消
)

// TaskResult 任务处理结果
type TaskResult string

const (
	TaskResultApproved TaskResult = "APPROVED"
	TaskResultRejected TaskResult = "REJECTED"
)

// 角色类型（员工分配规则）
const (
	RoleTypeKeeper    = "keeper"    // 保管员
	RoleTypeInspector = "inspector" // 质检员
)

// 任务名称
const (
	TaskNameKeeperConfirm    = "保管员确认"
	TaskNameInspectorConfirm = "质检员确认"
)

// WorkflowInstance 工作流实例
type WorkflowInstance struct {
	ID                string         `json:"id" gorm:"primaryKey;size:32"`
	ProcessInstanceID string         `json:"process_instance_id" gorm:"size:64;uniqueIndex;not null"`
	BusinessKey       string         `json:"business_key" gorm:"size:64;index;not null"` // 采购单号
	WorkflowType      WorkflowType   `json:"workflow_type" gorm:"size:32;not null;index"`
	Status            WorkflowStatus `json:"status" gorm:"size:20;default:CREATED"`

	InitiatorID     string `json:"initiator_id" gorm:"size:32"`
	PurchaseOrderID string `json:"purchase_order_id" gorm:"size:32;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	Tasks         []WorkflowTask `json:"tasks,omitempty" gorm:"foreignKey:WorkflowInstanceID;constraint:OnDelete:CASCADE"`
	PurchaseOrder *PurchaseOrder `json:"purchase_order,omitempty" gorm:"foreignKey:PurchaseOrderID"`
}

func (WorkflowInstance) TableName() string {
	return "wh_workflow_instances"
}

// WorkflowTask 工作流任务
type WorkflowTask struct {
	ID                 string     `json:"id" gorm:"primaryKey;size:32"`
	TaskID             string     `json:"task_id" gorm:"size:64;uniqueIndex;not null"`
	WorkflowInstanceID string     `json:"workflow_instance_id" gorm:"size:32;not null;index"`
	TaskName           string     `json:"task_name" gorm:"size:100;not null"`
	Status             TaskStatus `json:"status" gorm:"size:20;default:PENDING;index"`

	AssigneeID   string     `json:"assignee_id" gorm:"size:32;index"`
	Result       TaskResult `json:"result" gorm:"size:20"`
	Comment      string     `json:"comment" gorm:"type:text"`
	CompleteTime *time.Time `json:"complete_time"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	WorkflowInstance *WorkflowInstance `json:"workflow_instance,omitempty" gorm:"foreignKey:WorkflowInstanceID"`
}

func (WorkflowTask) TableName() string {
	return "wh_workflow_tasks"
}

// StaffAssignment 员工分配规则：按 (角色, 大类, 用户单位) 路由到具体员工。
// category / user_unit 允许为空，表示该维度不限。
type StaffAssignment struct {
	ID       string `json:"id" gorm:"primaryKey;size:32"`
	StaffID  string `json:"staff_id" gorm:"size:32;not null;index"`
	RoleType string `json:"role_type" gorm:"size:20;not null;index"` // keeper/inspector
	Category string `json:"category" gorm:"size:50;index"`
	UserUnit string `json:"user_unit" gorm:"size:100;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Staff *User `json:"staff,omitempty" gorm:"foreignKey:StaffID"`
}

func (StaffAssignment) TableName() string {
	return "wh_staff_assignments"
}
