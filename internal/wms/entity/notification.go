package entity

import "time"

// NotificationType 通知类型
type NotificationType string

const (
	NotificationTypeSystem   NotificationType = "SYSTEM"   // 系统通知
	NotificationTypeWorkflow NotificationType = "WORKFLOW" // 工作流通知
	NotificationTypeBusiness NotificationType = "BUSINESS" // 业务通知
)

// NotificationLevel 通知级别
type NotificationLevel string

const (
	NotificationLevelInfo    NotificationLevel = "INFO"
	NotificationLevelWarning NotificationLevel = "WARNING"
	NotificationLevelError   NotificationLevel = "ERROR"
)

// Notification 通知
type Notification struct {
	ID               string            `json:"id" gorm:"primaryKey;size:32"`
	Title            string            `json:"title" gorm:"size:100;not null"`
	Content          string            `json:"content" gorm:"type:text;not null"`
	NotificationType NotificationType  `json:"notification_type" gorm:"size:20;not null"`
	Level            NotificationLevel `json:"level" gorm:"size:20;default:INFO"`

	BusinessKey  string `json:"business_key" gorm:"size:64;index"`
	BusinessType string `json:"business_type" gorm:"size:20"`

	SenderID string    `json:"sender_id" gorm:"size:32"`
	SendTime time.Time `json:"send_time" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Recipients []NotificationRecipient `json:"recipients,omitempty" gorm:"foreignKey:NotificationID;constraint:OnDelete:CASCADE"`
}

func (Notification) TableName() string {
	return "wh_notifications"
}

// NotificationRecipient 通知接收记录
type NotificationRecipient struct {
	ID             string     `json:"id" gorm:"primaryKey;size:32"`
	NotificationID string     `json:"notification_id" gorm:"size:32;not null;index"`
	RecipientID    string     `json:"recipient_id" gorm:"size:32;not null;index"`
	IsRead         bool       `json:"is_read" gorm:"default:false"`
	ReadTime       *time.Time `json:"read_time"`

	CreatedAt time.Time `json:"created_at"`

	Notification *Notification `json:"notification,omitempty" gorm:"foreignKey:NotificationID"`
}

func (NotificationRecipient) TableName() string {
	return "wh_notification_recipients"
}
