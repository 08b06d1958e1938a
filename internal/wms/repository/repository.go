package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories WMS仓库集合
type Repositories struct {
	User         *UserRepository
	Order        *OrderRepository
	Workflow     *WorkflowRepository
	Inventory    *InventoryRepository
	Outbound     *OutboundRepository
	Confirmation *ConfirmationRepository
	Notification *NotificationRepository
}

// NewRepositories 创建WMS仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Order:        NewOrderRepository(db),
		Workflow:     NewWorkflowRepository(db),
		Inventory:    NewInventoryRepository(db),
		Outbound:     NewOutboundRepository(db),
		Confirmation: NewConfirmationRepository(db),
		Notification: NewNotificationRepository(db),
	}
}
