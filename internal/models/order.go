package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderApproved   OrderStatus = "approved"
	OrderInProgress OrderStatus = "in_progress"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderApproved, OrderInProgress, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// Open reports whether the order still needs work.
func (s OrderStatus) Open() bool {
	return s == OrderPending || s == OrderApproved || s == OrderInProgress
}

type Order struct {
	ID                uint        `gorm:"primaryKey" json:"id"`
	UserID            uuid.UUID   `gorm:"type:uuid;not null;index" json:"user_id"`
	Status            OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	DeveloperApproval *bool       `json:"developer_approval"`
	TotalAmount       float64     `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	Notes             string      `gorm:"type:text" json:"notes"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

// OrderItem freezes the unit price at the time of purchase.
type OrderItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"not null;index" json:"order_id"`
	ProductID uint      `gorm:"not null;index" json:"product_id"`
	SellerID  uuid.UUID `gorm:"type:uuid;not null;index" json:"seller_id"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	UnitPrice float64   `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	CreatedAt time.Time `json:"created_at"`
}
