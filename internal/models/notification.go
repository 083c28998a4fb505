package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotifyOrderStatus    NotificationType = "order_status"
	NotifyReviewApproved NotificationType = "review_approved"
	NotifyPriceDrop      NotificationType = "price_drop"
	NotifyPriceChange    NotificationType = "price_change"
	NotifyStockAlert     NotificationType = "stock_alert"
)

type Notification struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	Type      NotificationType `gorm:"type:varchar(30);not null" json:"type"`
	Title     string           `gorm:"not null" json:"title"`
	Message   string           `gorm:"type:text;not null" json:"message"`
	Data      datatypes.JSON   `gorm:"type:jsonb" json:"data,omitempty"`
	IsRead    bool             `gorm:"not null" json:"is_read"`
	ReadAt    *time.Time       `json:"read_at"`
	CreatedAt time.Time        `json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return
}
