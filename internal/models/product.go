package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	ParentID    *uint     `gorm:"index" json:"parent_id"`
	Status      string    `gorm:"type:varchar(20);not null" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Product is a fixed-price listing published by a freelancer.
type Product struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	CategoryID *uint     `gorm:"index" json:"category_id"`

	Title        string                      `gorm:"not null" json:"title"`
	Description  string                      `gorm:"type:text" json:"description"`
	BasePrice    float64                     `gorm:"type:numeric(12,2);not null" json:"base_price"`
	Features     datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"features"`
	DeliveryDays int                         `json:"delivery_days"`
	Stock        int                         `gorm:"not null" json:"stock"`
	CoverURL     string                      `json:"cover_url"`
	Status       string                      `gorm:"type:varchar(20);not null" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
