package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ReviewPending  = "pending"
	ReviewApproved = "approved"
	ReviewRejected = "rejected"
)

// Review stays hidden from product pages until an admin approves it.
type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uint      `gorm:"not null;index" json:"product_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	Rating  int    `gorm:"not null" json:"rating"` // 1-5
	Comment string `gorm:"type:text" json:"comment"`
	Status  string `gorm:"type:varchar(20);not null;index" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RatingCriteria struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `json:"description"`
	Status      string `gorm:"type:varchar(20);not null" json:"status"`
}

func (RatingCriteria) TableName() string { return "rating_criteria" }

// ProductRating is one user's score for one criterion of one product.
type ProductRating struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_rating_once" json:"user_id"`
	ProductID  uint      `gorm:"not null;uniqueIndex:idx_rating_once" json:"product_id"`
	CriteriaID uint      `gorm:"not null;uniqueIndex:idx_rating_once" json:"criteria_id"`
	Rating     int       `gorm:"not null" json:"rating"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
