package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Role string

const (
	RoleCustomer   Role = "customer"
	RoleFreelancer Role = "freelancer"
	RoleAdmin      Role = "admin"
)

// User rows are never hard-deleted; IsActive turns an account off.
type User struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name  string    `gorm:"not null" json:"name"`
	Email string    `gorm:"uniqueIndex;not null" json:"email"`

	Password string `gorm:"not null" json:"-"`
	Role     Role   `gorm:"type:varchar(20);not null;index" json:"role"`
	IsActive bool   `gorm:"not null" json:"is_active"`

	Phone        string                      `gorm:"type:varchar(30)" json:"phone"`
	Address      string                      `json:"address"`
	City         string                      `json:"city"`
	Country      string                      `json:"country"`
	Occupation   string                      `json:"occupation"`
	Bio          string                      `gorm:"type:text" json:"bio"`
	Skills       datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"skills"`
	ProfileImage *string                     `json:"profile_image"`

	EmailVerified       bool       `gorm:"not null" json:"email_verified"`
	ResetToken          *string    `json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return
}
