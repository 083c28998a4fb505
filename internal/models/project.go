package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProjectStatus string

const (
	ProjectOpen       ProjectStatus = "open"
	ProjectApproved   ProjectStatus = "approved"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectCancelled  ProjectStatus = "cancelled"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectOpen, ProjectApproved, ProjectInProgress, ProjectCompleted, ProjectCancelled:
		return true
	}
	return false
}

// Project is a customer's posted job. CounterpartyID is the single
// freelancer allowed to talk about it with the creator.
type Project struct {
	ID           uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	Title        string                      `gorm:"not null" json:"title"`
	Description  string                      `gorm:"type:text;not null" json:"description"`
	Requirements datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"requirements"`
	Budget       float64                     `gorm:"type:numeric(12,2);not null" json:"budget"`
	Deadline     time.Time                   `gorm:"type:date;not null" json:"deadline"`
	Category     string                      `gorm:"not null;index" json:"category"`
	Status       ProjectStatus               `gorm:"type:varchar(20);not null;index" json:"status"`
	IsPublic     bool                        `gorm:"not null" json:"is_public"`

	CreatorID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"creator_id"`
	CounterpartyID *uuid.UUID `gorm:"type:uuid;index" json:"counterparty_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}

// IsParticipant reports whether userID is the creator or the counter-party.
func (p Project) IsParticipant(userID uuid.UUID) bool {
	if p.CreatorID == userID {
		return true
	}
	return p.CounterpartyID != nil && *p.CounterpartyID == userID
}

// OtherParticipant returns the participant who is not userID, if known.
func (p Project) OtherParticipant(userID uuid.UUID) (uuid.UUID, bool) {
	switch {
	case p.CreatorID == userID && p.CounterpartyID != nil:
		return *p.CounterpartyID, true
	case p.CounterpartyID != nil && *p.CounterpartyID == userID:
		return p.CreatorID, true
	}
	return uuid.Nil, false
}
