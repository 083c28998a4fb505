package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/models"
)

type MessageRow struct {
	models.Message
	SenderName string `json:"sender_name"`
	IsSender   bool   `json:"is_sender" gorm:"-"`
}

type UnreadRow struct {
	models.Message
	SenderName   string `json:"sender_name"`
	ProjectTitle string `json:"project_title"`
}

type MessageStore struct {
	db *gorm.DB
}

func NewMessageStore(db *gorm.DB) *MessageStore {
	return &MessageStore{db: db}
}

func (s *MessageStore) Create(ctx context.Context, m *models.Message) error {
	return s.db.WithContext(ctx).Create(m).Error
}

func (s *MessageStore) Get(ctx context.Context, id uuid.UUID) (models.Message, error) {
	var m models.Message
	err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error
	return m, notFound(err)
}

// ListForProject returns the caller's side of a project conversation. The
// project filter wraps the sender/recipient pair so it can never widen.
func (s *MessageStore) ListForProject(ctx context.Context, projectID, userID uuid.UUID) ([]MessageRow, error) {
	rows := make([]MessageRow, 0)
	err := s.db.WithContext(ctx).
		Table("messages").
		Select("messages.*, users.name AS sender_name").
		Joins("JOIN users ON users.id = messages.sender_id").
		Where("messages.project_id = ? AND (messages.sender_id = ? OR messages.recipient_id = ?)", projectID, userID, userID).
		Order("messages.created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	markSender(rows, userID)
	return rows, nil
}

// ListBetween returns messages exchanged by a and b on one project.
func (s *MessageStore) ListBetween(ctx context.Context, projectID, a, b uuid.UUID) ([]MessageRow, error) {
	rows := make([]MessageRow, 0)
	err := s.db.WithContext(ctx).
		Table("messages").
		Select("messages.*, users.name AS sender_name").
		Joins("JOIN users ON users.id = messages.sender_id").
		Where("messages.project_id = ? AND ((messages.sender_id = ? AND messages.recipient_id = ?) OR (messages.sender_id = ? AND messages.recipient_id = ?))",
			projectID, a, b, b, a).
		Order("messages.created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	markSender(rows, a)
	return rows, nil
}

func markSender(rows []MessageRow, userID uuid.UUID) {
	for i := range rows {
		rows[i].IsSender = rows[i].SenderID == userID
	}
}

func (s *MessageStore) ListUnread(ctx context.Context, userID uuid.UUID) ([]UnreadRow, error) {
	rows := make([]UnreadRow, 0)
	err := s.db.WithContext(ctx).
		Table("messages").
		Select("messages.*, users.name AS sender_name, projects.title AS project_title").
		Joins("JOIN users ON users.id = messages.sender_id").
		Joins("JOIN projects ON projects.id = messages.project_id").
		Where("messages.recipient_id = ? AND messages.is_read = ?", userID, false).
		Order("messages.created_at DESC").
		Scan(&rows).Error
	return rows, err
}

func (s *MessageStore) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	return n, err
}

func (s *MessageStore) MarkRead(ctx context.Context, id uuid.UUID, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("id = ? AND is_read = ?", id, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": at,
		}).Error
}

func (s *MessageStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Delete(&models.Message{}, "id = ?", id).Error
}
