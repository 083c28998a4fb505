package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/auth"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/log"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/metrics"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/models"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/realtime"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/store"
)

const (
	maxMessageRunes    = 5000
	msgMessageNotFound = "message not found"
)

type SendMessageInput struct {
	ProjectID   uuid.UUID `json:"projectId"`
	RecipientID uuid.UUID `json:"recipientId"`
	Content     string    `json:"content"`
}

// MessageEvent is the realtime payload mirrored to the project room.
type MessageEvent struct {
	ID          uuid.UUID `json:"id"`
	Content     string    `json:"content"`
	ProjectID   uuid.UUID `json:"projectId"`
	RecipientID uuid.UUID `json:"recipientId"`
	SenderID    uuid.UUID `json:"senderId"`
	SenderName  string    `json:"senderName"`
	CreatedAt   time.Time `json:"createdAt"`
}

type UnreadCountEvent struct {
	Count int64 `json:"count"`
}

type MessageService struct {
	messages  MessageRepository
	projects  *ProjectService
	users     UserRepository
	publisher Publisher
	now       func() time.Time
	logger    zerolog.Logger
}

func NewMessageService(messages MessageRepository, projects *ProjectService, users UserRepository, publisher Publisher) *MessageService {
	return &MessageService{
		messages:  messages,
		projects:  projects,
		users:     users,
		publisher: publisher,
		now:       time.Now,
		logger:    log.WithComponent("messages"),
	}
}

// Send persists a message between the two project participants and then
// mirrors it to the project room. Content is stored exactly as given.
func (s *MessageService) Send(ctx context.Context, caller auth.Identity, in SendMessageInput) (store.MessageRow, error) {
	if strings.TrimSpace(in.Content) == "" {
		return store.MessageRow{}, apperr.Validation("content is required")
	}
	if utf8.RuneCountInString(in.Content) > maxMessageRunes {
		return store.MessageRow{}, apperr.Validation("content is too long")
	}
	if in.ProjectID == uuid.Nil || in.RecipientID == uuid.Nil {
		return store.MessageRow{}, apperr.Validation("projectId and recipientId are required")
	}

	p, err := s.projects.projects.Get(ctx, in.ProjectID)
	if err != nil {
		return store.MessageRow{}, lookup(err, msgProjectNotFound)
	}
	if !p.IsParticipant(caller.UserID) {
		if p, err = s.projects.claimOnFirstContact(ctx, caller, p, in.RecipientID); err != nil {
			return store.MessageRow{}, err
		}
		if !p.IsParticipant(caller.UserID) {
			return store.MessageRow{}, outsider(p)
		}
	}

	other, ok := p.OtherParticipant(caller.UserID)
	if !ok {
		return store.MessageRow{}, apperr.Validation("project has no counter-party yet")
	}
	if in.RecipientID != other {
		return store.MessageRow{}, apperr.Validation("recipient must be the other project participant")
	}

	msg := models.Message{
		ProjectID:   p.ID,
		SenderID:    caller.UserID,
		RecipientID: in.RecipientID,
		Content:     in.Content,
		CreatedAt:   s.now(),
	}
	if err := s.messages.Create(ctx, &msg); err != nil {
		return store.MessageRow{}, apperr.Wrap(err, "send message")
	}
	metrics.MessageSent()

	row := store.MessageRow{Message: msg, IsSender: true}
	if u, err := s.users.GetByID(ctx, caller.UserID); err == nil {
		row.SenderName = u.Name
	}

	s.publisher.ProjectEvent(ctx, p.ID, realtime.EventNewMessage, MessageEvent{
		ID:          msg.ID,
		Content:     msg.Content,
		ProjectID:   msg.ProjectID,
		RecipientID: msg.RecipientID,
		SenderID:    msg.SenderID,
		SenderName:  row.SenderName,
		CreatedAt:   msg.CreatedAt,
	})
	s.pushUnreadCount(ctx, msg.RecipientID)

	return row, nil
}

func (s *MessageService) ListForProject(ctx context.Context, caller auth.Identity, projectID uuid.UUID) ([]store.MessageRow, error) {
	if _, err := s.projects.Authorize(ctx, caller.UserID, projectID); err != nil {
		return nil, err
	}
	rows, err := s.messages.ListForProject(ctx, projectID, caller.UserID)
	if err != nil {
		return nil, apperr.Wrap(err, "list messages")
	}
	return rows, nil
}

// Chat returns the exchange between the caller and otherID on one project.
func (s *MessageService) Chat(ctx context.Context, caller auth.Identity, projectID, otherID uuid.UUID) ([]store.MessageRow, error) {
	p, err := s.projects.Authorize(ctx, caller.UserID, projectID)
	if err != nil {
		return nil, err
	}
	if other, ok := p.OtherParticipant(caller.UserID); !ok || other != otherID {
		return nil, apperr.Validation("recipient must be the other project participant")
	}
	rows, err := s.messages.ListBetween(ctx, projectID, caller.UserID, otherID)
	if err != nil {
		return nil, apperr.Wrap(err, "list messages")
	}
	return rows, nil
}

// MarkRead flips the read flag for the recipient. Repeating it is a no-op;
// anyone else gets a 404.
func (s *MessageService) MarkRead(ctx context.Context, caller auth.Identity, id uuid.UUID) (models.Message, error) {
	msg, err := s.messages.Get(ctx, id)
	if err != nil {
		return models.Message{}, lookup(err, msgMessageNotFound)
	}
	if msg.RecipientID != caller.UserID {
		return models.Message{}, apperr.NotFound(msgMessageNotFound)
	}
	if msg.IsRead {
		return msg, nil
	}

	now := s.now()
	if err := s.messages.MarkRead(ctx, id, now); err != nil {
		return models.Message{}, apperr.Wrap(err, "mark message read")
	}
	msg.IsRead = true
	msg.ReadAt = &now

	s.pushUnreadCount(ctx, caller.UserID)
	return msg, nil
}

func (s *MessageService) ListUnread(ctx context.Context, caller auth.Identity) ([]store.UnreadRow, error) {
	rows, err := s.messages.ListUnread(ctx, caller.UserID)
	if err != nil {
		return nil, apperr.Wrap(err, "list unread messages")
	}
	return rows, nil
}

func (s *MessageService) UnreadCount(ctx context.Context, caller auth.Identity) (int64, error) {
	n, err := s.messages.CountUnread(ctx, caller.UserID)
	if err != nil {
		return 0, apperr.Wrap(err, "count unread messages")
	}
	return n, nil
}

// Delete removes a message; only its sender may do so.
func (s *MessageService) Delete(ctx context.Context, caller auth.Identity, id uuid.UUID) error {
	msg, err := s.messages.Get(ctx, id)
	if err != nil {
		return lookup(err, msgMessageNotFound)
	}
	if msg.SenderID != caller.UserID {
		return apperr.NotFound(msgMessageNotFound)
	}
	if err := s.messages.Delete(ctx, id); err != nil {
		return apperr.Wrap(err, "delete message")
	}
	if !msg.IsRead {
		s.pushUnreadCount(ctx, msg.RecipientID)
	}
	return nil
}

func (s *MessageService) pushUnreadCount(ctx context.Context, userID uuid.UUID) {
	n, err := s.messages.CountUnread(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID.String()).Msg("count unread for badge")
		return
	}
	s.publisher.UserEvent(ctx, userID, realtime.EventUnreadCount, UnreadCountEvent{Count: n})
}
