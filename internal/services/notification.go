package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/auth"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/log"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/metrics"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/models"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/realtime"
)

const (
	defaultNotificationLimit = 20
	msgNotificationNotFound  = "notification not found"
)

type NotificationList struct {
	Items       []models.Notification `json:"items"`
	UnreadCount int64                 `json:"unread_count"`
}

type NotificationService struct {
	notifications NotificationRepository
	publisher     Publisher
	logger        zerolog.Logger
}

func NewNotificationService(notifications NotificationRepository, publisher Publisher) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		publisher:     publisher,
		logger:        log.WithComponent("notifications"),
	}
}

// Notify stores a notification for userID and pushes it to their sockets.
func (s *NotificationService) Notify(ctx context.Context, userID uuid.UUID, kind models.NotificationType, title, message string, data map[string]interface{}) error {
	n := models.Notification{
		UserID:  userID,
		Type:    kind,
		Title:   title,
		Message: message,
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return apperr.Wrap(err, "encode notification data")
		}
		n.Data = datatypes.JSON(raw)
	}
	if err := s.notifications.Create(ctx, &n); err != nil {
		return apperr.Wrap(err, "create notification")
	}
	metrics.NotificationCreated(string(kind))
	s.publisher.UserEvent(ctx, userID, realtime.EventNotification, n)
	return nil
}

// notifyQuietly is for side-effect producers: a failed notification never
// fails the action that triggered it.
func (s *NotificationService) notifyQuietly(ctx context.Context, userID uuid.UUID, kind models.NotificationType, title, message string, data map[string]interface{}) {
	if err := s.Notify(ctx, userID, kind, title, message, data); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID.String()).Str("type", string(kind)).Msg("notify")
	}
}

func (s *NotificationService) OrderStatusChanged(ctx context.Context, order models.Order) {
	s.notifyQuietly(ctx, order.UserID, models.NotifyOrderStatus,
		"Order status updated",
		fmt.Sprintf("Your order #%d is now %s.", order.ID, order.Status),
		map[string]interface{}{"order_id": order.ID, "status": order.Status})
}

func (s *NotificationService) ReviewApproved(ctx context.Context, review models.Review, productTitle string) {
	s.notifyQuietly(ctx, review.UserID, models.NotifyReviewApproved,
		"Review approved",
		fmt.Sprintf("Your review of %q is now visible.", productTitle),
		map[string]interface{}{"review_id": review.ID, "product_id": review.ProductID})
}

func (s *NotificationService) PriceChanged(ctx context.Context, p models.Product, oldPrice float64, buyers []uuid.UUID) {
	kind := models.NotifyPriceChange
	title := "Price changed"
	if p.BasePrice < oldPrice {
		kind = models.NotifyPriceDrop
		title = "Price drop"
	}
	msg := fmt.Sprintf("%s now costs %.2f (was %.2f).", p.Title, p.BasePrice, oldPrice)
	for _, uid := range buyers {
		s.notifyQuietly(ctx, uid, kind, title, msg,
			map[string]interface{}{"product_id": p.ID, "old_price": oldPrice, "new_price": p.BasePrice})
	}
}

func (s *NotificationService) BackInStock(ctx context.Context, p models.Product, buyers []uuid.UUID) {
	msg := fmt.Sprintf("%s is available again.", p.Title)
	for _, uid := range buyers {
		s.notifyQuietly(ctx, uid, models.NotifyStockAlert, "Back in stock", msg,
			map[string]interface{}{"product_id": p.ID, "stock": p.Stock})
	}
}

func (s *NotificationService) List(ctx context.Context, caller auth.Identity, limit int) (NotificationList, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultNotificationLimit
	}
	items, err := s.notifications.ListForUser(ctx, caller.UserID, limit)
	if err != nil {
		return NotificationList{}, apperr.Wrap(err, "list notifications")
	}
	unread, err := s.notifications.CountUnread(ctx, caller.UserID)
	if err != nil {
		return NotificationList{}, apperr.Wrap(err, "count notifications")
	}
	return NotificationList{Items: items, UnreadCount: unread}, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, caller auth.Identity) (int64, error) {
	n, err := s.notifications.CountUnread(ctx, caller.UserID)
	if err != nil {
		return 0, apperr.Wrap(err, "count notifications")
	}
	return n, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, caller auth.Identity, id uuid.UUID) error {
	ok, err := s.notifications.MarkRead(ctx, id, caller.UserID)
	if err != nil {
		return apperr.Wrap(err, "mark notification read")
	}
	if !ok {
		return apperr.NotFound(msgNotificationNotFound)
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, caller auth.Identity) (int64, error) {
	n, err := s.notifications.MarkAllRead(ctx, caller.UserID)
	if err != nil {
		return 0, apperr.Wrap(err, "mark notifications read")
	}
	return n, nil
}

func (s *NotificationService) Delete(ctx context.Context, caller auth.Identity, id uuid.UUID) error {
	ok, err := s.notifications.Delete(ctx, id, caller.UserID)
	if err != nil {
		return apperr.Wrap(err, "delete notification")
	}
	if !ok {
		return apperr.NotFound(msgNotificationNotFound)
	}
	return nil
}
