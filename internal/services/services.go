// Package services holds the marketplace use-cases. Services depend on the
// repository interfaces below and receive the caller identity explicitly.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/models"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/store"
)

type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	EmailTaken(ctx context.Context, email string, exclude uuid.UUID) (bool, error)
	Create(ctx context.Context, u *models.User) error
	Save(ctx context.Context, u *models.User) error
}

type ProjectRepository interface {
	Create(ctx context.Context, p *models.Project) error
	Get(ctx context.Context, id uuid.UUID) (models.Project, error)
	GetRow(ctx context.Context, id uuid.UUID) (store.ProjectRow, error)
	List(ctx context.Context, f store.ProjectFilter) ([]store.ProjectRow, int64, error)
	Save(ctx context.Context, p *models.Project) error
	Delete(ctx context.Context, id uuid.UUID) error
	ClaimCounterparty(ctx context.Context, projectID, userID uuid.UUID) (bool, error)
	StatusCounts(ctx context.Context, userID uuid.UUID) (map[string]int64, error)
}

type MessageRepository interface {
	Create(ctx context.Context, m *models.Message) error
	Get(ctx context.Context, id uuid.UUID) (models.Message, error)
	ListForProject(ctx context.Context, projectID, userID uuid.UUID) ([]store.MessageRow, error)
	ListBetween(ctx context.Context, projectID, a, b uuid.UUID) ([]store.MessageRow, error)
	ListUnread(ctx context.Context, userID uuid.UUID) ([]store.UnreadRow, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) (bool, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id, userID uuid.UUID) (bool, error)
}

type CatalogRepository interface {
	ListCategories(ctx context.Context, activeOnly bool) ([]store.CategoryRow, error)
	GetCategory(ctx context.Context, id uint) (models.Category, error)
	CategoryNameTaken(ctx context.Context, name string, exclude uint) (bool, error)
	CreateCategory(ctx context.Context, c *models.Category) error
	SaveCategory(ctx context.Context, c *models.Category) error
	ListProducts(ctx context.Context, f store.ProductFilter) ([]store.ProductRow, int64, error)
	GetProductRow(ctx context.Context, id uint) (store.ProductRow, error)
	GetProduct(ctx context.Context, id uint) (models.Product, error)
	ProductsByIDs(ctx context.Context, ids []uint) ([]models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	SaveProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id uint) error
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order, items []models.OrderItem) error
	Get(ctx context.Context, id uint) (models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	ListForSeller(ctx context.Context, sellerID uuid.UUID) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uint, status models.OrderStatus, approval *bool) error
	BuyersOfProduct(ctx context.Context, productID uint) ([]uuid.UUID, error)
	CountOpen(ctx context.Context, userID uuid.UUID) (int64, error)
}

type ReviewRepository interface {
	Create(ctx context.Context, r *models.Review) error
	Get(ctx context.Context, id uint) (models.Review, error)
	ListApprovedForProduct(ctx context.Context, productID uint) ([]store.ReviewRow, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]store.ReviewRow, error)
	ListByStatus(ctx context.Context, status string) ([]store.ReviewRow, error)
	SetStatus(ctx context.Context, id uint, status string) error
	ListCriteria(ctx context.Context) ([]models.RatingCriteria, error)
	GetCriteria(ctx context.Context, id uint) (models.RatingCriteria, error)
	UpsertRating(ctx context.Context, r *models.ProductRating) error
	ProductAverages(ctx context.Context, productID uint) ([]store.CriteriaAverage, error)
	RatingsByUser(ctx context.Context, userID uuid.UUID, productID uint) ([]models.ProductRating, error)
}

// Publisher pushes realtime events. Delivery is best effort.
type Publisher interface {
	ProjectEvent(ctx context.Context, projectID uuid.UUID, event string, data interface{})
	UserEvent(ctx context.Context, userID uuid.UUID, event string, data interface{})
}

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// lookup turns store.ErrNotFound into a 404 with msg and wraps anything else.
func lookup(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(msg)
	}
	return apperr.Wrap(err, msg)
}
