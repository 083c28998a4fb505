package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/models"
)

type OrderStore struct {
	db *gorm.DB
}

func NewOrderStore(db *gorm.DB) *OrderStore {
	return &OrderStore{db: db}
}

// Create writes the header, the lines and the stock decrements in one
// transaction. A line whose product lacks stock rolls everything back with
// ErrInsufficientStock.
func (s *OrderStore) Create(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}

		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}

		for _, it := range items {
			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock >= ?", it.ProductID, it.Quantity).
				UpdateColumn("stock", gorm.Expr("stock - ?", it.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrInsufficientStock
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	order.Items = items
	return nil
}

func (s *OrderStore) Get(ctx context.Context, id uint) (models.Order, error) {
	var o models.Order
	err := s.db.WithContext(ctx).Preload("Items").First(&o, "id = ?", id).Error
	return o, notFound(err)
}

func (s *OrderStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	out := make([]models.Order, 0)
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// ListForSeller returns orders containing at least one of sellerID's products.
func (s *OrderStore) ListForSeller(ctx context.Context, sellerID uuid.UUID) ([]models.Order, error) {
	out := make([]models.Order, 0)
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("id IN (?)", s.db.Model(&models.OrderItem{}).Select("order_id").Where("seller_id = ?", sellerID)).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (s *OrderStore) UpdateStatus(ctx context.Context, id uint, status models.OrderStatus, approval *bool) error {
	fields := map[string]interface{}{"status": status}
	if approval != nil {
		fields["developer_approval"] = *approval
	}
	return s.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// BuyersOfProduct lists distinct users who ever ordered productID.
func (s *OrderStore) BuyersOfProduct(ctx context.Context, productID uint) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).
		Table("orders").
		Joins("JOIN order_items ON order_items.order_id = orders.id").
		Where("order_items.product_id = ?", productID).
		Distinct("orders.user_id").
		Pluck("orders.user_id", &ids).Error
	return ids, err
}

func (s *OrderStore) CountOpen(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("user_id = ? AND status IN ?", userID, []models.OrderStatus{
			models.OrderPending, models.OrderApproved, models.OrderInProgress,
		}).
		Count(&n).Error
	return n, err
}
