package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/auth"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/log"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/models"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/store"
)

const msgOrderNotFound = "order not found"

type OrderLine struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

type OrderInput struct {
	Items []OrderLine `json:"items"`
	Notes string      `json:"notes"`
}

type OrderStatusInput struct {
	Status            models.OrderStatus `json:"status"`
	DeveloperApproval *bool              `json:"developer_approval"`
}

type OrderService struct {
	orders        OrderRepository
	catalog       CatalogRepository
	notifications *NotificationService
	logger        zerolog.Logger
}

func NewOrderService(orders OrderRepository, catalog CatalogRepository, notifications *NotificationService) *OrderService {
	return &OrderService{
		orders:        orders,
		catalog:       catalog,
		notifications: notifications,
		logger:        log.WithComponent("orders"),
	}
}

// Create places an order priced from the current product rows. Repeated
// product ids are merged into one line.
func (s *OrderService) Create(ctx context.Context, caller auth.Identity, in OrderInput) (models.Order, error) {
	if len(in.Items) == 0 {
		return models.Order{}, apperr.Validation("items are required")
	}

	qty := make(map[uint]int, len(in.Items))
	ids := make([]uint, 0, len(in.Items))
	errs := apperr.FieldErrors{}
	for i, line := range in.Items {
		if line.ProductID == 0 {
			errs.Add(fmt.Sprintf("items[%d].product_id", i), "product_id is required")
			continue
		}
		if line.Quantity <= 0 {
			errs.Add(fmt.Sprintf("items[%d].quantity", i), "quantity must be greater than zero")
			continue
		}
		if _, seen := qty[line.ProductID]; !seen {
			ids = append(ids, line.ProductID)
		}
		qty[line.ProductID] += line.Quantity
	}
	if len(errs) > 0 {
		return models.Order{}, apperr.Invalid(errs)
	}

	products, err := s.catalog.ProductsByIDs(ctx, ids)
	if err != nil {
		return models.Order{}, apperr.Wrap(err, "load products")
	}
	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]models.OrderItem, 0, len(ids))
	var total float64
	for _, id := range ids {
		p, ok := byID[id]
		if !ok || p.Status != models.StatusActive {
			return models.Order{}, apperr.NotFound(fmt.Sprintf("product %d not found", id))
		}
		if p.UserID == caller.UserID {
			return models.Order{}, apperr.Validation("you cannot order your own product")
		}
		if p.Stock < qty[id] {
			return models.Order{}, apperr.Validation("insufficient stock for " + p.Title)
		}
		items = append(items, models.OrderItem{
			ProductID: p.ID,
			SellerID:  p.UserID,
			Quantity:  qty[id],
			UnitPrice: p.BasePrice,
		})
		total += p.BasePrice * float64(qty[id])
	}

	order := models.Order{
		UserID:      caller.UserID,
		Status:      models.OrderPending,
		TotalAmount: math.Round(total*100) / 100,
		Notes:       strings.TrimSpace(in.Notes),
	}
	if err := s.orders.Create(ctx, &order, items); err != nil {
		if errors.Is(err, store.ErrInsufficientStock) {
			return models.Order{}, apperr.Validation("insufficient stock")
		}
		return models.Order{}, apperr.Wrap(err, "create order")
	}
	s.logger.Info().Uint("order_id", order.ID).Str("user_id", caller.UserID.String()).Int("lines", len(items)).Msg("order placed")
	return order, nil
}

func (s *OrderService) ListMine(ctx context.Context, caller auth.Identity) ([]models.Order, error) {
	out, err := s.orders.ListForUser(ctx, caller.UserID)
	if err != nil {
		return nil, apperr.Wrap(err, "list orders")
	}
	return out, nil
}

// ListSales returns orders that contain the caller's products.
func (s *OrderService) ListSales(ctx context.Context, caller auth.Identity) ([]models.Order, error) {
	out, err := s.orders.ListForSeller(ctx, caller.UserID)
	if err != nil {
		return nil, apperr.Wrap(err, "list sales")
	}
	return out, nil
}

// Get is visible to the buyer, any seller on the order and admins.
func (s *OrderService) Get(ctx context.Context, caller auth.Identity, id uint) (models.Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return models.Order{}, lookup(err, msgOrderNotFound)
	}
	if o.UserID != caller.UserID && !caller.IsAdmin() && !sellsOn(o, caller) {
		return models.Order{}, apperr.NotFound(msgOrderNotFound)
	}
	return o, nil
}

func (s *OrderService) UpdateStatus(ctx context.Context, caller auth.Identity, id uint, in OrderStatusInput) (models.Order, error) {
	if !in.Status.Valid() {
		return models.Order{}, apperr.Validation("status must be one of pending, approved, in_progress, completed, cancelled")
	}
	o, err := s.Get(ctx, caller, id)
	if err != nil {
		return models.Order{}, err
	}
	if !caller.IsAdmin() && !sellsOn(o, caller) {
		return models.Order{}, apperr.Forbidden("only a seller on this order can change its status")
	}

	if err := s.orders.UpdateStatus(ctx, o.ID, in.Status, in.DeveloperApproval); err != nil {
		return models.Order{}, apperr.Wrap(err, "update order status")
	}
	changed := o.Status != in.Status
	o.Status = in.Status
	if in.DeveloperApproval != nil {
		o.DeveloperApproval = in.DeveloperApproval
	}
	if changed {
		s.notifications.OrderStatusChanged(ctx, o)
	}
	return o, nil
}

func (s *OrderService) CountOpen(ctx context.Context, caller auth.Identity) (int64, error) {
	n, err := s.orders.CountOpen(ctx, caller.UserID)
	if err != nil {
		return 0, apperr.Wrap(err, "count orders")
	}
	return n, nil
}

func sellsOn(o models.Order, caller auth.Identity) bool {
	for _, it := range o.Items {
		if it.SellerID == caller.UserID {
			return true
		}
	}
	return false
}
