package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/auth"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/log"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/models"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/store"
)

const (
	msgCategoryNotFound = "category not found"
	msgProductNotFound  = "product not found"
)

type CategoryInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ParentID    *uint   `json:"parent_id"`
	Status      *string `json:"status"`
}

type ProductInput struct {
	Title        *string         `json:"title"`
	Description  *string         `json:"description"`
	CategoryID   *uint           `json:"category_id"`
	BasePrice    json.RawMessage `json:"base_price"`
	Features     json.RawMessage `json:"features"`
	DeliveryDays *int            `json:"delivery_days"`
	Stock        *int            `json:"stock"`
	CoverURL     *string         `json:"cover_url"`
	Status       *string         `json:"status"`
}

type ProductQuery struct {
	Search     string
	CategoryID *uint
	SellerID   *uuid.UUID
	MinPrice   *float64
	MaxPrice   *float64
	Sort       string
	Page       int
	Limit      int
}

type ProductPage struct {
	Items []store.ProductRow `json:"items"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

// CatalogService manages categories and freelancer product listings.
type CatalogService struct {
	catalog       CatalogRepository
	orders        OrderRepository
	notifications *NotificationService
	logger        zerolog.Logger
}

func NewCatalogService(catalog CatalogRepository, orders OrderRepository, notifications *NotificationService) *CatalogService {
	return &CatalogService{
		catalog:       catalog,
		orders:        orders,
		notifications: notifications,
		logger:        log.WithComponent("catalog"),
	}
}

func (s *CatalogService) ListCategories(ctx context.Context, includeInactive bool) ([]store.CategoryRow, error) {
	rows, err := s.catalog.ListCategories(ctx, !includeInactive)
	if err != nil {
		return nil, apperr.Wrap(err, "list categories")
	}
	return rows, nil
}

func (s *CatalogService) GetCategory(ctx context.Context, id uint) (models.Category, error) {
	c, err := s.catalog.GetCategory(ctx, id)
	return c, lookup(err, msgCategoryNotFound)
}

func (s *CatalogService) CreateCategory(ctx context.Context, caller auth.Identity, in CategoryInput) (models.Category, error) {
	if !caller.IsAdmin() {
		return models.Category{}, apperr.Forbidden("forbidden: insufficient role")
	}
	c := models.Category{Status: models.StatusActive}
	if err := s.applyCategory(ctx, &c, in, true); err != nil {
		return models.Category{}, err
	}
	if err := s.catalog.CreateCategory(ctx, &c); err != nil {
		return models.Category{}, apperr.Wrap(err, "create category")
	}
	return c, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, caller auth.Identity, id uint, in CategoryInput) (models.Category, error) {
	if !caller.IsAdmin() {
		return models.Category{}, apperr.Forbidden("forbidden: insufficient role")
	}
	c, err := s.catalog.GetCategory(ctx, id)
	if err != nil {
		return models.Category{}, lookup(err, msgCategoryNotFound)
	}
	if err := s.applyCategory(ctx, &c, in, false); err != nil {
		return models.Category{}, err
	}
	if err := s.catalog.SaveCategory(ctx, &c); err != nil {
		return models.Category{}, apperr.Wrap(err, "update category")
	}
	return c, nil
}

func (s *CatalogService) applyCategory(ctx context.Context, c *models.Category, in CategoryInput, create bool) error {
	if in.Name != nil || create {
		name := ""
		if in.Name != nil {
			name = strings.TrimSpace(*in.Name)
		}
		if name == "" {
			return apperr.Validation("name is required")
		}
		taken, err := s.catalog.CategoryNameTaken(ctx, name, c.ID)
		if err != nil {
			return apperr.Wrap(err, "check category name")
		}
		if taken {
			return apperr.Conflict("category name already exists")
		}
		c.Name = name
	}
	if in.Description != nil {
		c.Description = strings.TrimSpace(*in.Description)
	}
	if in.ParentID != nil {
		if c.ID != 0 && *in.ParentID == c.ID {
			return apperr.Validation("a category cannot be its own parent")
		}
		if _, err := s.catalog.GetCategory(ctx, *in.ParentID); err != nil {
			return lookup(err, "parent category not found")
		}
		c.ParentID = in.ParentID
	}
	if in.Status != nil {
		st := strings.ToLower(strings.TrimSpace(*in.Status))
		if st != models.StatusActive && st != models.StatusInactive {
			return apperr.Validation("status must be active or inactive")
		}
		c.Status = st
	}
	return nil
}

func (s *CatalogService) ListProducts(ctx context.Context, q ProductQuery) (ProductPage, error) {
	offset, limit := store.Page(q.Page, q.Limit)
	rows, total, err := s.catalog.ListProducts(ctx, store.ProductFilter{
		Search:     strings.TrimSpace(q.Search),
		CategoryID: q.CategoryID,
		SellerID:   q.SellerID,
		MinPrice:   q.MinPrice,
		MaxPrice:   q.MaxPrice,
		ActiveOnly: q.SellerID == nil,
		Sort:       q.Sort,
		Offset:     offset,
		Limit:      limit,
	})
	if err != nil {
		return ProductPage{}, apperr.Wrap(err, "list products")
	}
	return ProductPage{Items: rows, Total: total, Page: offset/limit + 1, Limit: limit}, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint) (store.ProductRow, error) {
	row, err := s.catalog.GetProductRow(ctx, id)
	return row, lookup(err, msgProductNotFound)
}

// CreateProduct publishes a listing. Only freelancers sell.
func (s *CatalogService) CreateProduct(ctx context.Context, caller auth.Identity, in ProductInput) (models.Product, error) {
	if !caller.HasRole(auth.RoleFreelancer) {
		return models.Product{}, apperr.Forbidden("forbidden: insufficient role")
	}
	p := models.Product{UserID: caller.UserID, Status: models.StatusActive}
	if err := s.applyProduct(ctx, &p, in, true); err != nil {
		return models.Product{}, err
	}
	if err := s.catalog.CreateProduct(ctx, &p); err != nil {
		return models.Product{}, apperr.Wrap(err, "create product")
	}
	return p, nil
}

// UpdateProduct lets the owner edit a listing. Past buyers hear about
// price changes and restocks.
func (s *CatalogService) UpdateProduct(ctx context.Context, caller auth.Identity, id uint, in ProductInput) (models.Product, error) {
	p, err := s.catalog.GetProduct(ctx, id)
	if err != nil {
		return models.Product{}, lookup(err, msgProductNotFound)
	}
	if p.UserID != caller.UserID {
		return models.Product{}, apperr.Forbidden("only the seller can edit this product")
	}

	oldPrice, oldStock := p.BasePrice, p.Stock
	if err := s.applyProduct(ctx, &p, in, false); err != nil {
		return models.Product{}, err
	}
	if err := s.catalog.SaveProduct(ctx, &p); err != nil {
		return models.Product{}, apperr.Wrap(err, "update product")
	}

	priceChanged := p.BasePrice != oldPrice
	restocked := oldStock == 0 && p.Stock > 0
	if priceChanged || restocked {
		buyers, err := s.orders.BuyersOfProduct(ctx, p.ID)
		if err != nil {
			s.logger.Warn().Err(err).Uint("product_id", p.ID).Msg("load buyers for alerts")
			return p, nil
		}
		if priceChanged {
			s.notifications.PriceChanged(ctx, p, oldPrice, buyers)
		}
		if restocked {
			s.notifications.BackInStock(ctx, p, buyers)
		}
	}
	return p, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, caller auth.Identity, id uint) error {
	p, err := s.catalog.GetProduct(ctx, id)
	if err != nil {
		return lookup(err, msgProductNotFound)
	}
	if p.UserID != caller.UserID && !caller.IsAdmin() {
		return apperr.Forbidden("only the seller can delete this product")
	}
	if err := s.catalog.DeleteProduct(ctx, id); err != nil {
		return apperr.Wrap(err, "delete product")
	}
	return nil
}

func (s *CatalogService) applyProduct(ctx context.Context, p *models.Product, in ProductInput, create bool) error {
	errs := apperr.FieldErrors{}

	if in.Title != nil || create {
		title := ""
		if in.Title != nil {
			title = strings.TrimSpace(*in.Title)
		}
		if title == "" {
			errs.Add("title", "title is required")
		}
		p.Title = title
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}

	price, present, err := ParseAmount(in.BasePrice)
	switch {
	case err != nil:
		errs.Add("base_price", "base_price "+err.Error())
	case !present && create:
		errs.Add("base_price", "base_price is required")
	case present && price <= 0:
		errs.Add("base_price", "base_price must be greater than zero")
	case present:
		p.BasePrice = price
	}

	if in.Features != nil {
		features, err := ParseList(in.Features)
		if err != nil {
			errs.Add("features", "features "+err.Error())
		} else {
			p.Features = features
		}
	}
	if in.DeliveryDays != nil {
		if *in.DeliveryDays < 0 {
			errs.Add("delivery_days", "delivery_days cannot be negative")
		}
		p.DeliveryDays = *in.DeliveryDays
	}
	if in.Stock != nil {
		if *in.Stock < 0 {
			errs.Add("stock", "stock cannot be negative")
		}
		p.Stock = *in.Stock
	}
	if in.CoverURL != nil {
		p.CoverURL = strings.TrimSpace(*in.CoverURL)
	}
	if in.Status != nil {
		st := strings.ToLower(strings.TrimSpace(*in.Status))
		if st != models.StatusActive && st != models.StatusInactive {
			errs.Add("status", "status must be active or inactive")
		}
		p.Status = st
	}
	if len(errs) > 0 {
		return apperr.Invalid(errs)
	}

	if in.CategoryID != nil {
		if _, err := s.catalog.GetCategory(ctx, *in.CategoryID); err != nil {
			return lookup(err, msgCategoryNotFound)
		}
		p.CategoryID = in.CategoryID
	}
	return nil
}
