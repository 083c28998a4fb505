package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/models"
)

type CategoryRow struct {
	models.Category
	ParentName   *string `json:"parent_name"`
	ProductCount int64   `json:"product_count"`
}

type ProductRow struct {
	models.Product
	CategoryName *string `json:"category_name"`
	SellerName   string  `json:"seller_name"`
	AvgRating    float64 `json:"avg_rating"`
	ReviewCount  int64   `json:"review_count"`
}

type ProductFilter struct {
	Search     string
	CategoryID *uint
	SellerID   *uuid.UUID
	MinPrice   *float64
	MaxPrice   *float64
	ActiveOnly bool
	Sort       string
	Offset     int
	Limit      int
}

var productSorts = map[string]string{
	"name_asc":    "products.title ASC",
	"name_desc":   "products.title DESC",
	"price_asc":   "products.base_price ASC",
	"price_desc":  "products.base_price DESC",
	"rating_desc": "avg_rating DESC",
	"rating_asc":  "avg_rating ASC",
	"newest":      "products.created_at DESC",
}

const productColumns = `products.*, categories.name AS category_name, users.name AS seller_name,
	COALESCE((SELECT AVG(r.rating) FROM reviews r WHERE r.product_id = products.id AND r.status = 'approved'), 0) AS avg_rating,
	(SELECT COUNT(*) FROM reviews r WHERE r.product_id = products.id AND r.status = 'approved') AS review_count`

// CatalogStore persists categories and product listings.
type CatalogStore struct {
	db *gorm.DB
}

func NewCatalogStore(db *gorm.DB) *CatalogStore {
	return &CatalogStore{db: db}
}

func (s *CatalogStore) ListCategories(ctx context.Context, activeOnly bool) ([]CategoryRow, error) {
	q := s.db.WithContext(ctx).
		Table("categories").
		Select(`categories.*, parent.name AS parent_name,
			(SELECT COUNT(*) FROM products p WHERE p.category_id = categories.id AND p.status = 'active') AS product_count`).
		Joins("LEFT JOIN categories parent ON parent.id = categories.parent_id")
	if activeOnly {
		q = q.Where("categories.status = ?", models.StatusActive)
	}

	rows := make([]CategoryRow, 0)
	err := q.Order("categories.name ASC").Scan(&rows).Error
	return rows, err
}

func (s *CatalogStore) GetCategory(ctx context.Context, id uint) (models.Category, error) {
	var c models.Category
	err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error
	return c, notFound(err)
}

func (s *CatalogStore) CategoryNameTaken(ctx context.Context, name string, exclude uint) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Category{}).
		Where("LOWER(name) = LOWER(?) AND id <> ?", name, exclude).
		Count(&n).Error
	return n > 0, err
}

func (s *CatalogStore) CreateCategory(ctx context.Context, c *models.Category) error {
	return s.db.WithContext(ctx).Create(c).Error
}

func (s *CatalogStore) SaveCategory(ctx context.Context, c *models.Category) error {
	return s.db.WithContext(ctx).Save(c).Error
}

func (s *CatalogStore) ListProducts(ctx context.Context, f ProductFilter) ([]ProductRow, int64, error) {
	q := s.db.WithContext(ctx).
		Table("products").
		Joins("LEFT JOIN categories ON categories.id = products.category_id").
		Joins("JOIN users ON users.id = products.user_id")

	if f.ActiveOnly {
		q = q.Where("products.status = ?", models.StatusActive)
	}
	if f.Search != "" {
		like := containsPattern(f.Search)
		q = q.Where("(products.title ILIKE ? OR products.description ILIKE ?)", like, like)
	}
	if f.CategoryID != nil {
		q = q.Where("products.category_id = ?", *f.CategoryID)
	}
	if f.SellerID != nil {
		q = q.Where("products.user_id = ?", *f.SellerID)
	}
	if f.MinPrice != nil {
		q = q.Where("products.base_price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("products.base_price <= ?", *f.MaxPrice)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order, ok := productSorts[f.Sort]
	if !ok {
		order = productSorts["newest"]
	}

	rows := make([]ProductRow, 0)
	err := q.Select(productColumns).
		Order(order).
		Offset(f.Offset).
		Limit(f.Limit).
		Scan(&rows).Error
	return rows, total, err
}

func (s *CatalogStore) GetProductRow(ctx context.Context, id uint) (ProductRow, error) {
	var rows []ProductRow
	err := s.db.WithContext(ctx).
		Table("products").
		Select(productColumns).
		Joins("LEFT JOIN categories ON categories.id = products.category_id").
		Joins("JOIN users ON users.id = products.user_id").
		Where("products.id = ?", id).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return ProductRow{}, err
	}
	if len(rows) == 0 {
		return ProductRow{}, ErrNotFound
	}
	return rows[0], nil
}

func (s *CatalogStore) GetProduct(ctx context.Context, id uint) (models.Product, error) {
	var p models.Product
	err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error
	return p, notFound(err)
}

func (s *CatalogStore) ProductsByIDs(ctx context.Context, ids []uint) ([]models.Product, error) {
	out := make([]models.Product, 0, len(ids))
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error
	return out, err
}

func (s *CatalogStore) CreateProduct(ctx context.Context, p *models.Product) error {
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *CatalogStore) SaveProduct(ctx context.Context, p *models.Product) error {
	return s.db.WithContext(ctx).Save(p).Error
}

func (s *CatalogStore) DeleteProduct(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id).Error
}
