package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/models"
)

type ReviewRow struct {
	models.Review
	UserName     string `json:"user_name"`
	ProductTitle string `json:"product_title"`
}

type CriteriaAverage struct {
	CriteriaID uint    `json:"criteria_id"`
	Name       string  `json:"name"`
	Average    float64 `json:"average"`
	Count      int64   `json:"count"`
}

type ReviewStore struct {
	db *gorm.DB
}

func NewReviewStore(db *gorm.DB) *ReviewStore {
	return &ReviewStore{db: db}
}

func (s *ReviewStore) Create(ctx context.Context, r *models.Review) error {
	return s.db.WithContext(ctx).Create(r).Error
}

func (s *ReviewStore) Get(ctx context.Context, id uint) (models.Review, error) {
	var r models.Review
	err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error
	return r, notFound(err)
}

func (s *ReviewStore) list(ctx context.Context, where string, args ...interface{}) ([]ReviewRow, error) {
	rows := make([]ReviewRow, 0)
	err := s.db.WithContext(ctx).
		Table("reviews").
		Select("reviews.*, users.name AS user_name, products.title AS product_title").
		Joins("JOIN users ON users.id = reviews.user_id").
		Joins("JOIN products ON products.id = reviews.product_id").
		Where(where, args...).
		Order("reviews.created_at DESC").
		Scan(&rows).Error
	return rows, err
}

func (s *ReviewStore) ListApprovedForProduct(ctx context.Context, productID uint) ([]ReviewRow, error) {
	return s.list(ctx, "reviews.product_id = ? AND reviews.status = ?", productID, models.ReviewApproved)
}

func (s *ReviewStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]ReviewRow, error) {
	return s.list(ctx, "reviews.user_id = ?", userID)
}

func (s *ReviewStore) ListByStatus(ctx context.Context, status string) ([]ReviewRow, error) {
	return s.list(ctx, "reviews.status = ?", status)
}

func (s *ReviewStore) SetStatus(ctx context.Context, id uint, status string) error {
	return s.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (s *ReviewStore) ListCriteria(ctx context.Context) ([]models.RatingCriteria, error) {
	out := make([]models.RatingCriteria, 0)
	err := s.db.WithContext(ctx).
		Where("status = ?", models.StatusActive).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

func (s *ReviewStore) GetCriteria(ctx context.Context, id uint) (models.RatingCriteria, error) {
	var c models.RatingCriteria
	err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error
	return c, notFound(err)
}

// UpsertRating keeps one score per (user, product, criteria).
func (s *ReviewStore) UpsertRating(ctx context.Context, r *models.ProductRating) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}, {Name: "criteria_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating", "updated_at"}),
		}).
		Create(r).Error
}

func (s *ReviewStore) ProductAverages(ctx context.Context, productID uint) ([]CriteriaAverage, error) {
	out := make([]CriteriaAverage, 0)
	err := s.db.WithContext(ctx).
		Table("product_ratings").
		Select("rating_criteria.id AS criteria_id, rating_criteria.name AS name, AVG(product_ratings.rating) AS average, COUNT(*) AS count").
		Joins("JOIN rating_criteria ON rating_criteria.id = product_ratings.criteria_id").
		Where("product_ratings.product_id = ?", productID).
		Group("rating_criteria.id, rating_criteria.name").
		Order("rating_criteria.id ASC").
		Scan(&out).Error
	return out, err
}

func (s *ReviewStore) RatingsByUser(ctx context.Context, userID uuid.UUID, productID uint) ([]models.ProductRating, error) {
	out := make([]models.ProductRating, 0)
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Find(&out).Error
	return out, err
}
