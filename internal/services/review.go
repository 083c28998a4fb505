package services

import (
	"context"
	"math"
	"strings"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/auth"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/models"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/store"
)

const msgReviewNotFound = "review not found"

type ReviewInput struct {
	ProductID uint   `json:"product_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

type RatingInput struct {
	ProductID  uint `json:"product_id"`
	CriteriaID uint `json:"criteria_id"`
	Rating     int  `json:"rating"`
}

// ProductRatings summarises the per-criteria scores of one product.
type ProductRatings struct {
	ProductID uint                    `json:"product_id"`
	Criteria  []store.CriteriaAverage `json:"criteria"`
	Overall   float64                 `json:"overall"`
	Count     int64                   `json:"count"`
}

type ReviewService struct {
	reviews       ReviewRepository
	catalog       CatalogRepository
	notifications *NotificationService
}

func NewReviewService(reviews ReviewRepository, catalog CatalogRepository, notifications *NotificationService) *ReviewService {
	return &ReviewService{reviews: reviews, catalog: catalog, notifications: notifications}
}

// Create stores a pending review. It stays off the product page until an
// admin approves it.
func (s *ReviewService) Create(ctx context.Context, caller auth.Identity, in ReviewInput) (models.Review, error) {
	errs := apperr.FieldErrors{}
	if in.ProductID == 0 {
		errs.Add("product_id", "product_id is required")
	}
	if in.Rating < 1 || in.Rating > 5 {
		errs.Add("rating", "rating must be between 1 and 5")
	}
	if len(errs) > 0 {
		return models.Review{}, apperr.Invalid(errs)
	}

	p, err := s.catalog.GetProduct(ctx, in.ProductID)
	if err != nil {
		return models.Review{}, lookup(err, msgProductNotFound)
	}
	if p.UserID == caller.UserID {
		return models.Review{}, apperr.Validation("you cannot review your own product")
	}

	r := models.Review{
		ProductID: p.ID,
		UserID:    caller.UserID,
		Rating:    in.Rating,
		Comment:   strings.TrimSpace(in.Comment),
		Status:    models.ReviewPending,
	}
	if err := s.reviews.Create(ctx, &r); err != nil {
		return models.Review{}, apperr.Wrap(err, "create review")
	}
	return r, nil
}

func (s *ReviewService) ListForProduct(ctx context.Context, productID uint) ([]store.ReviewRow, error) {
	rows, err := s.reviews.ListApprovedForProduct(ctx, productID)
	if err != nil {
		return nil, apperr.Wrap(err, "list reviews")
	}
	return rows, nil
}

func (s *ReviewService) ListMine(ctx context.Context, caller auth.Identity) ([]store.ReviewRow, error) {
	rows, err := s.reviews.ListForUser(ctx, caller.UserID)
	if err != nil {
		return nil, apperr.Wrap(err, "list reviews")
	}
	return rows, nil
}

// ListByStatus is the moderation queue. Admin only.
func (s *ReviewService) ListByStatus(ctx context.Context, caller auth.Identity, status string) ([]store.ReviewRow, error) {
	if !caller.IsAdmin() {
		return nil, apperr.Forbidden("forbidden: insufficient role")
	}
	if status == "" {
		status = models.ReviewPending
	}
	rows, err := s.reviews.ListByStatus(ctx, status)
	if err != nil {
		return nil, apperr.Wrap(err, "list reviews")
	}
	return rows, nil
}

func (s *ReviewService) SetStatus(ctx context.Context, caller auth.Identity, id uint, status string) (models.Review, error) {
	if !caller.IsAdmin() {
		return models.Review{}, apperr.Forbidden("forbidden: insufficient role")
	}
	status = strings.ToLower(strings.TrimSpace(status))
	if status != models.ReviewApproved && status != models.ReviewRejected {
		return models.Review{}, apperr.Validation("status must be approved or rejected")
	}

	r, err := s.reviews.Get(ctx, id)
	if err != nil {
		return models.Review{}, lookup(err, msgReviewNotFound)
	}
	if r.Status == status {
		return r, nil
	}
	if err := s.reviews.SetStatus(ctx, id, status); err != nil {
		return models.Review{}, apperr.Wrap(err, "update review")
	}
	r.Status = status

	if status == models.ReviewApproved {
		title := ""
		if p, err := s.catalog.GetProduct(ctx, r.ProductID); err == nil {
			title = p.Title
		}
		s.notifications.ReviewApproved(ctx, r, title)
	}
	return r, nil
}

func (s *ReviewService) Criteria(ctx context.Context) ([]models.RatingCriteria, error) {
	out, err := s.reviews.ListCriteria(ctx)
	if err != nil {
		return nil, apperr.Wrap(err, "list rating criteria")
	}
	return out, nil
}

// Rate records or replaces the caller's score for one criterion.
func (s *ReviewService) Rate(ctx context.Context, caller auth.Identity, in RatingInput) (models.ProductRating, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return models.ProductRating{}, apperr.Validation("rating must be between 1 and 5")
	}
	if _, err := s.catalog.GetProduct(ctx, in.ProductID); err != nil {
		return models.ProductRating{}, lookup(err, msgProductNotFound)
	}
	c, err := s.reviews.GetCriteria(ctx, in.CriteriaID)
	if err != nil {
		return models.ProductRating{}, lookup(err, "rating criteria not found")
	}
	if c.Status != models.StatusActive {
		return models.ProductRating{}, apperr.Validation("rating criteria is inactive")
	}

	r := models.ProductRating{
		UserID:     caller.UserID,
		ProductID:  in.ProductID,
		CriteriaID: in.CriteriaID,
		Rating:     in.Rating,
	}
	if err := s.reviews.UpsertRating(ctx, &r); err != nil {
		return models.ProductRating{}, apperr.Wrap(err, "save rating")
	}
	return r, nil
}

// ProductRatings returns per-criteria averages and an overall score
// weighted by the number of ratings behind each criterion.
func (s *ReviewService) ProductRatings(ctx context.Context, productID uint) (ProductRatings, error) {
	avgs, err := s.reviews.ProductAverages(ctx, productID)
	if err != nil {
		return ProductRatings{}, apperr.Wrap(err, "load ratings")
	}
	out := ProductRatings{ProductID: productID, Criteria: avgs}
	var sum float64
	for _, a := range avgs {
		sum += a.Average * float64(a.Count)
		out.Count += a.Count
	}
	if out.Count > 0 {
		out.Overall = math.Round(sum/float64(out.Count)*100) / 100
	}
	return out, nil
}

func (s *ReviewService) MyRatings(ctx context.Context, caller auth.Identity, productID uint) ([]models.ProductRating, error) {
	out, err := s.reviews.RatingsByUser(ctx, caller.UserID, productID)
	if err != nil {
		return nil, apperr.Wrap(err, "load ratings")
	}
	return out, nil
}
