package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/models"
)

type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error
	return u, notFound(err)
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	return u, notFound(err)
}

// EmailTaken reports whether another user already owns email.
func (s *UserStore) EmailTaken(ctx context.Context, email string, exclude uuid.UUID) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ? AND id <> ?", email, exclude).
		Count(&n).Error
	return n > 0, err
}

func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	return s.db.WithContext(ctx).Create(u).Error
}

func (s *UserStore) Save(ctx context.Context, u *models.User) error {
	return s.db.WithContext(ctx).Save(u).Error
}
