package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/auth"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/models"
)

// ProfileInput is a partial update; nil fields are left untouched.
type ProfileInput struct {
	Name       *string         `json:"name"`
	Email      *string         `json:"email"`
	Phone      *string         `json:"phone"`
	Address    *string         `json:"address"`
	City       *string         `json:"city"`
	Country    *string         `json:"country"`
	Occupation *string         `json:"occupation"`
	Bio        *string         `json:"bio"`
	Skills     json.RawMessage `json:"skills"`
}

type ProfileService struct {
	users UserRepository
}

func NewProfileService(users UserRepository) *ProfileService {
	return &ProfileService{users: users}
}

func (s *ProfileService) Get(ctx context.Context, caller auth.Identity) (models.User, error) {
	u, err := s.users.GetByID(ctx, caller.UserID)
	return u, lookup(err, "user not found")
}

func (s *ProfileService) Update(ctx context.Context, caller auth.Identity, in ProfileInput) (models.User, error) {
	u, err := s.users.GetByID(ctx, caller.UserID)
	if err != nil {
		return models.User{}, lookup(err, "user not found")
	}

	errs := apperr.FieldErrors{}
	if in.Name != nil {
		if name := strings.TrimSpace(*in.Name); name == "" {
			errs.Add("name", "name cannot be empty")
		} else {
			u.Name = name
		}
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if !strings.Contains(email, "@") {
			errs.Add("email", "email is not valid")
		} else if email != u.Email {
			taken, err := s.users.EmailTaken(ctx, email, u.ID)
			if err != nil {
				return models.User{}, apperr.Wrap(err, "check email")
			}
			if taken {
				return models.User{}, apperr.Conflict("email already in use")
			}
			u.Email = email
			u.EmailVerified = false
		}
	}
	if in.Skills != nil {
		skills, err := ParseList(in.Skills)
		if err != nil {
			errs.Add("skills", "skills "+err.Error())
		} else {
			u.Skills = skills
		}
	}
	if len(errs) > 0 {
		return models.User{}, apperr.Invalid(errs)
	}

	setTrimmed(&u.Phone, in.Phone)
	setTrimmed(&u.Address, in.Address)
	setTrimmed(&u.City, in.City)
	setTrimmed(&u.Country, in.Country)
	setTrimmed(&u.Occupation, in.Occupation)
	setTrimmed(&u.Bio, in.Bio)

	if err := s.users.Save(ctx, &u); err != nil {
		return models.User{}, apperr.Wrap(err, "update profile")
	}
	return u, nil
}

func setTrimmed(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
