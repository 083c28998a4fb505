package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/auth"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/log"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/models"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/store"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/utils"
)

const msgBadCredentials = "invalid email or password"

var (
	absentHashOnce sync.Once
	absentHash     string
)

// absentUserHash is compared against when the email is unknown so a miss
// costs the same bcrypt work as a wrong password.
func absentUserHash() string {
	absentHashOnce.Do(func() {
		absentHash, _ = utils.HashPassword(uuid.NewString())
	})
	return absentHash
}

// ForgotPasswordMessage is returned whether or not the email exists.
const ForgotPasswordMessage = "if the email is registered, a reset link has been sent"

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

type AuthResult struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

type AuthService struct {
	users       UserRepository
	tokens      *auth.TokenIssuer
	mailer      Mailer
	frontendURL string
	now         func() time.Time
	checkPass   func(hash, password string) bool
	logger      zerolog.Logger
}

func NewAuthService(users UserRepository, tokens *auth.TokenIssuer, mailer Mailer, frontendURL string) *AuthService {
	return &AuthService{
		users:       users,
		tokens:      tokens,
		mailer:      mailer,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		now:         time.Now,
		checkPass:   utils.CheckPassword,
		logger:      log.WithComponent("auth"),
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	role := strings.ToLower(strings.TrimSpace(in.Role))
	if role == "" {
		role = auth.RoleCustomer
	}

	errs := apperr.FieldErrors{}
	if name == "" {
		errs.Add("name", "name is required")
	}
	if email == "" {
		errs.Add("email", "email is required")
	} else if !strings.Contains(email, "@") {
		errs.Add("email", "email is not valid")
	}
	for _, p := range utils.PasswordProblems(in.Password) {
		errs.Add("password", p)
	}
	if role != auth.RoleCustomer && role != auth.RoleFreelancer {
		errs.Add("role", "role must be customer or freelancer")
	}
	if len(errs) > 0 {
		return AuthResult{}, apperr.Invalid(errs)
	}

	taken, err := s.users.EmailTaken(ctx, email, uuid.Nil)
	if err != nil {
		return AuthResult{}, apperr.Wrap(err, "check email")
	}
	if taken {
		return AuthResult{}, apperr.Conflict("email already registered")
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return AuthResult{}, apperr.Wrap(err, "hash password")
	}

	u := models.User{
		Name:     name,
		Email:    email,
		Password: hash,
		Role:     models.Role(role),
		Phone:    strings.TrimSpace(in.Phone),
		IsActive: true,
	}
	if err := s.users.Create(ctx, &u); err != nil {
		return AuthResult{}, apperr.Wrap(err, "create user")
	}

	s.sendVerification(ctx, u.Email)

	token, err := s.tokens.IssueAccess(u)
	if err != nil {
		return AuthResult{}, apperr.Wrap(err, "issue token")
	}
	return AuthResult{User: u, Token: token}, nil
}

// Login answers the same way for an unknown email and a wrong password.
func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return AuthResult{}, apperr.Validation("email and password are required")
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.checkPass(absentUserHash(), password)
			return AuthResult{}, apperr.Unauthorized(msgBadCredentials)
		}
		return AuthResult{}, apperr.Wrap(err, "load user")
	}
	if match := s.checkPass(u.Password, password); !match || !u.IsActive {
		return AuthResult{}, apperr.Unauthorized(msgBadCredentials)
	}

	now := s.now()
	u.LastLoginAt = &now
	if err := s.users.Save(ctx, &u); err != nil {
		s.logger.Warn().Err(err).Str("user_id", u.ID.String()).Msg("record last login")
	}

	token, err := s.tokens.IssueAccess(u)
	if err != nil {
		return AuthResult{}, apperr.Wrap(err, "issue token")
	}
	return AuthResult{User: u, Token: token}, nil
}

// LoginWithGoogle signs in the owner of a verified Google email, creating a
// customer account on first use.
func (s *AuthService) LoginWithGoogle(ctx context.Context, email, name string) (AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return AuthResult{}, apperr.Validation("google account has no email")
	}

	u, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// Random password: the account can only sign in through Google
		// until the owner resets it.
		hash, herr := utils.HashPassword(uuid.NewString())
		if herr != nil {
			return AuthResult{}, apperr.Wrap(herr, "hash password")
		}
		if strings.TrimSpace(name) == "" {
			name = strings.Split(email, "@")[0]
		}
		u = models.User{
			Name:          strings.TrimSpace(name),
			Email:         email,
			Password:      hash,
			Role:          models.RoleCustomer,
			IsActive:      true,
			EmailVerified: true,
		}
		if err := s.users.Create(ctx, &u); err != nil {
			return AuthResult{}, apperr.Wrap(err, "create user")
		}
	case err != nil:
		return AuthResult{}, apperr.Wrap(err, "load user")
	case !u.IsActive:
		return AuthResult{}, apperr.Unauthorized(msgBadCredentials)
	}

	token, err := s.tokens.IssueAccess(u)
	if err != nil {
		return AuthResult{}, apperr.Wrap(err, "issue token")
	}
	return AuthResult{User: u, Token: token}, nil
}

// Authenticate resolves a bearer token to an identity whose user still
// exists and is active.
func (s *AuthService) Authenticate(ctx context.Context, token string) (auth.Identity, error) {
	id, err := s.tokens.ParseAccess(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return auth.Identity{}, &apperr.Error{Kind: apperr.KindUnauthorized, Message: "token expired", Err: err}
		}
		return auth.Identity{}, &apperr.Error{Kind: apperr.KindUnauthorized, Message: "invalid token", Err: err}
	}

	u, err := s.users.GetByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return auth.Identity{}, apperr.Unauthorized("user not found")
		}
		return auth.Identity{}, apperr.Wrap(err, "load user")
	}
	if !u.IsActive {
		return auth.Identity{}, apperr.Unauthorized("account is inactive")
	}

	// The stored role wins over the one baked into the token.
	return auth.Identity{UserID: u.ID, Email: u.Email, Role: string(u.Role)}, nil
}

func (s *AuthService) Me(ctx context.Context, caller auth.Identity) (models.User, error) {
	u, err := s.users.GetByID(ctx, caller.UserID)
	return u, lookup(err, "user not found")
}

func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return apperr.Validation("email is required")
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperr.Wrap(err, "load user")
	}

	token, err := s.tokens.IssueEmailToken(u.Email, utils.PurposeResetPassword)
	if err != nil {
		return apperr.Wrap(err, "issue reset token")
	}
	digest := tokenDigest(token)
	expires := s.now().Add(s.tokens.ResetTTL())
	u.ResetToken = &digest
	u.ResetTokenExpiresAt = &expires
	if err := s.users.Save(ctx, &u); err != nil {
		return apperr.Wrap(err, "store reset token")
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, url.QueryEscape(token))
	if err := s.mailer.Send(ctx, u.Email, "Reset your password",
		"Use this link within the hour to choose a new password:\n\n"+link); err != nil {
		s.logger.Error().Err(err).Str("user_id", u.ID.String()).Msg("send reset email")
	}
	return nil
}

// ResetPassword consumes a reset token; each token works once.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	email, err := s.tokens.ParseEmailToken(token, utils.PurposeResetPassword)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return apperr.Validation("reset token expired")
		}
		return apperr.Validation("invalid reset token")
	}

	if problems := utils.PasswordProblems(password); len(problems) > 0 {
		errs := apperr.FieldErrors{}
		for _, p := range problems {
			errs.Add("password", p)
		}
		return apperr.Invalid(errs)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.Validation("invalid reset token")
		}
		return apperr.Wrap(err, "load user")
	}
	if u.ResetToken == nil || *u.ResetToken != tokenDigest(token) {
		return apperr.Validation("invalid reset token")
	}
	if u.ResetTokenExpiresAt == nil || s.now().After(*u.ResetTokenExpiresAt) {
		return apperr.Validation("reset token expired")
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return apperr.Wrap(err, "hash password")
	}
	u.Password = hash
	u.ResetToken = nil
	u.ResetTokenExpiresAt = nil
	if err := s.users.Save(ctx, &u); err != nil {
		return apperr.Wrap(err, "update password")
	}
	return nil
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	email, err := s.tokens.ParseEmailToken(token, utils.PurposeVerifyEmail)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return apperr.Validation("verification link expired")
		}
		return apperr.Validation("invalid verification link")
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.Validation("invalid verification link")
		}
		return apperr.Wrap(err, "load user")
	}
	if u.EmailVerified {
		return nil
	}
	u.EmailVerified = true
	if err := s.users.Save(ctx, &u); err != nil {
		return apperr.Wrap(err, "verify email")
	}
	return nil
}

func (s *AuthService) sendVerification(ctx context.Context, email string) {
	token, err := s.tokens.IssueEmailToken(email, utils.PurposeVerifyEmail)
	if err != nil {
		s.logger.Error().Err(err).Msg("issue verification token")
		return
	}
	link := fmt.Sprintf("%s/verify-email/%s", s.frontendURL, url.PathEscape(token))
	if err := s.mailer.Send(ctx, email, "Verify your email",
		"Confirm your address by opening:\n\n"+link); err != nil {
		s.logger.Error().Err(err).Msg("send verification email")
	}
}

func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
