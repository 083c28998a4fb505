package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/models"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/utils"
)

var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

type TokenIssuer struct {
	secret    string
	accessTTL time.Duration
	verifyTTL time.Duration
	resetTTL  time.Duration
}

func NewTokenIssuer(secret string, accessTTL, verifyTTL, resetTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:    secret,
		accessTTL: accessTTL,
		verifyTTL: verifyTTL,
		resetTTL:  resetTTL,
	}
}

func (t *TokenIssuer) ResetTTL() time.Duration { return t.resetTTL }

func (t *TokenIssuer) IssueAccess(u models.User) (string, error) {
	return utils.SignJWT(t.secret, utils.Claims{
		UserID:  u.ID.String(),
		Email:   u.Email,
		Role:    string(u.Role),
		Purpose: utils.PurposeAccess,
	}, t.accessTTL)
}

func (t *TokenIssuer) ParseAccess(tokenStr string) (Identity, error) {
	claims, err := t.parse(tokenStr)
	if err != nil {
		return Identity{}, err
	}
	if claims.Purpose != utils.PurposeAccess {
		return Identity{}, ErrTokenInvalid
	}
	uid, err := uuid.Parse(strings.TrimSpace(claims.UserID))
	if err != nil {
		return Identity{}, ErrTokenInvalid
	}
	return Identity{
		UserID: uid,
		Email:  claims.Email,
		Role:   strings.ToLower(strings.TrimSpace(claims.Role)),
	}, nil
}

// IssueEmailToken signs a single-purpose token that embeds only the email.
func (t *TokenIssuer) IssueEmailToken(email, purpose string) (string, error) {
	ttl := t.verifyTTL
	if purpose == utils.PurposeResetPassword {
		ttl = t.resetTTL
	}
	return utils.SignJWT(t.secret, utils.Claims{Email: email, Purpose: purpose}, ttl)
}

func (t *TokenIssuer) ParseEmailToken(tokenStr, purpose string) (string, error) {
	claims, err := t.parse(tokenStr)
	if err != nil {
		return "", err
	}
	if claims.Purpose != purpose || claims.Email == "" {
		return "", ErrTokenInvalid
	}
	return claims.Email, nil
}

func (t *TokenIssuer) parse(tokenStr string) (*utils.Claims, error) {
	claims, err := utils.ParseJWT(t.secret, tokenStr)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case err != nil:
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
