package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

const (
	RoleCustomer   = "customer"
	RoleFreelancer = "freelancer"
	RoleAdmin      = "admin"
)

// Identity is the authenticated caller decoded from a bearer token.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

func (i Identity) HasRole(roles ...string) bool {
	for _, r := range roles {
		if strings.EqualFold(i.Role, r) {
			return true
		}
	}
	return false
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

var ErrNoBearer = errors.New("missing bearer token")

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrNoBearer
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrNoBearer
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", ErrNoBearer
	}
	return token, nil
}
