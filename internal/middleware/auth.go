package middleware

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/auth"
)

const identityLocal = "identity"

// Authenticator resolves an access token to the caller.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Identity, error)
}

// RequireAuth rejects requests without a valid access token and stores the
// caller in the request locals and user context.
func RequireAuth(authn Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tok := TokenFromRequest(c, false)
		if tok == "" {
			return apperr.Unauthorized("authentication required")
		}
		id, err := authn.Authenticate(c.UserContext(), tok)
		if err != nil {
			return err
		}
		setIdentity(c, id)
		return c.Next()
	}
}

// OptionalAuth attaches the caller when a valid token is present and lets
// anonymous requests through. A bad token is treated as anonymous.
func OptionalAuth(authn Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if tok := TokenFromRequest(c, false); tok != "" {
			if id, err := authn.Authenticate(c.UserContext(), tok); err == nil {
				setIdentity(c, id)
			}
		}
		return c.Next()
	}
}

func setIdentity(c *fiber.Ctx, id auth.Identity) {
	c.Locals(identityLocal, id)
	c.SetUserContext(auth.WithIdentity(c.UserContext(), id))
}

// Caller returns the authenticated identity set by RequireAuth.
func Caller(c *fiber.Ctx) (auth.Identity, bool) {
	id, ok := c.Locals(identityLocal).(auth.Identity)
	return id, ok
}

// MustCaller is for handlers mounted behind RequireAuth.
func MustCaller(c *fiber.Ctx) (auth.Identity, error) {
	id, ok := Caller(c)
	if !ok {
		return auth.Identity{}, apperr.Unauthorized("authentication required")
	}
	return id, nil
}

// OptionalCaller returns nil for anonymous requests.
func OptionalCaller(c *fiber.Ctx) *auth.Identity {
	if id, ok := Caller(c); ok {
		return &id
	}
	return nil
}
