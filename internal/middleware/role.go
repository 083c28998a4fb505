package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/apperr"
)

// RequireRoles must run after RequireAuth.
func RequireRoles(allowed ...string) fiber.Handler {
	allowedSet := map[string]bool{}
	for _, r := range allowed {
		allowedSet[strings.ToLower(r)] = true
	}

	return func(c *fiber.Ctx) error {
		id, ok := Caller(c)
		if !ok {
			return apperr.Unauthorized("authentication required")
		}
		if !allowedSet[strings.ToLower(strings.TrimSpace(id.Role))] {
			return apperr.Forbidden("forbidden: insufficient role")
		}
		return c.Next()
	}
}
