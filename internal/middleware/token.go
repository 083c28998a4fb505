package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/auth"
)

// TokenCookie carries the access token for browser clients that cannot set
// an Authorization header.
const TokenCookie = "jm_token"

// TokenFromRequest looks for a bearer token in the Authorization header,
// then the token cookie, then (when allowQuery is set) the token query
// parameter used by websocket clients.
func TokenFromRequest(c *fiber.Ctx, allowQuery bool) string {
	if h := c.Get(fiber.HeaderAuthorization); h != "" {
		if tok, err := auth.BearerToken(h); err == nil {
			return tok
		}
		return ""
	}
	if tok := strings.TrimSpace(c.Cookies(TokenCookie)); tok != "" {
		return tok
	}
	if allowQuery {
		return strings.TrimSpace(c.Query("token"))
	}
	return ""
}
