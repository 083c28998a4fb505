package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/middleware"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/services"
)

type AuthHandler struct {
	Auth         *services.AuthService
	CookieTTL    time.Duration
	SecureCookie bool
}

func NewAuthHandler(svc *services.AuthService, cookieTTL time.Duration, secure bool) *AuthHandler {
	return &AuthHandler{Auth: svc, CookieTTL: cookieTTL, SecureCookie: secure}
}

func (h *AuthHandler) setTokenCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   h.SecureCookie,
		SameSite: "Lax",
		MaxAge:   int(h.CookieTTL.Seconds()),
	})
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req services.RegisterInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.Auth.Register(c.UserContext(), req)
	if err != nil {
		return err
	}
	h.setTokenCookie(c, res.Token)
	return created(c, "registration successful", res)
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginReq
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.Auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	h.setTokenCookie(c, res.Token)
	return okMessage(c, "login successful", res)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.SecureCookie,
		SameSite: "Lax",
	})
	return okMessage(c, "logged out", nil)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	u, err := h.Auth.Me(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return ok(c, u)
}

type forgotReq struct {
	Email string `json:"email"`
}

// ForgotPassword answers the same way for known and unknown emails.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req forgotReq
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.Auth.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return err
	}
	return okMessage(c, services.ForgotPasswordMessage, nil)
}

type resetReq struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req resetReq
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.Auth.ResetPassword(c.UserContext(), req.Token, req.Password); err != nil {
		return err
	}
	return okMessage(c, "password has been reset", nil)
}

func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	if err := h.Auth.VerifyEmail(c.UserContext(), c.Params("token")); err != nil {
		return err
	}
	return okMessage(c, "email verified", nil)
}
