package handlers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/log"
)

const (
	stateCookie = "oauth_state"
	nextCookie  = "oauth_next"
	userinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

type GoogleUser struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleOAuthHandler runs the authorization-code flow and signs the user in
// through AuthService.
type GoogleOAuthHandler struct {
	Auth            *AuthHandler
	Config          *oauth2.Config
	FrontendBaseURL string

	// FetchUser exchanges the code and loads the profile. Tests replace it.
	FetchUser func(ctx context.Context, code string) (GoogleUser, error)

	logger zerolog.Logger
}

func NewGoogleOAuthHandler(authH *AuthHandler, clientID, secret, redirect, frontend string) *GoogleOAuthHandler {
	h := &GoogleOAuthHandler{
		Auth: authH,
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: secret,
			RedirectURL:  redirect,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		FrontendBaseURL: strings.TrimRight(frontend, "/"),
		logger:          log.WithComponent("oauth"),
	}
	h.FetchUser = h.fetchUser
	return h
}

func randomState(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

func (h *GoogleOAuthHandler) tempCookie(c *fiber.Ctx, name, value string, maxAge int) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HTTPOnly: true,
		Secure:   h.Auth.SecureCookie,
		SameSite: "Lax",
		MaxAge:   maxAge,
	})
}

func (h *GoogleOAuthHandler) Start(c *fiber.Ctx) error {
	if h.Config.ClientID == "" {
		return fiber.NewError(fiber.StatusServiceUnavailable, "google sign-in is not configured")
	}
	st := randomState(32)
	h.tempCookie(c, stateCookie, st, 10*60)
	h.tempCookie(c, nextCookie, c.Query("next", "/"), 10*60)
	return c.Redirect(h.Config.AuthCodeURL(st, oauth2.AccessTypeOffline), http.StatusTemporaryRedirect)
}

func (h *GoogleOAuthHandler) Callback(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		return apperr.Validation("missing code or state")
	}
	if st := c.Cookies(stateCookie); st == "" || st != state {
		return apperr.Validation("invalid state")
	}
	next := c.Cookies(nextCookie)
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		next = "/"
	}
	h.tempCookie(c, stateCookie, "", -1)
	h.tempCookie(c, nextCookie, "", -1)

	gu, err := h.FetchUser(c.UserContext(), code)
	if err != nil {
		h.logger.Warn().Err(err).Msg("google userinfo")
		return apperr.Validation("google sign-in failed")
	}
	if !gu.VerifiedEmail {
		return apperr.Validation("google email is not verified")
	}

	res, err := h.Auth.Auth.LoginWithGoogle(c.UserContext(), gu.Email, gu.Name)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindUnauthorized {
			return c.Redirect(h.FrontendBaseURL+"/auth/login?err="+url.QueryEscape("account is inactive"), http.StatusTemporaryRedirect)
		}
		return err
	}

	h.Auth.setTokenCookie(c, res.Token)
	return c.Redirect(h.FrontendBaseURL+next, http.StatusTemporaryRedirect)
}

func (h *GoogleOAuthHandler) fetchUser(ctx context.Context, code string) (GoogleUser, error) {
	tok, err := h.Config.Exchange(ctx, code)
	if err != nil {
		return GoogleUser{}, fmt.Errorf("exchange code: %w", err)
	}
	resp, err := h.Config.Client(ctx, tok).Get(userinfoURL)
	if err != nil {
		return GoogleUser{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return GoogleUser{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var gu GoogleUser
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return GoogleUser{}, fmt.Errorf("decode userinfo: %w", err)
	}
	return gu, nil
}
