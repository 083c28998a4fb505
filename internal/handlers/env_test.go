package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/auth"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/mailer"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/models"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/realtime"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/services"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/store/memory"
)

type apiEnv struct {
	app      *fiber.App
	hub      *realtime.Hub
	tokens   *auth.TokenIssuer
	users    *memory.Users
	projects *memory.Projects

	customer   models.User
	freelancer models.User
	rival      models.User
	admin      models.User
}

func newAPI(t *testing.T) *apiEnv {
	t.Helper()

	mk := func(name string, role models.Role) models.User {
		return models.User{ID: uuid.New(), Name: name, Email: name + "@example.com", Role: role, IsActive: true}
	}
	e := &apiEnv{
		hub:        realtime.NewHub(),
		tokens:     auth.NewTokenIssuer("handler-secret", time.Hour, time.Hour, time.Hour),
		customer:   mk("carol", models.RoleCustomer),
		freelancer: mk("frank", models.RoleFreelancer),
		rival:      mk("rita", models.RoleFreelancer),
		admin:      mk("ada", models.RoleAdmin),
	}
	e.users = memory.NewUsers(e.customer, e.freelancer, e.rival, e.admin)
	e.projects = memory.NewProjects(e.users)
	messages := memory.NewMessages(e.users)
	notifications := memory.NewNotifications()
	catalog := memory.NewCatalog()
	orders := memory.NewOrders(catalog)
	reviews := memory.NewReviews()

	broker := realtime.NewBroker(e.hub, nil)
	projectSvc := services.NewProjectService(e.projects, e.users)
	notifySvc := services.NewNotificationService(notifications, broker)

	svc := Services{
		Auth:          services.NewAuthService(e.users, e.tokens, mailer.NewLog(), "http://app.test"),
		Profiles:      services.NewProfileService(e.users),
		Projects:      projectSvc,
		Messages:      services.NewMessageService(messages, projectSvc, e.users, broker),
		Notifications: notifySvc,
		Catalog:       services.NewCatalogService(catalog, orders, notifySvc),
		Orders:        services.NewOrderService(orders, catalog, notifySvc),
		Reviews:       services.NewReviewService(reviews, catalog, notifySvc),
		Dashboard:     services.NewDashboardService(e.projects, messages, notifications, orders),
	}
	e.app = NewApp(svc, Options{
		CookieTTL:       time.Hour,
		FrontendBaseURL: "http://app.test",
		Hub:             e.hub,
	})
	return e
}

func (e *apiEnv) token(t *testing.T, u models.User) string {
	t.Helper()
	tok, err := e.tokens.IssueAccess(u)
	require.NoError(t, err)
	return tok
}

type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Errors  map[string][]string `json:"errors"`
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body interface{}) (*http.Response, envelope) {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &env), "body: %s", raw)
	}
	return resp, env
}

func decode(t *testing.T, env envelope, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, dst), "data: %s", env.Data)
}

// openProject stores a public open project owned by the customer.
func (e *apiEnv) openProject() models.Project {
	return e.projects.Put(models.Project{
		Title:       "Landing page",
		Description: "One page site",
		Budget:      500,
		Deadline:    time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		Category:    "web",
		Status:      models.ProjectOpen,
		IsPublic:    true,
		CreatorID:   e.customer.ID,
	})
}
