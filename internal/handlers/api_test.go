package handlers

import (
	"errors"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/middleware"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/models"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/services"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/store"
)

func itoa(n uint) string { return strconv.FormatUint(uint64(n), 10) }

func TestRegisterSetsCookieAndMeReadsIt(t *testing.T) {
	e := newAPI(t)

	resp, env := e.do(t, "POST", "/api/auth/register", "", fiber.Map{
		"name": "Nina", "email": "nina@example.com", "password": "Secret1!", "role": "freelancer",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, env.Message)
	assert.True(t, env.Success)

	var res services.AuthResult
	decode(t, env, &res)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, models.RoleFreelancer, res.User.Role)

	var cookie string
	for _, c := range resp.Cookies() {
		if c.Name == middleware.TokenCookie {
			cookie = c.Value
		}
	}
	require.Equal(t, res.Token, cookie)

	req := httptest.NewRequest("GET", "/api/auth/me", nil)
	req.Header.Set("Cookie", middleware.TokenCookie+"="+cookie)
	me, err := e.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, me.StatusCode)
}

func TestValidationErrorsUseEnvelope(t *testing.T) {
	e := newAPI(t)

	resp, env := e.do(t, "POST", "/api/auth/register", "", fiber.Map{"email": "bad"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.False(t, env.Success)
	assert.Equal(t, "validation error", env.Message)
	assert.Contains(t, env.Errors, "name")
	assert.Contains(t, env.Errors, "email")
	assert.Contains(t, env.Errors, "password")

	resp, env = e.do(t, "POST", "/api/auth/login", "", fiber.Map{"email": "ghost@example.com", "password": "Secret1!"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid email or password", env.Message)
}

func TestForgotPasswordAlwaysSucceeds(t *testing.T) {
	e := newAPI(t)
	for _, email := range []string{"carol@example.com", "nobody@example.com"} {
		resp, env := e.do(t, "POST", "/api/auth/forgot-password", "", fiber.Map{"email": email})
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, services.ForgotPasswordMessage, env.Message)
	}
}

func TestProjectRoutes(t *testing.T) {
	e := newAPI(t)
	tok := e.token(t, e.customer)

	resp, env := e.do(t, "POST", "/api/projects", "", fiber.Map{"title": "x"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.False(t, env.Success)

	resp, env = e.do(t, "POST", "/api/projects", tok, fiber.Map{
		"title":        "Shop",
		"description":  "Small webshop",
		"category":     "web",
		"budget":       "1500",
		"deadline":     "2031-02-03",
		"requirements": []string{"go", "vue"},
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, env.Message)
	var p models.Project
	decode(t, env, &p)
	assert.Equal(t, 1500.0, p.Budget)
	assert.Equal(t, models.ProjectOpen, p.Status)

	resp, env = e.do(t, "GET", "/api/projects", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var page services.ProjectPage
	decode(t, env, &page)
	assert.EqualValues(t, 1, page.Total)
	assert.Equal(t, "carol", page.Items[0].CreatorName)

	resp, _ = e.do(t, "GET", "/api/projects?scope=mine", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = e.do(t, "GET", "/api/projects/not-a-uuid", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = e.do(t, "PUT", "/api/projects/"+p.ID.String(), e.token(t, e.freelancer), fiber.Map{"title": "mine"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, env = e.do(t, "PUT", "/api/projects/"+p.ID.String()+"/status", tok, fiber.Map{"status": "cancelled"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Message)

	resp, _ = e.do(t, "DELETE", "/api/projects/"+p.ID.String(), tok, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, _ = e.do(t, "GET", "/api/projects/"+p.ID.String(), "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestMessageRoutes(t *testing.T) {
	e := newAPI(t)
	p := e.openProject()
	ftok := e.token(t, e.freelancer)
	ctok := e.token(t, e.customer)

	resp, env := e.do(t, "POST", "/api/messages", ftok, fiber.Map{
		"projectId":   p.ID,
		"recipientId": e.customer.ID,
		"content":     "Hi, I can do this.",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, env.Message)
	var sent store.MessageRow
	decode(t, env, &sent)
	assert.True(t, sent.IsSender)

	_, env = e.do(t, "GET", "/api/messages/unread/count", ctok, nil)
	assert.JSONEq(t, `{"count":1}`, string(env.Data))

	_, env = e.do(t, "GET", "/api/messages/unread", ctok, nil)
	var unread []store.UnreadRow
	decode(t, env, &unread)
	require.Len(t, unread, 1)
	assert.Equal(t, "frank", unread[0].SenderName)

	resp, _ = e.do(t, "PUT", "/api/messages/"+sent.ID.String()+"/read", ftok, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp, _ = e.do(t, "PUT", "/api/messages/"+sent.ID.String()+"/read", ctok, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, env = e.do(t, "GET", "/api/messages/chat/"+p.ID.String()+"/"+e.freelancer.ID.String(), ctok, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var chat []store.MessageRow
	decode(t, env, &chat)
	require.Len(t, chat, 1)
	assert.False(t, chat[0].IsSender)

	resp, _ = e.do(t, "GET", "/api/messages/project/"+p.ID.String(), e.token(t, e.rival), nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestCatalogOrderFlow(t *testing.T) {
	e := newAPI(t)
	atok := e.token(t, e.admin)
	ftok := e.token(t, e.freelancer)
	ctok := e.token(t, e.customer)

	resp, env := e.do(t, "POST", "/api/categories", ctok, fiber.Map{"name": "Design"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "forbidden: insufficient role", env.Message)

	resp, env = e.do(t, "POST", "/api/categories", atok, fiber.Map{"name": "Design"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, env.Message)
	var cat models.Category
	decode(t, env, &cat)

	resp, env = e.do(t, "POST", "/api/products", ctok, fiber.Map{"title": "Logo"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, env = e.do(t, "POST", "/api/products", ftok, fiber.Map{
		"title":       "Logo",
		"category_id": cat.ID,
		"base_price":  25,
		"stock":       3,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, env.Message)
	var prod models.Product
	decode(t, env, &prod)

	_, env = e.do(t, "GET", "/api/products", "", nil)
	var products services.ProductPage
	decode(t, env, &products)
	assert.EqualValues(t, 1, products.Total)

	resp, env = e.do(t, "POST", "/api/orders", ctok, fiber.Map{
		"items": []fiber.Map{{"product_id": prod.ID, "quantity": 2}},
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, env.Message)
	var order models.Order
	decode(t, env, &order)
	assert.Equal(t, 50.0, order.TotalAmount)

	resp, env = e.do(t, "POST", "/api/orders", ctok, fiber.Map{
		"items": []fiber.Map{{"product_id": prod.ID, "quantity": 5}},
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, env.Message, "insufficient stock")

	id := func(o models.Order) string { return itoa(o.ID) }
	resp, _ = e.do(t, "GET", "/api/orders/"+id(order), e.token(t, e.rival), nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = e.do(t, "PUT", "/api/orders/"+id(order)+"/status", ctok, fiber.Map{"status": "completed"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, env = e.do(t, "PUT", "/api/orders/"+id(order)+"/status", ftok, fiber.Map{"status": "approved"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Message)

	_, env = e.do(t, "GET", "/api/notifications", ctok, nil)
	var inbox services.NotificationList
	decode(t, env, &inbox)
	require.Len(t, inbox.Items, 1)
	assert.Equal(t, models.NotifyOrderStatus, inbox.Items[0].Type)

	resp, env = e.do(t, "GET", "/api/dashboard/stats", ctok, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var stats services.DashboardStats
	decode(t, env, &stats)
	assert.EqualValues(t, 1, stats.OpenOrders)
	assert.EqualValues(t, 1, stats.UnreadNotifications)
}

func TestReviewModerationRoutes(t *testing.T) {
	e := newAPI(t)
	ftok := e.token(t, e.freelancer)
	ctok := e.token(t, e.customer)

	_, env := e.do(t, "POST", "/api/products", ftok, fiber.Map{"title": "Logo", "base_price": 10, "stock": 1})
	var prod models.Product
	decode(t, env, &prod)

	resp, env := e.do(t, "POST", "/api/reviews", ctok, fiber.Map{"product_id": prod.ID, "rating": 5, "comment": "great"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, env.Message)
	var rev models.Review
	decode(t, env, &rev)

	path := "/api/reviews/product/" + itoa(prod.ID)
	_, env = e.do(t, "GET", path, "", nil)
	assert.JSONEq(t, `[]`, string(env.Data))

	resp, _ = e.do(t, "PUT", "/api/reviews/"+itoa(rev.ID)+"/status", ctok, fiber.Map{"status": "approved"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp, _ = e.do(t, "PUT", "/api/reviews/"+itoa(rev.ID)+"/status", e.token(t, e.admin), fiber.Map{"status": "approved"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	_, env = e.do(t, "GET", path, "", nil)
	var rows []store.ReviewRow
	decode(t, env, &rows)
	assert.Len(t, rows, 1)

	resp, _ = e.do(t, "GET", "/api/ratings/criteria", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestErrorHandlerHidesInternalsInProduction(t *testing.T) {
	boom := func(c *fiber.Ctx) error { return apperr.Wrap(errors.New("pq: connection refused"), "load user") }
	plain := func(c *fiber.Ctx) error { return errors.New("raw failure") }

	for _, production := range []bool{true, false} {
		app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(production)})
		app.Get("/wrapped", boom)
		app.Get("/plain", plain)

		for _, path := range []string{"/wrapped", "/plain"} {
			e := &apiEnv{app: app}
			resp, env := e.do(t, "GET", path, "", nil)
			assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
			assert.False(t, env.Success)
			if production {
				assert.Equal(t, msgInternal, env.Message)
			} else {
				assert.NotEqual(t, msgInternal, env.Message)
			}
		}
	}
}

func TestHealthAndMetrics(t *testing.T) {
	e := newAPI(t)
	resp, env := e.do(t, "GET", "/health", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(env.Data))

	tok := e.token(t, e.customer)
	_, env = e.do(t, "POST", "/api/projects", tok, fiber.Map{
		"title": "Shop", "description": "Webshop", "category": "web", "budget": 100, "deadline": "2031-01-01",
	})
	var p models.Project
	decode(t, env, &p)
	e.do(t, "GET", "/api/projects/"+p.ID.String(), "", nil)
	e.do(t, "PUT", "/api/projects/"+p.ID.String(), tok, fiber.Map{"title": "Shop v2"})
	e.do(t, "GET", "/api/projects/bad-id", "", nil)
	e.do(t, "DELETE", "/api/projects/"+p.ID.String(), tok, nil)
	e.do(t, "GET", "/api/projects", "", nil)

	resp, err := e.app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
