package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/apperr"
)

func TestMiddlewareLabelsSurviveLaterRequests(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/metrics", Handler())

	okHandler := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	app.Post("/widgets", okHandler)
	app.Get("/widgets/:id", func(c *fiber.Ctx) error {
		if c.Params("id") == "missing" {
			return apperr.NotFound("widget not found")
		}
		return c.SendStatus(fiber.StatusOK)
	})
	app.Put("/widgets/:id", okHandler)
	app.Delete("/widgets/:id", okHandler)

	calls := []struct{ method, path string }{
		{"POST", "/widgets"},
		{"GET", "/widgets/1"},
		{"PUT", "/widgets/1"},
		{"DELETE", "/widgets/1"},
		{"GET", "/widgets/missing"},
		{"GET", "/widgets/2"},
		{"PUT", "/widgets/2"},
	}
	for i := 0; i < 3; i++ {
		for _, call := range calls {
			resp, err := app.Test(httptest.NewRequest(call.method, call.path, nil), -1)
			require.NoError(t, err)
			resp.Body.Close()
		}
	}

	_, err := Registry.Gather()
	require.NoError(t, err)

	assert.Equal(t, 6.0, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/widgets/:id", "200")))
	assert.Equal(t, 3.0, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/widgets/:id", "404")))
	assert.Equal(t, 6.0, testutil.ToFloat64(httpRequests.WithLabelValues("PUT", "/widgets/:id", "200")))
	assert.Equal(t, 3.0, testutil.ToFloat64(httpRequests.WithLabelValues("DELETE", "/widgets/:id", "200")))
	assert.Equal(t, 3.0, testutil.ToFloat64(httpRequests.WithLabelValues("POST", "/widgets", "200")))

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `marketplace_http_requests_total{method="DELETE",route="/widgets/:id",status="200"} 3`)
}
