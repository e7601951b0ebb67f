package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"revline/internal/config"
	"revline/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const allowedOrigin = "http://localhost:5173"

func newLimitedApp(t *testing.T, perMinute int) *fiber.App {
	t.Helper()
	srv := &Server{config: &config.Config{
		AllowedOrigins:     allowedOrigin,
		RateLimitPerMinute: perMinute,
	}}

	app := fiber.New()
	srv.SetupMiddleware(app)
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	app.Get("/api/projects", ok)
	app.Post("/api/likes", ok)
	app.Get("/health/live", ok)
	return app
}

func send(t *testing.T, app *fiber.App, method, path string, headers map[string]string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Origin", allowedOrigin)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestGlobalLimiter_RejectionCarriesCORSAndCode(t *testing.T) {
	app := newLimitedApp(t, 3)

	for range 3 {
		assert.Equal(t, fiber.StatusOK, send(t, app, http.MethodGet, "/api/projects", nil).StatusCode)
	}

	resp := send(t, app, http.MethodGet, "/api/projects", nil)
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, allowedOrigin, resp.Header.Get("Access-Control-Allow-Origin"))

	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, models.CodeRateLimited, body.Code)
}

func TestGlobalLimiter_Exemptions(t *testing.T) {
	app := newLimitedApp(t, 2)

	for range 2 {
		send(t, app, http.MethodPost, "/api/likes", nil)
	}
	require.Equal(t, fiber.StatusTooManyRequests, send(t, app, http.MethodPost, "/api/likes", nil).StatusCode)

	preflight := send(t, app, http.MethodOptions, "/api/likes", map[string]string{
		"Access-Control-Request-Method":  http.MethodPost,
		"Access-Control-Request-Headers": "authorization,content-type",
	})
	assert.Equal(t, fiber.StatusNoContent, preflight.StatusCode)
	assert.Equal(t, allowedOrigin, preflight.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, preflight.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)

	assert.Equal(t, fiber.StatusOK, send(t, app, http.MethodGet, "/health/live", nil).StatusCode,
		"health checks must not spend the request budget")
}

func TestCORS_UnknownOriginGetsNoAllowHeader(t *testing.T) {
	app := newLimitedApp(t, 100)

	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	req.Header.Set("Origin", "https://evil.example")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestConfig_GlobalRateLimitDefault(t *testing.T) {
	assert.Equal(t, 100, (&config.Config{}).GlobalRateLimit())
	assert.Equal(t, 7, (&config.Config{RateLimitPerMinute: 7}).GlobalRateLimit())
}
