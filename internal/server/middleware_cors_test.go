package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"harfzaar/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frontendOrigin = "https://harfzaar.test"

// newLimitedApp returns an app with the global middleware and one route per
// method, with the global limiter already exhausted for method.
func newLimitedApp(t *testing.T, method string) *fiber.App {
	t.Helper()
	srv := &Server{config: &config.Config{AllowedOrigins: frontendOrigin}}

	app := fiber.New()
	srv.SetupMiddleware(app)
	app.Add(method, "/limited", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for i := 0; i < 100; i++ {
		resp := sendWithOrigin(t, app, method, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, "request %d", i)
	}
	return app
}

func sendWithOrigin(t *testing.T, app *fiber.App, method string, headers map[string]string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, "/limited", nil)
	req.Header.Set("Origin", frontendOrigin)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestSetupMiddleware_RateLimitedResponseKeepsCORS(t *testing.T) {
	app := newLimitedApp(t, http.MethodGet)

	resp := sendWithOrigin(t, app, http.MethodGet, nil)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, frontendOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestSetupMiddleware_PreflightSkipsLimiter(t *testing.T) {
	app := newLimitedApp(t, http.MethodPost)

	resp := sendWithOrigin(t, app, http.MethodPost, nil)
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)

	resp = sendWithOrigin(t, app, http.MethodOptions, map[string]string{
		"Access-Control-Request-Method":  http.MethodPost,
		"Access-Control-Request-Headers": "authorization,content-type",
	})
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, frontendOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestSetupMiddleware_TestEnvSkipsLimiter(t *testing.T) {
	srv := &Server{config: &config.Config{Env: "test", AllowedOrigins: frontendOrigin}}
	app := fiber.New()
	srv.SetupMiddleware(app)
	app.Get("/limited", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	for i := 0; i < 120; i++ {
		resp := sendWithOrigin(t, app, http.MethodGet, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
}
