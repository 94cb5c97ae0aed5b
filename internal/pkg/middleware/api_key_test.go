package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGuardedApp(key string) *fiber.App {
	app := fiber.New()
	app.Get("/admin/plans", AdminAPIKeyMiddlewareWithKey(key), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func TestAdminAPIKeyMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		header string
		value  string
		want   int
	}{
		{"missing key", "secret", "", "", fiber.StatusUnauthorized},
		{"wrong key", "secret", "X-API-Key", "nope", fiber.StatusUnauthorized},
		{"header key", "secret", "X-API-Key", "secret", fiber.StatusOK},
		{"bearer token", "secret", "Authorization", "Bearer secret", fiber.StatusOK},
		{"lowercase bearer", "secret", "Authorization", "bearer secret", fiber.StatusOK},
		{"disabled", "", "X-API-Key", "secret", fiber.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newGuardedApp(tt.key)
			req := httptest.NewRequest("GET", "/admin/plans", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
