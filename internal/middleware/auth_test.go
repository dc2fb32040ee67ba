package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(token string) *fiber.App {
	app := fiber.New()
	app.Use(NewOpsAuth(token, nil).Handler)
	app.Get("/ops/ping", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func TestOpsAuth(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		header string
		status int
	}{
		{"open when unconfigured", "", "", fiber.StatusNoContent},
		{"missing header", "s3cret", "", fiber.StatusUnauthorized},
		{"wrong scheme", "s3cret", "Basic s3cret", fiber.StatusUnauthorized},
		{"wrong token", "s3cret", "Bearer nope", fiber.StatusUnauthorized},
		{"valid token", "s3cret", "Bearer s3cret", fiber.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/ops/ping", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := newApp(tt.token).Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}
