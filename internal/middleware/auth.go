// Package middleware provides HTTP middleware for the ops surface.
package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// OpsAuth guards operator endpoints with a static bearer token.
type OpsAuth struct {
	token []byte
	log   *zap.Logger
}

// NewOpsAuth returns the middleware. An empty token leaves the endpoints open.
func NewOpsAuth(token string, log *zap.Logger) *OpsAuth {
	if log == nil {
		log = zap.NewNop()
	}
	return &OpsAuth{token: []byte(token), log: log.Named("ops-auth")}
}

// Handler checks the Authorization header against the configured token.
func (m *OpsAuth) Handler(c *fiber.Ctx) error {
	if len(m.token) == 0 {
		return c.Next()
	}

	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization format"})
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	if subtle.ConstantTimeCompare([]byte(token), m.token) != 1 {
		m.log.Warn("rejected ops request", zap.String("path", c.Path()), zap.String("ip", c.IP()))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
	}
	return c.Next()
}
