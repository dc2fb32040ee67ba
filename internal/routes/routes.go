// Package routes defines the ops HTTP routing configuration.
package routes

import (
	"time"

	"clubledger/internal/handlers"
	"clubledger/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type Handlers struct {
	Health         *handlers.HealthHandler
	Wallet         *handlers.WalletHandler
	Reconciliation *handlers.ReconciliationHandler
	OpsAuth        *middleware.OpsAuth
}

// SetupRoutes mounts the health check and the ops group.
func SetupRoutes(app *fiber.App, h Handlers) {
	app.Get("/health", h.Health.HealthCheck)

	ops := app.Group("/ops")
	if h.OpsAuth != nil {
		ops.Use(h.OpsAuth.Handler)
	}
	ops.Get("/wallets/:clubID", h.Wallet.GetWallet)

	// A manual sweep locks every drifted wallet; keep triggers rare
	ops.Post("/reconciliation", limiter.New(limiter.Config{
		Max:        2,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
			})
		},
	}), h.Reconciliation.Run)
}
