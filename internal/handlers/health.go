package handlers

import (
	"context"
	"time"

	"clubledger/internal/utils"

	"github.com/gofiber/fiber/v2"
)

const healthTimeout = 2 * time.Second

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// StatsFunc returns a JSON-encodable snapshot of connection pool counters.
type StatsFunc func() interface{}

type HealthHandler struct {
	version  string
	services map[string]Pinger
	pools    map[string]StatsFunc
}

func NewHealthHandler(version string, services map[string]Pinger) *HealthHandler {
	return &HealthHandler{version: version, services: services, pools: map[string]StatsFunc{}}
}

// WithPoolStats adds the pool counters of a backing service to the report.
func (h *HealthHandler) WithPoolStats(name string, stats StatsFunc) *HealthHandler {
	h.pools[name] = stats
	return h
}

func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	status := "ok"
	services := fiber.Map{}
	for name, p := range h.services {
		if err := p.Ping(ctx); err != nil {
			status = "degraded"
			services[name] = "unavailable"
			continue
		}
		services[name] = "connected"
	}

	body := fiber.Map{
		"status":   status,
		"version":  h.version,
		"services": services,
	}
	if len(h.pools) > 0 {
		pools := fiber.Map{}
		for name, stats := range h.pools {
			pools[name] = stats()
		}
		body["pools"] = pools
	}
	if status != "ok" {
		return utils.ServiceUnavailable(c, body)
	}
	return utils.Success(c, body)
}
