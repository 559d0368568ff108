package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Check tests one dependency.
type Check func(ctx context.Context) error

// PoolStatser reports redis connection pool usage.
type PoolStatser interface {
	PoolStats() *redis.PoolStats
}

type HealthHandler struct {
	checks  map[string]Check
	pool    PoolStatser
	timeout time.Duration
}

func NewHealthHandler(checks map[string]Check, pool PoolStatser) *HealthHandler {
	return &HealthHandler{checks: checks, pool: pool, timeout: 2 * time.Second}
}

func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	status := "ok"
	services := fiber.Map{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			services[name] = "unavailable"
			status = "degraded"
			continue
		}
		services[name] = "connected"
	}

	code := fiber.StatusOK
	if status != "ok" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status":   status,
		"services": services,
	})
}

func (h *HealthHandler) CacheStats(c *fiber.Ctx) error {
	if h.pool == nil {
		return c.JSON(fiber.Map{"pool_stats": nil})
	}
	poolStats := h.pool.PoolStats()

	return c.JSON(fiber.Map{
		"pool_stats": fiber.Map{
			"hits":        poolStats.Hits,
			"misses":      poolStats.Misses,
			"timeouts":    poolStats.Timeouts,
			"total_conns": poolStats.TotalConns,
			"idle_conns":  poolStats.IdleConns,
			"stale_conns": poolStats.StaleConns,
		},
	})
}
