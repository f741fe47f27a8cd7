package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/ManuelReschke/edupay/internal/pkg/database"
)

const healthTimeout = 2 * time.Second

// HealthController reports whether the database and, when configured, the
// Redis cache answer.
type HealthController struct {
	db    *gorm.DB
	redis *redis.Client
}

// NewHealthController wires the checks. rdb may be nil when no cache is
// configured; the cache is then reported as "disabled".
func NewHealthController(db *gorm.DB, rdb *redis.Client) *HealthController {
	return &HealthController{db: db, redis: rdb}
}

func (hc *HealthController) HandleHealth(c *fiber.Ctx) error {
	services := fiber.Map{"database": "ok", "cache": "disabled"}
	healthy := true

	if err := database.Ping(hc.db); err != nil {
		services["database"] = err.Error()
		healthy = false
	}

	if hc.redis != nil {
		ctx, cancel := context.WithTimeout(c.Context(), healthTimeout)
		defer cancel()
		if err := hc.redis.Ping(ctx).Err(); err != nil {
			services["cache"] = err.Error()
			healthy = false
		} else {
			services["cache"] = "ok"
		}
	}

	if !healthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "services": services})
	}
	return c.JSON(fiber.Map{"status": "ok", "services": services})
}
