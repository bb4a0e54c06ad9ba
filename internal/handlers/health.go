package handlers

import (
	"sahel/internal/repositories"

	"github.com/gofiber/fiber/v2"
)

// Health reports service liveness and database reachability.
func Health(c *fiber.Ctx) error {
	status := "ok"
	if sqlDB, err := repositories.DB.DB(); err != nil || sqlDB.Ping() != nil {
		status = "degraded"
	}
	return c.JSON(fiber.Map{"status": status})
}
