package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/jjenkins/lawtrack/internal/model"
	"go.uber.org/zap"
)

type TotalsSource interface {
	Refresh(ctx context.Context) (*model.Totals, error)
}

// StatusHandler reports stored totals and the enrichment backlog
func StatusHandler(metrics TotalsSource, logger *zap.SugaredLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		totals, err := metrics.Refresh(c.UserContext())
		if err != nil {
			logger.Errorf("error loading totals: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "error loading totals"})
		}
		return c.JSON(totals)
	}
}

func HealthHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	}
}
