package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/jjenkins/lawtrack/internal/service"
	"go.uber.org/zap"
)

type Enricher interface {
	EnrichBatch(ctx context.Context, limit int) (*service.EnrichReport, error)
}

// EnrichHandler runs one enrichment batch of ?limit records
func EnrichHandler(enricher Enricher, logger *zap.SugaredLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 0)
		if limit < 0 {
			return badRequest(c, "limit must not be negative")
		}

		report, err := enricher.EnrichBatch(c.UserContext(), limit)
		if err != nil {
			logger.Errorf("enrichment batch failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(report)
	}
}
