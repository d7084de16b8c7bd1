package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jjenkins/lawtrack/internal/service"
	"go.uber.org/zap"
)

// Ingester is the ingestion surface the admin endpoints trigger
type Ingester interface {
	IngestDate(ctx context.Context, date time.Time) (*service.IngestStats, error)
	IngestYesterday(ctx context.Context) (*service.IngestStats, error)
	IngestInitial(ctx context.Context, start time.Time) (*service.IngestStats, error)
}

// FetchDateHandler re-ingests one collection date given as ?target_date=YYYY-MM-DD
func FetchDateHandler(ingester Ingester, logger *zap.SugaredLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Query("target_date")
		if raw == "" {
			return badRequest(c, "target_date is required")
		}
		date, err := service.ParseDate(raw)
		if err != nil {
			return badRequest(c, err.Error())
		}

		stats, err := ingester.IngestDate(c.UserContext(), date)
		if err != nil {
			return ingestFailed(c, logger, stats, err)
		}
		return c.JSON(stats)
	}
}

// FetchYesterdayHandler ingests the previous calendar day
func FetchYesterdayHandler(ingester Ingester, logger *zap.SugaredLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stats, err := ingester.IngestYesterday(c.UserContext())
		if err != nil {
			return ingestFailed(c, logger, stats, err)
		}
		return c.JSON(stats)
	}
}

// InitChangesHandler backfills from ?start_date (default 1990-01-01) through yesterday
func InitChangesHandler(ingester Ingester, logger *zap.SugaredLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var start time.Time
		if raw := c.Query("start_date"); raw != "" {
			d, err := service.ParseDate(raw)
			if err != nil {
				return badRequest(c, err.Error())
			}
			start = d
		}

		stats, err := ingester.IngestInitial(c.UserContext(), start)
		if err != nil {
			return ingestFailed(c, logger, stats, err)
		}
		return c.JSON(stats)
	}
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// ingestFailed reports an aborted run along with whatever days committed
func ingestFailed(c *fiber.Ctx, logger *zap.SugaredLogger, stats *service.IngestStats, err error) error {
	logger.Errorf("ingest failed: %v", err)
	return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
		"error":     err.Error(),
		"completed": stats,
	})
}
