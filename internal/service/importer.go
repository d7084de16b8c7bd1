package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jjenkins/lawtrack/internal/model"
	"github.com/jjenkins/lawtrack/internal/store"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// InitialStartDate is where a full backfill begins when no start is given
var InitialStartDate = time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)

// ChangeSource is the registry surface ingestion depends on
type ChangeSource interface {
	RevisionFetcher
	FetchChangePage(ctx context.Context, date time.Time, page, pageSize int) ([]model.ChangeRecord, bool, error)
}

// IngestStats tracks ingestion statistics for one date or a range of dates
type IngestStats struct {
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	Days          int    `json:"days"`
	RecordsSeen   int    `json:"total_history_records_seen"`
	EventsCreated int    `json:"total_new_events_inserted"`
	LawsTouched   int    `json:"total_laws_touched"`
	Skipped       int    `json:"skipped_records"`
}

func (s *IngestStats) add(day *IngestStats) {
	s.Days += day.Days
	s.RecordsSeen += day.RecordsSeen
	s.EventsCreated += day.EventsCreated
	s.LawsTouched += day.LawsTouched
	s.Skipped += day.Skipped
}

// Importer orchestrates registry ingestion across collection dates
type Importer struct {
	registry   ChangeSource
	reconciler *Reconciler
	repo       store.Repository
	pageSize   int
	logger     *zap.SugaredLogger
	now        func() time.Time
}

// NewImporter creates a new Importer
func NewImporter(registry ChangeSource, repo store.Repository, pageSize int, logger *zap.SugaredLogger) *Importer {
	return &Importer{
		registry:   registry,
		reconciler: NewReconciler(registry, logger),
		repo:       repo,
		pageSize:   pageSize,
		logger:     logger,
		now:        time.Now,
	}
}

// IngestDate pages through every change registered on date and persists them
// in a single transaction. Any registry or store failure rolls the whole date
// back.
func (i *Importer) IngestDate(ctx context.Context, date time.Time) (*IngestStats, error) {
	date = calendarDay(date)
	day := date.Format(dateLayout)
	stats := &IngestStats{StartDate: day, EndDate: day, Days: 1}
	laws := make(map[string]struct{})

	i.logger.Infof("Ingesting changes registered on %s...", day)

	err := i.repo.WithTx(ctx, func(tx store.Repository) error {
		for page := 1; ; page++ {
			if err := ctx.Err(); err != nil {
				return err
			}

			records, hasMore, err := i.registry.FetchChangePage(ctx, date, page, i.pageSize)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return nil
			}

			i.logger.Debugf("  page %d: %d records", page, len(records))

			for _, rec := range records {
				stats.RecordsSeen++

				created, err := i.reconciler.ReconcileRecord(ctx, tx, rec, date)
				if errors.Is(err, ErrMissingLawID) {
					i.logger.Warnf("  skipping record without law id (mst=%q)", rec.MST)
					stats.Skipped++
					continue
				}
				if err != nil {
					return fmt.Errorf("failed to reconcile law %s revision %s: %w", rec.LawID, rec.MST, err)
				}

				laws[rec.LawID] = struct{}{}
				if created {
					stats.EventsCreated++
				}
			}

			if !hasMore {
				return nil
			}
		}
	})
	if err != nil {
		ingestDays.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to ingest %s: %w", day, err)
	}

	stats.LawsTouched = len(laws)
	ingestDays.WithLabelValues("ok").Inc()
	ingestRecords.Add(float64(stats.RecordsSeen))
	ingestEventsCreated.Add(float64(stats.EventsCreated))

	i.logger.Infof("  %s: %d records, %d new events, %d laws", day, stats.RecordsSeen, stats.EventsCreated, stats.LawsTouched)
	return stats, nil
}

// IngestRange ingests every calendar day from start to end inclusive. The
// first failing day stops the run; the returned stats then cover the days
// that committed.
func (i *Importer) IngestRange(ctx context.Context, start, end time.Time) (*IngestStats, error) {
	start, end = calendarDay(start), calendarDay(end)
	if end.Before(start) {
		return nil, fmt.Errorf("end date %s is before start date %s", end.Format(dateLayout), start.Format(dateLayout))
	}

	total := &IngestStats{
		StartDate: start.Format(dateLayout),
		EndDate:   end.Format(dateLayout),
	}

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		day, err := i.IngestDate(ctx, d)
		if err != nil {
			return total, err
		}
		total.add(day)
	}

	return total, nil
}

// IngestYesterday ingests the previous calendar day
func (i *Importer) IngestYesterday(ctx context.Context) (*IngestStats, error) {
	return i.IngestDate(ctx, i.yesterday())
}

// IngestInitial backfills from start (InitialStartDate when zero) through yesterday
func (i *Importer) IngestInitial(ctx context.Context, start time.Time) (*IngestStats, error) {
	if start.IsZero() {
		start = InitialStartDate
	}
	return i.IngestRange(ctx, start, i.yesterday())
}

func (i *Importer) yesterday() time.Time {
	return calendarDay(i.now().AddDate(0, 0, -1))
}

// PrintSummary logs the ingestion statistics
func (i *Importer) PrintSummary(stats *IngestStats) {
	if stats == nil {
		return
	}
	i.logger.Info("")
	i.logger.Info("=== Ingest Summary ===")
	i.logger.Infof("Dates:           %s .. %s (%d days)", stats.StartDate, stats.EndDate, stats.Days)
	i.logger.Infof("Records seen:    %d", stats.RecordsSeen)
	i.logger.Infof("New events:      %d", stats.EventsCreated)
	i.logger.Infof("Laws touched:    %d", stats.LawsTouched)
	i.logger.Infof("Skipped:         %d (no law id)", stats.Skipped)
}

// ParseDate parses a YYYY-MM-DD calendar date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", s, err)
	}
	return t, nil
}

// calendarDay drops the clock part, keeping the date as seen in t's location
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
