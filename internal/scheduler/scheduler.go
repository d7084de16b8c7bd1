package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jjenkins/lawtrack/internal/service"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Ingester ingests the previous calendar day
type Ingester interface {
	IngestYesterday(ctx context.Context) (*service.IngestStats, error)
}

// Enricher runs one enrichment batch
type Enricher interface {
	EnrichBatch(ctx context.Context, limit int) (*service.EnrichReport, error)
}

// ErrAlreadyRunning is returned when a daily run is still in progress
var ErrAlreadyRunning = errors.New("daily run already in progress")

// RunResult is what one daily run produced. Enrichment still runs when
// ingestion fails, so both halves may carry results.
type RunResult struct {
	Ingest    *service.IngestStats
	IngestErr error
	Enrich    *service.EnrichReport
	EnrichErr error
}

// Scheduler runs ingest-yesterday followed by an enrichment batch on a cron
// schedule, one run at a time
type Scheduler struct {
	cron      *cron.Cron
	schedule  cron.Schedule
	ingester  Ingester
	enricher  Enricher
	batchSize int
	timeout   time.Duration
	running   chan struct{}
	logger    *zap.SugaredLogger
	ctx       context.Context
	cancel    context.CancelFunc
}

// New creates a scheduler firing on spec, a standard five-field cron expression
func New(spec string, ingester Ingester, enricher Enricher, batchSize int, logger *zap.SugaredLogger) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		cron:      cron.New(),
		ingester:  ingester,
		enricher:  enricher,
		batchSize: batchSize,
		timeout:   6 * time.Hour,
		running:   make(chan struct{}, 1),
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}

	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to parse cron schedule %q: %w", spec, err)
	}
	s.schedule = schedule
	s.cron.Schedule(schedule, cron.FuncJob(s.fire))

	return s, nil
}

// Start starts the cron loop in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Infof("scheduler started, next run at %s", s.Next().Format(time.RFC3339))
}

// Stop cancels any in-flight run and waits for the cron loop to finish
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// Next returns the next scheduled run time after now. It is computed from
// the parsed schedule, so it is valid before Start.
func (s *Scheduler) Next() time.Time {
	return s.schedule.Next(time.Now())
}

func (s *Scheduler) fire() {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Warnf("scheduled run skipped: %v", err)
	}
}

// RunOnce performs one daily run unless another is still in progress
func (s *Scheduler) RunOnce(ctx context.Context) (*RunResult, error) {
	select {
	case s.running <- struct{}{}:
		defer func() { <-s.running }()
	default:
		return nil, ErrAlreadyRunning
	}

	result := &RunResult{}

	result.Ingest, result.IngestErr = s.ingester.IngestYesterday(ctx)
	if result.IngestErr != nil {
		s.logger.Errorf("daily ingest failed: %v", result.IngestErr)
	} else {
		s.logger.Infof("daily ingest done: %d records, %d new events",
			result.Ingest.RecordsSeen, result.Ingest.EventsCreated)
	}

	result.Enrich, result.EnrichErr = s.enricher.EnrichBatch(ctx, s.batchSize)
	if result.EnrichErr != nil {
		s.logger.Errorf("daily enrichment failed: %v", result.EnrichErr)
	}

	return result, nil
}
