package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jjenkins/lawtrack/internal/model"
	"github.com/jjenkins/lawtrack/internal/store"
	"go.uber.org/zap"
)

// Outcome statuses
const (
	StatusEnriched = "enriched"
	StatusSkipped  = "skipped"
	StatusFailed   = "failed"
)

// Outcome reasons
const (
	ReasonUnparsableResponse = "unparsable_response"
	ReasonAlreadyEnriched    = "already_enriched"
	ReasonLawMissing         = "law_missing"
	ReasonGenerationError    = "generation_error"
	ReasonStoreError         = "store_error"
)

// Generator produces an enrichment from a prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) (*model.Enrichment, error)
}

// Outcome is the result of enriching one change event
type Outcome struct {
	ChangeID uuid.UUID `json:"change_id"`
	LawID    string    `json:"law_id"`
	MST      string    `json:"mst"`
	Status   string    `json:"status"`
	Reason   string    `json:"reason,omitempty"`
	Err      error     `json:"-"`
}

// EnrichReport summarizes one enrichment batch
type EnrichReport struct {
	Selected       int       `json:"selected"`
	Enriched       int       `json:"enriched"`
	Skipped        int       `json:"skipped"`
	Failed         int       `json:"failed"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	AverageSeconds float64   `json:"average_seconds"`
	Outcomes       []Outcome `json:"outcomes"`
}

func (r *EnrichReport) record(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.Status {
	case StatusEnriched:
		r.Enriched++
	case StatusSkipped:
		r.Skipped++
	default:
		r.Failed++
	}
	enrichmentOutcomes.WithLabelValues(o.Status, o.Reason).Inc()
}

// Enricher runs generation over pending change events
type Enricher struct {
	repo      store.Repository
	generator Generator
	batchSize int
	logger    *zap.SugaredLogger
}

// NewEnricher creates a new Enricher
func NewEnricher(repo store.Repository, generator Generator, batchSize int, logger *zap.SugaredLogger) *Enricher {
	return &Enricher{
		repo:      repo,
		generator: generator,
		batchSize: batchSize,
		logger:    logger,
	}
}

// EnrichBatch enriches up to limit pending events, newest collection date
// first. Each record commits on its own and a failing record never stops the
// batch; only selection failure or cancellation is returned as an error.
func (e *Enricher) EnrichBatch(ctx context.Context, limit int) (*EnrichReport, error) {
	if limit <= 0 {
		limit = e.batchSize
	}

	start := time.Now()
	pending, err := e.repo.SelectPending(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending change events: %w", err)
	}

	report := &EnrichReport{Selected: len(pending), Outcomes: make([]Outcome, 0, len(pending))}
	e.logger.Infof("Enriching %d pending change events...", len(pending))

	for idx, ev := range pending {
		if err := ctx.Err(); err != nil {
			e.finish(report, start)
			return report, err
		}

		o := e.enrichOne(ctx, ev)
		report.record(o)

		progress := fmt.Sprintf("[%d/%d]", idx+1, len(pending))
		switch o.Status {
		case StatusEnriched:
			e.logger.Infof("%s change %s enriched", progress, ev.ChangeID)
		case StatusSkipped:
			e.logger.Warnf("%s change %s skipped (%s): %v", progress, ev.ChangeID, o.Reason, o.Err)
		default:
			e.logger.Errorf("%s change %s failed (%s): %v", progress, ev.ChangeID, o.Reason, o.Err)
		}
	}

	e.finish(report, start)
	e.logger.Infof("Enrichment done: %d/%d enriched in %.2fs (avg %.2fs)",
		report.Enriched, report.Selected, report.ElapsedSeconds, report.AverageSeconds)
	return report, nil
}

func (e *Enricher) finish(report *EnrichReport, start time.Time) {
	report.ElapsedSeconds = time.Since(start).Seconds()
	if n := len(report.Outcomes); n > 0 {
		report.AverageSeconds = report.ElapsedSeconds / float64(n)
	}
}

func (e *Enricher) enrichOne(ctx context.Context, ev model.ChangeEvent) Outcome {
	o := Outcome{ChangeID: ev.ChangeID, LawID: ev.LawID, MST: ev.MST}
	fail := func(status, reason string, err error) Outcome {
		o.Status, o.Reason, o.Err = status, reason, err
		return o
	}

	law, err := e.repo.GetLaw(ctx, ev.LawID)
	if err != nil {
		return fail(StatusFailed, ReasonStoreError, err)
	}
	if law == nil {
		return fail(StatusSkipped, ReasonLawMissing, fmt.Errorf("law %s not found", ev.LawID))
	}

	info, err := e.repo.GetOldNewInfo(ctx, ev.MST)
	if err != nil {
		return fail(StatusFailed, ReasonStoreError, err)
	}

	diffs, err := e.repo.ListArticleDiffs(ctx, ev.MST)
	if err != nil {
		return fail(StatusFailed, ReasonStoreError, err)
	}

	prompt := BuildPrompt(PromptInput{Event: ev, Law: law, OldNew: info, Diffs: diffs})

	enrichment, err := e.generator.Generate(ctx, prompt)
	if errors.Is(err, ErrUnparsableResponse) {
		return fail(StatusSkipped, ReasonUnparsableResponse, err)
	}
	if err != nil {
		return fail(StatusFailed, ReasonGenerationError, err)
	}

	var saved bool
	err = e.repo.WithTx(ctx, func(tx store.Repository) error {
		var err error
		saved, err = tx.SaveEnrichment(ctx, ev.ChangeID, *enrichment)
		return err
	})
	if err != nil {
		return fail(StatusFailed, ReasonStoreError, err)
	}
	if !saved {
		return fail(StatusSkipped, ReasonAlreadyEnriched, nil)
	}

	o.Status = StatusEnriched
	return o
}
