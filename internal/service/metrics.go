package service

import (
	"context"
	"fmt"

	"github.com/jjenkins/lawtrack/internal/model"
	"github.com/jjenkins/lawtrack/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registryRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lawtrack_registry_requests_total",
		Help: "Registry HTTP attempts by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	ingestRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lawtrack_ingest_records_total",
		Help: "Change records observed from the registry.",
	})

	ingestEventsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lawtrack_ingest_events_created_total",
		Help: "Change events inserted by ingestion.",
	})

	ingestDays = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lawtrack_ingest_days_total",
		Help: "Collection dates processed, by result.",
	}, []string{"result"})

	enrichmentOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lawtrack_enrichment_outcomes_total",
		Help: "Per-record enrichment outcomes by status and reason.",
	}, []string{"status", "reason"})

	generationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lawtrack_generation_duration_seconds",
		Help:    "Latency of generation service calls.",
		Buckets: []float64{1, 2, 5, 10, 20, 40, 80, 120},
	})

	storedTotals = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lawtrack_stored_rows",
		Help: "Stored rows per entity as of the last refresh.",
	}, []string{"entity"})
)

// MetricsService calculates stored totals and publishes them as gauges
type MetricsService struct {
	repo store.Repository
}

// NewMetricsService creates a new MetricsService
func NewMetricsService(repo store.Repository) *MetricsService {
	return &MetricsService{repo: repo}
}

// Refresh reads the current totals and updates the stored-row gauges
func (m *MetricsService) Refresh(ctx context.Context) (*model.Totals, error) {
	totals, err := m.repo.Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate totals: %w", err)
	}

	storedTotals.WithLabelValues("law").Set(float64(totals.Laws))
	storedTotals.WithLabelValues("change_event").Set(float64(totals.ChangeEvents))
	storedTotals.WithLabelValues("change_event_enriched").Set(float64(totals.EnrichedEvents))
	storedTotals.WithLabelValues("change_event_pending").Set(float64(totals.PendingEnrichments))
	storedTotals.WithLabelValues("old_new_info").Set(float64(totals.OldNewInfos))
	storedTotals.WithLabelValues("article_diff").Set(float64(totals.ArticleDiffs))

	return totals, nil
}
