package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jjenkins/lawtrack/internal/model"
)

// Repository is the persistence surface of the ingestion and enrichment
// pipeline. Lookups return (nil, nil) when the row does not exist.
type Repository interface {
	UpsertLaw(ctx context.Context, law *model.Law) error
	GetLaw(ctx context.Context, lawID string) (*model.Law, error)

	ChangeEventExists(ctx context.Context, lawID, mst string) (bool, error)
	// InsertChangeEvent returns false when (law_id, mst) already exists
	InsertChangeEvent(ctx context.Context, ev *model.ChangeEvent) (bool, error)
	SelectPending(ctx context.Context, limit int) ([]model.ChangeEvent, error)
	// SaveEnrichment returns false when the event was already enriched
	SaveEnrichment(ctx context.Context, changeID uuid.UUID, e model.Enrichment) (bool, error)

	OldNewInfoExists(ctx context.Context, mst string) (bool, error)
	// InsertOldNewInfo returns false when the mst already has a record
	InsertOldNewInfo(ctx context.Context, info *model.OldNewInfo) (bool, error)
	GetOldNewInfo(ctx context.Context, mst string) (*model.OldNewInfo, error)
	InsertArticleDiffs(ctx context.Context, diffs []model.ArticleDiff) error
	ListArticleDiffs(ctx context.Context, mst string) ([]model.ArticleDiff, error)
	Totals(ctx context.Context) (*model.Totals, error)

	// WithTx runs fn against a transaction-scoped Repository, committing when
	// fn returns nil and rolling back otherwise. Nested calls join the outer
	// transaction.
	WithTx(ctx context.Context, fn func(Repository) error) error
}

var (
	_ Repository = (*PostgresStore)(nil)
	_ Repository = (*MemoryStore)(nil)
)
