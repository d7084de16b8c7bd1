package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jjenkins/lawtrack/internal/model"
	"github.com/jjenkins/lawtrack/internal/store"
	"go.uber.org/zap"
)

// RevisionFetcher loads the old/new comparison of one revision
type RevisionFetcher interface {
	FetchRevisionDetail(ctx context.Context, mst string) (*model.RevisionDetail, error)
}

// Reconciler persists registry change records as laws, change events and
// the old/new content of each revision serial number
type Reconciler struct {
	registry RevisionFetcher
	logger   *zap.SugaredLogger
}

// NewReconciler creates a new Reconciler
func NewReconciler(registry RevisionFetcher, logger *zap.SugaredLogger) *Reconciler {
	return &Reconciler{registry: registry, logger: logger}
}

// ReconcileRecord upserts the record's law and creates its change event when
// the (law_id, mst) pair is new. Old/new content is fetched only for events
// created by this call.
func (r *Reconciler) ReconcileRecord(ctx context.Context, repo store.Repository, rec model.ChangeRecord, collected time.Time) (bool, error) {
	if rec.LawID == "" {
		return false, ErrMissingLawID
	}

	law := &model.Law{
		LawID:         rec.LawID,
		LawName:       rec.LawName,
		LawTypeName:   rec.LawTypeName,
		MinistryNames: rec.MinistryNames,
		MinistryCodes: rec.MinistryCodes,
	}
	if err := repo.UpsertLaw(ctx, law); err != nil {
		return false, fmt.Errorf("failed to upsert law: %w", err)
	}

	if rec.MST == "" {
		r.logger.Warnf("law %s record has no revision serial number, no change event created", rec.LawID)
		return false, nil
	}

	exists, err := repo.ChangeEventExists(ctx, rec.LawID, rec.MST)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	event := &model.ChangeEvent{
		ChangeID:         uuid.New(),
		LawID:            rec.LawID,
		MST:              rec.MST,
		ChangeType:       nullString(rec.ChangeType),
		PromulgationNo:   nullString(rec.PromulgationNo),
		PromulgationDate: parseRegistryDate(rec.PromulgationDate),
		EnforcementDate:  parseRegistryDate(rec.EnforcementDate),
		HistoryCode:      nullString(rec.HistoryCode),
		CollectedDate:    collected,
		CreatedAt:        time.Now(),
	}

	created, err := repo.InsertChangeEvent(ctx, event)
	if err != nil {
		return false, err
	}
	if !created {
		return false, nil
	}

	if err := r.EnsureOldNewContent(ctx, repo, event.MST); err != nil {
		return false, err
	}

	return true, nil
}

// EnsureOldNewContent stores the old/new info and article diffs of mst unless
// they already exist. Registry errors propagate to the caller.
func (r *Reconciler) EnsureOldNewContent(ctx context.Context, repo store.Repository, mst string) error {
	exists, err := repo.OldNewInfoExists(ctx, mst)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	detail, err := r.registry.FetchRevisionDetail(ctx, mst)
	if err != nil {
		return err
	}

	now := time.Now()
	info := &model.OldNewInfo{
		MST:       mst,
		HasOldNew: "N",
		OldBasic:  detail.OldBasic,
		NewBasic:  detail.NewBasic,
		CreatedAt: now,
	}
	if len(detail.OldArticles) > 0 || len(detail.NewArticles) > 0 {
		info.HasOldNew = "Y"
	}

	inserted, err := repo.InsertOldNewInfo(ctx, info)
	if err != nil {
		return err
	}
	if !inserted {
		return nil
	}

	diffs := zipArticles(mst, detail.OldArticles, detail.NewArticles, now)
	if len(diffs) == 0 {
		return nil
	}
	return repo.InsertArticleDiffs(ctx, diffs)
}

// zipArticles pairs olds[i] with news[i]. The shorter side is padded with
// absent entries, so the result has max(len(olds), len(news)) rows.
func zipArticles(mst string, olds, news []model.ArticleText, createdAt time.Time) []model.ArticleDiff {
	n := max(len(olds), len(news))
	diffs := make([]model.ArticleDiff, n)

	for i := 0; i < n; i++ {
		d := model.ArticleDiff{
			DiffID:    uuid.New(),
			MST:       mst,
			Seq:       i,
			CreatedAt: createdAt,
		}
		if i < len(olds) {
			d.OldNo = nullString(olds[i].No)
			d.OldContent = sql.NullString{String: olds[i].Content, Valid: true}
		}
		if i < len(news) {
			d.NewNo = nullString(news[i].No)
			d.NewContent = sql.NullString{String: news[i].Content, Valid: true}
		}
		diffs[i] = d
	}

	return diffs
}

// parseRegistryDate accepts YYYYMMDD or YYYY-MM-DD; anything else is NULL
func parseRegistryDate(s string) sql.NullTime {
	s = strings.ReplaceAll(strings.TrimSpace(s), "-", "")
	if len(s) != 8 {
		return sql.NullTime{}
	}
	t, err := time.Parse("20060102", s)
	if err != nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}
