package store

import (
	"context"
	"fmt"

	"github.com/jjenkins/lawtrack/internal/model"
)

// Totals counts rows per entity along with the enrichment backlog
func (s *PostgresStore) Totals(ctx context.Context) (*model.Totals, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM law),
			(SELECT COUNT(*) FROM law_change_event),
			(SELECT COUNT(*) FROM law_change_event
			  WHERE change_summary IS NOT NULL OR action_recommendation IS NOT NULL),
			(SELECT COUNT(*) FROM law_change_event
			  WHERE change_summary IS NULL AND action_recommendation IS NULL
			    AND mst IN (SELECT mst FROM old_new_info WHERE has_old_new = 'Y')),
			(SELECT COUNT(*) FROM old_new_info),
			(SELECT COUNT(*) FROM article_diff)
	`

	var t model.Totals
	err := s.db.QueryRowContext(ctx, query).Scan(
		&t.Laws,
		&t.ChangeEvents,
		&t.EnrichedEvents,
		&t.PendingEnrichments,
		&t.OldNewInfos,
		&t.ArticleDiffs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count totals: %w", err)
	}

	return &t, nil
}
