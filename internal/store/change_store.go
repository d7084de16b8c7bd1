package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jjenkins/lawtrack/internal/model"
)

// ChangeEventExists checks the (law_id, mst) natural key
func (s *PostgresStore) ChangeEventExists(ctx context.Context, lawID, mst string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM law_change_event WHERE law_id = $1 AND mst = $2
		)
	`

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, lawID, mst).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check change event %s/%s: %w", lawID, mst, err)
	}

	return exists, nil
}

// InsertChangeEvent inserts a new change event. A concurrent run that already
// inserted the same natural key turns this into a no-op.
func (s *PostgresStore) InsertChangeEvent(ctx context.Context, ev *model.ChangeEvent) (bool, error) {
	query := `
		INSERT INTO law_change_event (change_id, law_id, mst, change_type, proclamation_no,
		                              proclamation_date, enforce_date, current_hist_cd,
		                              collected_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (law_id, mst) DO NOTHING
	`

	res, err := s.db.ExecContext(ctx, query,
		ev.ChangeID,
		ev.LawID,
		ev.MST,
		ev.ChangeType,
		ev.PromulgationNo,
		ev.PromulgationDate,
		ev.EnforcementDate,
		ev.HistoryCode,
		ev.CollectedDate,
		ev.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert change event %s/%s: %w", ev.LawID, ev.MST, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}

	return n == 1, nil
}

// SelectPending returns events that have comparable old/new content and no
// enrichment yet, most recently collected first
func (s *PostgresStore) SelectPending(ctx context.Context, limit int) ([]model.ChangeEvent, error) {
	query := `
		SELECT change_id, law_id, mst, change_type, proclamation_no, proclamation_date,
		       enforce_date, current_hist_cd, collected_date, created_at,
		       change_summary, action_recommendation, ai_importance
		FROM law_change_event
		WHERE mst IN (SELECT mst FROM old_new_info WHERE has_old_new = 'Y')
		  AND change_summary IS NULL
		  AND action_recommendation IS NULL
		ORDER BY collected_date DESC, created_at DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending change events: %w", err)
	}
	defer rows.Close()

	var events []model.ChangeEvent
	for rows.Next() {
		var ev model.ChangeEvent
		err := rows.Scan(
			&ev.ChangeID,
			&ev.LawID,
			&ev.MST,
			&ev.ChangeType,
			&ev.PromulgationNo,
			&ev.PromulgationDate,
			&ev.EnforcementDate,
			&ev.HistoryCode,
			&ev.CollectedDate,
			&ev.CreatedAt,
			&ev.ChangeSummary,
			&ev.ActionRecommendation,
			&ev.AIImportance,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan change event: %w", err)
		}
		events = append(events, ev)
	}

	return events, rows.Err()
}

// SaveEnrichment writes the AI fields only while both are still empty
func (s *PostgresStore) SaveEnrichment(ctx context.Context, changeID uuid.UUID, e model.Enrichment) (bool, error) {
	query := `
		UPDATE law_change_event
		SET change_summary = $2, action_recommendation = $3, ai_importance = $4
		WHERE change_id = $1
		  AND change_summary IS NULL
		  AND action_recommendation IS NULL
	`

	res, err := s.db.ExecContext(ctx, query, changeID, e.Summary, e.Actions, e.Importance)
	if err != nil {
		return false, fmt.Errorf("failed to save enrichment for %s: %w", changeID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}

	return n == 1, nil
}
