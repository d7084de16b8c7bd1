package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jjenkins/lawtrack/internal/model"
)

// UpsertLaw inserts a law or refreshes its metadata. Empty incoming fields
// never overwrite values that are already known.
func (s *PostgresStore) UpsertLaw(ctx context.Context, l *model.Law) error {
	query := `
		INSERT INTO law (law_id, law_name, law_type_name, ministry_names,
		                 ministry_codes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (law_id) DO UPDATE SET
			law_name = COALESCE(NULLIF(EXCLUDED.law_name, ''), law.law_name),
			law_type_name = COALESCE(EXCLUDED.law_type_name, law.law_type_name),
			ministry_names = COALESCE(EXCLUDED.ministry_names, law.ministry_names),
			ministry_codes = COALESCE(EXCLUDED.ministry_codes, law.ministry_codes),
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		l.LawID,
		l.LawName,
		nullIfEmpty(l.LawTypeName),
		nullIfEmpty(l.MinistryNames),
		nullIfEmpty(l.MinistryCodes),
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert law %s: %w", l.LawID, err)
	}

	return nil
}

// GetLaw retrieves a law by its registry identifier
func (s *PostgresStore) GetLaw(ctx context.Context, lawID string) (*model.Law, error) {
	query := `
		SELECT law_id, law_name, law_type_name, ministry_names, ministry_codes,
		       created_at, updated_at
		FROM law
		WHERE law_id = $1
	`

	var l model.Law
	var lawType, ministryNames, ministryCodes sql.NullString
	err := s.db.QueryRowContext(ctx, query, lawID).Scan(
		&l.LawID,
		&l.LawName,
		&lawType,
		&ministryNames,
		&ministryCodes,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get law %s: %w", lawID, err)
	}

	l.LawTypeName = lawType.String
	l.MinistryNames = ministryNames.String
	l.MinistryCodes = ministryCodes.String

	return &l, nil
}
