package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jjenkins/lawtrack/internal/model"
)

// OldNewInfoExists checks whether old/new content was already stored for mst
func (s *PostgresStore) OldNewInfoExists(ctx context.Context, mst string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM old_new_info WHERE mst = $1)`, mst,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check old/new info %s: %w", mst, err)
	}

	return exists, nil
}

// InsertOldNewInfo stores the basic-info blobs for a revision
func (s *PostgresStore) InsertOldNewInfo(ctx context.Context, info *model.OldNewInfo) (bool, error) {
	oldBasic, err := marshalBasic(info.OldBasic)
	if err != nil {
		return false, err
	}
	newBasic, err := marshalBasic(info.NewBasic)
	if err != nil {
		return false, err
	}

	query := `
		INSERT INTO old_new_info (mst, has_old_new, old_basic, new_basic, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (mst) DO NOTHING
	`

	res, err := s.db.ExecContext(ctx, query, info.MST, info.HasOldNew, oldBasic, newBasic, info.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert old/new info %s: %w", info.MST, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}

	return n == 1, nil
}

// GetOldNewInfo retrieves the old/new record for mst
func (s *PostgresStore) GetOldNewInfo(ctx context.Context, mst string) (*model.OldNewInfo, error) {
	query := `
		SELECT mst, has_old_new, old_basic, new_basic, created_at
		FROM old_new_info
		WHERE mst = $1
	`

	var info model.OldNewInfo
	var oldBasic, newBasic []byte
	err := s.db.QueryRowContext(ctx, query, mst).Scan(
		&info.MST,
		&info.HasOldNew,
		&oldBasic,
		&newBasic,
		&info.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get old/new info %s: %w", mst, err)
	}

	if err := json.Unmarshal(oldBasic, &info.OldBasic); err != nil {
		return nil, fmt.Errorf("failed to decode old_basic for %s: %w", mst, err)
	}
	if err := json.Unmarshal(newBasic, &info.NewBasic); err != nil {
		return nil, fmt.Errorf("failed to decode new_basic for %s: %w", mst, err)
	}

	return &info, nil
}

// InsertArticleDiffs stores the zipped article pairs of a revision
func (s *PostgresStore) InsertArticleDiffs(ctx context.Context, diffs []model.ArticleDiff) error {
	query := `
		INSERT INTO article_diff (diff_id, mst, seq, old_no, old_content,
		                          new_no, new_content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for _, d := range diffs {
		_, err := s.db.ExecContext(ctx, query,
			d.DiffID,
			d.MST,
			d.Seq,
			d.OldNo,
			d.OldContent,
			d.NewNo,
			d.NewContent,
			d.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert article diff %s#%d: %w", d.MST, d.Seq, err)
		}
	}

	return nil
}

// ListArticleDiffs retrieves the article pairs of a revision in zip order
func (s *PostgresStore) ListArticleDiffs(ctx context.Context, mst string) ([]model.ArticleDiff, error) {
	query := `
		SELECT diff_id, mst, seq, old_no, old_content, new_no, new_content, created_at
		FROM article_diff
		WHERE mst = $1
		ORDER BY seq
	`

	rows, err := s.db.QueryContext(ctx, query, mst)
	if err != nil {
		return nil, fmt.Errorf("failed to list article diffs %s: %w", mst, err)
	}
	defer rows.Close()

	var diffs []model.ArticleDiff
	for rows.Next() {
		var d model.ArticleDiff
		err := rows.Scan(
			&d.DiffID,
			&d.MST,
			&d.Seq,
			&d.OldNo,
			&d.OldContent,
			&d.NewNo,
			&d.NewContent,
			&d.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article diff: %w", err)
		}
		diffs = append(diffs, d)
	}

	return diffs, rows.Err()
}

func marshalBasic(m map[string]any) ([]byte, error) {
	if m == nil {
		m = map[string]any{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode basic info: %w", err)
	}
	return b, nil
}
