package store

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore implements Repository with raw SQL over database/sql
type PostgresStore struct {
	conn *sql.DB
	db   DBTX
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(conn *sql.DB) *PostgresStore {
	return &PostgresStore{conn: conn, db: conn}
}

// WithTx runs fn inside a single transaction
func (s *PostgresStore) WithTx(ctx context.Context, fn func(Repository) error) error {
	if _, inTx := s.db.(*sql.Tx); inTx {
		return fn(s)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&PostgresStore{conn: s.conn, db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
