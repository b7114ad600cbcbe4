package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/deusflow/headwatch/internal/logger"
	_ "github.com/lib/pq"
)

const seenSchema = `
CREATE TABLE IF NOT EXISTS seen_headlines (
	title   TEXT PRIMARY KEY,
	seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_seen_headlines_seen_at ON seen_headlines(seen_at);
`

// PostgresSeenStore keeps seen headlines in the seen_headlines table.
type PostgresSeenStore struct {
	db *sql.DB
}

// NewPostgresSeenStore connects, pings and creates the schema if needed.
func NewPostgresSeenStore(ctx context.Context, connectionString string) (*PostgresSeenStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store, err := newPostgresSeenStore(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("postgres seen store connected")
	return store, nil
}

func newPostgresSeenStore(ctx context.Context, db *sql.DB) (*PostgresSeenStore, error) {
	store := &PostgresSeenStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (ps *PostgresSeenStore) initSchema(ctx context.Context) error {
	if _, err := ps.db.ExecContext(ctx, seenSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Load returns titles in insertion order.
func (ps *PostgresSeenStore) Load(ctx context.Context) ([]string, error) {
	rows, err := ps.db.QueryContext(ctx, `SELECT title FROM seen_headlines ORDER BY seen_at, title`)
	if err != nil {
		return nil, fmt.Errorf("failed to load seen headlines: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("failed to scan seen headline: %w", err)
		}
		titles = append(titles, title)
	}
	return titles, rows.Err()
}

// Append inserts all entries in one transaction, ignoring ones already present.
func (ps *PostgresSeenStore) Append(ctx context.Context, entries []string) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO seen_headlines (title) VALUES ($1) ON CONFLICT (title) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e); err != nil {
			return fmt.Errorf("failed to insert seen headline: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seen headlines: %w", err)
	}
	return nil
}

func (ps *PostgresSeenStore) Count(ctx context.Context) (int, error) {
	var total int
	if err := ps.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM seen_headlines`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count seen headlines: %w", err)
	}
	return total, nil
}

func (ps *PostgresSeenStore) Close() error {
	if ps.db != nil {
		return ps.db.Close()
	}
	return nil
}
