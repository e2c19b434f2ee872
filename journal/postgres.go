package journal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ticketgate/models"
)

const createTable = `
	CREATE TABLE IF NOT EXISTS validation_attempts (
		id          UUID PRIMARY KEY,
		code        TEXT NOT NULL,
		outcome     TEXT NOT NULL,
		message     TEXT NOT NULL,
		brand       TEXT NOT NULL,
		event_name  TEXT NOT NULL DEFAULT '',
		started_at  TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL
	)
`

const createBrandIndex = `
	CREATE INDEX IF NOT EXISTS validation_attempts_brand_idx
		ON validation_attempts (brand, finished_at DESC)
`

// PostgresJournal writes attempts to the validation_attempts table.
type PostgresJournal struct {
	db *pgxpool.Pool
}

// OpenPostgres connects and makes sure the table exists.
func OpenPostgres(ctx context.Context, dbURL string) (*PostgresJournal, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	for _, stmt := range []string{createTable, createBrandIndex} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("create validation_attempts: %w", err)
		}
	}
	return &PostgresJournal{db: pool}, nil
}

func (j *PostgresJournal) Record(ctx context.Context, attempt models.Attempt) error {
	query := `
		INSERT INTO validation_attempts (id, code, outcome, message, brand, event_name, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := j.db.Exec(ctx, query,
		attempt.ID,
		attempt.Code,
		string(attempt.Outcome),
		attempt.Message,
		attempt.Brand,
		attempt.EventName,
		attempt.StartedAt,
		attempt.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert attempt %s: %w", attempt.ID, err)
	}
	return nil
}

func (j *PostgresJournal) Recent(ctx context.Context, brand string, limit int) ([]models.Attempt, error) {
	if limit <= 0 {
		limit = DefaultSize
	}
	query := `
		SELECT id, code, outcome, message, brand, event_name, started_at, finished_at
		FROM validation_attempts
		WHERE brand = $1
		ORDER BY finished_at DESC
		LIMIT $2
	`
	rows, err := j.db.Query(ctx, query, brand, limit)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	attempts, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Attempt])
	if err != nil {
		return nil, fmt.Errorf("scan attempts: %w", err)
	}
	return attempts, nil
}

func (j *PostgresJournal) Close() error {
	j.db.Close()
	return nil
}
