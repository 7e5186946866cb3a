package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

// Generation is one row of generation_history.
type Generation struct {
	ID            int64
	SessionID     string
	Feature       string
	PromptStyle   string
	Model         string
	Ok            bool
	Error         string
	ResponseChars int32
	LatencyMs     int64
	CreatedAt     time.Time
}

const createGenerationHistory = `
CREATE TABLE IF NOT EXISTS generation_history (
    id             BIGSERIAL PRIMARY KEY,
    session_id     TEXT        NOT NULL,
    feature        TEXT        NOT NULL,
    prompt_style   TEXT        NOT NULL DEFAULT 'text',
    model          TEXT        NOT NULL DEFAULT '',
    ok             BOOLEAN     NOT NULL,
    error          TEXT        NOT NULL DEFAULT '',
    response_chars INTEGER     NOT NULL DEFAULT 0,
    latency_ms     BIGINT      NOT NULL DEFAULT 0,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_generation_history_session ON generation_history (session_id, created_at DESC);
`

// Migrate creates the generation_history table when missing.
func (q *Queries) Migrate(ctx context.Context) error {
	if _, err := q.db.Exec(ctx, createGenerationHistory); err != nil {
		return fmt.Errorf("failed to migrate generation_history: %w", err)
	}
	return nil
}

const insertGeneration = `-- name: InsertGeneration :one
INSERT INTO generation_history (
    session_id, feature, prompt_style, model, ok, error, response_chars, latency_ms, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id
`

type InsertGenerationParams struct {
	SessionID     string
	Feature       string
	PromptStyle   string
	Model         string
	Ok            bool
	Error         string
	ResponseChars int32
	LatencyMs     int64
	CreatedAt     time.Time
}

func (q *Queries) InsertGeneration(ctx context.Context, arg InsertGenerationParams) (int64, error) {
	row := q.db.QueryRow(ctx, insertGeneration,
		arg.SessionID,
		arg.Feature,
		arg.PromptStyle,
		arg.Model,
		arg.Ok,
		arg.Error,
		arg.ResponseChars,
		arg.LatencyMs,
		arg.CreatedAt,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const listGenerationsBySession = `-- name: ListGenerationsBySession :many
SELECT id, session_id, feature, prompt_style, model, ok, error, response_chars, latency_ms, created_at
FROM generation_history
WHERE session_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2
`

type ListGenerationsBySessionParams struct {
	SessionID string
	Limit     int32
}

func (q *Queries) ListGenerationsBySession(ctx context.Context, arg ListGenerationsBySessionParams) ([]Generation, error) {
	rows, err := q.db.Query(ctx, listGenerationsBySession, arg.SessionID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Generation
	for rows.Next() {
		var i Generation
		if err := rows.Scan(
			&i.ID,
			&i.SessionID,
			&i.Feature,
			&i.PromptStyle,
			&i.Model,
			&i.Ok,
			&i.Error,
			&i.ResponseChars,
			&i.LatencyMs,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteGenerationsBefore = `-- name: DeleteGenerationsBefore :execrows
DELETE FROM generation_history WHERE created_at < $1
`

func (q *Queries) DeleteGenerationsBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := q.db.Exec(ctx, deleteGenerationsBefore, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const pingGenerations = `SELECT 1`

// Ping runs a trivial query.
func (q *Queries) Ping(ctx context.Context) error {
	var one int
	return q.db.QueryRow(ctx, pingGenerations).Scan(&one)
}
