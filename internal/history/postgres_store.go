package history

import (
	"context"
	"fmt"
	"time"

	"MetaMeal/internal/database"
)

// PostgresStore implements Store on the shared pgx pool.
type PostgresStore struct {
	db database.Service
}

// NewPostgresStore connects to dsn and migrates generation_history.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := database.NewService(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Save(ctx context.Context, rec *Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	id, err := s.db.Queries().InsertGeneration(ctx, database.InsertGenerationParams{
		SessionID:     rec.SessionID,
		Feature:       rec.Feature,
		PromptStyle:   rec.PromptStyle,
		Model:         rec.Model,
		Ok:            rec.OK,
		Error:         rec.Error,
		ResponseChars: int32(rec.ResponseChars),
		LatencyMs:     rec.LatencyMS,
		CreatedAt:     rec.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to save generation record: %w", err)
	}
	rec.ID = uint(id)
	return nil
}

func (s *PostgresStore) ListBySession(ctx context.Context, sessionID string, limit int) ([]Record, error) {
	rows, err := s.db.Queries().ListGenerationsBySession(ctx, database.ListGenerationsBySessionParams{
		SessionID: sessionID,
		Limit:     int32(normalizeLimit(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch generation records: %w", err)
	}

	recs := make([]Record, 0, len(rows))
	for _, r := range rows {
		recs = append(recs, Record{
			ID:            uint(r.ID),
			SessionID:     r.SessionID,
			Feature:       r.Feature,
			PromptStyle:   r.PromptStyle,
			Model:         r.Model,
			OK:            r.Ok,
			Error:         r.Error,
			ResponseChars: int(r.ResponseChars),
			LatencyMS:     r.LatencyMs,
			CreatedAt:     r.CreatedAt,
		})
	}
	return recs, nil
}

func (s *PostgresStore) Purge(ctx context.Context, before time.Time) (int64, error) {
	n, err := s.db.Queries().DeleteGenerationsBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge generation records: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Queries().Ping(ctx)
}

// Health exposes the pool statistics for /health.
func (s *PostgresStore) Health() map[string]string {
	return s.db.Health()
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}
