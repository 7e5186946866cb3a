/*
Package history records one row per model call: which feature ran, whether
it succeeded, how long it took. Prompts and responses are not stored.
*/
package history

import (
	"context"
	"fmt"
	"time"
)

// DefaultListLimit caps ListBySession when the caller passes no limit.
const DefaultListLimit = 50

// MaxListLimit is the largest page ListBySession returns.
const MaxListLimit = 200

// Record describes one gateway call.
type Record struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	SessionID     string    `gorm:"index;not null" json:"session_id"`
	Feature       string    `gorm:"not null" json:"feature"`
	PromptStyle   string    `json:"prompt_style"`
	Model         string    `json:"model"`
	OK            bool      `gorm:"column:ok" json:"ok"`
	Error         string    `json:"error,omitempty"`
	ResponseChars int       `json:"response_chars"`
	LatencyMS     int64     `gorm:"column:latency_ms" json:"latency_ms"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

// TableName keeps the sqlite and postgres schemas on the same table name.
func (Record) TableName() string {
	return "generation_history"
}

// Store persists generation records.
type Store interface {
	Save(ctx context.Context, rec *Record) error
	// ListBySession returns newest first.
	ListBySession(ctx context.Context, sessionID string, limit int) ([]Record, error)
	// Purge deletes records created before the cutoff.
	Purge(ctx context.Context, before time.Time) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// Config selects and configures a Store.
type Config struct {
	Driver     string // "memory", "sqlite" or "postgres"
	SQLitePath string
	// PostgresDSN is only read by the postgres driver.
	PostgresDSN string
}

// NewStore creates a store for cfg.Driver.
func NewStore(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath)
	case "postgres":
		return NewPostgresStore(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unsupported history driver: %s", cfg.Driver)
	}
}

func normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	}
	return limit
}
