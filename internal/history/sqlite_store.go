package history

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteStore implements Store on a local SQLite file through gorm.
type SQLiteStore struct {
	db   *gorm.DB
	path string
}

// NewSQLiteStore opens (or creates) the database at path and migrates the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite history store needs a path")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite database: %w", err)
	}

	// Auto-migrate the schema
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, rec *Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	// SQLite compares timestamps as text, so everything is stored in UTC.
	rec.CreatedAt = rec.CreatedAt.UTC()
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to save generation record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListBySession(ctx context.Context, sessionID string, limit int) ([]Record, error) {
	var recs []Record
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC, id DESC").
		Limit(normalizeLimit(limit)).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch generation records: %w", err)
	}
	return recs, nil
}

func (s *SQLiteStore) Purge(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("created_at < ?", before.UTC()).Delete(&Record{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge generation records: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Ping checks if the database connection is alive
func (s *SQLiteStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
