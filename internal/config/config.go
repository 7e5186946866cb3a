/*
Package config reads the application's settings from the environment.
A .env file in the working directory is loaded first when present.
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"MetaMeal/internal/prompt"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds every runtime setting.
type Config struct {
	Port     int
	AppEnv   string
	LogLevel zerolog.Level

	GeminiAPIKey     string
	GeminiModel      string
	GeminiBackend    string // "sdk" or "rest"
	GeminiTimeout    time.Duration
	GeminiMaxRetries int

	PromptStyle prompt.Style
	PromptsFile string

	SessionSecret      string
	SessionTTL         time.Duration
	MaxSessions        int
	RateLimitPerMinute int

	HistoryDriver        string // "memory", "sqlite" or "postgres"
	HistorySQLitePath    string
	HistoryRetention     time.Duration
	HistoryPurgeSchedule string
	Postgres             Postgres

	SMTP SMTP
}

// Postgres carries the BLUEPRINT_DB_* connection settings.
type Postgres struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	Schema   string
}

// DSN builds the pgx connection string.
func (p Postgres) DSN() string {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", p.Username, p.Password, p.Host, p.Port, p.Database)
	if p.Schema != "" {
		dsn += "&search_path=" + p.Schema
	}
	return dsn
}

// SMTP configures outgoing mail. Mail is disabled when Host is empty.
type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether an SMTP host is configured.
func (s SMTP) Enabled() bool {
	return s.Host != ""
}

// IsDevelopment reports whether APP_ENV is development.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Load reads .env (if any) and then the process environment.
func Load() (*Config, error) {
	// Missing .env is normal in containers.
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current environment, applying defaults.
func FromEnv() (*Config, error) {
	var errs []string
	fail := func(key string, err error) {
		errs = append(errs, fmt.Sprintf("%s: %v", key, err))
	}

	cfg := &Config{
		AppEnv:               getEnv("APP_ENV", "development"),
		GeminiAPIKey:         getEnv("GEMINI_API_KEY", os.Getenv("GOOGLE_API_KEY")),
		GeminiModel:          getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiBackend:        strings.ToLower(getEnv("GEMINI_BACKEND", "sdk")),
		PromptsFile:          os.Getenv("PROMPTS_FILE"),
		SessionSecret:        os.Getenv("SESSION_SECRET"),
		HistoryDriver:        strings.ToLower(getEnv("HISTORY_DRIVER", "memory")),
		HistorySQLitePath:    getEnv("HISTORY_SQLITE_PATH", "metameal.db"),
		HistoryPurgeSchedule: getEnv("HISTORY_PURGE_SCHEDULE", "@hourly"),
		Postgres: Postgres{
			Host:     os.Getenv("BLUEPRINT_DB_HOST"),
			Port:     getEnv("BLUEPRINT_DB_PORT", "5432"),
			Database: os.Getenv("BLUEPRINT_DB_DATABASE"),
			Username: os.Getenv("BLUEPRINT_DB_USERNAME"),
			Password: os.Getenv("BLUEPRINT_DB_PASSWORD"),
			Schema:   os.Getenv("BLUEPRINT_DB_SCHEMA"),
		},
		SMTP: SMTP{
			Host:     os.Getenv("SMTP_HOST"),
			Username: os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASS"),
			From:     os.Getenv("SMTP_FROM"),
		},
	}

	var err error
	if cfg.Port, err = getInt("PORT", 8080); err != nil {
		fail("PORT", err)
	}
	if cfg.LogLevel, err = zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		fail("LOG_LEVEL", err)
	}
	if cfg.GeminiTimeout, err = getDuration("GEMINI_TIMEOUT", 60*time.Second); err != nil {
		fail("GEMINI_TIMEOUT", err)
	}
	if cfg.GeminiMaxRetries, err = getInt("GEMINI_MAX_RETRIES", 3); err != nil {
		fail("GEMINI_MAX_RETRIES", err)
	}
	if cfg.PromptStyle, err = prompt.ParseStyle(getEnv("PROMPT_STYLE", "text")); err != nil {
		fail("PROMPT_STYLE", err)
	}
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 2*time.Hour); err != nil {
		fail("SESSION_TTL", err)
	}
	if cfg.MaxSessions, err = getInt("MAX_SESSIONS", 1000); err != nil {
		fail("MAX_SESSIONS", err)
	}
	if cfg.RateLimitPerMinute, err = getInt("RATE_LIMIT_PER_MINUTE", 10); err != nil {
		fail("RATE_LIMIT_PER_MINUTE", err)
	}
	if cfg.HistoryRetention, err = getDuration("HISTORY_RETENTION", 168*time.Hour); err != nil {
		fail("HISTORY_RETENTION", err)
	}
	if cfg.SMTP.Port, err = getInt("SMTP_PORT", 587); err != nil {
		fail("SMTP_PORT", err)
	}
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.Username
	}

	switch cfg.GeminiBackend {
	case "sdk", "rest":
	default:
		fail("GEMINI_BACKEND", fmt.Errorf("unknown backend %q", cfg.GeminiBackend))
	}
	switch cfg.HistoryDriver {
	case "memory", "sqlite", "postgres":
	default:
		fail("HISTORY_DRIVER", fmt.Errorf("unknown driver %q", cfg.HistoryDriver))
	}
	if cfg.MaxSessions <= 0 {
		fail("MAX_SESSIONS", fmt.Errorf("must be positive"))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}
