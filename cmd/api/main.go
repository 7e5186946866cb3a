package main

import (
	"context"
	"crypto/rand"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"MetaMeal/internal/config"
	"MetaMeal/internal/geminiservice"
	"MetaMeal/internal/history"
	"MetaMeal/internal/mailer"
	"MetaMeal/internal/nutrition"
	"MetaMeal/internal/prompt"
	"MetaMeal/internal/server"
	"MetaMeal/internal/session"
	"MetaMeal/internal/utility"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Info().Msg("shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown with error")
	}

	log.Info().Msg("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func setupLogger(cfg *config.Config) {
	zerolog.SetGlobalLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func newGeminiClient(ctx context.Context, cfg *config.Config) (geminiservice.Client, error) {
	// Without a key the SDK refuses to start; the REST client reports it per call instead.
	if cfg.GeminiBackend == "rest" || cfg.GeminiAPIKey == "" {
		return geminiservice.NewRESTClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiMaxRetries), nil
	}
	return geminiservice.NewSDKClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
}

func sessionSecret(cfg *config.Config) []byte {
	if cfg.SessionSecret != "" {
		return []byte(cfg.SessionSecret)
	}
	// Sessions are in memory anyway, so a per-process key loses nothing.
	log.Warn().Msg("SESSION_SECRET not set, using a random key for this process")
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		log.Fatal().Err(err).Msg("Failed to generate session key")
	}
	return key
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Fatal error: could not load configuration")
	}
	setupLogger(cfg)

	ctx := context.Background()

	// 1. Model gateway
	if cfg.GeminiAPIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set; every generation will report an error")
	}
	client, err := newGeminiClient(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Fatal error: could not create Gemini client")
	}
	gateway := geminiservice.NewGateway(client, cfg.GeminiTimeout)

	// 2. Prompts
	templates, err := prompt.LoadTemplates(cfg.PromptsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Fatal error: could not load prompt templates")
	}
	builder, err := prompt.NewBuilder(cfg.PromptStyle, templates)
	if err != nil {
		log.Fatal().Err(err).Msg("Fatal error: could not build prompt templates")
	}

	// 3. History and its retention job
	store, err := history.NewStore(ctx, history.Config{
		Driver:      cfg.HistoryDriver,
		SQLitePath:  cfg.HistorySQLitePath,
		PostgresDSN: cfg.Postgres.DSN(),
	})
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.HistoryDriver).Msg("Fatal error: could not open history store")
	}
	defer store.Close()

	retention, err := history.NewRetention(store, cfg.HistoryPurgeSchedule, cfg.HistoryRetention)
	if err != nil {
		log.Fatal().Err(err).Msg("Fatal error: could not schedule history retention")
	}
	retention.Start()
	defer retention.Stop()

	// 4. Sessions, status hub, mail
	registry := session.NewRegistry(cfg.MaxSessions, cfg.SessionTTL, cfg.RateLimitPerMinute)
	sessions := session.NewManager(sessionSecret(cfg), !cfg.IsDevelopment(), registry)
	hub := utility.NewHub()

	var planMailer nutrition.MealPlanMailer
	if m := mailer.New(cfg.SMTP); m != nil {
		planMailer = m
	}

	svc := nutrition.NewService(gateway, builder, store, hub, cfg.GeminiModel)

	apiServer := server.NewServer(cfg, server.Deps{
		History:  store,
		Sessions: sessions,
		Hub:      hub,
		API:      nutrition.NewHandler(svc, store, hub, planMailer),
	})

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(apiServer, done)

	log.Info().
		Str("addr", apiServer.Addr).
		Str("model", cfg.GeminiModel).
		Str("backend", cfg.GeminiBackend).
		Str("history", cfg.HistoryDriver).
		Msg("MetaMeal listening")

	err = apiServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server error")
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Info().Msg("Graceful shutdown complete.")
}
