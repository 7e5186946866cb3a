/*
Package server implements the application's network transport layer.
It initializes the HTTP server, configures timeouts, and holds the
services the routes are wired to.
*/
package server

import (
	"fmt"
	"net/http"
	"time"

	"MetaMeal/internal/config"
	"MetaMeal/internal/history"
	"MetaMeal/internal/nutrition"
	"MetaMeal/internal/session"
	"MetaMeal/internal/utility"

	"github.com/labstack/echo/v4"
)

// Server defines the configuration and dependencies for the HTTP service.
type Server struct {
	// cfg is the loaded runtime configuration.
	cfg *config.Config

	// history backs /api/history and the health check.
	history history.Store

	// sessions resolves the session cookie on every non-static request.
	sessions *session.Manager

	// hub pushes generation status to connected pages.
	hub *utility.Hub

	// api serves the nutrition endpoints.
	api *nutrition.Handler

	startTime time.Time

	// systemStats is swapped out in tests.
	systemStats func() (map[string]interface{}, error)

	// Echo is the underlying web framework instance.
	*echo.Echo
}

// Deps are the services built in main and shared with the routes.
type Deps struct {
	History  history.Store
	Sessions *session.Manager
	Hub      *utility.Hub
	API      *nutrition.Handler
}

// New assembles a Server without starting it.
func New(cfg *config.Config, deps Deps) *Server {
	return &Server{
		cfg:         cfg,
		history:     deps.History,
		sessions:    deps.Sessions,
		hub:         deps.Hub,
		api:         deps.API,
		startTime:   time.Now(),
		systemStats: collectSystemStats,
	}
}

// NewServer returns a configured *http.Server for cfg. Write timeouts leave
// room for the slowest model call.
func NewServer(cfg *config.Config, deps Deps) *http.Server {
	app := New(cfg, deps)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      app.RegisterRoutes(), // Injected from routes.go
		IdleTimeout:  time.Minute,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.GeminiTimeout + 30*time.Second,
	}

	return server
}
