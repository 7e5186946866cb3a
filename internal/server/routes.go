package server

import (
	"html/template"
	"io"
	"net/http"

	"MetaMeal/internal/session"
	"MetaMeal/internal/utility"
	"MetaMeal/web"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
)

// maxBodySize leaves headroom above upload.MaxImageBytes for multipart framing.
const maxBodySize = "12M"

// TemplateRenderer is a custom html/template renderer for Echo framework
type TemplateRenderer struct {
	templates *template.Template
}

// Render renders a template document
func (t *TemplateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	// Use ExecuteTemplate to select the correct template by name
	return t.templates.ExecuteTemplate(w, name, data)
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"https://*", "http://*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	e.Use(middleware.BodyLimit(maxBodySize))
	e.Use(LoggerMiddleware)

	e.StaticFS("/static", echo.MustSubFS(web.Files, "public"))

	e.Renderer = &TemplateRenderer{
		templates: template.Must(template.ParseFS(web.Files, "templates/*.html")),
	}

	e.GET("/health", s.healthHandler)

	// Everything below works against the caller's session
	e.GET("/", s.indexHandler, s.sessions.Middleware)
	e.GET("/ws", s.api.StatusSocketHandler, s.sessions.Middleware)

	api := e.Group("/api", s.sessions.Middleware)
	s.api.Register(api)

	s.Echo = e
	return e
}

// indexHandler serves the single-page UI with the session's profile prefilled.
func (s *Server) indexHandler(c echo.Context) error {
	sess, err := session.FromContext(c)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Session unavailable"})
	}

	_, hasPlan := sess.LatestMealPlan()
	return c.Render(http.StatusOK, "index.html", map[string]interface{}{
		"profile":      sess.Profile.Get(),
		"has_plan":     hasPlan,
		"model":        s.cfg.GeminiModel,
		"prompt_style": string(s.cfg.PromptStyle),
		"email":        s.cfg.SMTP.Enabled(),
	})
}

// LoggerMiddleware tags every request with an ID and attaches a child logger to
// both the echo context and the request context.
func LoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Response().Header().Set("X-Request-ID", requestID)

		logger := log.With().
			Str("request_id", requestID).
			Str("ip", utility.GetRealIP(c)).
			Logger()

		c.Set("logger", &logger)
		c.SetRequest(c.Request().WithContext(logger.WithContext(c.Request().Context())))

		return next(c)
	}
}
