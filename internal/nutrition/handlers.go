package nutrition

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"MetaMeal/internal/history"
	"MetaMeal/internal/mailer"
	"MetaMeal/internal/profile"
	"MetaMeal/internal/session"
	"MetaMeal/internal/upload"
	"MetaMeal/internal/utility"

	"github.com/labstack/echo/v4"
)

// DownloadFilename is the name offered for the latest meal plan.
const DownloadFilename = "personalized_meal_plan.txt"

// MealPlanMailer is satisfied by *mailer.Mailer.
type MealPlanMailer interface {
	SendMealPlan(ctx context.Context, to, plan string) error
}

// Handler exposes the flows over HTTP.
type Handler struct {
	svc     *Service
	history history.Store
	hub     *utility.Hub
	mailer  MealPlanMailer
}

// NewHandler builds the HTTP layer. store, hub and m may be nil; a nil m
// disables the email endpoint.
func NewHandler(svc *Service, store history.Store, hub *utility.Hub, m MealPlanMailer) *Handler {
	return &Handler{svc: svc, history: store, hub: hub, mailer: m}
}

// Register mounts the API routes on g.
func (h *Handler) Register(g *echo.Group) {
	g.GET("/profile", h.GetProfileHandler)
	g.PUT("/profile", h.UpdateProfileHandler)
	g.POST("/meal-plan", h.MealPlanHandler)
	g.GET("/meal-plan/download", h.DownloadMealPlanHandler)
	g.POST("/meal-plan/email", h.EmailMealPlanHandler)
	g.POST("/food-analysis", h.FoodAnalysisHandler)
	g.POST("/insights", h.InsightsHandler)
	g.GET("/history", h.HistoryHandler)
}

type generationResponse struct {
	Feature string `json:"feature"`
	OK      bool   `json:"ok"`
	Text    string `json:"text"`
	Error   string `json:"error,omitempty"`
}

/* ====================================================================
                   		Profile
==================================================================== */

type profileRequest struct {
	Goals        string   `json:"goals"`
	Conditions   string   `json:"conditions"`
	Routines     string   `json:"routines"`
	Preferences  []string `json:"preferences"`
	Restrictions []string `json:"restrictions"`
}

// GetProfileHandler returns the session's profile, seeding defaults on first access.
func (h *Handler) GetProfileHandler(c echo.Context) error {
	sess, err := session.FromContext(c)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Session unavailable"})
	}
	return c.JSON(http.StatusOK, sess.Profile.Get())
}

// UpdateProfileHandler replaces the profile wholesale. It accepts JSON or a
// form where preferences and restrictions are newline-separated.
func (h *Handler) UpdateProfileHandler(c echo.Context) error {
	logger := utility.GetLogger(c)

	sess, err := session.FromContext(c)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Session unavailable"})
	}

	var p profile.HealthProfile
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		var req profileRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		}
		p = profile.HealthProfile{
			Goals:        req.Goals,
			Conditions:   req.Conditions,
			Routines:     req.Routines,
			Preferences:  cleanList(req.Preferences),
			Restrictions: cleanList(req.Restrictions),
		}
	} else {
		p = profile.HealthProfile{
			Goals:        c.FormValue("goals"),
			Conditions:   c.FormValue("conditions"),
			Routines:     c.FormValue("routines"),
			Preferences:  profile.ParseList(c.FormValue("preferences")),
			Restrictions: profile.ParseList(c.FormValue("restrictions")),
		}
	}

	sess.Profile.Set(p)
	logger.Info().Str("session_id", sess.ID).Msg("Profile updated")

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Profile updated!",
		"profile": sess.Profile.Get(),
	})
}

/* ====================================================================
                   		Meal Plan
==================================================================== */

// MealPlanHandler generates a meal plan. Body: {"requirements": "..."}.
func (h *Handler) MealPlanHandler(c echo.Context) error {
	sess, err := session.FromContext(c)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Session unavailable"})
	}

	var req struct {
		Requirements string `json:"requirements" form:"requirements"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	out, err := h.svc.MealPlan(c.Request().Context(), sess, req.Requirements)
	return respond(c, out, err)
}

// DownloadMealPlanHandler serves the latest successful plan as a text file.
func (h *Handler) DownloadMealPlanHandler(c echo.Context) error {
	sess, err := session.FromContext(c)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Session unavailable"})
	}

	plan, ok := sess.LatestMealPlan()
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "No meal plan generated yet"})
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", DownloadFilename))
	return c.Blob(http.StatusOK, echo.MIMETextPlainCharsetUTF8, []byte(plan))
}

// EmailMealPlanHandler mails the latest plan. Body: {"email": "..."}.
func (h *Handler) EmailMealPlanHandler(c echo.Context) error {
	logger := utility.GetLogger(c)

	if h.mailer == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Email delivery is not configured"})
	}

	sess, err := session.FromContext(c)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Session unavailable"})
	}

	var req struct {
		Email string `json:"email" form:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	plan, ok := sess.LatestMealPlan()
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "No meal plan generated yet"})
	}

	if !sess.AllowMail() {
		logger.Warn().Str("session_id", sess.ID).Msg("Meal plan email throttled")
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "Too many emails, please try again later"})
	}

	if err := h.mailer.SendMealPlan(c.Request().Context(), req.Email, plan); err != nil {
		if errors.Is(err, mailer.ErrInvalidAddress) || errors.Is(err, mailer.ErrDisposableAddress) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		logger.Error().Err(err).Msg("Failed to email meal plan")
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Failed to send email"})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Meal plan sent to " + strings.TrimSpace(req.Email)})
}

/* ====================================================================
                   		Food Analysis
==================================================================== */

// FoodAnalysisHandler analyses the multipart "image" upload.
func (h *Handler) FoodAnalysisHandler(c echo.Context) error {
	logger := utility.GetLogger(c)

	sess, err := session.FromContext(c)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Session unavailable"})
	}

	// 1. Read the upload; a missing file is a warning, not an error
	var img *upload.ImagePart
	fh, err := c.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Expected a multipart upload with an image field"})
	default:
		// 2. Reject before the adapter ever sees it
		if !upload.AcceptedExtension(fh.Filename) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Unsupported file type. Please upload a JPG, JPEG or PNG image"})
		}
		if fh.Size > upload.MaxImageBytes {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Image is too large"})
		}

		img, err = upload.FromUpload(fh)
		if err == nil {
			err = upload.Decodable(img)
		}
		if err != nil {
			logger.Warn().Err(err).Str("filename", fh.Filename).Msg("Unreadable image upload")
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Could not open the image: " + err.Error()})
		}
	}

	// 3. Analyse
	out, err := h.svc.AnalyzeFood(c.Request().Context(), sess, img)
	return respond(c, out, err)
}

/* ====================================================================
                   		Health Insights
==================================================================== */

// InsightsHandler answers a health question. Body: {"query": "..."}.
func (h *Handler) InsightsHandler(c echo.Context) error {
	sess, err := session.FromContext(c)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Session unavailable"})
	}

	var req struct {
		Query string `json:"query" form:"query"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	out, err := h.svc.HealthInsight(c.Request().Context(), sess, req.Query)
	return respond(c, out, err)
}

/* ====================================================================
                   		History & Status
==================================================================== */

// HistoryHandler lists this session's generation records, newest first.
func (h *Handler) HistoryHandler(c echo.Context) error {
	logger := utility.GetLogger(c)

	sess, err := session.FromContext(c)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Session unavailable"})
	}

	records := []history.Record{}
	if h.history != nil {
		limit, _ := strconv.Atoi(c.QueryParam("limit"))
		records, err = h.history.ListBySession(c.Request().Context(), sess.ID, limit)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to list generation history")
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to retrieve history"})
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"records": records})
}

// StatusSocketHandler streams pending/complete events for the session.
func (h *Handler) StatusSocketHandler(c echo.Context) error {
	sess, err := session.FromContext(c)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Session unavailable"})
	}
	if h.hub == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Status updates are disabled"})
	}

	ws, err := utility.Upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	h.hub.RegisterClient(sess.ID, ws)
	defer h.hub.UnregisterClient(sess.ID, ws)

	// Nothing is expected from the client; reading keeps the socket open.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
	return nil
}

func respond(c echo.Context, out Outcome, err error) error {
	var warning *Warning
	switch {
	case err == nil:
	case errors.As(err, &warning):
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"warning": warning.Message})
	case errors.Is(err, ErrBusy):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrRateLimited):
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": err.Error()})
	default:
		utility.GetLogger(c).Error().Err(err).Msg("Generation flow failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	resp := generationResponse{
		Feature: string(out.Feature),
		OK:      out.Result.OK(),
		Text:    out.Result.Display(),
	}
	if out.Result.Failure != nil {
		resp.Error = out.Result.Failure.Reason
	}
	return c.JSON(http.StatusOK, resp)
}

func cleanList(items []string) []string {
	out := []string{}
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
