/*
Package nutrition wires the three user-facing features together: meal plans,
food image analysis and health insights. Each flow reads the session's
profile, builds a prompt, calls the gateway once and records the outcome.
*/
package nutrition

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"MetaMeal/internal/geminiservice"
	"MetaMeal/internal/history"
	"MetaMeal/internal/prompt"
	"MetaMeal/internal/session"
	"MetaMeal/internal/upload"
	"MetaMeal/internal/utility"
)

// Warning is an input-incompleteness problem shown to the user. No model call
// is made when a flow returns one.
type Warning struct {
	Message string
}

func (w *Warning) Error() string { return w.Message }

var (
	ErrIncompleteProfile = &Warning{Message: "Please complete your health profile first"}
	ErrNoImage           = &Warning{Message: "Please upload an image of your food"}
	ErrEmptyQuery        = &Warning{Message: "Please enter a health question"}

	ErrBusy        = errors.New("a request is already running for this session")
	ErrRateLimited = errors.New("too many requests, please wait a moment")
)

// Generator is satisfied by *geminiservice.Gateway.
type Generator interface {
	Generate(ctx context.Context, p prompt.Payload) geminiservice.Result
}

// Notifier is satisfied by *utility.Hub.
type Notifier interface {
	Notify(sessionID string, event utility.StatusEvent)
}

// Outcome is what a flow hands back to the handler.
type Outcome struct {
	Feature prompt.Feature
	Result  geminiservice.Result
}

type Service struct {
	gateway  Generator
	builder  *prompt.Builder
	history  history.Store
	notifier Notifier
	model    string
}

// NewService builds the flows. store and notifier may be nil.
func NewService(gateway Generator, builder *prompt.Builder, store history.Store, notifier Notifier, model string) *Service {
	return &Service{
		gateway:  gateway,
		builder:  builder,
		history:  store,
		notifier: notifier,
		model:    model,
	}
}

// MealPlan generates a 7-day plan from the session's profile. A successful
// plan becomes the session's latest plan.
func (s *Service) MealPlan(ctx context.Context, sess *session.Session, extra string) (Outcome, error) {
	p := sess.Profile.Get()
	if p.IsEmpty() {
		return Outcome{}, ErrIncompleteProfile
	}

	payload, err := s.builder.MealPlan(p, extra)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to build meal plan prompt: %w", err)
	}

	out, err := s.generate(ctx, sess, payload)
	if err != nil {
		return Outcome{}, err
	}
	if out.Result.OK() {
		sess.SetLatestMealPlan(out.Result.Text)
	}
	return out, nil
}

// AnalyzeFood describes the nutrition of the foods in img.
func (s *Service) AnalyzeFood(ctx context.Context, sess *session.Session, img *upload.ImagePart) (Outcome, error) {
	if img == nil {
		return Outcome{}, ErrNoImage
	}

	payload, err := s.builder.FoodAnalysis(*img)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to build food analysis prompt: %w", err)
	}
	return s.generate(ctx, sess, payload)
}

// HealthInsight answers a free-text question in the context of the profile.
func (s *Service) HealthInsight(ctx context.Context, sess *session.Session, query string) (Outcome, error) {
	if isBlank(query) {
		return Outcome{}, ErrEmptyQuery
	}

	payload, err := s.builder.HealthInsight(sess.Profile.Get(), query)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to build health insight prompt: %w", err)
	}
	return s.generate(ctx, sess, payload)
}

func (s *Service) generate(ctx context.Context, sess *session.Session, payload prompt.Payload) (Outcome, error) {
	logger := utility.LoggerFromContext(ctx)

	// 1. One model call per session at a time
	if !sess.MarkBusy() {
		return Outcome{}, ErrBusy
	}
	defer sess.Done()

	// 2. Per-session budget
	if !sess.Allow() {
		logger.Warn().Str("session_id", sess.ID).Msg("Session rate limit reached")
		return Outcome{}, ErrRateLimited
	}

	// 3. Call the gateway, bracketed by status events
	s.notify(sess.ID, utility.StatusEvent{Feature: string(payload.Feature), State: "pending"})
	start := time.Now()
	res := s.gateway.Generate(ctx, payload)
	latency := time.Since(start)
	ok := res.OK()
	s.notify(sess.ID, utility.StatusEvent{Feature: string(payload.Feature), State: "complete", OK: &ok})

	// 4. Record; a storage problem never fails the user's request
	s.record(ctx, sess.ID, payload, res, latency)

	logger.Info().
		Str("feature", string(payload.Feature)).
		Bool("ok", ok).
		Dur("latency", latency).
		Msg("Generation finished")

	return Outcome{Feature: payload.Feature, Result: res}, nil
}

func (s *Service) notify(sessionID string, ev utility.StatusEvent) {
	if s.notifier != nil {
		s.notifier.Notify(sessionID, ev)
	}
}

func (s *Service) record(ctx context.Context, sessionID string, payload prompt.Payload, res geminiservice.Result, latency time.Duration) {
	if s.history == nil {
		return
	}

	rec := &history.Record{
		SessionID:     sessionID,
		Feature:       string(payload.Feature),
		PromptStyle:   string(payload.Style),
		Model:         s.model,
		OK:            res.OK(),
		ResponseChars: utf8.RuneCountInString(res.Text),
		LatencyMS:     latency.Milliseconds(),
	}
	if res.Failure != nil {
		rec.Error = res.Failure.Reason
	}

	// The request may already be cancelled; the record should still land.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.history.Save(saveCtx, rec); err != nil {
		utility.LoggerFromContext(ctx).Error().Err(err).Msg("Failed to record generation history")
	}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
