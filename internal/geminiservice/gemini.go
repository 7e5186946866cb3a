/*
Package geminiservice is the boundary to the hosted Gemini model.
The Gateway never returns an error: every transport or model failure becomes a
Failure result that the UI displays in place of an answer.
*/
package geminiservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"MetaMeal/internal/prompt"
	"MetaMeal/internal/upload"
	"MetaMeal/internal/utility"
)

// ErrorPrefix starts the display form of every failed generation.
const ErrorPrefix = "Error generating response: "

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// errEmptyResponse is reported when the model answered with no text at all.
var errEmptyResponse = errors.New("no content found in Gemini response")

// Part is one entry of the ordered content sequence sent to the model.
// Exactly one of Text or Image is set.
type Part struct {
	Text  string
	Image *upload.ImagePart
}

// Client submits an ordered content sequence and returns the model's text.
type Client interface {
	GenerateContent(ctx context.Context, parts []Part) (string, error)
}

/* =================================================================================
								RESULT
=================================================================================*/

// Failure describes why a generation did not produce text.
type Failure struct {
	Reason string
}

// Result is either the model's text or a Failure.
type Result struct {
	Text    string
	Failure *Failure
}

// OK reports whether the model produced text.
func (r Result) OK() bool {
	return r.Failure == nil
}

// Display is what the UI shows: the text, or the error line.
func (r Result) Display() string {
	if r.Failure != nil {
		return ErrorPrefix + r.Failure.Reason
	}
	return r.Text
}

func failed(err error) Result {
	return Result{Failure: &Failure{Reason: err.Error()}}
}

/* =================================================================================
								GATEWAY
=================================================================================*/

// Gateway sends payloads to the model through a Client.
type Gateway struct {
	client  Client
	timeout time.Duration
}

// NewGateway wraps client. A zero timeout disables the per-call deadline.
func NewGateway(client Client, timeout time.Duration) *Gateway {
	return &Gateway{client: client, timeout: timeout}
}

// Generate renders the payload, appends its image (if any) after the prompt and
// submits both. It always returns; failures come back as a Failure result.
func (g *Gateway) Generate(ctx context.Context, p prompt.Payload) (res Result) {
	logger := utility.LoggerFromContext(ctx)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			res = failed(fmt.Errorf("model client panicked: %v", r))
		}
		event := logger.Info()
		if !res.OK() {
			event = logger.Warn().Str("reason", res.Failure.Reason)
		}
		event.Str("feature", string(p.Feature)).
			Bool("ok", res.OK()).
			Dur("latency", time.Since(start)).
			Msg("Gemini generation finished")
	}()

	text, err := p.Render()
	if err != nil {
		return failed(err)
	}

	parts := []Part{{Text: text}}
	if p.Image != nil {
		parts = append(parts, Part{Image: p.Image})
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	out, err := g.client.GenerateContent(ctx, parts)
	if err != nil {
		return failed(err)
	}
	if strings.TrimSpace(out) == "" {
		return failed(errEmptyResponse)
	}
	logger.Debug().Str("preview", utility.Truncate(out, 120)).Msg("Gemini response received")
	return Result{Text: out}
}
