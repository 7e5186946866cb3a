package geminiservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"MetaMeal/internal/utility"
)

// --- Gemini REST API Configuration ---
const (
	defaultBaseURL    = "https://generativelanguage.googleapis.com/v1beta/models"
	defaultMaxRetries = 3
	initialBackoff    = 1 * time.Second
	maxErrorBody      = 2048
)

// --- Structs for Gemini API Request/Response ---

type GeminiPayload struct {
	Contents []GeminiContent `json:"contents"`
}

type GeminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []GeminiPart `json:"parts"`
}

type GeminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *GeminiInlineData `json:"inlineData,omitempty"`
}

// GeminiInlineData carries image bytes. encoding/json base64-encodes Data.
type GeminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

type GeminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

// RESTClient calls the generateContent endpoint directly over HTTP.
type RESTClient struct {
	APIKey     string
	Model      string
	BaseURL    string
	MaxRetries int // retries after the first attempt; 0 disables retrying
	Backoff    time.Duration
	HTTP       *http.Client
}

// NewRESTClient returns a client with the default endpoint, retries and backoff.
func NewRESTClient(apiKey, model string, maxRetries int) *RESTClient {
	if model == "" {
		model = DefaultModel
	}
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}
	return &RESTClient{
		APIKey:     apiKey,
		Model:      model,
		BaseURL:    defaultBaseURL,
		MaxRetries: maxRetries,
		Backoff:    initialBackoff,
		HTTP:       &http.Client{},
	}
}

func (c *RESTClient) endpoint() string {
	return fmt.Sprintf("%s/%s:generateContent", strings.TrimRight(c.BaseURL, "/"), c.Model)
}

// GenerateContent posts the parts as a single user turn. Transport errors, 429 and
// 5xx responses are retried with exponential backoff; other statuses fail at once.
func (c *RESTClient) GenerateContent(ctx context.Context, parts []Part) (string, error) {
	logger := utility.LoggerFromContext(ctx)

	if c.APIKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY is not set")
	}

	payload := GeminiPayload{
		Contents: []GeminiContent{{Role: "user", Parts: toGeminiParts(parts)}},
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	var lastErr error

	// Exponential backoff retry loop
	for i := 0; i <= c.MaxRetries; i++ {
		if i > 0 {
			wait := c.Backoff * time.Duration(math.Pow(2, float64(i-1)))
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("gave up after %d attempts: %w", i, ctx.Err())
			case <-time.After(wait):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(payloadBytes))
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", c.APIKey)

		logger.Debug().Msgf("Attempt %d: Calling Gemini API...", i+1)

		resp, err := c.HTTP.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			logger.Warn().Err(lastErr).Msgf("Attempt %d failed", i+1)
			if ctx.Err() != nil {
				return "", lastErr
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			resp.Body.Close()
			lastErr = fmt.Errorf("API returned non-200 status: %s, Body: %s", resp.Status, strings.TrimSpace(string(body)))
			logger.Warn().Err(lastErr).Msgf("Attempt %d failed", i+1)
			if !retryable(resp.StatusCode) {
				return "", lastErr
			}
			continue
		}

		var geminiResp GeminiResponse
		err = json.NewDecoder(resp.Body).Decode(&geminiResp)
		resp.Body.Close()
		if err != nil {
			return "", fmt.Errorf("failed to decode response: %w", err)
		}
		return responseText(geminiResp)
	}

	return "", fmt.Errorf("failed to call Gemini API after %d attempts: %w", c.MaxRetries+1, lastErr)
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

func toGeminiParts(parts []Part) []GeminiPart {
	out := make([]GeminiPart, 0, len(parts))
	for _, p := range parts {
		if p.Image != nil {
			out = append(out, GeminiPart{InlineData: &GeminiInlineData{MimeType: p.Image.MimeType, Data: p.Image.Data}})
			continue
		}
		out = append(out, GeminiPart{Text: p.Text})
	}
	return out
}

func responseText(resp GeminiResponse) (string, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", errEmptyResponse
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	if sb.Len() == 0 {
		if reason := resp.Candidates[0].FinishReason; reason != "" {
			return "", fmt.Errorf("%w (finish reason %s)", errEmptyResponse, reason)
		}
		return "", errEmptyResponse
	}
	return sb.String(), nil
}
