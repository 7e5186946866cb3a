package geminiservice

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// SDKClient talks to Gemini through the official genai SDK.
type SDKClient struct {
	client *genai.Client
	model  string
}

// NewSDKClient creates a Gemini API backend client authenticated with apiKey.
func NewSDKClient(ctx context.Context, apiKey, model string) (*SDKClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &SDKClient{client: client, model: model}, nil
}

// GenerateContent sends the parts as one user turn and returns the joined text.
func (c *SDKClient) GenerateContent(ctx context.Context, parts []Part) (string, error) {
	contents := []*genai.Content{genai.NewContentFromParts(toSDKParts(parts), genai.RoleUser)}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini completion error: %w", err)
	}
	if result == nil || len(result.Candidates) == 0 {
		if result != nil && result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("prompt blocked: %s", result.PromptFeedback.BlockReason)
		}
		return "", errEmptyResponse
	}
	return result.Text(), nil
}

func toSDKParts(parts []Part) []*genai.Part {
	out := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.Image != nil {
			out = append(out, genai.NewPartFromBytes(p.Image.Data, p.Image.MimeType))
			continue
		}
		out = append(out, genai.NewPartFromText(p.Text))
	}
	return out
}
