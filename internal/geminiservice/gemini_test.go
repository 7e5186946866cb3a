package geminiservice

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"MetaMeal/internal/prompt"
	"MetaMeal/internal/upload"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	text  string
	err   error
	panic bool
	calls int
	got   []Part
	wait  time.Duration
}

func (s *stubClient) GenerateContent(ctx context.Context, parts []Part) (string, error) {
	s.calls++
	s.got = parts
	if s.panic {
		panic("boom")
	}
	if s.wait > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.wait):
		}
	}
	return s.text, s.err
}

func TestGenerateSuccess(t *testing.T) {
	client := &stubClient{text: "Day 1: oats"}
	g := NewGateway(client, time.Second)

	res := g.Generate(context.Background(), prompt.Payload{Feature: prompt.FeatureMealPlan, Text: "plan please"})

	require.True(t, res.OK())
	assert.Equal(t, "Day 1: oats", res.Text)
	assert.Equal(t, "Day 1: oats", res.Display())
	require.Len(t, client.got, 1)
	assert.Equal(t, "plan please", client.got[0].Text)
}

func TestGeneratePromptBeforeImage(t *testing.T) {
	client := &stubClient{text: "salad"}
	img := &upload.ImagePart{MimeType: "image/png", Data: []byte{1, 2, 3}}

	NewGateway(client, 0).Generate(context.Background(), prompt.Payload{
		Feature: prompt.FeatureFoodAnalysis,
		Text:    "analyze",
		Image:   img,
	})

	require.Len(t, client.got, 2)
	assert.Equal(t, "analyze", client.got[0].Text)
	assert.Nil(t, client.got[0].Image)
	assert.Same(t, img, client.got[1].Image)
}

func TestGenerateNeverPropagatesFailures(t *testing.T) {
	tests := []struct {
		name   string
		client *stubClient
		reason string
	}{
		{"client error", &stubClient{err: errors.New("quota exceeded")}, "quota exceeded"},
		{"empty text", &stubClient{text: "   "}, "no content"},
		{"panic", &stubClient{panic: true}, "panicked"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewGateway(tt.client, time.Second).Generate(context.Background(), prompt.Payload{Text: "hi"})

			require.False(t, res.OK())
			assert.Contains(t, res.Failure.Reason, tt.reason)
			assert.True(t, strings.HasPrefix(res.Display(), "Error generating response:"))
			assert.Equal(t, 1, tt.client.calls, "gateway must not retry")
		})
	}
}

func TestGenerateAppliesTimeout(t *testing.T) {
	client := &stubClient{text: "late", wait: time.Second}
	res := NewGateway(client, 20*time.Millisecond).Generate(context.Background(), prompt.Payload{Text: "hi"})

	require.False(t, res.OK())
	assert.Contains(t, res.Failure.Reason, context.DeadlineExceeded.Error())
}

func TestGenerateStructuredPayloadRendersJSON(t *testing.T) {
	client := &stubClient{text: "ok"}
	payload := prompt.Payload{
		Feature: prompt.FeatureHealthInsight,
		Style:   prompt.StyleStructured,
		Request: &prompt.Request{Task: "advise", UserQuery: "sleep?"},
	}

	NewGateway(client, 0).Generate(context.Background(), payload)

	require.Len(t, client.got, 1)
	assert.Contains(t, client.got[0].Text, `"user_query": "sleep?"`)
}
