package mailer

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"MetaMeal/internal/config"

	"github.com/go-gomail/gomail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent  []*gomail.Message
	err   error
	block chan struct{}
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	if f.block != nil {
		<-f.block
	}
	f.sent = append(f.sent, m...)
	return f.err
}

func TestNewDisabledWithoutHost(t *testing.T) {
	assert.Nil(t, New(config.SMTP{}))
	assert.NotNil(t, New(config.SMTP{Host: "smtp.example.com", Port: 587, From: "bot@example.com"}))
}

func TestSendMealPlan(t *testing.T) {
	sender := &fakeSender{}
	m := NewWithSender("bot@example.com", sender)

	err := m.SendMealPlan(context.Background(), " user@gmail.com ", "Day 1: <oats>")
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, []string{"user@gmail.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"bot@example.com"}, msg.GetHeader("From"))

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), AttachmentName)
	assert.Contains(t, buf.String(), "Day 1: <oats>")
}

func TestRenderHTMLEscapesPlan(t *testing.T) {
	assert.Contains(t, renderHTML("Day 1: <oats>"), "Day 1: &lt;oats&gt;")
}

func TestSendMealPlanRejectsBadAddress(t *testing.T) {
	sender := &fakeSender{}
	m := NewWithSender("bot@example.com", sender)

	err := m.SendMealPlan(context.Background(), "not-an-address", "plan")
	assert.ErrorIs(t, err, ErrInvalidAddress)
	assert.Empty(t, sender.sent)
}

func TestSendMealPlanWrapsSenderError(t *testing.T) {
	m := NewWithSender("bot@example.com", &fakeSender{err: errors.New("connection refused")})

	err := m.SendMealPlan(context.Background(), "user@gmail.com", "plan")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestSendMealPlanTimesOut(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	m := NewWithSender("bot@example.com", &fakeSender{block: block})
	m.timeout = 20 * time.Millisecond

	err := m.SendMealPlan(context.Background(), "user@gmail.com", "plan")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
