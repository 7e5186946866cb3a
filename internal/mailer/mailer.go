/*
Package mailer sends the latest meal plan to an email address over SMTP.
*/
package mailer

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"strings"
	"time"

	"MetaMeal/internal/config"

	emailverifier "github.com/AfterShip/email-verifier"
	"github.com/go-gomail/gomail"
	"github.com/rs/zerolog/log"
)

// AttachmentName matches the download filename.
const AttachmentName = "personalized_meal_plan.txt"

const sendTimeout = 30 * time.Second

var (
	ErrInvalidAddress    = errors.New("invalid email address")
	ErrDisposableAddress = errors.New("disposable email addresses are not allowed")
)

// Sender delivers composed messages. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type Mailer struct {
	from     string
	sender   Sender
	verifier *emailverifier.Verifier
	timeout  time.Duration
}

// New returns a mailer for cfg, or nil when SMTP is not configured.
func New(cfg config.SMTP) *Mailer {
	if !cfg.Enabled() {
		return nil
	}
	return NewWithSender(cfg.From, gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password))
}

// NewWithSender builds a mailer around an arbitrary Sender.
func NewWithSender(from string, sender Sender) *Mailer {
	return &Mailer{
		from:     from,
		sender:   sender,
		verifier: emailverifier.NewVerifier(),
		timeout:  sendTimeout,
	}
}

// Validate checks syntax and rejects disposable domains. No network calls.
func (m *Mailer) Validate(address string) error {
	syntax := m.verifier.ParseAddress(strings.TrimSpace(address))
	if !syntax.Valid {
		return ErrInvalidAddress
	}
	if m.verifier.IsDisposable(syntax.Domain) {
		return ErrDisposableAddress
	}
	return nil
}

// SendMealPlan mails plan to the given address, inline and as a text attachment.
func (m *Mailer) SendMealPlan(ctx context.Context, to, plan string) error {
	to = strings.TrimSpace(to)
	if err := m.Validate(to); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Your MetaMeal personalized meal plan")
	msg.SetBody("text/plain", plan)
	msg.AddAlternative("text/html", renderHTML(plan))
	msg.Attach(AttachmentName, gomail.SetCopyFunc(func(w io.Writer) error {
		_, err := io.WriteString(w, plan)
		return err
	}))

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- m.sender.DialAndSend(msg)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			log.Error().Err(err).Str("to", to).Msg("Failed to send meal plan email")
			return fmt.Errorf("failed to send email: %w", err)
		}
		log.Info().Str("to", to).Msg("Meal plan email sent")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("email sending timed out: %w", ctx.Err())
	}
}

func renderHTML(plan string) string {
	return `<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6;">
	<h2>Your Personalized Meal Plan</h2>
	<pre style="white-space: pre-wrap; background: #f4f4f4; padding: 15px;">` + html.EscapeString(plan) + `</pre>
	<hr>
	<p style="color: #666; font-size: 12px;">Sent by MetaMeal. This is general guidance, not medical advice.</p>
</body>
</html>`
}
