// Package mailer sends templated transactional email.
//
// Sends are paced by a fixed delay and never retried. A circuit breaker stops
// calling the provider after repeated failures.
package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/nikhil/chapterhub/internal/logger"
)

// Email is one outbound message
type Email struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers one email
type Sender interface {
	Send(ctx context.Context, e Email) error
}

// ResendSender delivers through the Resend API
type ResendSender struct {
	client *resend.Client
	from   string
	cb     *gobreaker.CircuitBreaker
}

// NewResendSender creates a sender for apiKey sending as from
func NewResendSender(apiKey, from string, log *logger.Logger) *ResendSender {
	st := gobreaker.Settings{
		Name:        "resend",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
		cb:     gobreaker.NewCircuitBreaker(st),
	}
}

// Send delivers e, failing fast while the breaker is open
func (s *ResendSender) Send(ctx context.Context, e Email) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
			From:    s.from,
			To:      []string{e.To},
			Subject: e.Subject,
			Html:    e.HTML,
		})
	})
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}

// LogSender only logs. Used when no provider is configured.
type LogSender struct {
	Log *logger.Logger
}

func (s LogSender) Send(_ context.Context, e Email) error {
	s.Log.Info("Email not sent, no provider configured", "to", e.To, "subject", e.Subject)
	return nil
}

// Recipient is one addressee of a batch
type Recipient struct {
	Email     string
	FirstName string
}

// Result counts the outcome of a batch
type Result struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Mailer renders templates and sends them one at a time
type Mailer struct {
	sender  Sender
	limiter *rate.Limiter
	log     *logger.Logger
}

// New creates a mailer waiting delay between consecutive sends
func New(sender Sender, delay time.Duration, log *logger.Logger) *Mailer {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Mailer{sender: sender, limiter: rate.NewLimiter(limit, 1), log: log}
}

// SendBatch sends the kind template to every recipient. Individual failures
// are logged and counted. It stops early only when ctx ends.
func (m *Mailer) SendBatch(ctx context.Context, kind string, data map[string]interface{}, recipients []Recipient) (Result, error) {
	var res Result
	if err := Validate(kind, data); err != nil {
		return res, err
	}

	for _, r := range recipients {
		if err := m.limiter.Wait(ctx); err != nil {
			return res, err
		}

		subject, body, err := Render(kind, data, r.FirstName)
		if err != nil {
			res.Failed++
			m.log.Error("Failed to render email", "kind", kind, "to", r.Email, "error", err)
			continue
		}
		if err := m.sender.Send(ctx, Email{To: r.Email, Subject: subject, HTML: body}); err != nil {
			res.Failed++
			m.log.Warn("Failed to send email", "kind", kind, "to", r.Email, "error", err)
			continue
		}
		res.Sent++
	}

	m.log.Info("Email batch finished", "kind", kind, "sent", res.Sent, "failed", res.Failed)
	return res, nil
}
