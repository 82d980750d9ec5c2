// Package notify renders lifecycle notifications and hands them to a mail
// transport. Delivery is best effort: every failure comes back as a Result
// with Delivered=false and a detail string, never as an error.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"letterdesk/internal/metrics"
	"letterdesk/internal/model"
	"letterdesk/internal/settings"
)

// Transport delivers a rendered message.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// SettingsReader is the part of the settings service the dispatcher reads.
type SettingsReader interface {
	Get(ctx context.Context, key, def string) (string, error)
	Company(ctx context.Context) (settings.Company, error)
}

// UserReader resolves a user's registered address.
type UserReader interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
}

// Recipient identifies who an event is addressed to before the address is known.
type Recipient struct {
	reviewer bool
	userID   uint
}

// ReviewerRecipient is the configured reviewer address (setting ceo_email).
func ReviewerRecipient() Recipient {
	return Recipient{reviewer: true}
}

// UserRecipient is a user's registered email.
func UserRecipient(id uint) Recipient {
	return Recipient{userID: id}
}

func (r Recipient) String() string {
	if r.reviewer {
		return "reviewer"
	}
	return fmt.Sprintf("user:%d", r.userID)
}

// Dispatcher renders and sends notifications.
type Dispatcher struct {
	transport Transport
	settings  SettingsReader
	users     UserReader
	baseURL   string
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithMetrics records every attempt.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// NewDispatcher creates a dispatcher. baseURL prefixes links back into the system.
func NewDispatcher(transport Transport, settings SettingsReader, users UserReader, baseURL string, opts ...Option) *Dispatcher {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	d := &Dispatcher{
		transport: transport,
		settings:  settings,
		users:     users,
		baseURL:   baseURL,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Resolve returns the address for r, or "" when none is configured.
func (d *Dispatcher) Resolve(ctx context.Context, r Recipient) (string, error) {
	if r.reviewer {
		return d.settings.Get(ctx, model.SettingCEOEmail, "")
	}
	user, err := d.users.FindByID(ctx, r.userID)
	if err != nil {
		return "", err
	}
	return user.Email, nil
}

// Dispatch resolves r and notifies it. The outcome is logged here so callers
// can ignore it.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event, r Recipient) Result {
	to, err := d.Resolve(ctx, r)
	var res Result
	if err != nil {
		res = Result{Detail: fmt.Sprintf("resolve %s: %v", r, err)}
		d.metrics.ObserveNotification(string(ev.Kind), false)
	} else {
		res = d.Notify(ctx, ev, to)
	}

	log := d.logger.With("event", ev.Kind, "letter_number", ev.LetterNumber, "recipient", r.String())
	if res.Delivered {
		log.InfoContext(ctx, "notification sent", "detail", res.Detail)
	} else {
		log.WarnContext(ctx, "notification not delivered", "detail", res.Detail)
	}
	return res
}

// Notify renders ev and sends it to the given address.
func (d *Dispatcher) Notify(ctx context.Context, ev Event, to string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Detail: fmt.Sprintf("notification panicked: %v", r)}
		}
		d.metrics.ObserveNotification(string(ev.Kind), res.Delivered)
	}()

	to = strings.TrimSpace(to)
	if to == "" {
		return Result{Detail: "recipient address not configured"}
	}

	company := d.companyName(ctx)
	subject, html, text, err := render(ev, company, d.baseURL)
	if err != nil {
		return Result{Detail: err.Error()}
	}

	msg := Message{To: to, Subject: subject, HTML: html, Text: text}
	if err := d.transport.Send(ctx, msg); err != nil {
		return Result{Detail: fmt.Sprintf("email sending failed: %v", err)}
	}
	return Result{Delivered: true, Detail: "email sent to " + to}
}

// SendTest mails the admin address to check transport configuration.
func (d *Dispatcher) SendTest(ctx context.Context) Result {
	to, err := d.settings.Get(ctx, model.SettingAdminEmail, "")
	if err != nil {
		return Result{Detail: fmt.Sprintf("read admin email: %v", err)}
	}
	if to == "" {
		return Result{Detail: "admin email not configured"}
	}

	subject, html, text, err := renderTest(d.companyName(ctx), d.now().Format(timestampLayout))
	if err != nil {
		return Result{Detail: err.Error()}
	}
	msg := Message{To: to, Subject: subject, HTML: html, Text: text}
	if err := d.transport.Send(ctx, msg); err != nil {
		return Result{Detail: fmt.Sprintf("email test failed: %v", err)}
	}
	return Result{Delivered: true, Detail: "test email sent successfully"}
}

func (d *Dispatcher) companyName(ctx context.Context) string {
	c, err := d.settings.Company(ctx)
	if err != nil {
		d.logger.WarnContext(ctx, "company settings unavailable, using default", "error", err)
	}
	if c.Name == "" {
		return model.DefaultCompanyName
	}
	return c.Name
}
