package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"letterdesk/internal/model"
)

// ErrNotConfigured is returned when no API key is available.
var ErrNotConfigured = errors.New("mailtrap api key not configured")

// KeySource looks up a setting; used as fallback for the API key.
type KeySource interface {
	Get(ctx context.Context, key, def string) (string, error)
}

// MailtrapConfig configures the Mailtrap send API transport.
type MailtrapConfig struct {
	Endpoint  string
	APIKey    string
	FromEmail string
	FromName  string
	Timeout   time.Duration
}

// MailtrapTransport sends through the Mailtrap HTTP API.
type MailtrapTransport struct {
	cfg    MailtrapConfig
	keys   KeySource
	client *http.Client
}

var _ Transport = (*MailtrapTransport)(nil)

// NewMailtrapTransport creates a transport. keys may be nil when only the
// configured key should be used.
func NewMailtrapTransport(cfg MailtrapConfig, keys KeySource) *MailtrapTransport {
	return &MailtrapTransport{
		cfg:    cfg,
		keys:   keys,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type mailtrapAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailtrapRequest struct {
	From    mailtrapAddress   `json:"from"`
	To      []mailtrapAddress `json:"to"`
	Subject string            `json:"subject"`
	Text    string            `json:"text,omitempty"`
	HTML    string            `json:"html,omitempty"`
}

// apiKey prefers the environment key and falls back to the stored setting.
func (t *MailtrapTransport) apiKey(ctx context.Context) (string, error) {
	if t.cfg.APIKey != "" {
		return t.cfg.APIKey, nil
	}
	if t.keys == nil {
		return "", ErrNotConfigured
	}
	key, err := t.keys.Get(ctx, model.SettingMailtrapAPIKey, "")
	if err != nil {
		return "", fmt.Errorf("read api key setting: %w", err)
	}
	if key == "" {
		return "", ErrNotConfigured
	}
	return key, nil
}

func (t *MailtrapTransport) Send(ctx context.Context, msg Message) error {
	key, err := t.apiKey(ctx)
	if err != nil {
		return err
	}

	text := msg.Text
	if text == "" {
		text = msg.HTML
	}
	payload, err := json.Marshal(mailtrapRequest{
		From:    mailtrapAddress{Email: t.cfg.FromEmail, Name: t.cfg.FromName},
		To:      []mailtrapAddress{{Email: msg.To}},
		Subject: msg.Subject,
		Text:    text,
		HTML:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("marshal mail: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mailtrap responded %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}
