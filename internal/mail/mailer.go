// Package mail delivers out-of-band notification messages.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Message is a single outbound mail: destination, subject, plain-text body.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// ErrNoRecipient is returned when a message has an empty destination.
var ErrNoRecipient = errors.New("mail: recipient is required")

// Mailer sends a message to a destination address. Send returns only after
// the relay has confirmed (or rejected) delivery; there is no retry.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// HTTPMailer delivers messages through a JSON relay endpoint
// (POST {to, subject, text} → 2xx on acceptance).
type HTTPMailer struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *slog.Logger
}

// HTTPMailerConfig configures an HTTPMailer.
type HTTPMailerConfig struct {
	// Endpoint is the relay URL messages are POSTed to.
	Endpoint string

	// APIKey is sent as a bearer token when non-empty.
	APIKey string

	// Timeout bounds one delivery attempt. Default: 15s.
	Timeout time.Duration

	Logger *slog.Logger
}

// NewHTTPMailer creates a mailer that posts to the configured relay.
func NewHTTPMailer(cfg HTTPMailerConfig) (*HTTPMailer, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("mail: relay endpoint is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPMailer{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With("component", "mail"),
	}, nil
}

func (m *HTTPMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal mail: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, err := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		if err != nil {
			detail = []byte("(failed to read response body)")
		}
		return fmt.Errorf("mail relay error %d: %s", resp.StatusCode, string(detail))
	}

	m.logger.Debug("mail sent", "to", msg.To, "subject", msg.Subject)
	return nil
}

// LogMailer writes messages to the log instead of delivering them. Used for
// local runs where no relay is configured.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a mailer that only logs.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger.With("component", "mail")}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	m.logger.Info("mail (log only)", "to", msg.To, "subject", msg.Subject, "text", msg.Text)
	return nil
}

// VerificationMessage builds the fixed no-reply template carrying a
// verification code.
func VerificationMessage(to, code string) Message {
	return Message{
		To:      to,
		Subject: "no reply",
		Text:    "This is your code to verify your email: " + code,
	}
}
