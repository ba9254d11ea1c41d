// Package telegram delivers operator notifications through the
// Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/platform"
)

const defaultAPIBase = "https://api.telegram.org"

// Notifier sends messages to one chat. Sends are rate limited so a
// tight error loop cannot flood the chat or trip the Bot API's own
// limits; over-limit debug messages are dropped rather than queued.
type Notifier struct {
	token   string
	chatID  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithBaseURL overrides the Bot API endpoint. Used by tests.
func WithBaseURL(base string) Option {
	return func(n *Notifier) { n.baseURL = base }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(n *Notifier) { n.http = hc }
}

// WithRateLimit overrides the send limiter.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(n *Notifier) { n.limiter = rate.NewLimiter(limit, burst) }
}

// WithLogger sets the notifier's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Notifier) { n.logger = logger }
}

// New creates a Notifier for the given bot token and chat.
func New(token, chatID string, opts ...Option) *Notifier {
	n := &Notifier{
		token:   token,
		chatID:  chatID,
		baseURL: defaultAPIBase,
		http:    &http.Client{Timeout: 30 * time.Second},
		// One message per 3s sustained with room for a short burst.
		limiter: rate.NewLimiter(rate.Every(3*time.Second), 5),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

var _ platform.Notifier = (*Notifier)(nil)

// Send posts one message prefixed with its severity. DEBUG messages are
// dropped when the limiter has no token available; higher severities
// wait for one.
func (n *Notifier) Send(ctx context.Context, severity platform.Severity, message string) error {
	if severity == platform.SeverityDebug {
		if !n.limiter.Allow() {
			n.logger.Debug("telegram: dropped debug message, rate limited")
			return nil
		}
	} else if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram: wait for send slot: %w", err)
	}

	payload, err := json.Marshal(map[string]string{
		"chat_id": n.chatID,
		"text":    fmt.Sprintf("[%s] %s", severity, message),
	})
	if err != nil {
		return fmt.Errorf("telegram: marshal payload: %w", err)
	}

	u := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("telegram: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("telegram: send failed: status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}
	return nil
}
