// Package provider adapts the opaque messaging channel: outbound sends go
// through an HTTP gateway in production, a log sink in dev and a recording
// fake in tests.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jeweledassist/backend/internal/observability"
)

// HTTPSender posts outbound messages to the provider's send endpoint as a
// form body, the way the hosted messaging gateways expect.
type HTTPSender struct {
	URL    string
	From   string
	Token  string
	Client *http.Client
}

func NewHTTPSender(endpoint, from, token string) *HTTPSender {
	return &HTTPSender{
		URL:    endpoint,
		From:   from,
		Token:  token,
		Client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *HTTPSender) Send(ctx context.Context, to, text, mediaURL string) error {
	form := url.Values{}
	form.Set("From", s.From)
	form.Set("To", to)
	form.Set("Body", text)
	if mediaURL != "" {
		form.Set("MediaUrl", mediaURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("provider send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("provider send: status %d", resp.StatusCode)
	}
	return nil
}

// LogSender just logs outbound messages. Default when no provider URL is
// configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, to, text, mediaURL string) error {
	observability.LoggerFromContext(ctx).Info("outbound message", "to", to, "text", text, "media", mediaURL)
	return nil
}

// Recorded is one captured outbound message.
type Recorded struct {
	To       string
	Text     string
	MediaURL string
}

// Memory records sends for assertions in tests.
type Memory struct {
	mu   sync.Mutex
	sent []Recorded
	Err  error // returned by Send when set
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Send(ctx context.Context, to, text, mediaURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, Recorded{To: to, Text: text, MediaURL: mediaURL})
	return nil
}

// Sent returns a copy of everything sent so far.
func (m *Memory) Sent() []Recorded {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Recorded, len(m.sent))
	copy(out, m.sent)
	return out
}

// SentTo filters Sent by recipient.
func (m *Memory) SentTo(to string) []Recorded {
	var out []Recorded
	for _, r := range m.Sent() {
		if r.To == to {
			out = append(out, r)
		}
	}
	return out
}
