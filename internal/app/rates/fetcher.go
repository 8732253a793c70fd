package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/jeweledassist/backend/internal/domain"
)

// Fetcher produces fresh per-gram prices from an external source. Any error
// is absorbed by the Service fallback chain and never reaches a customer.
type Fetcher interface {
	Fetch(ctx context.Context) (domain.RateSnapshot, error)
}

// payload is the wire contract shared by the subprocess and HTTP sources:
// one JSON object with a status tag and at least a gold-per-gram field.
type payload struct {
	Status          string  `json:"status"`
	GoldGramINR     float64 `json:"gold_gram_inr"`
	SilverGramINR   float64 `json:"silver_gram_inr"`
	PlatinumGramINR float64 `json:"platinum_gram_inr"`
	Message         string  `json:"message,omitempty"`
}

func (p payload) toSnapshot() (domain.RateSnapshot, error) {
	if p.Status != "success" {
		return domain.RateSnapshot{}, fmt.Errorf("rate source status %q: %s", p.Status, p.Message)
	}
	if p.GoldGramINR <= 0 {
		return domain.RateSnapshot{}, fmt.Errorf("rate source returned no gold rate")
	}
	return domain.RateSnapshot{
		GoldPerGram:     p.GoldGramINR,
		SilverPerGram:   p.SilverGramINR,
		PlatinumPerGram: p.PlatinumGramINR,
		Source:          domain.RateLive,
	}, nil
}

// Subprocess spawns an external rate-fetch command per call and parses its
// stdout. The process is awaited to completion; a non-zero exit or malformed
// output is a failure.
type Subprocess struct {
	Command string
	Timeout time.Duration
}

func NewSubprocess(command string) *Subprocess {
	return &Subprocess{Command: command, Timeout: 30 * time.Second}
}

func (s *Subprocess) Fetch(ctx context.Context) (domain.RateSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	// The command may carry arguments, e.g. "python3 fetch_rates.py".
	parts := strings.Fields(s.Command)
	if len(parts) == 0 {
		return domain.RateSnapshot{}, fmt.Errorf("rate command is empty")
	}

	out, err := exec.CommandContext(ctx, parts[0], parts[1:]...).Output()
	if err != nil {
		return domain.RateSnapshot{}, fmt.Errorf("rate command: %w", err)
	}

	var p payload
	if err := json.Unmarshal(out, &p); err != nil {
		return domain.RateSnapshot{}, fmt.Errorf("rate command output: %w", err)
	}
	return p.toSnapshot()
}

// HTTPFetcher reads the same JSON contract from a REST endpoint.
type HTTPFetcher struct {
	URL    string
	APIKey string
	Client *http.Client
}

func NewHTTPFetcher(url, apiKey string) *HTTPFetcher {
	return &HTTPFetcher{
		URL:    url,
		APIKey: apiKey,
		Client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (h *HTTPFetcher) Fetch(ctx context.Context) (domain.RateSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return domain.RateSnapshot{}, err
	}
	if h.APIKey != "" {
		req.Header.Set("x-access-token", h.APIKey)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return domain.RateSnapshot{}, fmt.Errorf("rate api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.RateSnapshot{}, fmt.Errorf("rate api: status %d", resp.StatusCode)
	}

	var p payload
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return domain.RateSnapshot{}, fmt.Errorf("rate api body: %w", err)
	}
	return p.toSnapshot()
}

// Static always returns a fixture. Used in tests and as a last-resort
// deployment mode.
type Static struct {
	Snapshot domain.RateSnapshot
	Err      error
}

func NewStatic(gold, silver, platinum float64) *Static {
	return &Static{Snapshot: domain.RateSnapshot{
		GoldPerGram:     gold,
		SilverPerGram:   silver,
		PlatinumPerGram: platinum,
		Source:          domain.RateLive,
	}}
}

func (s *Static) Fetch(ctx context.Context) (domain.RateSnapshot, error) {
	if s.Err != nil {
		return domain.RateSnapshot{}, s.Err
	}
	return s.Snapshot, nil
}
