// Package llm talks to hosted text-generation models and turns their free text
// into purchase suggestions and depletion predictions.
package llm

import (
	"context"
	"errors"
	"net/http"
	"time"
)

var (
	// ErrEmptyResponse is returned when the model answered with no text.
	ErrEmptyResponse = errors.New("llm: empty response")
	// ErrUnparseable is returned when no usable JSON could be read from the answer.
	ErrUnparseable = errors.New("llm: unparseable response")
	// ErrNotConfigured is returned by clients missing an API key or model.
	ErrNotConfigured = errors.New("llm: client not configured")
)

// Client generates text for a prompt.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// settings are shared by the HTTP clients.
type settings struct {
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	http        *http.Client
}

// Option configures a client.
type Option func(*settings)

// WithModel overrides the default model name.
func WithModel(model string) Option {
	return func(s *settings) {
		if model != "" {
			s.model = model
		}
	}
}

// WithBaseURL points the client at another endpoint, for proxies and tests.
func WithBaseURL(url string) Option {
	return func(s *settings) { s.baseURL = url }
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float64) Option {
	return func(s *settings) { s.temperature = t }
}

// WithMaxTokens sets the response token limit.
func WithMaxTokens(n int) Option {
	return func(s *settings) { s.maxTokens = n }
}

// WithHTTPTimeout sets the HTTP client timeout.
func WithHTTPTimeout(d time.Duration) Option {
	return func(s *settings) { s.http.Timeout = d }
}

func newSettings(baseURL, model string, opts []Option) settings {
	s := settings{
		baseURL:     baseURL,
		model:       model,
		temperature: 0.2,
		maxTokens:   2048,
		http:        &http.Client{Timeout: 60 * time.Second},
	}
	for _, o := range opts {
		o(&s)
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
