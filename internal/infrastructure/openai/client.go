// Package openai adapts the OpenAI API to the catalog's embedding and categorization
// collaborators.
package openai

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// Defaults used when the configuration leaves a model unset.
const (
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultChatModel      = "gpt-4o-mini"

	defaultMaxRetries   = 3
	defaultInitialDelay = time.Second
	requestTimeout      = 30 * time.Second
)

// Config holds the connection settings shared by the embedder and categorizer.
type Config struct {
	APIKey         string
	BaseURL        string
	EmbeddingModel string
	ChatModel      string
	MaxRetries     int
	InitialDelay   time.Duration
}

// newClient builds a go-openai client from cfg.
func newClient(cfg Config) *openai.Client {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	config.HTTPClient = &http.Client{Timeout: requestTimeout}
	return openai.NewClientWithConfig(config)
}

// retrier retries rate limited and server failures with exponential backoff.
type retrier struct {
	maxRetries   int
	initialDelay time.Duration
	logger       zerolog.Logger
}

func newRetrier(cfg Config, logger zerolog.Logger) retrier {
	r := retrier{maxRetries: cfg.MaxRetries, initialDelay: cfg.InitialDelay, logger: logger}
	if r.maxRetries <= 0 {
		r.maxRetries = defaultMaxRetries
	}
	if r.initialDelay <= 0 {
		r.initialDelay = defaultInitialDelay
	}
	return r
}

func (r retrier) do(ctx context.Context, op string, fn func() error) error {
	delay := r.initialDelay
	var err error
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		err = fn()
		if err == nil || !retryable(err) || attempt == r.maxRetries {
			return err
		}

		r.logger.Warn().Err(err).Str("op", op).Int("attempt", attempt).Dur("delay", delay).Msg("openai request failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}

func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= http.StatusInternalServerError
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= http.StatusInternalServerError
	}
	return false
}
