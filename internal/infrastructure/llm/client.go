// Package llm adapts OpenAI-compatible chat and embedding endpoints to the
// reasoning and embedding collaborators.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/smarties/backend/internal/platform/logger"
)

// Config holds connection and retry settings shared by both clients.
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	EmbeddingModel    string
	Dimensions        int
	Timeout           time.Duration // per HTTP request; the caller's context may be shorter
	MaxRetries        int
	RetryBackoff      time.Duration
	RequestsPerSecond float64
	Burst             int
	// AcceptReply decides whether a completion may be stored in the response
	// cache. Nil accepts replies that are a single JSON object.
	AcceptReply func(reply string) bool
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = string(openai.SmallEmbedding3)
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 5
	}
	if c.Burst <= 0 {
		c.Burst = 10
	}
	return c
}

// transport is the retrying, rate-limited core both clients are built on.
type transport struct {
	api          *openai.Client
	limiter      *rate.Limiter
	maxRetries   int
	retryBackoff time.Duration
	log          *logger.Logger
}

func newTransport(cfg Config, log *logger.Logger) *transport {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = cfg.BaseURL
	apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &transport{
		api:          openai.NewClientWithConfig(apiCfg),
		limiter:      rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		log:          log,
	}
}

// do runs call with rate limiting and up to maxRetries retries on transient
// failures. Backoff doubles from retryBackoff and never outlives ctx.
func (t *transport) do(ctx context.Context, op string, call func(ctx context.Context) error) error {
	backoff := t.retryBackoff
	for attempt := 0; ; attempt++ {
		if err := t.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: rate limiter: %w", op, err)
		}

		err := call(ctx)
		if err == nil {
			return nil
		}
		if attempt >= t.maxRetries || !isRetryable(ctx, err) {
			return fmt.Errorf("%s: %w", op, err)
		}

		t.log.Warn("OpenAI request retrying",
			"op", op,
			"attempt", attempt+1,
			"max_retries", t.maxRetries,
			"sleep", backoff.String(),
			"error", err.Error(),
		)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-timer.C:
		}
		backoff *= 2
	}
}

// isRetryable reports whether err is worth another attempt: throttling,
// server errors and network failures, but never a finished context.
func isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
