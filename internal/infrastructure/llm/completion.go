package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/smarties/backend/internal/domain"
	"github.com/smarties/backend/internal/infrastructure/cache"
	"github.com/smarties/backend/internal/platform/logger"
)

// CompletionClient answers prompts through the chat completions endpoint.
type CompletionClient struct {
	transport *transport
	model     string
	responses *cache.LRUCache[string]
	accept    func(reply string) bool
	log       *logger.Logger
}

// NewCompletionClient creates a reasoning client. responses may be nil to
// disable the response cache.
func NewCompletionClient(cfg Config, responses *cache.LRUCache[string], log *logger.Logger) *CompletionClient {
	cfg = cfg.withDefaults()
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With("service", "CompletionClient")
	accept := cfg.AcceptReply
	if accept == nil {
		accept = isJSONObject
	}
	return &CompletionClient{
		transport: newTransport(cfg, log),
		model:     cfg.Model,
		responses: responses,
		accept:    accept,
		log:       log,
	}
}

// Complete sends the prompt and returns the model's text. Identical prompts
// are served from the response cache; only accepted replies are stored.
func (c *CompletionClient) Complete(ctx context.Context, prompt domain.Prompt) (string, error) {
	key := c.cacheKey(prompt)
	if text, ok := c.responses.Get(key); ok {
		c.log.Debug("response cache hit")
		return text, nil
	}

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.System},
			{Role: openai.ChatMessageRoleUser, Content: prompt.User},
		},
		Temperature: prompt.Temperature,
		MaxTokens:   prompt.MaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	start := time.Now()
	var resp openai.ChatCompletionResponse
	err := c.transport.do(ctx, "chat completion", func(ctx context.Context) error {
		var callErr error
		resp, callErr = c.transport.api.CreateChatCompletion(ctx, req)
		return callErr
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", domain.ErrReasoningTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", domain.ErrReasoningFailed, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", domain.ErrReasoningFailed)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty completion (finish_reason=%s)", domain.ErrReasoningFailed, resp.Choices[0].FinishReason)
	}

	c.log.Debug("chat completion finished",
		"model", c.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)
	if c.accept(text) {
		c.responses.Set(key, text)
	} else {
		c.log.Debug("reply not cached", "reply_len", len(text))
	}
	return text, nil
}

// ResponseCacheStats reports the response cache counters.
func (c *CompletionClient) ResponseCacheStats() cache.LRUStats {
	return c.responses.Stats()
}

// cacheKey hashes the prompt exactly; case differences in prompts are meaningful.
func (c *CompletionClient) cacheKey(prompt domain.Prompt) string {
	return cache.ExactKey(cache.KindResponse, fmt.Sprintf("%s\x00%.3f\x00%d\x00%s\x00%s",
		c.model, prompt.Temperature, prompt.MaxTokens, prompt.System, prompt.User))
}

func isJSONObject(reply string) bool {
	reply = strings.TrimSpace(reply)
	return strings.HasPrefix(reply, "{") && json.Valid([]byte(reply))
}
