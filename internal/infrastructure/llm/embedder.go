package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/smarties/backend/internal/platform/logger"
)

// EmbeddingClient turns texts into vectors through the embeddings endpoint.
type EmbeddingClient struct {
	transport  *transport
	model      string
	dimensions int
	log        *logger.Logger
}

// NewEmbeddingClient creates an embedding client. A positive cfg.Dimensions
// asks the endpoint for shortened vectors.
func NewEmbeddingClient(cfg Config, log *logger.Logger) *EmbeddingClient {
	cfg = cfg.withDefaults()
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With("service", "EmbeddingClient")
	return &EmbeddingClient{
		transport:  newTransport(cfg, log),
		model:      cfg.EmbeddingModel,
		dimensions: cfg.Dimensions,
		log:        log,
	}
}

// Embed returns one vector per input, in input order.
func (c *EmbeddingClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	clean := make([]string, len(texts))
	for i, s := range texts {
		s = strings.TrimSpace(s)
		if s == "" {
			s = " "
		}
		clean[i] = s
	}

	req := openai.EmbeddingRequest{
		Input:      clean,
		Model:      openai.EmbeddingModel(c.model),
		Dimensions: c.dimensions,
	}

	start := time.Now()
	var resp openai.EmbeddingResponse
	err := c.transport.do(ctx, "embeddings", func(ctx context.Context) error {
		var callErr error
		resp, callErr = c.transport.api.CreateEmbeddings(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	// Results carry their input index; order in the payload is not guaranteed.
	out := make([][]float32, len(clean))
	for _, d := range resp.Data {
		if d.Index >= 0 && d.Index < len(out) {
			out[d.Index] = d.Embedding
		}
	}
	for i := range out {
		if len(out[i]) == 0 {
			return nil, fmt.Errorf("embeddings: missing vector for input %d (requested=%d returned=%d model=%s)",
				i, len(clean), len(resp.Data), c.model)
		}
	}

	c.log.Debug("embeddings generated",
		"count", len(clean),
		"model", c.model,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
