package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/pricelens/backend/internal/domain"
)

var errEmptyEmbedding = errors.New("embedding response contained no vector")

// Embedder turns product text into embedding vectors.
type Embedder struct {
	client  *openai.Client
	model   string
	retrier retrier
	logger  zerolog.Logger
}

// NewEmbedder creates an embedder for cfg.EmbeddingModel.
func NewEmbedder(cfg Config, logger zerolog.Logger) *Embedder {
	model := cfg.EmbeddingModel
	if model == "" {
		model = DefaultEmbeddingModel
	}
	logger = logger.With().Str("component", "embedder").Logger()
	return &Embedder{
		client:  newClient(cfg),
		model:   model,
		retrier: newRetrier(cfg, logger),
		logger:  logger,
	}
}

// Embed returns the embedding of text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.NewValidationError("text", "text to embed is empty")
	}

	var resp openai.EmbeddingResponse
	err := e.retrier.do(ctx, "embeddings", func() error {
		var err error
		resp, err = e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(e.model),
			Input: []string{text},
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errEmptyEmbedding
	}

	raw := resp.Data[0].Embedding
	vector := make([]float64, len(raw))
	for i, v := range raw {
		vector[i] = float64(v)
	}
	return vector, nil
}

var _ domain.Embedder = (*Embedder)(nil)
