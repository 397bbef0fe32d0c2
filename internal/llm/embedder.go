package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/issueradar/crawler/internal/tracker"
)

// maxEmbedChars bounds the text submitted to the embedding model.
const maxEmbedChars = 30000

// EmbedderConfig configures the embedding client.
type EmbedderConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Embedder implements tracker.Embedder on the embeddings API. It is
// constructed once at startup and owned by the caller; there is no shared
// process-wide client.
type Embedder struct {
	client openai.Client
	model  string
}

// NewEmbedder builds an Embedder. A missing API key is a startup error.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedding api key is required")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}
	return &Embedder{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

// Embed returns the embedding vector for text. The result always has exactly
// tracker.EmbeddingDim elements; a response of any other length is an error.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(truncate(text, maxEmbedChars)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embed text: empty response")
	}

	raw := resp.Data[0].Embedding
	if len(raw) != tracker.EmbeddingDim {
		return nil, fmt.Errorf("embed text: got %d dimensions, want %d", len(raw), tracker.EmbeddingDim)
	}
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}
	return vec, nil
}
