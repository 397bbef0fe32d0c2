package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/issueradar/crawler/internal/tracker"
)

func embeddingServer(t *testing.T, dims int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.True(t, strings.HasSuffix(r.URL.Path, "/embeddings"), "unexpected path %s", r.URL.Path)

		vec := make([]float64, dims)
		for i := range vec {
			vec[i] = float64(i) / float64(dims)
		}
		body := map[string]any{
			"object": "list",
			"model":  "text-embedding-3-small",
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": vec},
			},
			"usage": map[string]any{"prompt_tokens": 8, "total_tokens": 8},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(body))
	}))
}

func TestNewEmbedderRequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := NewEmbedder(EmbedderConfig{})
	require.Error(t, err)
}

func TestEmbedReturnsFixedDimensionVector(t *testing.T) {
	t.Parallel()

	srv := embeddingServer(t, tracker.EmbeddingDim)
	defer srv.Close()

	e, err := NewEmbedder(EmbedderConfig{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	vec, err := e.Embed(context.Background(), "Acrobat DC crashes on large PDFs")
	require.NoError(t, err)
	require.Len(t, vec, tracker.EmbeddingDim)
}

func TestEmbedRejectsWrongDimensionality(t *testing.T) {
	t.Parallel()

	srv := embeddingServer(t, 8)
	defer srv.Close()

	e, err := NewEmbedder(EmbedderConfig{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "text")
	require.Error(t, err)
	require.Contains(t, err.Error(), "dimensions")
}
