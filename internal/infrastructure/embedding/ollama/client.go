package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mathrag-io/mathrag/internal/core/ports"
	"github.com/mathrag-io/mathrag/internal/infrastructure/resilience"
)

const defaultEmbedModel = "all-minilm"

// Embedder turns problem text into dense vectors through an Ollama
// instance. Batches go out in a single /api/embed call so ingestion
// cost scales with batches, not records.
type Embedder struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

var _ ports.Embedder = (*Embedder)(nil)

func NewEmbedder(baseURL, model string, executor *resilience.Executor) *Embedder {
	model = strings.TrimSpace(model)
	if model == "" {
		model = defaultEmbedModel
	}
	return &Embedder{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.model,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	err := e.execute(ctx, "ollama.embed", func(ctx context.Context) error {
		return e.postJSON(ctx, "/api/embed", request, &response, "embed")
	})
	if err != nil {
		return nil, wrapTemporaryIfNeeded("ollama embed", err)
	}

	if len(response.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: requested %d vectors, got %d", len(texts), len(response.Embeddings))
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("ollama embed: empty embedding result")
	}
	return vectors[0], nil
}

func (e *Embedder) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	if e.executor == nil {
		return fn(ctx)
	}
	return e.executor.Execute(ctx, operation, fn, classifyOllamaError)
}
