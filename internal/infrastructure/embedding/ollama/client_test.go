package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mathrag-io/mathrag/internal/infrastructure/resilience"
)

func testExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		BackoffMultiplier:   2,
		BreakerEnabled:      false,
	}, nil)
}

func TestEmbedReturnsOneVectorPerInput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "all-minilm" {
			t.Errorf("unexpected model %q", req.Model)
		}
		vectors := make([][]float32, len(req.Input))
		for i := range vectors {
			vectors[i] = []float32{float32(i), 0.5}
		}
		json.NewEncoder(w).Encode(map[string]any{"embeddings": vectors})
	}))
	defer server.Close()

	embedder := NewEmbedder(server.URL, "", testExecutor())
	vectors, err := embedder.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
}

func TestEmbedRejectsVectorCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{{0.1}}})
	}))
	defer server.Close()

	embedder := NewEmbedder(server.URL, "all-minilm", testExecutor())
	if _, err := embedder.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestEmbedRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{{0.1, 0.2}}})
	}))
	defer server.Close()

	embedder := NewEmbedder(server.URL, "all-minilm", testExecutor())
	vectors, err := embedder.Embed(context.Background(), []string{"a"})
	if err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if len(vectors) != 1 {
		t.Fatalf("expected 1 vector, got %d", len(vectors))
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 requests, got %d", calls.Load())
	}
}

func TestEmbedDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unknown model", http.StatusNotFound)
	}))
	defer server.Close()

	embedder := NewEmbedder(server.URL, "all-minilm", testExecutor())
	_, err := embedder.Embed(context.Background(), []string{"a"})
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected status error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected exactly 1 request, got %d", calls.Load())
	}
}

func TestEmbedQueryReturnsFirstVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{{0.25, 0.75}}})
	}))
	defer server.Close()

	embedder := NewEmbedder(server.URL, "all-minilm", testExecutor())
	vector, err := embedder.EmbedQuery(context.Background(), "Solve x + 1 = 2")
	if err != nil {
		t.Fatalf("embed query failed: %v", err)
	}
	if len(vector) != 2 || vector[0] != 0.25 {
		t.Fatalf("unexpected vector %v", vector)
	}
}

func TestEmbedEmptyInputIsNoop(t *testing.T) {
	embedder := NewEmbedder("http://unused", "all-minilm", testExecutor())
	vectors, err := embedder.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if vectors != nil {
		t.Fatalf("expected nil vectors, got %v", vectors)
	}
}
