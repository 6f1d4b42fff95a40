package qdrant

import (
	"context"
	"errors"
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mathrag-io/mathrag/internal/core/domain"
)

func TestCandidateFromPointReadsPayload(t *testing.T) {
	point := &qdrant.ScoredPoint{
		Score: 0.91,
		Payload: qdrant.NewValueMap(map[string]any{
			"problem":  "Solve x + 2 = 5",
			"solution": "x = 3",
			"source":   "gsm8k",
		}),
	}

	candidate := candidateFromPoint(point, 2)
	if candidate.Source != domain.SourceKnowledgeBase {
		t.Fatalf("expected knowledge base source, got %q", candidate.Source)
	}
	if candidate.Text != "x = 3" {
		t.Fatalf("expected solution text, got %q", candidate.Text)
	}
	if candidate.Problem != "Solve x + 2 = 5" {
		t.Fatalf("expected problem text, got %q", candidate.Problem)
	}
	if candidate.Rank != 2 {
		t.Fatalf("expected rank 2, got %d", candidate.Rank)
	}
	if candidate.Confidence < 0.909 || candidate.Confidence > 0.911 {
		t.Fatalf("expected confidence near 0.91, got %f", candidate.Confidence)
	}
}

func TestCandidateFromPointToleratesMissingPayload(t *testing.T) {
	candidate := candidateFromPoint(&qdrant.ScoredPoint{Score: 0.4}, 0)
	if candidate.Text != "" || candidate.Problem != "" {
		t.Fatalf("expected empty fields, got %+v", candidate)
	}
	if candidate.Source != domain.SourceKnowledgeBase {
		t.Fatalf("expected knowledge base source, got %q", candidate.Source)
	}
}

func TestClassifyGRPCError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
		record    bool
	}{
		{"unavailable", status.Error(codes.Unavailable, "down"), true, true},
		{"resource exhausted", status.Error(codes.ResourceExhausted, "slow down"), true, true},
		{"invalid argument", status.Error(codes.InvalidArgument, "bad vector"), false, false},
		{"unauthenticated", status.Error(codes.Unauthenticated, "bad key"), false, false},
		{"internal", status.Error(codes.Internal, "boom"), false, true},
		{"plain error", errors.New("dial tcp: connection refused"), true, true},
		{"context canceled", context.Canceled, false, false},
	}

	for _, tc := range cases {
		class := classifyGRPCError(tc.err)
		if class.Retryable != tc.retryable {
			t.Fatalf("%s: expected retryable=%v, got %v", tc.name, tc.retryable, class.Retryable)
		}
		if class.RecordFailure != tc.record {
			t.Fatalf("%s: expected record=%v, got %v", tc.name, tc.record, class.RecordFailure)
		}
	}
}

func TestConfigNormalizeDefaults(t *testing.T) {
	cfg := Config{}.normalize()
	if cfg.Host != "localhost" {
		t.Fatalf("expected localhost default, got %q", cfg.Host)
	}
	if cfg.Port != 6334 {
		t.Fatalf("expected gRPC port default, got %d", cfg.Port)
	}
	if cfg.Collection != "math_problems" {
		t.Fatalf("expected default collection, got %q", cfg.Collection)
	}
}
