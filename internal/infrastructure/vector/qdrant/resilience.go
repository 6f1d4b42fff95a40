package qdrant

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mathrag-io/mathrag/internal/infrastructure/resilience"
)

// classifyGRPCError marks transient transport conditions as retryable.
// Invalid requests fail fast and stay out of the breaker counts.
func classifyGRPCError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}

	st, ok := status.FromError(err)
	if !ok {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	switch st.Code() {
	case codes.Unavailable, codes.ResourceExhausted, codes.Aborted, codes.DeadlineExceeded:
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	case codes.InvalidArgument, codes.NotFound, codes.AlreadyExists, codes.PermissionDenied, codes.Unauthenticated:
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	default:
		return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
	}
}
