package ports

import (
	"context"

	"github.com/mathrag-io/mathrag/internal/core/domain"
)

// AnswerResolver is the single online entry point. Resolve never fails:
// every internal error degrades to the best available answer, down to the
// explicit "no solution available" terminal state.
type AnswerResolver interface {
	Resolve(ctx context.Context, query domain.Query) domain.ResolvedAnswer
}

// DatasetIngestor is the offline bulk-load entry point.
type DatasetIngestor interface {
	Ingest(ctx context.Context, source DatasetSource, batchSize int) (domain.IngestionSummary, error)
}

// FeedbackIntake accepts user feedback for asynchronous persistence.
type FeedbackIntake interface {
	Accept(ctx context.Context, fb domain.Feedback) (domain.Feedback, error)
}
