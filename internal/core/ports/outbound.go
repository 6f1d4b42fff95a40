package ports

import (
	"context"

	"github.com/mathrag-io/mathrag/internal/core/domain"
)

// VectorStore is the narrow contract over the remote similarity-search
// service. Implementations return domain.ErrRetrieval-wrapped errors for
// infrastructure failure; "no matches" is an empty slice, never an error.
type VectorStore interface {
	EnsureCollection(ctx context.Context, vectorSize int) error
	Upsert(ctx context.Context, records []domain.IngestionRecord, vectors [][]float32) error
	Search(ctx context.Context, queryVector []float32, limit int) ([]domain.CandidateAnswer, error)
	CollectionInfo(ctx context.Context) (domain.CollectionInfo, error)
}

// Embedder builds fixed-dimensionality vectors for record batches and
// query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// WebSearcher returns one heuristically scored candidate from an external
// search capability. Failures are domain.ErrFallbackUnavailable.
type WebSearcher interface {
	Search(ctx context.Context, queryText string) (domain.CandidateAnswer, error)
}

// SolutionGenerator prompts a generative model for a fully worked solution.
// Available must be consulted before Solve; Solve while unavailable returns
// domain.ErrFallbackUnavailable.
type SolutionGenerator interface {
	Available() bool
	Solve(ctx context.Context, queryText string) (domain.CandidateAnswer, error)
}

// DatasetSource streams raw problem records for bulk ingestion. Next
// returns io.EOF after the last record.
type DatasetSource interface {
	Next() (domain.ProblemRecord, error)
	Close() error
}

// FeedbackQueue publishes/consumes accepted feedback events.
type FeedbackQueue interface {
	PublishFeedback(ctx context.Context, fb domain.Feedback) error
	SubscribeFeedback(ctx context.Context, handler func(context.Context, domain.Feedback) error) error
}

// FeedbackStore persists feedback and cascade outcome traces.
type FeedbackStore interface {
	SaveFeedback(ctx context.Context, fb domain.Feedback) error
	SaveResolution(ctx context.Context, entry domain.ResolutionLog) error
}
