package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mathrag-io/mathrag/internal/core/domain"
	"github.com/mathrag-io/mathrag/internal/core/ports"
)

// FeedbackRepository persists user feedback and cascade traces. Writes
// come from the worker consuming the feedback queue and from the API's
// background resolution logger, never from the request path.
type FeedbackRepository struct {
	db *sql.DB
}

var _ ports.FeedbackStore = (*FeedbackRepository)(nil)

func NewFeedbackRepository(db *sql.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

func (r *FeedbackRepository) SaveFeedback(ctx context.Context, feedback domain.Feedback) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO feedback (id, response_id, question, rating, comment, received_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO NOTHING
`, feedback.ID, feedback.ResponseID, feedback.Question, feedback.Rating, feedback.Comment, feedback.ReceivedAt)
	if err != nil {
		return fmt.Errorf("save feedback: %w", err)
	}
	return nil
}

func (r *FeedbackRepository) SaveResolution(ctx context.Context, log domain.ResolutionLog) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO resolutions (query_id, question, source, confidence, quality, efficiency, elapsed_ms, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (query_id) DO NOTHING
`, log.QueryID, log.Question, string(log.Source), log.Confidence, log.Quality, log.Efficiency, log.Elapsed.Milliseconds(), log.CreatedAt)
	if err != nil {
		return fmt.Errorf("save resolution: %w", err)
	}
	return nil
}

// RecentFeedback returns the newest ratings first, for the operator
// endpoint that samples answer quality.
func (r *FeedbackRepository) RecentFeedback(ctx context.Context, limit int) ([]domain.Feedback, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, response_id, question, rating, comment, received_at
FROM feedback
ORDER BY received_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Feedback, 0, limit)
	for rows.Next() {
		var fb domain.Feedback
		if err := rows.Scan(&fb.ID, &fb.ResponseID, &fb.Question, &fb.Rating, &fb.Comment, &fb.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		out = append(out, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback: %w", err)
	}
	return out, nil
}
