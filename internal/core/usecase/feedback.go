package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mathrag-io/mathrag/internal/core/domain"
	"github.com/mathrag-io/mathrag/internal/core/ports"
)

// FeedbackUseCase accepts answer ratings and hands them to the queue for
// asynchronous persistence. Feedback never influences the cascade.
type FeedbackUseCase struct {
	queue  ports.FeedbackQueue
	logger *slog.Logger
}

func NewFeedbackUseCase(queue ports.FeedbackQueue, logger *slog.Logger) *FeedbackUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedbackUseCase{queue: queue, logger: logger}
}

func (uc *FeedbackUseCase) Accept(ctx context.Context, fb domain.Feedback) (domain.Feedback, error) {
	if strings.TrimSpace(fb.ResponseID) == "" {
		return domain.Feedback{}, domain.WrapError(domain.ErrValidation, "accept feedback", errors.New("response id is required"))
	}
	if fb.Rating < 1 || fb.Rating > 5 {
		return domain.Feedback{}, domain.WrapError(domain.ErrValidation, "accept feedback",
			fmt.Errorf("rating %d out of range 1..5", fb.Rating))
	}

	fb.ID = uuid.NewString()
	fb.ReceivedAt = time.Now().UTC()

	if err := uc.queue.PublishFeedback(ctx, fb); err != nil {
		return domain.Feedback{}, fmt.Errorf("publish feedback event: %w", err)
	}

	uc.logger.Info("feedback_accepted", "feedback_id", fb.ID, "response_id", fb.ResponseID, "rating", fb.Rating)
	return fb, nil
}
