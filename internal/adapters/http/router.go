// Package httpadapter exposes the resolution cascade and feedback
// intake over HTTP.
package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mathrag-io/mathrag/internal/core/domain"
	"github.com/mathrag-io/mathrag/internal/core/ports"
	"github.com/mathrag-io/mathrag/internal/infrastructure/guard"
	"github.com/mathrag-io/mathrag/internal/observability/metrics"
)

const serviceName = "api"

// resolutionLogTimeout bounds the background persistence of a cascade
// trace; the request itself never waits on it.
const resolutionLogTimeout = 5 * time.Second

// FeedbackReader serves the operator endpoint that samples recent
// ratings.
type FeedbackReader interface {
	RecentFeedback(ctx context.Context, limit int) ([]domain.Feedback, error)
}

// ResolutionRecorder persists cascade traces out of band. Nil disables
// trace logging without touching the request path.
type ResolutionRecorder interface {
	SaveResolution(ctx context.Context, entry domain.ResolutionLog) error
}

type Router struct {
	resolver ports.AnswerResolver
	intake   ports.FeedbackIntake
	store    ports.VectorStore
	reader   FeedbackReader
	recorder ResolutionRecorder
	guard    *guard.Guard
	validate *validator.Validate
	metrics  *metrics.HTTPServerMetrics
	logger   *slog.Logger

	rateLimitRPS   float64
	rateLimitBurst int
}

type Options struct {
	FeedbackReader     FeedbackReader
	ResolutionRecorder ResolutionRecorder
	Metrics            *metrics.HTTPServerMetrics
	Logger             *slog.Logger
	RateLimitPerSecond float64
	RateLimitBurst     int
}

func NewRouter(
	resolver ports.AnswerResolver,
	intake ports.FeedbackIntake,
	store ports.VectorStore,
	g *guard.Guard,
	options Options,
) *Router {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if g == nil {
		g = guard.New(logger)
	}
	return &Router{
		resolver: resolver,
		intake:   intake,
		store:    store,
		reader:   options.FeedbackReader,
		recorder: options.ResolutionRecorder,
		guard:    g,
		validate: validator.New(),
		metrics:  options.Metrics,
		logger:   logger,

		rateLimitRPS:   options.RateLimitPerSecond,
		rateLimitBurst: options.RateLimitBurst,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/resolve", rt.resolve)
	mux.HandleFunc("/v1/feedback", rt.feedback)
	mux.HandleFunc("/v1/feedback/recent", rt.recentFeedback)
	mux.HandleFunc("/v1/collection", rt.collectionStatus)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.rateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type resolveRequest struct {
	Question string `json:"question" validate:"required,min=5,max=2000"`
}

func (rt *Router) resolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := rt.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question must be between 5 and 2000 characters"})
		return
	}

	sanitized, err := rt.guard.ValidateQuestion(req.Question)
	if err != nil {
		writeError(w, err)
		return
	}

	query := domain.NewQuery(sanitized)
	answer := rt.resolver.Resolve(r.Context(), query)
	answer.Text = rt.guard.SanitizeAnswer(answer.Text)

	if rt.metrics != nil {
		rt.metrics.RecordResolution(
			serviceName,
			string(answer.Source),
			answer.Confidence,
			answer.Quality,
			answer.Efficiency,
			len(answer.Supporting),
			answer.Elapsed,
		)
	}
	rt.recordResolution(query, answer)

	writeJSON(w, http.StatusOK, answer)
}

// recordResolution persists the cascade trace without blocking the
// response. Failures are logged and dropped.
func (rt *Router) recordResolution(query domain.Query, answer domain.ResolvedAnswer) {
	if rt.recorder == nil {
		return
	}
	entry := domain.ResolutionLog{
		QueryID:    answer.QueryID,
		Question:   query.Text,
		Source:     answer.Source,
		Confidence: answer.Confidence,
		Quality:    answer.Quality,
		Efficiency: answer.Efficiency,
		Elapsed:    answer.Elapsed,
		CreatedAt:  time.Now().UTC(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), resolutionLogTimeout)
		defer cancel()
		if err := rt.recorder.SaveResolution(ctx, entry); err != nil {
			rt.logger.Error("resolution_log_failed", "query_id", entry.QueryID, "error", err)
		}
	}()
}

type feedbackRequest struct {
	ResponseID string `json:"response_id" validate:"required"`
	Question   string `json:"question"`
	Rating     int    `json:"rating" validate:"required,min=1,max=5"`
	Comment    string `json:"comment" validate:"max=2000"`
}

func (rt *Router) feedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := rt.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "response_id is required and rating must be between 1 and 5"})
		return
	}

	accepted, err := rt.intake.Accept(r.Context(), domain.Feedback{
		ResponseID: req.ResponseID,
		Question:   req.Question,
		Rating:     req.Rating,
		Comment:    req.Comment,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordFeedback(serviceName, accepted.Rating)
	}
	writeJSON(w, http.StatusAccepted, accepted)
}

func (rt *Router) recentFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if rt.reader == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "feedback store is not configured"})
		return
	}

	feedback, err := rt.reader.RecentFeedback(r.Context(), 20)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"feedback": feedback})
}

func (rt *Router) collectionStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	info, err := rt.store.CollectionInfo(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      info.Status,
		"point_count": info.PointCount,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
