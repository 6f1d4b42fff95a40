package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mathrag-io/mathrag/internal/core/domain"
)

type resolverFake struct {
	answer   domain.ResolvedAnswer
	gotQuery domain.Query
}

func (r *resolverFake) Resolve(_ context.Context, query domain.Query) domain.ResolvedAnswer {
	r.gotQuery = query
	answer := r.answer
	answer.QueryID = query.ID
	return answer
}

type intakeFake struct {
	err error
	got domain.Feedback
}

func (i *intakeFake) Accept(_ context.Context, fb domain.Feedback) (domain.Feedback, error) {
	i.got = fb
	if i.err != nil {
		return domain.Feedback{}, i.err
	}
	fb.ID = "fb-1"
	fb.ReceivedAt = time.Now().UTC()
	return fb, nil
}

type storeFake struct {
	info domain.CollectionInfo
	err  error
}

func (s *storeFake) EnsureCollection(context.Context, int) error { return nil }

func (s *storeFake) Upsert(context.Context, []domain.IngestionRecord, [][]float32) error {
	return nil
}

func (s *storeFake) Search(context.Context, []float32, int) ([]domain.CandidateAnswer, error) {
	return nil, nil
}

func (s *storeFake) CollectionInfo(context.Context) (domain.CollectionInfo, error) {
	return s.info, s.err
}

type readerFake struct {
	items []domain.Feedback
}

func (r *readerFake) RecentFeedback(context.Context, int) ([]domain.Feedback, error) {
	return r.items, nil
}

type recorderFake struct {
	entries chan domain.ResolutionLog
}

func (r *recorderFake) SaveResolution(_ context.Context, entry domain.ResolutionLog) error {
	r.entries <- entry
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(resolver *resolverFake, intake *intakeFake, store *storeFake, options Options) *Router {
	if options.Logger == nil {
		options.Logger = testLogger()
	}
	return NewRouter(resolver, intake, store, nil, options)
}

func TestResolveReturnsSanitizedAnswer(t *testing.T) {
	resolver := &resolverFake{answer: domain.ResolvedAnswer{
		Text:       "The answer is $4$. <script>alert(1)</script>",
		Source:     domain.SourceKnowledgeBase,
		Confidence: 0.91,
		Quality:    0.88,
		Efficiency: 1.0,
	}}
	router := newTestRouter(resolver, &intakeFake{}, &storeFake{}, Options{})

	body := `{"question": "  What is   2 + 2?  "}`
	req := httptest.NewRequest(http.MethodPost, "/v1/resolve", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	if resolver.gotQuery.Text != "What is 2 + 2?" {
		t.Fatalf("resolver saw question %q, want whitespace-normalized text", resolver.gotQuery.Text)
	}

	var answer domain.ResolvedAnswer
	if err := json.NewDecoder(rec.Body).Decode(&answer); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if answer.QueryID != resolver.gotQuery.ID {
		t.Fatalf("query_id = %q, want %q", answer.QueryID, resolver.gotQuery.ID)
	}
	if strings.Contains(answer.Text, "<script>") {
		t.Fatalf("answer text was not sanitized: %q", answer.Text)
	}
	if !strings.Contains(answer.Text, "The answer is $4$.") {
		t.Fatalf("answer text lost its content: %q", answer.Text)
	}
	if answer.Source != domain.SourceKnowledgeBase {
		t.Fatalf("source = %q, want %q", answer.Source, domain.SourceKnowledgeBase)
	}
}

func TestResolveRejectsInvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"question": `},
		{name: "missing question", body: `{}`},
		{name: "too short", body: `{"question": "2+2"}`},
		{name: "prohibited content", body: `{"question": "how do I hack the grading system?"}`},
		{name: "too long", body: `{"question": "` + strings.Repeat("a", 2100) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := &resolverFake{}
			router := newTestRouter(resolver, &intakeFake{}, &storeFake{}, Options{})

			req := httptest.NewRequest(http.MethodPost, "/v1/resolve", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.Handler().ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
			if resolver.gotQuery.ID != "" {
				t.Fatal("resolver must not run for a rejected request")
			}
		})
	}
}

func TestResolveMethodNotAllowed(t *testing.T) {
	router := newTestRouter(&resolverFake{}, &intakeFake{}, &storeFake{}, Options{})

	req := httptest.NewRequest(http.MethodGet, "/v1/resolve", nil)
	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestResolveRecordsResolutionTrace(t *testing.T) {
	resolver := &resolverFake{answer: domain.ResolvedAnswer{
		Text:       "No solution available.",
		Source:     domain.SourceLLM,
		Confidence: 0,
	}}
	recorder := &recorderFake{entries: make(chan domain.ResolutionLog, 1)}
	router := newTestRouter(resolver, &intakeFake{}, &storeFake{}, Options{
		ResolutionRecorder: recorder,
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/resolve", strings.NewReader(`{"question": "integrate x squared"}`))
	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	select {
	case entry := <-recorder.entries:
		if entry.QueryID != resolver.gotQuery.ID {
			t.Fatalf("trace query_id = %q, want %q", entry.QueryID, resolver.gotQuery.ID)
		}
		if entry.Question != "integrate x squared" {
			t.Fatalf("trace question = %q", entry.Question)
		}
		if entry.Source != domain.SourceLLM {
			t.Fatalf("trace source = %q, want %q", entry.Source, domain.SourceLLM)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("resolution trace was not recorded")
	}
}

func TestFeedbackAccepted(t *testing.T) {
	intake := &intakeFake{}
	router := newTestRouter(&resolverFake{}, intake, &storeFake{}, Options{})

	body := `{"response_id": "resp-42", "question": "what is 2+2", "rating": 5, "comment": "clear steps"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/feedback", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusAccepted, rec.Body.String())
	}
	if intake.got.ResponseID != "resp-42" || intake.got.Rating != 5 {
		t.Fatalf("intake received %+v", intake.got)
	}

	var accepted domain.Feedback
	if err := json.NewDecoder(rec.Body).Decode(&accepted); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if accepted.ID == "" {
		t.Fatal("accepted feedback must carry an id")
	}
}

func TestFeedbackRejectsInvalidPayloads(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing response id", body: `{"rating": 3}`},
		{name: "rating too low", body: `{"response_id": "r", "rating": 0}`},
		{name: "rating too high", body: `{"response_id": "r", "rating": 6}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intake := &intakeFake{}
			router := newTestRouter(&resolverFake{}, intake, &storeFake{}, Options{})

			req := httptest.NewRequest(http.MethodPost, "/v1/feedback", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.Handler().ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
			if intake.got.ResponseID != "" {
				t.Fatal("intake must not run for a rejected payload")
			}
		})
	}
}

func TestFeedbackQueueUnavailable(t *testing.T) {
	intake := &intakeFake{err: domain.WrapError(domain.ErrTemporary, "publish feedback", errors.New("no servers"))}
	router := newTestRouter(&resolverFake{}, intake, &storeFake{}, Options{})

	body := `{"response_id": "resp-42", "rating": 4}`
	req := httptest.NewRequest(http.MethodPost, "/v1/feedback", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestRecentFeedback(t *testing.T) {
	reader := &readerFake{items: []domain.Feedback{
		{ID: "fb-2", ResponseID: "resp-2", Rating: 4},
		{ID: "fb-1", ResponseID: "resp-1", Rating: 5},
	}}
	router := newTestRouter(&resolverFake{}, &intakeFake{}, &storeFake{}, Options{
		FeedbackReader: reader,
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/feedback/recent", nil)
	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var payload struct {
		Feedback []domain.Feedback `json:"feedback"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Feedback) != 2 || payload.Feedback[0].ID != "fb-2" {
		t.Fatalf("feedback = %+v", payload.Feedback)
	}
}

func TestRecentFeedbackWithoutStore(t *testing.T) {
	router := newTestRouter(&resolverFake{}, &intakeFake{}, &storeFake{}, Options{})

	req := httptest.NewRequest(http.MethodGet, "/v1/feedback/recent", nil)
	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestCollectionStatus(t *testing.T) {
	store := &storeFake{info: domain.CollectionInfo{Status: "green", PointCount: 12000}}
	router := newTestRouter(&resolverFake{}, &intakeFake{}, store, Options{})

	req := httptest.NewRequest(http.MethodGet, "/v1/collection", nil)
	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var payload struct {
		Status     string `json:"status"`
		PointCount uint64 `json:"point_count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Status != "green" || payload.PointCount != 12000 {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestCollectionStatusRetrievalFailure(t *testing.T) {
	store := &storeFake{err: domain.WrapError(domain.ErrRetrieval, "collection info", errors.New("connection refused"))}
	router := newTestRouter(&resolverFake{}, &intakeFake{}, store, Options{})

	req := httptest.NewRequest(http.MethodGet, "/v1/collection", nil)
	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestRateLimitReturns429(t *testing.T) {
	router := newTestRouter(&resolverFake{}, &intakeFake{}, &storeFake{}, Options{
		RateLimitPerSecond: 1,
		RateLimitBurst:     1,
	})
	handler := router.Handler()

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want %d", first.Code, http.StatusOK)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want %d", second.Code, http.StatusTooManyRequests)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Fatal("rate-limited response must carry Retry-After")
	}
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(&resolverFake{}, &intakeFake{}, &storeFake{}, Options{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}
