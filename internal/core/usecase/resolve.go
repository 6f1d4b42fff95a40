package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mathrag-io/mathrag/internal/core/domain"
	"github.com/mathrag-io/mathrag/internal/core/ports"
)

const noSolutionText = "No solution available."

// ResolverConfig bounds the cascade's tiers.
type ResolverConfig struct {
	TopK          int
	Threshold     float64
	MaxSupporting int
	KBTimeout     time.Duration
	WebTimeout    time.Duration
	LLMTimeout    time.Duration
}

func (c ResolverConfig) normalize() ResolverConfig {
	out := c
	if out.TopK <= 0 {
		out.TopK = 5
	}
	if out.Threshold <= 0 {
		out.Threshold = 0.8
	}
	if out.MaxSupporting <= 0 {
		out.MaxSupporting = 3
	}
	if out.KBTimeout <= 0 {
		out.KBTimeout = 5 * time.Second
	}
	if out.WebTimeout <= 0 {
		out.WebTimeout = 10 * time.Second
	}
	if out.LLMTimeout <= 0 {
		out.LLMTimeout = 30 * time.Second
	}
	return out
}

// tierResult is the explicit outcome of one tier call. Tiers report
// failure as a reason string; the orchestrator branches on the tag
// instead of catching errors mid-flow.
type tierResult struct {
	candidate domain.CandidateAnswer
	ok        bool
	reason    string
}

// Resolver runs the confidence-gated answer cascade: knowledge base
// first, then web search, then the generative fallback.
type Resolver struct {
	embedder  ports.Embedder
	vectorDB  ports.VectorStore
	web       ports.WebSearcher
	generator ports.SolutionGenerator
	cfg       ResolverConfig
	logger    *slog.Logger
}

func NewResolver(
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
	web ports.WebSearcher,
	generator ports.SolutionGenerator,
	cfg ResolverConfig,
	logger *slog.Logger,
) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		embedder:  embedder,
		vectorDB:  vectorDB,
		web:       web,
		generator: generator,
		cfg:       cfg.normalize(),
		logger:    logger,
	}
}

// Resolve walks the waterfall and always returns a ResolvedAnswer. Every
// internal failure degrades to the best available partial result; the
// only terminal failure mode is the explicit no-solution answer.
func (r *Resolver) Resolve(ctx context.Context, query domain.Query) domain.ResolvedAnswer {
	start := time.Now()
	trail := make([]string, 0, 3)

	kb, kbReason := r.searchKnowledgeBase(ctx, query.Text)
	bestKB := 0.0
	if len(kb) > 0 {
		bestKB = kb[0].Confidence
	}

	// Tier decision A: accept the knowledge base outright.
	if len(kb) > 0 && bestKB >= r.cfg.Threshold {
		trail = append(trail, fmt.Sprintf(
			"knowledge base match scored %.3f, meeting the %g confidence threshold",
			bestKB, r.cfg.Threshold))
		return r.finish(query, start, kb[0], kb, trail)
	}

	switch {
	case kbReason != "":
		trail = append(trail, "knowledge base: "+kbReason)
	case len(kb) == 0:
		trail = append(trail, "knowledge base: no candidates")
	default:
		trail = append(trail, fmt.Sprintf(
			"knowledge base: best score %.3f below the %g threshold",
			bestKB, r.cfg.Threshold))
	}

	webRes := r.searchWeb(ctx, query.Text)
	if webRes.ok {
		// Tier decision B: the web candidate must clear the same threshold.
		if webRes.candidate.Confidence >= r.cfg.Threshold && strings.TrimSpace(webRes.candidate.Text) != "" {
			trail = append(trail, fmt.Sprintf(
				"web search scored %.3f, meeting the %g confidence threshold",
				webRes.candidate.Confidence, r.cfg.Threshold))
			return r.finish(query, start, webRes.candidate, kb, trail)
		}
		trail = append(trail, fmt.Sprintf(
			"web search: confidence %.3f below the %g threshold",
			webRes.candidate.Confidence, r.cfg.Threshold))
	} else {
		trail = append(trail, "web search: "+webRes.reason)
	}

	llmRes := r.generateSolution(ctx, query.Text)
	if llmRes.ok {
		// The generative tier is terminal: its self-reported confidence
		// is recorded but never gates selection.
		trail = append(trail, "generated a worked solution with the llm fallback")
		return r.finish(query, start, llmRes.candidate, kb, trail)
	}
	trail = append(trail, "llm: "+llmRes.reason)

	return r.degrade(query, start, kb, webRes, trail)
}

// degrade picks the best leftover after the generative tier failed:
// a substantive web result, else the top knowledge-base candidate, else
// the explicit no-solution terminal state.
func (r *Resolver) degrade(
	query domain.Query,
	start time.Time,
	kb []domain.CandidateAnswer,
	webRes tierResult,
	trail []string,
) domain.ResolvedAnswer {
	if webRes.ok && len(strings.TrimSpace(webRes.candidate.Text)) > 20 {
		trail = append(trail, "falling back to the web search result")
		return r.finish(query, start, webRes.candidate, kb, trail)
	}
	if len(kb) > 0 {
		trail = append(trail, fmt.Sprintf(
			"falling back to the best knowledge base candidate (score %.3f)",
			kb[0].Confidence))
		return r.finish(query, start, kb[0], kb, trail)
	}

	trail = append(trail, "no tier produced an answer")
	elapsed := time.Since(start)
	r.logger.Warn("cascade_exhausted", "query_id", query.ID, "elapsed_ms", elapsed.Milliseconds())
	return domain.ResolvedAnswer{
		QueryID:     query.ID,
		Text:        noSolutionText,
		Source:      domain.SourceKnowledgeBase,
		Confidence:  0,
		Quality:     QualityScore(query.Text, "", domain.SourceKnowledgeBase, 0),
		Efficiency:  EfficiencyScore(0, domain.SourceKnowledgeBase, float64(elapsed.Milliseconds())),
		Explanation: strings.Join(trail, "; "),
		Elapsed:     elapsed,
	}
}

func (r *Resolver) finish(
	query domain.Query,
	start time.Time,
	winner domain.CandidateAnswer,
	kb []domain.CandidateAnswer,
	trail []string,
) domain.ResolvedAnswer {
	elapsed := time.Since(start)

	supporting := kb
	if len(supporting) > r.cfg.MaxSupporting {
		supporting = supporting[:r.cfg.MaxSupporting]
	}

	resolved := domain.ResolvedAnswer{
		QueryID:     query.ID,
		Text:        winner.Text,
		Source:      winner.Source,
		Confidence:  clamp01(winner.Confidence),
		Quality:     QualityScore(query.Text, winner.Text, winner.Source, winner.Confidence),
		Efficiency:  EfficiencyScore(len(kb), winner.Source, float64(elapsed.Milliseconds())),
		Explanation: strings.Join(trail, "; "),
		Supporting:  supporting,
		Elapsed:     elapsed,
	}

	r.logger.Info("query_resolved",
		"query_id", query.ID,
		"source", string(resolved.Source),
		"confidence", resolved.Confidence,
		"kb_candidates", len(kb),
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return resolved
}

// searchKnowledgeBase embeds the query and searches the vector store.
// Infrastructure failure degrades to an empty candidate list with a
// reason; it never propagates.
func (r *Resolver) searchKnowledgeBase(ctx context.Context, text string) ([]domain.CandidateAnswer, string) {
	kbCtx, cancel := context.WithTimeout(ctx, r.cfg.KBTimeout)
	defer cancel()

	vector, err := r.embedder.EmbedQuery(kbCtx, text)
	if err != nil {
		r.logger.Warn("kb_embed_failed", "error", err)
		return nil, fmt.Sprintf("unavailable (%v)", err)
	}

	candidates, err := r.vectorDB.Search(kbCtx, vector, r.cfg.TopK)
	if err != nil {
		r.logger.Warn("kb_search_failed", "error", err)
		return nil, fmt.Sprintf("unavailable (%v)", err)
	}
	return candidates, ""
}

func (r *Resolver) searchWeb(ctx context.Context, text string) tierResult {
	if r.web == nil {
		return tierResult{reason: "not configured"}
	}
	if err := ctx.Err(); err != nil {
		return tierResult{reason: fmt.Sprintf("canceled (%v)", err)}
	}

	webCtx, cancel := context.WithTimeout(ctx, r.cfg.WebTimeout)
	defer cancel()

	candidate, err := r.web.Search(webCtx, text)
	if err != nil {
		r.logger.Warn("web_search_failed", "error", err)
		return tierResult{reason: fmt.Sprintf("failed (%v)", err)}
	}
	return tierResult{candidate: candidate, ok: true}
}

func (r *Resolver) generateSolution(ctx context.Context, text string) tierResult {
	if r.generator == nil || !r.generator.Available() {
		return tierResult{reason: "not available"}
	}
	if err := ctx.Err(); err != nil {
		return tierResult{reason: fmt.Sprintf("canceled (%v)", err)}
	}

	llmCtx, cancel := context.WithTimeout(ctx, r.cfg.LLMTimeout)
	defer cancel()

	candidate, err := r.generator.Solve(llmCtx, text)
	if err != nil {
		r.logger.Warn("llm_solve_failed", "error", err)
		return tierResult{reason: fmt.Sprintf("failed (%v)", err)}
	}
	if strings.TrimSpace(candidate.Text) == "" {
		return tierResult{reason: "returned an empty solution"}
	}
	return tierResult{candidate: candidate, ok: true}
}
