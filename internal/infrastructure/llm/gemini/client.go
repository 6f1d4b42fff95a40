package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mathrag-io/mathrag/internal/core/domain"
	"github.com/mathrag-io/mathrag/internal/core/ports"
	"github.com/mathrag-io/mathrag/internal/infrastructure/resilience"
)

const (
	defaultModel   = "gemini-2.0-flash-exp"
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	fullConfidence    = 0.85
	partialConfidence = 0.6
)

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

func (c Config) normalize() Config {
	out := c
	out.APIKey = strings.TrimSpace(out.APIKey)
	out.Model = strings.TrimSpace(out.Model)
	if out.Model == "" {
		out.Model = defaultModel
	}
	out.BaseURL = strings.TrimRight(strings.TrimSpace(out.BaseURL), "/")
	if out.BaseURL == "" {
		out.BaseURL = defaultBaseURL
	}
	if out.Timeout <= 0 {
		out.Timeout = 60 * time.Second
	}
	return out
}

// Generator answers questions no other tier could, through the Gemini
// REST API. With no API key configured it reports itself unavailable
// instead of failing requests.
type Generator struct {
	cfg        Config
	httpClient *http.Client
	executor   *resilience.Executor
}

var _ ports.SolutionGenerator = (*Generator)(nil)

func NewGenerator(cfg Config, executor *resilience.Executor) *Generator {
	cfg = cfg.normalize()
	return &Generator{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		executor:   executor,
	}
}

func (g *Generator) Available() bool {
	return g.cfg.APIKey != ""
}

func (g *Generator) Solve(ctx context.Context, question string) (domain.CandidateAnswer, error) {
	if !g.Available() {
		return domain.CandidateAnswer{}, domain.WrapError(domain.ErrFallbackUnavailable, "gemini solve",
			fmt.Errorf("api key is not configured"))
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.CandidateAnswer{}, domain.WrapError(domain.ErrValidation, "gemini solve",
			fmt.Errorf("question is empty"))
	}

	raw, err := g.generate(ctx, buildSolvePrompt(question))
	if err != nil {
		return domain.CandidateAnswer{}, domain.WrapError(domain.ErrFallbackUnavailable, "gemini solve", err)
	}

	answer := domain.CandidateAnswer{
		Source:     domain.SourceLLM,
		Confidence: fullConfidence,
	}
	answer.Text = Normalize(raw)
	if answer.Text == "" {
		answer.Text = strings.TrimSpace(raw)
		answer.Confidence = partialConfidence
	}
	if answer.Text == "" {
		return domain.CandidateAnswer{}, domain.WrapError(domain.ErrFallbackUnavailable, "gemini solve",
			fmt.Errorf("empty response from model"))
	}
	return answer, nil
}

func (g *Generator) generate(ctx context.Context, prompt string) (string, error) {
	request := generateContentRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}

	var response generateContentResponse
	err := g.execute(ctx, "gemini.generate", func(ctx context.Context) error {
		path := fmt.Sprintf("/models/%s:generateContent", g.cfg.Model)
		return g.postJSON(ctx, path, request, &response, "generate")
	})
	if err != nil {
		return "", err
	}

	if len(response.Candidates) == 0 {
		return "", fmt.Errorf("gemini generate: no candidates in response")
	}
	var sb strings.Builder
	for _, p := range response.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("gemini generate: candidate has no text")
	}
	return text, nil
}

func (g *Generator) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	if g.executor == nil {
		return fn(ctx)
	}
	return g.executor.Execute(ctx, operation, fn, classifyGeminiError)
}

type generateContentRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}
