package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mathrag-io/mathrag/internal/core/domain"
	"github.com/mathrag-io/mathrag/internal/core/ports"
)

const (
	defaultTool          = "web_search"
	defaultMaxConfidence = 0.78
)

type Config struct {
	BaseURL       string
	Tool          string
	MaxResults    int
	MaxConfidence float64
	Timeout       time.Duration
}

func (c Config) normalize() Config {
	out := c
	out.BaseURL = strings.TrimSpace(out.BaseURL)
	out.Tool = strings.TrimSpace(out.Tool)
	if out.Tool == "" {
		out.Tool = defaultTool
	}
	if out.MaxResults <= 0 {
		out.MaxResults = 5
	}
	if out.MaxConfidence <= 0 || out.MaxConfidence > 1 {
		out.MaxConfidence = defaultMaxConfidence
	}
	if out.Timeout <= 0 {
		out.Timeout = 15 * time.Second
	}
	return out
}

// Client runs web searches through an MCP server's web_search tool.
// The session is established lazily on first use so a stopped search
// server delays startup of nothing.
type Client struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	session *mcpclient.Client
}

var _ ports.WebSearcher = (*Client)(nil)

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	cfg = cfg.normalize()
	if cfg.BaseURL == "" {
		return nil, domain.WrapError(domain.ErrConfig, "mcp web search",
			fmt.Errorf("base url is required"))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, logger: logger}, nil
}

func (c *Client) Search(ctx context.Context, question string) (domain.CandidateAnswer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.CandidateAnswer{}, domain.WrapError(domain.ErrValidation, "mcp web search",
			fmt.Errorf("question is empty"))
	}

	session, err := c.ensureSession(ctx)
	if err != nil {
		return domain.CandidateAnswer{}, domain.WrapError(domain.ErrFallbackUnavailable, "mcp web search", err)
	}

	request := mcp.CallToolRequest{}
	request.Params.Name = c.cfg.Tool
	request.Params.Arguments = map[string]any{
		"query": question,
		"limit": c.cfg.MaxResults,
	}

	result, err := session.CallTool(ctx, request)
	if err != nil {
		c.reset()
		return domain.CandidateAnswer{}, domain.WrapError(domain.ErrFallbackUnavailable, "mcp web search", err)
	}
	if result.IsError {
		return domain.CandidateAnswer{}, domain.WrapError(domain.ErrFallbackUnavailable, "mcp web search",
			fmt.Errorf("tool %s reported an error: %s", c.cfg.Tool, textFromContents(result.Content)))
	}

	text := textFromContents(result.Content)
	if text == "" {
		return domain.CandidateAnswer{}, domain.WrapError(domain.ErrFallbackUnavailable, "mcp web search",
			fmt.Errorf("tool %s returned no text content", c.cfg.Tool))
	}

	confidence := scoreAnswer(question, text, c.cfg.MaxConfidence)
	c.logger.Debug("web_search_completed",
		"answer_length", len(text),
		"confidence", confidence,
	)
	return domain.CandidateAnswer{
		Source:     domain.SourceWebSearch,
		Text:       text,
		Confidence: confidence,
	}, nil
}

func (c *Client) ensureSession(ctx context.Context) (*mcpclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		return c.session, nil
	}

	session, err := mcpclient.NewStreamableHttpClient(c.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("create mcp client: %w", err)
	}
	if err := session.Start(ctx); err != nil {
		return nil, fmt.Errorf("start mcp transport: %w", err)
	}

	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{Name: "mathrag", Version: "1.0.0"}
	if _, err := session.Initialize(ctx, initRequest); err != nil {
		session.Close()
		return nil, fmt.Errorf("initialize mcp session: %w", err)
	}

	c.logger.Info("mcp_session_established", "base_url", c.cfg.BaseURL, "tool", c.cfg.Tool)
	c.session = session
	return session, nil
}

// reset drops the cached session after a transport failure so the next
// call reconnects from scratch.
func (c *Client) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		c.session.Close()
		c.session = nil
	}
}

func (c *Client) Close() error {
	c.reset()
	return nil
}

func textFromContents(contents []mcp.Content) string {
	var parts []string
	for _, content := range contents {
		if tc, ok := content.(mcp.TextContent); ok {
			if text := strings.TrimSpace(tc.Text); text != "" {
				parts = append(parts, text)
			}
		}
	}
	return strings.Join(parts, "\n\n")
}
