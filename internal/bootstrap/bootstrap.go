// Package bootstrap wires configuration, adapters and use cases into
// runnable applications. Each binary picks the constructor matching its
// role so the ingest tool never touches Postgres or NATS.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mathrag-io/mathrag/internal/config"
	"github.com/mathrag-io/mathrag/internal/core/ports"
	"github.com/mathrag-io/mathrag/internal/core/usecase"
	"github.com/mathrag-io/mathrag/internal/infrastructure/embedding/ollama"
	"github.com/mathrag-io/mathrag/internal/infrastructure/guard"
	"github.com/mathrag-io/mathrag/internal/infrastructure/llm/gemini"
	"github.com/mathrag-io/mathrag/internal/infrastructure/queue/nats"
	"github.com/mathrag-io/mathrag/internal/infrastructure/repository/postgres"
	"github.com/mathrag-io/mathrag/internal/infrastructure/resilience"
	"github.com/mathrag-io/mathrag/internal/infrastructure/vector/qdrant"
	"github.com/mathrag-io/mathrag/internal/infrastructure/websearch/mcp"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Resolver *usecase.Resolver
	Intake   *usecase.FeedbackUseCase
	Ingestor *usecase.Ingestor
	Queue    *nats.Queue
	Store    *postgres.FeedbackRepository
	VectorDB *qdrant.Client
	Guard    *guard.Guard

	closeFn func()
}

// New builds the online application shared by the API server and the
// feedback worker.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.ValidateOnline(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	executor := resilience.NewExecutor(resilience.OnlineConfig(), logger)

	vectorDB, err := qdrant.NewClient(qdrant.Config{
		Host:       cfg.QdrantHost,
		Port:       cfg.QdrantPort,
		APIKey:     cfg.QdrantAPIKey,
		UseTLS:     cfg.QdrantUseTLS,
		Collection: cfg.QdrantCollection,
	}, executor, logger)
	if err != nil {
		return nil, fmt.Errorf("init vector store: %w", err)
	}

	embedder := ollama.NewEmbedder(cfg.OllamaURL, cfg.OllamaEmbedModel, executor)

	var generator ports.SolutionGenerator
	if cfg.GeminiEnabled {
		generator = gemini.NewGenerator(gemini.Config{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
		}, executor)
	}

	var web ports.WebSearcher
	if cfg.WebSearchURL != "" {
		client, err := mcp.NewClient(mcp.Config{
			BaseURL:       cfg.WebSearchURL,
			Tool:          cfg.WebSearchTool,
			MaxConfidence: cfg.WebSearchMaxConfidence,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("init web search: %w", err)
		}
		web = client
	}
	if cfg.WebSearchForeclosed() {
		logger.Warn("web_search_foreclosed",
			"max_confidence", cfg.WebSearchMaxConfidence,
			"threshold", cfg.ResolveConfidenceThreshold)
	}

	g, err := buildGuard(cfg, logger)
	if err != nil {
		return nil, err
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	store := postgres.NewFeedbackRepository(db)
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init feedback queue: %w", err)
	}

	resolver := usecase.NewResolver(embedder, vectorDB, web, generator, usecase.ResolverConfig{
		TopK:          cfg.ResolveTopK,
		Threshold:     cfg.ResolveConfidenceThreshold,
		MaxSupporting: cfg.ResolveMaxSupporting,
	}, logger)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Resolver: resolver,
		Intake:   usecase.NewFeedbackUseCase(queue, logger),
		Queue:    queue,
		Store:    store,
		VectorDB: vectorDB,
		Guard:    g,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

// NewIngest builds the offline bulk-load application. It connects only
// to the embedding service and the vector store.
func NewIngest(_ context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	executor := resilience.NewExecutor(resilience.IngestConfig(), logger)

	vectorDB, err := qdrant.NewClient(qdrant.Config{
		Host:       cfg.QdrantHost,
		Port:       cfg.QdrantPort,
		APIKey:     cfg.QdrantAPIKey,
		UseTLS:     cfg.QdrantUseTLS,
		Collection: cfg.QdrantCollection,
	}, executor, logger)
	if err != nil {
		return nil, fmt.Errorf("init vector store: %w", err)
	}

	embedder := ollama.NewEmbedder(cfg.OllamaURL, cfg.OllamaEmbedModel, executor)

	ingestor := usecase.NewIngestor(embedder, vectorDB, usecase.IngestorConfig{
		VectorSize:  cfg.IngestVectorSize,
		Concurrency: cfg.IngestConcurrency,
	}, logger)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Ingestor: ingestor,
		VectorDB: vectorDB,
	}, nil
}

func buildGuard(cfg config.Config, logger *slog.Logger) (*guard.Guard, error) {
	if cfg.GuardRulesPath == "" {
		return guard.New(logger), nil
	}
	g, err := guard.NewFromFile(cfg.GuardRulesPath, logger)
	if err != nil {
		return nil, fmt.Errorf("load guard rules: %w", err)
	}
	return g, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
