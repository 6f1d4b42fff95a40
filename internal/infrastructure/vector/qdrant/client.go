package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/qdrant/go-client/qdrant"

	"github.com/mathrag-io/mathrag/internal/core/domain"
	"github.com/mathrag-io/mathrag/internal/core/ports"
	"github.com/mathrag-io/mathrag/internal/infrastructure/resilience"
)

const defaultCollection = "math_problems"

type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

func (c Config) normalize() Config {
	out := c
	out.Host = strings.TrimSpace(out.Host)
	if out.Host == "" {
		out.Host = "localhost"
	}
	if out.Port <= 0 {
		out.Port = 6334
	}
	out.Collection = strings.TrimSpace(out.Collection)
	if out.Collection == "" {
		out.Collection = defaultCollection
	}
	return out
}

// Client stores and retrieves solved problems in a Qdrant collection
// over gRPC. Point identity comes from the caller, so re-upserting the
// same record overwrites instead of duplicating.
type Client struct {
	api        *qdrant.Client
	collection string
	executor   *resilience.Executor
	logger     *slog.Logger
}

var _ ports.VectorStore = (*Client)(nil)

func NewClient(cfg Config, executor *resilience.Executor, logger *slog.Logger) (*Client, error) {
	cfg = cfg.normalize()
	if executor == nil {
		return nil, fmt.Errorf("qdrant: executor is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	api, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfig, "qdrant connect", err)
	}

	return &Client{
		api:        api,
		collection: cfg.Collection,
		executor:   executor,
		logger:     logger,
	}, nil
}

func (c *Client) Close() error {
	return c.api.Close()
}

// EnsureCollection creates the collection when absent and leaves an
// existing one untouched, so startup and re-ingestion are both safe.
func (c *Client) EnsureCollection(ctx context.Context, vectorSize int) error {
	if vectorSize <= 0 {
		return domain.WrapError(domain.ErrValidation, "qdrant ensure collection",
			fmt.Errorf("vector size must be positive, got %d", vectorSize))
	}

	err := c.executor.Execute(ctx, "qdrant.ensure_collection", func(ctx context.Context) error {
		exists, err := c.api.CollectionExists(ctx, c.collection)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		c.logger.Info("creating_collection", "collection", c.collection, "vector_size", vectorSize)
		return c.api.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: c.collection,
			VectorsConfig: &qdrant.VectorsConfig{
				Config: &qdrant.VectorsConfig_Params{
					Params: &qdrant.VectorParams{
						Size:     uint64(vectorSize),
						Distance: qdrant.Distance_Cosine,
					},
				},
			},
		})
	}, classifyGRPCError)
	if err != nil {
		return domain.WrapError(domain.ErrRetrieval, "qdrant ensure collection", err)
	}
	return nil
}

func (c *Client) Upsert(ctx context.Context, records []domain.IngestionRecord, vectors [][]float32) error {
	if len(records) != len(vectors) {
		return domain.WrapError(domain.ErrValidation, "qdrant upsert",
			fmt.Errorf("record count %d does not match vector count %d", len(records), len(vectors)))
	}
	if len(records) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(records))
	for i, rec := range records {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(rec.ID),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"problem":  rec.Problem,
				"solution": rec.Solution,
				"source":   rec.Source,
			}),
		}
	}

	err := c.executor.Execute(ctx, "qdrant.upsert", func(ctx context.Context) error {
		_, err := c.api.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: c.collection,
			Points:         points,
		})
		return err
	}, classifyGRPCError)
	if err != nil {
		return domain.WrapError(domain.ErrRetrieval, "qdrant upsert", err)
	}
	return nil
}

func (c *Client) Search(ctx context.Context, queryVector []float32, limit int) ([]domain.CandidateAnswer, error) {
	if len(queryVector) == 0 {
		return nil, domain.WrapError(domain.ErrValidation, "qdrant search", fmt.Errorf("query vector is empty"))
	}
	if limit <= 0 {
		limit = 5
	}

	var points []*qdrant.ScoredPoint
	err := c.executor.Execute(ctx, "qdrant.search", func(ctx context.Context) error {
		max := uint64(limit)
		resp, err := c.api.Query(ctx, &qdrant.QueryPoints{
			CollectionName: c.collection,
			Query:          qdrant.NewQuery(queryVector...),
			Limit:          &max,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return err
		}
		points = resp
		return nil
	}, classifyGRPCError)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrieval, "qdrant search", err)
	}

	candidates := make([]domain.CandidateAnswer, 0, len(points))
	for i, point := range points {
		candidates = append(candidates, candidateFromPoint(point, i))
	}
	return candidates, nil
}

func (c *Client) CollectionInfo(ctx context.Context) (domain.CollectionInfo, error) {
	var info domain.CollectionInfo
	err := c.executor.Execute(ctx, "qdrant.collection_info", func(ctx context.Context) error {
		resp, err := c.api.GetCollectionInfo(ctx, c.collection)
		if err != nil {
			return err
		}
		info.Status = resp.GetStatus().String()
		info.PointCount = resp.GetPointsCount()
		return nil
	}, classifyGRPCError)
	if err != nil {
		return domain.CollectionInfo{}, domain.WrapError(domain.ErrRetrieval, "qdrant collection info", err)
	}
	return info, nil
}

func candidateFromPoint(point *qdrant.ScoredPoint, rank int) domain.CandidateAnswer {
	candidate := domain.CandidateAnswer{
		Source:     domain.SourceKnowledgeBase,
		Confidence: float64(point.GetScore()),
		Rank:       rank,
	}
	payload := point.GetPayload()
	if payload == nil {
		return candidate
	}
	if v, ok := payload["solution"]; ok {
		candidate.Text = v.GetStringValue()
	}
	if v, ok := payload["problem"]; ok {
		candidate.Problem = v.GetStringValue()
	}
	return candidate
}
