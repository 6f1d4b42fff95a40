package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/mathrag-io/mathrag/internal/core/domain"
	"github.com/mathrag-io/mathrag/internal/core/ports"
)

// IngestorConfig tunes the bulk load.
type IngestorConfig struct {
	VectorSize  int
	Concurrency int
}

func (c IngestorConfig) normalize() IngestorConfig {
	out := c
	if out.VectorSize <= 0 {
		out.VectorSize = 384
	}
	if out.Concurrency <= 0 {
		out.Concurrency = 2
	}
	return out
}

// Ingestor batches a dataset, embeds each batch in one call, and upserts
// it into the vector store. Deterministic record identifiers make the
// whole run idempotent: re-ingesting an unchanged dataset overwrites
// points in place.
type Ingestor struct {
	embedder ports.Embedder
	vectorDB ports.VectorStore
	cfg      IngestorConfig
	logger   *slog.Logger
}

func NewIngestor(embedder ports.Embedder, vectorDB ports.VectorStore, cfg IngestorConfig, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		embedder: embedder,
		vectorDB: vectorDB,
		cfg:      cfg.normalize(),
		logger:   logger,
	}
}

type recordBatch struct {
	index   int
	records []domain.IngestionRecord
}

// Ingest runs the pipeline. A batch that fails after the adapter's retry
// budget is logged and skipped; the run continues. Only collection
// creation and dataset reading are fatal.
func (i *Ingestor) Ingest(ctx context.Context, source ports.DatasetSource, batchSize int) (domain.IngestionSummary, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	summary := domain.IngestionSummary{}

	if err := i.vectorDB.EnsureCollection(ctx, i.cfg.VectorSize); err != nil {
		return summary, fmt.Errorf("ensure collection: %w", err)
	}

	batches := make(chan recordBatch)
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		readErr error
	)

	for w := 0; w < i.cfg.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range batches {
				err := i.processBatch(ctx, batch)

				mu.Lock()
				if err != nil {
					summary.FailedBatches++
				} else {
					summary.Processed += len(batch.records)
				}
				mu.Unlock()

				if err != nil {
					i.logger.Error("ingest_batch_failed",
						"batch", batch.index,
						"records", len(batch.records),
						"error", err,
					)
					continue
				}
				i.logger.Info("ingest_batch_done", "batch", batch.index, "records", len(batch.records))
			}
		}()
	}

	readErr = i.produceBatches(ctx, source, batchSize, batches, &summary, &mu)
	close(batches)
	wg.Wait()

	if info, err := i.vectorDB.CollectionInfo(ctx); err == nil {
		summary.CollectionStatus = info.Status
		summary.PointCount = info.PointCount
	} else {
		i.logger.Warn("collection_info_failed", "error", err)
	}

	i.logger.Info("ingest_finished",
		"attempted", summary.Attempted,
		"processed", summary.Processed,
		"batches", summary.TotalBatches,
		"failed_batches", summary.FailedBatches,
	)

	if readErr != nil {
		return summary, fmt.Errorf("read dataset: %w", readErr)
	}
	return summary, nil
}

// produceBatches cuts the dataset stream into ordered, contiguous,
// fixed-size batches; the final batch may be shorter.
func (i *Ingestor) produceBatches(
	ctx context.Context,
	source ports.DatasetSource,
	batchSize int,
	batches chan<- recordBatch,
	summary *domain.IngestionSummary,
	mu *sync.Mutex,
) error {
	pending := make([]domain.IngestionRecord, 0, batchSize)
	index := 0

	flush := func() {
		if len(pending) == 0 {
			return
		}
		batch := recordBatch{index: index, records: pending}
		index++

		mu.Lock()
		summary.Attempted += len(pending)
		summary.TotalBatches++
		mu.Unlock()

		pending = make([]domain.IngestionRecord, 0, batchSize)
		batches <- batch
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		record, err := source.Next()
		if errors.Is(err, io.EOF) {
			flush()
			return nil
		}
		if err != nil {
			flush()
			return err
		}

		pending = append(pending, domain.NewIngestionRecord(record))
		if len(pending) == batchSize {
			flush()
		}
	}
}

func (i *Ingestor) processBatch(ctx context.Context, batch recordBatch) error {
	texts := make([]string, len(batch.records))
	for idx, record := range batch.records {
		texts[idx] = record.EmbeddingInput
	}

	vectors, err := i.embedder.Embed(ctx, texts)
	if err != nil {
		return domain.WrapError(domain.ErrIngestionBatch, "embed batch", err)
	}
	if len(vectors) != len(texts) {
		return domain.WrapError(domain.ErrIngestionBatch, "embed batch",
			fmt.Errorf("vectors/records mismatch: %d/%d", len(vectors), len(texts)))
	}

	if err := i.vectorDB.Upsert(ctx, batch.records, vectors); err != nil {
		return domain.WrapError(domain.ErrIngestionBatch, "upsert batch", err)
	}
	return nil
}
