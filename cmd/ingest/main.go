package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/mathrag-io/mathrag/internal/bootstrap"
	"github.com/mathrag-io/mathrag/internal/config"
	"github.com/mathrag-io/mathrag/internal/core/ports"
	"github.com/mathrag-io/mathrag/internal/infrastructure/dataset/jsonl"
	"github.com/mathrag-io/mathrag/internal/infrastructure/dataset/xlsx"
	"github.com/mathrag-io/mathrag/internal/observability/logging"
)

func main() {
	var (
		file   = flag.String("file", "", "dataset file to ingest")
		format = flag.String("format", "", "dataset format: jsonl or xlsx (default: by file extension)")
		batch  = flag.Int("batch", 0, "records per embedding batch (default: INGEST_BATCH_SIZE)")
	)
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	logger := logging.NewJSONLogger("ingest", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewIngest(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}

	source, err := openSource(*file, *format)
	if err != nil {
		log.Fatalf("open dataset: %v", err)
	}
	defer source.Close()

	batchSize := *batch
	if batchSize <= 0 {
		batchSize = cfg.IngestBatchSize
	}

	summary, err := app.Ingestor.Ingest(ctx, source, batchSize)
	if err != nil {
		log.Fatalf("ingest error: %v", err)
	}

	logger.Info("ingest_complete",
		"attempted", summary.Attempted,
		"processed", summary.Processed,
		"total_batches", summary.TotalBatches,
		"failed_batches", summary.FailedBatches,
		"collection_status", summary.CollectionStatus,
		"point_count", summary.PointCount)
	if summary.FailedBatches > 0 {
		os.Exit(1)
	}
}

func openSource(path, format string) (ports.DatasetSource, error) {
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(path), ".")
	}
	switch strings.ToLower(format) {
	case "jsonl", "json":
		return jsonl.Open(path)
	case "xlsx":
		return xlsx.Open(path)
	default:
		return nil, fmt.Errorf("unsupported dataset format %q", format)
	}
}
