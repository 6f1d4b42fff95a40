package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mathrag-io/mathrag/internal/bootstrap"
	"github.com/mathrag-io/mathrag/internal/config"
	"github.com/mathrag-io/mathrag/internal/core/domain"
	"github.com/mathrag-io/mathrag/internal/observability/logging"
	"github.com/mathrag-io/mathrag/internal/observability/metrics"
)

const persistTimeout = 30 * time.Second

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics_server_error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeFeedback(ctx, func(handlerCtx context.Context, fb domain.Feedback) error {
		workerMetrics.StartFeedback()
		start := time.Now()
		workerMetrics.ObserveQueueLag("worker", start.Sub(fb.ReceivedAt))

		persistCtx, cancel := context.WithTimeout(handlerCtx, persistTimeout)
		defer cancel()
		saveErr := app.Store.SaveFeedback(persistCtx, fb)
		workerMetrics.FinishFeedback("worker", time.Since(start), saveErr)
		return saveErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
