// worker runs the URL worker and repeat-URL planner control loops against
// the shared Postgres store, and serves metrics/health on a separate port.
// Run: go run ./cmd/worker
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PythonCoderAS/wayback-archiver-go/config"
	"github.com/PythonCoderAS/wayback-archiver-go/internal/archival"
	"github.com/PythonCoderAS/wayback-archiver-go/internal/health"
	"github.com/PythonCoderAS/wayback-archiver-go/internal/infrastructure/postgres"
	ctxlog "github.com/PythonCoderAS/wayback-archiver-go/internal/log"
	"github.com/PythonCoderAS/wayback-archiver-go/internal/metrics"
	"github.com/PythonCoderAS/wayback-archiver-go/internal/planner"
	"github.com/PythonCoderAS/wayback-archiver-go/internal/supervisor"
	"github.com/PythonCoderAS/wayback-archiver-go/internal/worker"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	logger.Info("db connected")

	metrics.Register()
	checker := health.NewChecker(pool, logger, prometheus.DefaultRegisterer)

	jobRepo := postgres.NewJobRepository(pool)
	urlRepo := postgres.NewURLRepository(pool)
	batchRepo := postgres.NewBatchRepository(pool)
	repeatURLRepo := postgres.NewRepeatURLRepository(pool)

	client := archival.NewClient(cfg.ArchiveBaseURL, time.Duration(cfg.ArchiveRequestTimeoutSec)*time.Second)

	urlWorker := worker.NewURLWorker(
		jobRepo, urlRepo, client, logger,
		time.Duration(cfg.WorkerPollIntervalSec)*time.Second,
		time.Duration(cfg.MinCaptureIntervalSec)*time.Second,
		cfg.MaxCaptureAttempts, cfg.MaxJobRetries,
	)

	repeatPlanner := planner.New(
		repeatURLRepo, batchRepo, jobRepo, urlRepo, logger,
		time.Duration(cfg.MetaBatchWindowMinutes)*time.Minute,
	)

	sup, err := supervisor.New(urlWorker, repeatPlanner, cfg.PlannerTickSec, logger)
	if err != nil {
		stop()
		log.Fatalf("supervisor: %v", err)
	}
	supDone := make(chan struct{})
	go func() {
		defer close(supDone)
		sup.Run(ctx)
	}()

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)
	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}

	// Wait for the worker/planner loops to finish their in-flight queries
	// before the deferred pool.Close() runs on return.
	<-supDone

	logger.Info("worker shut down")
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
