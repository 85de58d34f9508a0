// server runs the collaborator HTTP surface: operator auth, batch/repeat-url
// submission, and read-only job/batch/stats queries.
// Run: go run ./cmd/server
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
	"github.com/PythonCoderAS/wayback-archiver-go/internal/email"
	"github.com/PythonCoderAS/wayback-archiver-go/internal/enqueue"
	"github.com/PythonCoderAS/wayback-archiver-go/internal/health"
	"github.com/PythonCoderAS/wayback-archiver-go/internal/infrastructure/postgres"
	ctxlog "github.com/PythonCoderAS/wayback-archiver-go/internal/log"
	"github.com/PythonCoderAS/wayback-archiver-go/internal/metrics"
	"github.com/PythonCoderAS/wayback-archiver-go/internal/query"
	httptransport "github.com/PythonCoderAS/wayback-archiver-go/internal/transport/http"
	"github.com/PythonCoderAS/wayback-archiver-go/internal/transport/http/handler"
	"github.com/PythonCoderAS/wayback-archiver-go/internal/usecase"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	urlRepo := postgres.NewURLRepository(pool)
	batchRepo := postgres.NewBatchRepository(pool)
	jobRepo := postgres.NewJobRepository(pool)
	repeatURLRepo := postgres.NewRepeatURLRepository(pool)
	statsRepo := postgres.NewStatsRepository(pool)
	operatorRepo := postgres.NewOperatorRepository(pool)

	enqueueSvc := enqueue.New(urlRepo, batchRepo, jobRepo, repeatURLRepo)
	enqueueHandler := handler.NewEnqueueHandler(enqueueSvc, logger)

	querySvc := query.New(jobRepo, batchRepo, repeatURLRepo, statsRepo, time.Duration(cfg.MinCaptureIntervalSec)*time.Second)
	queryHandler := handler.NewQueryHandler(querySvc, logger)

	emailSender := email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger)
	authUsecase := usecase.NewAuthUsecase(operatorRepo, emailSender, []byte(cfg.JWTSecret), cfg.MagicLinkBase)
	authHandler := handler.NewAuthHandler(authUsecase, logger)

	metrics.Register()
	checker := health.NewChecker(pool, logger, prometheus.DefaultRegisterer)

	srv := http.Server{
		Addr:    ":" + cfg.Port,
		Handler: httptransport.NewRouter(enqueueHandler, queryHandler, authHandler, []byte(cfg.JWTSecret), logger),
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
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
