// Package worker drives the single-consumer URL worker loop (spec §4.3).
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/PythonCoderAS/wayback-archiver-go/internal/archival"
	"github.com/PythonCoderAS/wayback-archiver-go/internal/domain"
	"github.com/PythonCoderAS/wayback-archiver-go/internal/metrics"
	"github.com/PythonCoderAS/wayback-archiver-go/internal/repository"
)

// URLWorker selects one runnable job at a time, drives it to a terminal or
// delayed state, then repeats. Grounded on the teacher's scheduler.Worker /
// scheduler.Executor split, reduced to the single-consumer model spec §4.3
// and §5 require — there is no per-batch goroutine fan-out here.
type URLWorker struct {
	jobs         repository.JobRepository
	urls         repository.URLRepository
	client       *archival.Client
	logger       *slog.Logger
	pollInterval time.Duration
	minInterval  time.Duration
	maxAttempts  int
	maxRetries   int
}

func NewURLWorker(
	jobs repository.JobRepository,
	urls repository.URLRepository,
	client *archival.Client,
	logger *slog.Logger,
	pollInterval, minInterval time.Duration,
	maxAttempts, maxRetries int,
) *URLWorker {
	return &URLWorker{
		jobs:         jobs,
		urls:         urls,
		client:       client,
		logger:       logger.With("component", "url_worker"),
		pollInterval: pollInterval,
		minInterval:  minInterval,
		maxAttempts:  maxAttempts,
		maxRetries:   maxRetries,
	}
}

// Run blocks until ctx is cancelled, polling for runnable jobs once at
// start and then on pollInterval, processing one at a time.
func (w *URLWorker) Run(ctx context.Context) {
	metrics.WorkerStartTime.SetToCurrentTime()
	w.logger.Info("url worker started", "poll_interval", w.pollInterval)

	w.tick(ctx)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			metrics.WorkerShutdownsTotal.Inc()
			w.logger.Info("url worker shut down")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *URLWorker) tick(ctx context.Context) {
	now := time.Now().UTC()

	job, err := w.jobs.SelectNext(ctx, now)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			if count, err := w.jobs.CountPending(ctx); err != nil {
				w.logger.ErrorContext(ctx, "count pending jobs failed", "error", err)
			} else {
				metrics.QueueDepth.Set(float64(count))
			}
			return
		}
		w.logger.ErrorContext(ctx, "select next job failed", "error", err)
		return
	}

	metrics.JobPickupLatency.Observe(now.Sub(job.CreatedAt).Seconds())
	metrics.JobsInFlight.Set(1)
	defer metrics.JobsInFlight.Set(0)

	url, err := w.urls.GetByID(ctx, job.URLID)
	if err != nil {
		w.logger.ErrorContext(ctx, "load job url failed", "job_id", job.ID, "error", err)
		return
	}

	// Per-URL cooldown (spec §4.3 step 4): short-circuit duplicate captures
	// and respect the archive service's politeness requirement.
	if url.LastSeen != nil {
		if readyAt := url.LastSeen.Add(w.minInterval); readyAt.After(now) {
			if err := w.jobs.DeferUntil(ctx, job.ID, readyAt); err != nil {
				w.logger.ErrorContext(ctx, "defer job failed", "job_id", job.ID, "error", err)
			}
			return
		}
	}

	w.processJob(ctx, job, now)
}

func (w *URLWorker) processJob(ctx context.Context, job *domain.Job, now time.Time) {
	logger := w.logger.With("job_id", job.ID, "url", job.URL)

	var capturedAt time.Time
	var captureErr error
	for attempt := 0; attempt < w.maxAttempts; attempt++ {
		capturedAt, captureErr = w.client.Capture(ctx, job.URL)
		if captureErr == nil {
			break
		}
		logger.WarnContext(ctx, "capture attempt failed", "attempt", attempt, "error", captureErr)

		if attempt < w.maxAttempts-1 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(captureBackoff(attempt)):
			}
		}
	}

	if captureErr == nil {
		metrics.CaptureDuration.WithLabelValues("success").Observe(time.Since(now).Seconds())
		if err := w.jobs.Complete(ctx, job.ID, job.URLID, capturedAt); err != nil {
			logger.ErrorContext(ctx, "complete job failed", "error", err)
			return
		}
		metrics.JobsCompletedTotal.WithLabelValues("completed").Inc()
		logger.InfoContext(ctx, "job completed", "captured_at", capturedAt)
		return
	}

	metrics.CaptureDuration.WithLabelValues("error").Observe(time.Since(now).Seconds())

	if job.Retry < w.maxRetries {
		delayedUntil := now.Add(w.minInterval)
		if err := w.jobs.IncrementRetry(ctx, job.ID, delayedUntil); err != nil {
			logger.ErrorContext(ctx, "increment retry failed", "error", err)
			return
		}
		logger.InfoContext(ctx, "job retry scheduled", "retry", job.Retry+1, "delayed_until", delayedUntil)
		return
	}

	if err := w.jobs.Fail(ctx, job.ID, now); err != nil {
		logger.ErrorContext(ctx, "fail job failed", "error", err)
		return
	}
	metrics.JobsCompletedTotal.WithLabelValues("failed").Inc()
	logger.InfoContext(ctx, "job permanently failed")
}
