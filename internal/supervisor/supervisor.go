// Package supervisor implements the worker process lifecycle (spec §4.5):
// launching the URL worker and repeat-URL planner, and tearing both down
// cleanly on shutdown. Shared resources (the pool, the archival client) are
// opened and closed by the caller, cmd/worker.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/PythonCoderAS/wayback-archiver-go/internal/planner"
	"github.com/PythonCoderAS/wayback-archiver-go/internal/worker"
	"github.com/robfig/cron/v3"
)

// Supervisor owns the URL worker goroutine and the cron entry driving the
// repeat-URL planner. Cron here plays the role of a fixed-interval timer
// (an "@every Ns" entry) — this domain has no user-authored schedules for
// cron to dispatch, unlike the teacher's per-user ScheduleRepository.
type Supervisor struct {
	worker  *worker.URLWorker
	planner *planner.Planner
	cron    *cron.Cron
	logger  *slog.Logger
}

func New(urlWorker *worker.URLWorker, repeatPlanner *planner.Planner, plannerTickSec int, logger *slog.Logger) (*Supervisor, error) {
	c := cron.New()
	spec := fmt.Sprintf("@every %ds", plannerTickSec)
	if _, err := c.AddFunc(spec, func() { repeatPlanner.Tick(context.Background()) }); err != nil {
		return nil, fmt.Errorf("schedule planner tick: %w", err)
	}

	return &Supervisor{
		worker:  urlWorker,
		planner: repeatPlanner,
		cron:    c,
		logger:  logger.With("component", "supervisor"),
	}, nil
}

// Run launches the URL worker and the planner's cron entry, then blocks
// until ctx is cancelled. On cancellation it stops the cron scheduler and
// waits for the worker loop to exit before returning — per spec §4.5,
// supervisor policy on an uncaught task failure is log + propagate, never
// automatic restart.
func (s *Supervisor) Run(ctx context.Context) {
	s.logger.Info("supervisor starting")

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		s.worker.Run(ctx)
	}()

	s.cron.Start()

	<-ctx.Done()
	s.logger.Info("supervisor stopping")

	cronCtx := s.cron.Stop()
	<-cronCtx.Done()

	<-workerDone
	s.logger.Info("supervisor stopped")
}
