package repository

import (
	"context"
	"time"

	"github.com/PythonCoderAS/wayback-archiver-go/internal/domain"
)

type ListJobsInput struct {
	Status     string // "", "pending", "completed", "failed"
	BatchID    int64  // 0 means unfiltered
	CursorTime *time.Time
	CursorID   int64
	Limit      int
}

// JobRepository backs both the enqueue service and the URL worker's
// scheduler loop.
type JobRepository interface {
	// CreateMany inserts one job per (urlID, priority) pair and links each
	// to every batch ID in batchIDs. One transaction for the whole call.
	CreateMany(ctx context.Context, urlIDs []int64, priority int, batchIDs ...int64) ([]*domain.Job, error)

	GetByID(ctx context.Context, id int64) (*domain.Job, error)
	List(ctx context.Context, input ListJobsInput) ([]*domain.Job, error)

	// SelectNext returns the highest-ranked runnable job at instant now,
	// with its URL loaded, per spec §4.3 step 2's ordering. Returns
	// domain.ErrJobNotFound if none is runnable.
	SelectNext(ctx context.Context, now time.Time) (*domain.Job, error)

	// DeferUntil sets delayed_until without touching retry — used for the
	// per-URL cooldown check (spec §4.3 step 4).
	DeferUntil(ctx context.Context, jobID int64, delayedUntil time.Time) error

	// Complete marks the job (and its URL's last_seen) with capturedAt in
	// one transaction — spec §4.3 step 5 success path.
	Complete(ctx context.Context, jobID, urlID int64, capturedAt time.Time) error

	// IncrementRetry bumps retry by one and sets delayed_until — spec
	// §4.3 step 6, retry < 4 branch.
	IncrementRetry(ctx context.Context, jobID int64, delayedUntil time.Time) error

	// Fail marks the job permanently failed — spec §4.3 step 6, retry == 4
	// branch.
	Fail(ctx context.Context, jobID int64, failedAt time.Time) error

	// InFlightURLs returns the subset of the given URL strings that
	// currently have at least one pending job — the repeat-URL planner's
	// in-flight dedup set (spec §4.4 step 3).
	InFlightURLs(ctx context.Context, urls []string) (map[string]bool, error)

	// CountPending returns the number of jobs that are not yet completed or
	// failed, regardless of delayed_until — the worker's idle-poll path uses
	// this to report queue depth.
	CountPending(ctx context.Context) (int, error)
}
