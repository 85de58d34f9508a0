package domain

import (
	"errors"
	"time"
)

var ErrJobNotFound = errors.New("job not found")

// MaxRetries is the highest value job.retry may reach (spec §3: retry ∈
// [0,4]) before a job's next exhausted attempt batch marks it permanently
// failed instead of rescheduling it.
const MaxRetries = 4

// MaxCaptureAttempts is how many times the worker calls the archival client
// for a single selection of a job before giving up on that batch of
// attempts and either incrementing retry or failing the job.
const MaxCaptureAttempts = 5

// Job is one request to archive a URL. At most one of Completed/Failed is
// ever non-nil. While both are nil the job is pending; it is runnable when
// DelayedUntil is nil or has passed. Transitions are one-way: pending ->
// (pending with incremented retry)* -> completed | failed.
type Job struct {
	ID           int64
	URLID        int64
	URL          string // denormalized for callers that load the job with its URL joined
	CreatedAt    time.Time
	Priority     int
	Retry        int
	Completed    *time.Time
	Failed       *time.Time
	DelayedUntil *time.Time
}

// Pending reports whether the job has not yet reached a terminal state.
func (j *Job) Pending() bool {
	return j.Completed == nil && j.Failed == nil
}

// Runnable reports whether a pending job may be selected at instant now.
func (j *Job) Runnable(now time.Time) bool {
	return j.Pending() && (j.DelayedUntil == nil || !j.DelayedUntil.After(now))
}
