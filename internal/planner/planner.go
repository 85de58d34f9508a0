// Package planner implements the repeat-URL planner loop (spec §4.4).
package planner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/PythonCoderAS/wayback-archiver-go/internal/domain"
	"github.com/PythonCoderAS/wayback-archiver-go/internal/metrics"
	"github.com/PythonCoderAS/wayback-archiver-go/internal/repository"
)

// repeatPriority is the fixed priority assigned to jobs the planner creates,
// per spec §4.4 step 5.
const repeatPriority = 10

// Planner expands active RepeatURLs into new jobs once per tick. It is
// driven externally by a robfig/cron @every entry rather than owning its
// own ticker — this domain has no user-authored cron expressions, so cron
// here plays the role of a plain fixed-interval timer.
type Planner struct {
	repeatURLs repository.RepeatURLRepository
	batches    repository.BatchRepository
	jobs       repository.JobRepository
	urls       repository.URLRepository
	logger     *slog.Logger
	window     time.Duration

	mu          sync.Mutex
	metaBatchID int64
	metaSince   time.Time
}

func New(
	repeatURLs repository.RepeatURLRepository,
	batches repository.BatchRepository,
	jobs repository.JobRepository,
	urls repository.URLRepository,
	logger *slog.Logger,
	metaBatchWindow time.Duration,
) *Planner {
	return &Planner{
		repeatURLs: repeatURLs,
		batches:    batches,
		jobs:       jobs,
		urls:       urls,
		logger:     logger.With("component", "planner"),
		window:     metaBatchWindow,
	}
}

// Tick runs one planner iteration. It is safe to call concurrently, though
// the cron-driven supervisor calls it from a single goroutine in practice.
func (p *Planner) Tick(ctx context.Context) {
	start := time.Now()
	defer func() { metrics.PlannerTickDuration.Observe(time.Since(start).Seconds()) }()

	now := time.Now().UTC()

	active, err := p.repeatURLs.ListActive(ctx, now)
	if err != nil {
		p.logger.ErrorContext(ctx, "list active repeat urls failed", "error", err)
		return
	}
	if len(active) == 0 {
		return
	}

	candidates := make([]string, 0, len(active))
	for _, r := range active {
		candidates = append(candidates, r.URL)
	}
	inFlight, err := p.jobs.InFlightURLs(ctx, candidates)
	if err != nil {
		p.logger.ErrorContext(ctx, "load in-flight urls failed", "error", err)
		return
	}

	metaBatchID, err := p.currentMetaBatch(ctx, now)
	if err != nil {
		p.logger.ErrorContext(ctx, "allocate meta-batch failed", "error", err)
		return
	}

	byBatch := map[int64][]int64{}
	for _, r := range active {
		if inFlight[r.URL] {
			metrics.PlannerSkippedInFlightTotal.Inc()
			continue
		}

		u, err := p.urls.GetByID(ctx, r.URLID)
		if err != nil {
			p.logger.ErrorContext(ctx, "load repeat url failed", "repeat_url_id", r.ID, "error", err)
			continue
		}
		if !dueForRecapture(u, r, now) {
			continue
		}

		byBatch[r.BatchID] = append(byBatch[r.BatchID], r.URLID)
	}

	if len(byBatch) == 0 {
		return
	}

	// One CreateMany call per lineage batch, each linking its jobs to both
	// the meta-batch and the repeater's own batch inside a single
	// transaction (spec §4.4 step 6) — a failure partway through leaves
	// earlier lineage batches fully linked rather than orphaning jobs that
	// exist but are missing their lineage-batch membership.
	var total int
	for batchID, urlIDs := range byBatch {
		created, err := p.jobs.CreateMany(ctx, urlIDs, repeatPriority, metaBatchID, batchID)
		if err != nil {
			p.logger.ErrorContext(ctx, "create repeat jobs failed", "batch_id", batchID, "error", err)
			continue
		}
		total += len(created)
	}

	metrics.PlannerExpansionsTotal.Add(float64(total))
	p.logger.InfoContext(ctx, "planner tick expanded repeat urls", "count", total)
}

// dueForRecapture implements the last_seen half of spec §4.4 step 5's
// eligibility test (the in-flight half is checked by the caller).
func dueForRecapture(u *domain.URL, r *domain.RepeatURL, now time.Time) bool {
	if u.LastSeen == nil {
		return true
	}
	return u.LastSeen.Add(time.Duration(r.Interval) * time.Second).Before(now)
}

// currentMetaBatch returns the id of the meta-batch jobs created this tick
// should join, creating a fresh one if none is carried yet or the carried
// one has aged past the configured window (spec §4.4 step 4).
func (p *Planner) currentMetaBatch(ctx context.Context, now time.Time) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.metaBatchID != 0 && now.Sub(p.metaSince) < p.window {
		return p.metaBatchID, nil
	}

	b, err := p.batches.Create(ctx, nil)
	if err != nil {
		return 0, err
	}
	p.metaBatchID = b.ID
	p.metaSince = now
	return p.metaBatchID, nil
}
