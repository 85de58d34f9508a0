package worker_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/PythonCoderAS/wayback-archiver-go/internal/archival"
	"github.com/PythonCoderAS/wayback-archiver-go/internal/domain"
	"github.com/PythonCoderAS/wayback-archiver-go/internal/repository"
	"github.com/PythonCoderAS/wayback-archiver-go/internal/worker"
)

// ---- fakes ----

type fakeJobRepo struct {
	mu sync.Mutex

	selectNext     func(ctx context.Context, now time.Time) (*domain.Job, error)
	deferUntil     func(ctx context.Context, jobID int64, delayedUntil time.Time) error
	complete       func(ctx context.Context, jobID, urlID int64, capturedAt time.Time) error
	incrementRetry func(ctx context.Context, jobID int64, delayedUntil time.Time) error
	fail           func(ctx context.Context, jobID int64, failedAt time.Time) error
	countPending   func(ctx context.Context) (int, error)
}

func (r *fakeJobRepo) CreateMany(context.Context, []int64, int, ...int64) ([]*domain.Job, error) {
	return nil, nil
}
func (r *fakeJobRepo) GetByID(context.Context, int64) (*domain.Job, error) { return nil, nil }
func (r *fakeJobRepo) List(context.Context, repository.ListJobsInput) ([]*domain.Job, error) {
	return nil, nil
}
func (r *fakeJobRepo) SelectNext(ctx context.Context, now time.Time) (*domain.Job, error) {
	return r.selectNext(ctx, now)
}
func (r *fakeJobRepo) DeferUntil(ctx context.Context, jobID int64, delayedUntil time.Time) error {
	return r.deferUntil(ctx, jobID, delayedUntil)
}
func (r *fakeJobRepo) Complete(ctx context.Context, jobID, urlID int64, capturedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.complete(ctx, jobID, urlID, capturedAt)
}
func (r *fakeJobRepo) IncrementRetry(ctx context.Context, jobID int64, delayedUntil time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.incrementRetry(ctx, jobID, delayedUntil)
}
func (r *fakeJobRepo) Fail(ctx context.Context, jobID int64, failedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fail(ctx, jobID, failedAt)
}
func (r *fakeJobRepo) InFlightURLs(context.Context, []string) (map[string]bool, error) {
	return nil, nil
}
func (r *fakeJobRepo) CountPending(ctx context.Context) (int, error) {
	if r.countPending == nil {
		return 0, nil
	}
	return r.countPending(ctx)
}

type fakeURLRepo struct {
	getByID func(ctx context.Context, id int64) (*domain.URL, error)
}

func (r *fakeURLRepo) Upsert(context.Context, []string) (map[string]int64, error) { return nil, nil }
func (r *fakeURLRepo) GetByID(ctx context.Context, id int64) (*domain.URL, error) {
	return r.getByID(ctx, id)
}
func (r *fakeURLRepo) GetByURL(context.Context, string) (*domain.URL, error) { return nil, nil }

// ---- helpers ----

var testLogger = slog.New(slog.NewTextHandler(nil, &slog.HandlerOptions{Level: slog.LevelError + 1}))

func newWorker(jobs *fakeJobRepo, urls *fakeURLRepo, client *archival.Client) *worker.URLWorker {
	return worker.NewURLWorker(jobs, urls, client, testLogger, time.Second, time.Hour, 5, 4)
}

// ---- tests ----

func TestTick_NoRunnableJob_NoOp(t *testing.T) {
	jobs := &fakeJobRepo{
		selectNext: func(context.Context, time.Time) (*domain.Job, error) {
			return nil, domain.ErrJobNotFound
		},
	}
	urls := &fakeURLRepo{}
	w := newWorker(jobs, urls, archival.NewClient("http://unused/", time.Second))
	w.Run(cancelledCtx())
}

func TestTick_NoRunnableJob_ReportsQueueDepth(t *testing.T) {
	var counted bool
	jobs := &fakeJobRepo{
		selectNext: func(context.Context, time.Time) (*domain.Job, error) {
			return nil, domain.ErrJobNotFound
		},
		countPending: func(context.Context) (int, error) {
			counted = true
			return 7, nil
		},
	}
	urls := &fakeURLRepo{}
	w := newWorker(jobs, urls, archival.NewClient("http://unused/", time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	runOneTick(t, w, ctx)

	if !counted {
		t.Fatal("CountPending was not called on the idle-poll path")
	}
}

func TestProcessJob_Success_CompletesJob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/web/20240102030405/https://example.com")
		w.WriteHeader(http.StatusFound)
	}))
	defer srv.Close()

	job := &domain.Job{ID: 1, URLID: 10, URL: "https://example.com", CreatedAt: time.Now()}
	var completedJobID, completedURLID int64

	jobs := &fakeJobRepo{
		selectNext: func(context.Context, time.Time) (*domain.Job, error) { return job, nil },
		complete: func(_ context.Context, jobID, urlID int64, _ time.Time) error {
			completedJobID, completedURLID = jobID, urlID
			return nil
		},
	}
	urls := &fakeURLRepo{
		getByID: func(context.Context, int64) (*domain.URL, error) {
			return &domain.URL{ID: 10, URL: job.URL}, nil
		},
	}

	client := archival.NewClient(srv.URL+"/save/", 5*time.Second)
	w := newWorker(jobs, urls, client)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	runOneTick(t, w, ctx)

	if completedJobID != job.ID || completedURLID != job.URLID {
		t.Fatalf("Complete not called with expected ids, got (%d, %d)", completedJobID, completedURLID)
	}
}

func TestProcessJob_CooldownActive_Defers(t *testing.T) {
	job := &domain.Job{ID: 1, URLID: 10, URL: "https://example.com", CreatedAt: time.Now()}
	lastSeen := time.Now().Add(-10 * time.Minute)

	var deferredUntil time.Time
	jobs := &fakeJobRepo{
		selectNext: func(context.Context, time.Time) (*domain.Job, error) { return job, nil },
		deferUntil: func(_ context.Context, _ int64, delayedUntil time.Time) error {
			deferredUntil = delayedUntil
			return nil
		},
	}
	urls := &fakeURLRepo{
		getByID: func(context.Context, int64) (*domain.URL, error) {
			return &domain.URL{ID: 10, URL: job.URL, LastSeen: &lastSeen}, nil
		},
	}

	w := newWorker(jobs, urls, archival.NewClient("http://unused/", time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	runOneTick(t, w, ctx)

	want := lastSeen.Add(time.Hour)
	if !deferredUntil.Equal(want) {
		t.Fatalf("deferredUntil = %v, want %v", deferredUntil, want)
	}
}

func TestProcessJob_AllAttemptsFail_RetryBelowCap_IncrementsRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	job := &domain.Job{ID: 1, URLID: 10, URL: "https://example.com", CreatedAt: time.Now(), Retry: 2}
	var retriedTo int
	jobs := &fakeJobRepo{
		selectNext: func(context.Context, time.Time) (*domain.Job, error) { return job, nil },
		incrementRetry: func(_ context.Context, _ int64, _ time.Time) error {
			retriedTo++
			return nil
		},
	}
	urls := &fakeURLRepo{
		getByID: func(context.Context, int64) (*domain.URL, error) {
			return &domain.URL{ID: 10, URL: job.URL}, nil
		},
	}

	client := archival.NewClient(srv.URL+"/save/", 5*time.Second)
	w := worker.NewURLWorker(jobs, urls, client, testLogger, time.Second, time.Hour, 1, 4)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	runOneTick(t, w, ctx)

	if retriedTo != 1 {
		t.Fatalf("IncrementRetry called %d times, want 1", retriedTo)
	}
}

func TestProcessJob_AllAttemptsFail_RetryAtCap_FailsJob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	job := &domain.Job{ID: 1, URLID: 10, URL: "https://example.com", CreatedAt: time.Now(), Retry: 4}
	var failed bool
	jobs := &fakeJobRepo{
		selectNext: func(context.Context, time.Time) (*domain.Job, error) { return job, nil },
		fail: func(context.Context, int64, time.Time) error {
			failed = true
			return nil
		},
	}
	urls := &fakeURLRepo{
		getByID: func(context.Context, int64) (*domain.URL, error) {
			return &domain.URL{ID: 10, URL: job.URL}, nil
		},
	}

	client := archival.NewClient(srv.URL+"/save/", 5*time.Second)
	w := worker.NewURLWorker(jobs, urls, client, testLogger, time.Second, time.Hour, 1, 4)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	runOneTick(t, w, ctx)

	if !failed {
		t.Fatal("Fail was not called")
	}
}

// runOneTick starts the worker and waits briefly for a single tick to run,
// relying on ctx's own deadline to end Run.
func runOneTick(t *testing.T, w *worker.URLWorker, ctx context.Context) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not shut down in time")
	}
}

func cancelledCtx() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}
