package query

import (
	"context"
	"testing"
	"time"

	"github.com/PythonCoderAS/wayback-archiver-go/internal/domain"
	"github.com/PythonCoderAS/wayback-archiver-go/internal/repository"
)

type fakeJobRepo struct {
	list func(ctx context.Context, input repository.ListJobsInput) ([]*domain.Job, error)
	get  func(ctx context.Context, id int64) (*domain.Job, error)
}

func (f *fakeJobRepo) CreateMany(context.Context, []int64, int, ...int64) ([]*domain.Job, error) {
	panic("unused")
}
func (f *fakeJobRepo) GetByID(ctx context.Context, id int64) (*domain.Job, error) { return f.get(ctx, id) }
func (f *fakeJobRepo) List(ctx context.Context, input repository.ListJobsInput) ([]*domain.Job, error) {
	return f.list(ctx, input)
}
func (f *fakeJobRepo) SelectNext(context.Context, time.Time) (*domain.Job, error) { panic("unused") }
func (f *fakeJobRepo) DeferUntil(context.Context, int64, time.Time) error         { panic("unused") }
func (f *fakeJobRepo) Complete(context.Context, int64, int64, time.Time) error    { panic("unused") }
func (f *fakeJobRepo) IncrementRetry(context.Context, int64, time.Time) error     { panic("unused") }
func (f *fakeJobRepo) Fail(context.Context, int64, time.Time) error               { panic("unused") }
func (f *fakeJobRepo) InFlightURLs(context.Context, []string) (map[string]bool, error) {
	panic("unused")
}
func (f *fakeJobRepo) CountPending(context.Context) (int, error) { panic("unused") }

type fakeBatchRepo struct {
	list func(ctx context.Context, input repository.ListBatchesInput) ([]*domain.Batch, error)
	get  func(ctx context.Context, id int64) (*domain.Batch, error)
}

func (f *fakeBatchRepo) Create(context.Context, []string) (*domain.Batch, error) { panic("unused") }
func (f *fakeBatchRepo) GetByID(ctx context.Context, id int64) (*domain.Batch, error) {
	return f.get(ctx, id)
}
func (f *fakeBatchRepo) List(ctx context.Context, input repository.ListBatchesInput) ([]*domain.Batch, error) {
	return f.list(ctx, input)
}

type fakeRepeatURLRepo struct {
	list func(ctx context.Context, input repository.ListRepeatURLsInput) ([]*domain.RepeatURL, error)
}

func (f *fakeRepeatURLRepo) Declare(context.Context, int64, int, time.Time) (*domain.RepeatURL, error) {
	panic("unused")
}
func (f *fakeRepeatURLRepo) GetByID(context.Context, int64) (*domain.RepeatURL, error) {
	panic("unused")
}
func (f *fakeRepeatURLRepo) ListActive(context.Context, time.Time) ([]*domain.RepeatURL, error) {
	panic("unused")
}
func (f *fakeRepeatURLRepo) List(ctx context.Context, input repository.ListRepeatURLsInput) ([]*domain.RepeatURL, error) {
	return f.list(ctx, input)
}

type fakeStatsRepo struct {
	get func(ctx context.Context, now time.Time, cooldown, recentWindow time.Duration) (*domain.Stats, error)
}

func (f *fakeStatsRepo) GetStats(ctx context.Context, now time.Time, cooldown, recentWindow time.Duration) (*domain.Stats, error) {
	return f.get(ctx, now, cooldown, recentWindow)
}

func makeJobs(n int) []*domain.Job {
	jobs := make([]*domain.Job, n)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range jobs {
		jobs[i] = &domain.Job{ID: int64(i + 1), CreatedAt: base.Add(time.Duration(i) * time.Minute)}
	}
	return jobs
}

func TestListJobs_SetsNextCursorWhenMoreRemain(t *testing.T) {
	jobRepo := &fakeJobRepo{
		list: func(_ context.Context, input repository.ListJobsInput) ([]*domain.Job, error) {
			if input.Limit != 3 {
				t.Fatalf("repo limit = %d, want 3 (page limit + 1)", input.Limit)
			}
			return makeJobs(3), nil
		},
	}
	svc := New(jobRepo, &fakeBatchRepo{}, &fakeRepeatURLRepo{}, &fakeStatsRepo{}, time.Hour)

	result, err := svc.ListJobs(context.Background(), ListJobsInput{Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Jobs) != 2 {
		t.Fatalf("len(Jobs) = %d, want 2", len(result.Jobs))
	}
	if result.NextCursor == nil {
		t.Fatal("expected NextCursor to be set")
	}
}

func TestListJobs_NoNextCursorWhenExhausted(t *testing.T) {
	jobRepo := &fakeJobRepo{
		list: func(_ context.Context, _ repository.ListJobsInput) ([]*domain.Job, error) {
			return makeJobs(1), nil
		},
	}
	svc := New(jobRepo, &fakeBatchRepo{}, &fakeRepeatURLRepo{}, &fakeStatsRepo{}, time.Hour)

	result, err := svc.ListJobs(context.Background(), ListJobsInput{Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.NextCursor != nil {
		t.Fatal("expected no NextCursor")
	}
}

func TestListJobs_RoundTripsCursor(t *testing.T) {
	var capturedCursorTime *time.Time
	var capturedCursorID int64

	jobRepo := &fakeJobRepo{
		list: func(_ context.Context, input repository.ListJobsInput) ([]*domain.Job, error) {
			capturedCursorTime = input.CursorTime
			capturedCursorID = input.CursorID
			return nil, nil
		},
	}
	svc := New(jobRepo, &fakeBatchRepo{}, &fakeRepeatURLRepo{}, &fakeStatsRepo{}, time.Hour)

	first, err := svc.ListJobs(context.Background(), ListJobsInput{Limit: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = first

	jobRepo.list = func(_ context.Context, input repository.ListJobsInput) ([]*domain.Job, error) {
		capturedCursorTime = input.CursorTime
		capturedCursorID = input.CursorID
		return makeJobs(1), nil
	}
	cursor := encodeCursor(time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC), 5)
	if _, err := svc.ListJobs(context.Background(), ListJobsInput{Cursor: cursor}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if capturedCursorTime == nil || capturedCursorID != 5 {
		t.Fatalf("cursor did not round-trip: time=%v id=%d", capturedCursorTime, capturedCursorID)
	}
}

func TestGetJob_Delegates(t *testing.T) {
	want := &domain.Job{ID: 42}
	jobRepo := &fakeJobRepo{
		get: func(_ context.Context, id int64) (*domain.Job, error) {
			if id != 42 {
				t.Fatalf("id = %d, want 42", id)
			}
			return want, nil
		},
	}
	svc := New(jobRepo, &fakeBatchRepo{}, &fakeRepeatURLRepo{}, &fakeStatsRepo{}, time.Hour)

	got, err := svc.GetJob(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestStats_PassesCooldownAndWindow(t *testing.T) {
	var gotCooldown, gotWindow time.Duration
	statsRepo := &fakeStatsRepo{
		get: func(_ context.Context, _ time.Time, cooldown, recentWindow time.Duration) (*domain.Stats, error) {
			gotCooldown = cooldown
			gotWindow = recentWindow
			return &domain.Stats{}, nil
		},
	}
	svc := New(&fakeJobRepo{}, &fakeBatchRepo{}, &fakeRepeatURLRepo{}, statsRepo, 90*time.Minute)

	if _, err := svc.Stats(context.Background(), time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotCooldown != 90*time.Minute {
		t.Errorf("cooldown = %v, want 90m", gotCooldown)
	}
	if gotWindow != 4*time.Hour {
		t.Errorf("recentWindow = %v, want 4h", gotWindow)
	}
}
