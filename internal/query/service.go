// Package query implements the collaborator HTTP surface's read-only
// operations: paginated listing of jobs, batches and repeat URLs, plus the
// aggregate stats snapshot (spec.md §1's "external collaborators" reading
// the queue's state).
package query

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/PythonCoderAS/wayback-archiver-go/internal/domain"
	"github.com/PythonCoderAS/wayback-archiver-go/internal/repository"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type Service struct {
	jobs         repository.JobRepository
	batches      repository.BatchRepository
	repeatURLs   repository.RepeatURLRepository
	stats        repository.StatsRepository
	cooldown     time.Duration
	recentWindow time.Duration
}

func New(jobs repository.JobRepository, batches repository.BatchRepository, repeatURLs repository.RepeatURLRepository, stats repository.StatsRepository, cooldown time.Duration) *Service {
	return &Service{
		jobs:         jobs,
		batches:      batches,
		repeatURLs:   repeatURLs,
		stats:        stats,
		cooldown:     cooldown,
		recentWindow: 4 * time.Hour,
	}
}

type cursor struct {
	T time.Time `json:"t"`
	I int64     `json:"i"`
}

func decodeCursor(s string) (*time.Time, int64, error) {
	if s == "" {
		return nil, 0, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, 0, fmt.Errorf("decode cursor: %w", err)
	}
	var c cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, 0, fmt.Errorf("unmarshal cursor: %w", err)
	}
	return &c.T, c.I, nil
}

func encodeCursor(t time.Time, id int64) string {
	b, _ := json.Marshal(cursor{T: t, I: id})
	return base64.RawURLEncoding.EncodeToString(b)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageLimit
	}
	if limit > maxPageLimit {
		return maxPageLimit
	}
	return limit
}

type ListJobsInput struct {
	Status  string
	BatchID int64
	Cursor  string
	Limit   int
}

type ListJobsResult struct {
	Jobs       []*domain.Job
	NextCursor *string
}

func (s *Service) ListJobs(ctx context.Context, input ListJobsInput) (ListJobsResult, error) {
	limit := clampLimit(input.Limit)

	cursorTime, cursorID, err := decodeCursor(input.Cursor)
	if err != nil {
		return ListJobsResult{}, err
	}

	jobs, err := s.jobs.List(ctx, repository.ListJobsInput{
		Status:     input.Status,
		BatchID:    input.BatchID,
		CursorTime: cursorTime,
		CursorID:   cursorID,
		Limit:      limit + 1,
	})
	if err != nil {
		return ListJobsResult{}, fmt.Errorf("list jobs: %w", err)
	}

	var nextCursor *string
	if len(jobs) == limit+1 {
		last := jobs[limit]
		c := encodeCursor(last.CreatedAt, last.ID)
		nextCursor = &c
		jobs = jobs[:limit]
	}
	return ListJobsResult{Jobs: jobs, NextCursor: nextCursor}, nil
}

func (s *Service) GetJob(ctx context.Context, id int64) (*domain.Job, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

type ListBatchesInput struct {
	Cursor string
	Limit  int
}

type ListBatchesResult struct {
	Batches    []*domain.Batch
	NextCursor *string
}

func (s *Service) ListBatches(ctx context.Context, input ListBatchesInput) (ListBatchesResult, error) {
	limit := clampLimit(input.Limit)

	cursorTime, cursorID, err := decodeCursor(input.Cursor)
	if err != nil {
		return ListBatchesResult{}, err
	}

	batches, err := s.batches.List(ctx, repository.ListBatchesInput{
		CursorTime: cursorTime,
		CursorID:   cursorID,
		Limit:      limit + 1,
	})
	if err != nil {
		return ListBatchesResult{}, fmt.Errorf("list batches: %w", err)
	}

	var nextCursor *string
	if len(batches) == limit+1 {
		last := batches[limit]
		c := encodeCursor(last.CreatedAt, last.ID)
		nextCursor = &c
		batches = batches[:limit]
	}
	return ListBatchesResult{Batches: batches, NextCursor: nextCursor}, nil
}

func (s *Service) GetBatch(ctx context.Context, id int64) (*domain.Batch, error) {
	b, err := s.batches.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return b, nil
}

type ListRepeatURLsInput struct {
	Cursor string
	Limit  int
}

type ListRepeatURLsResult struct {
	RepeatURLs []*domain.RepeatURL
	NextCursor *string
}

func (s *Service) ListRepeatURLs(ctx context.Context, input ListRepeatURLsInput) (ListRepeatURLsResult, error) {
	limit := clampLimit(input.Limit)

	cursorTime, cursorID, err := decodeCursor(input.Cursor)
	if err != nil {
		return ListRepeatURLsResult{}, err
	}

	reps, err := s.repeatURLs.List(ctx, repository.ListRepeatURLsInput{
		CursorTime: cursorTime,
		CursorID:   cursorID,
		Limit:      limit + 1,
	})
	if err != nil {
		return ListRepeatURLsResult{}, fmt.Errorf("list repeat urls: %w", err)
	}

	var nextCursor *string
	if len(reps) == limit+1 {
		last := reps[limit]
		c := encodeCursor(last.CreatedAt, last.ID)
		nextCursor = &c
		reps = reps[:limit]
	}
	return ListRepeatURLsResult{RepeatURLs: reps, NextCursor: nextCursor}, nil
}

func (s *Service) Stats(ctx context.Context, now time.Time) (*domain.Stats, error) {
	stats, err := s.stats.GetStats(ctx, now, s.cooldown, s.recentWindow)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return stats, nil
}
