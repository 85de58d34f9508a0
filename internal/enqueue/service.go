// Package enqueue implements the submission side of the job queue
// (spec §4.1): turning operator-supplied URLs into URL/Batch/Job rows.
package enqueue

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PythonCoderAS/wayback-archiver-go/internal/domain"
	"github.com/PythonCoderAS/wayback-archiver-go/internal/repository"
)

// Service implements SubmitBatch and DeclareRepeat.
type Service struct {
	urls       repository.URLRepository
	batches    repository.BatchRepository
	jobs       repository.JobRepository
	repeatURLs repository.RepeatURLRepository
}

func New(
	urls repository.URLRepository,
	batches repository.BatchRepository,
	jobs repository.JobRepository,
	repeatURLs repository.RepeatURLRepository,
) *Service {
	return &Service{urls: urls, batches: batches, jobs: jobs, repeatURLs: repeatURLs}
}

// SubmitBatchResult is the {batch_id, job_count} pair spec §4.1 requires.
// BatchID is the last partition created when the input was split — callers
// that need every partition's id should read BatchIDs instead.
type SubmitBatchResult struct {
	BatchID  int64
	BatchIDs []int64
	JobCount int
}

// SubmitBatch resolves urls to URL rows, partitions them into batches of at
// most domain.MaxSubmitBatchSize, and creates one job per URL per
// partition. When unique_only is true, duplicate strings in urls collapse
// to a single job. The whole call is not itself one transaction across
// partitions — each partition commits independently, matching spec §4.1's
// documented multi-partition caveat that batch_id may only identify the
// last partition.
func (s *Service) SubmitBatch(ctx context.Context, urls []string, priority int, uniqueOnly bool, tags []string) (*SubmitBatchResult, error) {
	cleaned, err := normalizeURLs(urls, uniqueOnly)
	if err != nil {
		return nil, err
	}
	if len(cleaned) == 0 {
		return &SubmitBatchResult{}, nil
	}

	urlIDs, err := s.urls.Upsert(ctx, cleaned)
	if err != nil {
		return nil, fmt.Errorf("upsert urls: %w", err)
	}

	ids := make([]int64, 0, len(cleaned))
	for _, u := range cleaned {
		ids = append(ids, urlIDs[u])
	}

	result := &SubmitBatchResult{}
	for _, partition := range partitionIDs(ids, domain.MaxSubmitBatchSize) {
		b, err := s.batches.Create(ctx, tags)
		if err != nil {
			return nil, fmt.Errorf("create batch: %w", err)
		}

		jobs, err := s.jobs.CreateMany(ctx, partition, priority, b.ID)
		if err != nil {
			return nil, fmt.Errorf("create jobs: %w", err)
		}

		result.BatchID = b.ID
		result.BatchIDs = append(result.BatchIDs, b.ID)
		result.JobCount += len(jobs)
	}

	return result, nil
}

// DeclareRepeat implements spec §4.1's "Declare repeat URL" operation.
func (s *Service) DeclareRepeat(ctx context.Context, rawURL string, interval int) (*domain.RepeatURL, error) {
	clean, err := normalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = domain.DefaultRepeatInterval
	}

	urlIDs, err := s.urls.Upsert(ctx, []string{clean})
	if err != nil {
		return nil, fmt.Errorf("upsert url: %w", err)
	}

	rep, err := s.repeatURLs.Declare(ctx, urlIDs[clean], interval, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("declare repeat url: %w", err)
	}
	return rep, nil
}

func normalizeURLs(in []string, uniqueOnly bool) ([]string, error) {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, raw := range in {
		clean, err := normalizeURL(raw)
		if err != nil {
			return nil, err
		}
		if uniqueOnly && seen[clean] {
			continue
		}
		seen[clean] = true
		out = append(out, clean)
	}
	return out, nil
}

func normalizeURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", domain.ErrInvalidURL
	}
	if len(trimmed) > domain.MaxURLLength {
		return "", domain.ErrInvalidURL
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", domain.ErrInvalidURL
	}
	return trimmed, nil
}

func partitionIDs(ids []int64, size int) [][]int64 {
	if len(ids) <= size {
		return [][]int64{ids}
	}
	var out [][]int64
	for len(ids) > 0 {
		n := size
		if n > len(ids) {
			n = len(ids)
		}
		out = append(out, ids[:n])
		ids = ids[n:]
	}
	return out
}
