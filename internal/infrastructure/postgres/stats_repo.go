package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/PythonCoderAS/wayback-archiver-go/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StatsRepository struct {
	pool *pgxpool.Pool
}

func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{pool: pool}
}

func (r *StatsRepository) GetStats(ctx context.Context, now time.Time, cooldown, recentWindow time.Duration) (*domain.Stats, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var stats domain.Stats

	notDoneRows, err := tx.Query(ctx,
		`SELECT retry, count(*) FROM jobs WHERE completed IS NULL AND failed IS NULL GROUP BY retry`)
	if err != nil {
		return nil, fmt.Errorf("count not-done jobs by retry: %w", err)
	}
	stats.Jobs.NotDone, err = scanRetryCounts(notDoneRows)
	if err != nil {
		return nil, err
	}

	completedRows, err := tx.Query(ctx,
		`SELECT retry, count(*) FROM jobs WHERE completed IS NOT NULL GROUP BY retry`)
	if err != nil {
		return nil, fmt.Errorf("count completed jobs by retry: %w", err)
	}
	stats.Jobs.Completed, err = scanRetryCounts(completedRows)
	if err != nil {
		return nil, err
	}

	if err := tx.QueryRow(ctx, `SELECT count(*) FROM jobs WHERE failed IS NOT NULL`).Scan(&stats.Jobs.Failed); err != nil {
		return nil, fmt.Errorf("count failed jobs: %w", err)
	}
	stats.Jobs.Total = stats.Jobs.NotDone.Total + stats.Jobs.Completed.Total + stats.Jobs.Failed

	if err := tx.QueryRow(ctx, `SELECT count(*) FROM batches`).Scan(&stats.Batches); err != nil {
		return nil, fmt.Errorf("count batches: %w", err)
	}

	superRecentSince := now.Add(-cooldown)
	recentSince := now.Add(-recentWindow)

	if err := tx.QueryRow(ctx,
		`SELECT count(*) FROM urls WHERE last_seen IS NOT NULL AND last_seen > $1`, superRecentSince,
	).Scan(&stats.URLs.SuperRecentlyArchived); err != nil {
		return nil, fmt.Errorf("count super-recently archived urls: %w", err)
	}

	var recentAndSuper int
	if err := tx.QueryRow(ctx,
		`SELECT count(*) FROM urls WHERE last_seen IS NOT NULL AND last_seen > $1`, recentSince,
	).Scan(&recentAndSuper); err != nil {
		return nil, fmt.Errorf("count recently archived urls: %w", err)
	}
	stats.URLs.RecentlyArchived = recentAndSuper - stats.URLs.SuperRecentlyArchived

	if err := tx.QueryRow(ctx,
		`SELECT count(*) FROM urls WHERE last_seen IS NOT NULL AND last_seen < $1`, recentSince,
	).Scan(&stats.URLs.NotRecentlyArchived); err != nil {
		return nil, fmt.Errorf("count not-recently archived urls: %w", err)
	}

	if err := tx.QueryRow(ctx,
		`SELECT count(*) FROM urls WHERE last_seen IS NULL`,
	).Scan(&stats.URLs.NotArchived); err != nil {
		return nil, fmt.Errorf("count never-archived urls: %w", err)
	}
	stats.URLs.TotalArchived = stats.URLs.SuperRecentlyArchived + stats.URLs.RecentlyArchived + stats.URLs.NotRecentlyArchived
	stats.URLs.Total = stats.URLs.TotalArchived + stats.URLs.NotArchived

	if err := tx.QueryRow(ctx,
		`SELECT count(*) FROM repeat_urls WHERE active_since IS NOT NULL`,
	).Scan(&stats.RepeatURLs.Active); err != nil {
		return nil, fmt.Errorf("count active repeat urls: %w", err)
	}
	if err := tx.QueryRow(ctx,
		`SELECT count(*) FROM repeat_urls WHERE active_since IS NULL`,
	).Scan(&stats.RepeatURLs.Inactive); err != nil {
		return nil, fmt.Errorf("count inactive repeat urls: %w", err)
	}
	stats.RepeatURLs.Total = stats.RepeatURLs.Active + stats.RepeatURLs.Inactive

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &stats, nil
}

func scanRetryCounts(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
	Close()
}) (domain.RetryCounts, error) {
	defer rows.Close()
	var rc domain.RetryCounts
	for rows.Next() {
		var retry, count int
		if err := rows.Scan(&retry, &count); err != nil {
			return rc, fmt.Errorf("scan retry count: %w", err)
		}
		switch retry {
		case 0:
			rc.R0 = count
		case 1:
			rc.R1 = count
		case 2:
			rc.R2 = count
		case 3:
			rc.R3 = count
		case 4:
			rc.R4 = count
		}
		rc.Total += count
	}
	return rc, rows.Err()
}
