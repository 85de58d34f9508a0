package repository

import (
	"context"
	"time"

	"github.com/PythonCoderAS/wayback-archiver-go/internal/domain"
)

// StatsRepository answers the collaborator surface's one read-only
// aggregate endpoint, grounded on original_source/src/routes/stats.py.
type StatsRepository interface {
	// GetStats computes the snapshot as of now. recentWindow is the fixed
	// 4-hour window the original used for the "recently archived" bucket;
	// cooldown is the worker's per-URL MIN_INTERVAL, reused for the
	// "super recently archived" bucket.
	GetStats(ctx context.Context, now time.Time, cooldown, recentWindow time.Duration) (*domain.Stats, error)
}
