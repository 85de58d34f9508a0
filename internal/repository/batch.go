package repository

import (
	"context"
	"time"

	"github.com/PythonCoderAS/wayback-archiver-go/internal/domain"
)

type ListBatchesInput struct {
	CursorTime *time.Time // cursor on (created_at DESC, id DESC)
	CursorID   int64
	Limit      int
}

// BatchRepository manages batches and their tag membership.
type BatchRepository interface {
	// Create inserts a new batch, resolving (and creating any missing)
	// tags in the same transaction.
	Create(ctx context.Context, tags []string) (*domain.Batch, error)
	GetByID(ctx context.Context, id int64) (*domain.Batch, error)
	List(ctx context.Context, input ListBatchesInput) ([]*domain.Batch, error)
}
