package repository

import (
	"context"
	"time"

	"github.com/PythonCoderAS/wayback-archiver-go/internal/domain"
)

type ListRepeatURLsInput struct {
	CursorTime *time.Time // cursor on (created_at, id)
	CursorID   int64
	Limit      int
}

// RepeatURLRepository manages standing repeat declarations.
type RepeatURLRepository interface {
	// Declare creates a RepeatURL for url if none exists (allocating a
	// dedicated lineage batch), or updates interval and re-activates an
	// existing one — spec §4.1 "Declare repeat URL".
	Declare(ctx context.Context, urlID int64, interval int, now time.Time) (*domain.RepeatURL, error)

	GetByID(ctx context.Context, id int64) (*domain.RepeatURL, error)

	// ListActive returns every repeater with active_since <= now, ordered
	// by id — spec §4.4 step 2.
	ListActive(ctx context.Context, now time.Time) ([]*domain.RepeatURL, error)

	// List returns every repeat URL (active or not), paginated, for the
	// collaborator read surface.
	List(ctx context.Context, input ListRepeatURLsInput) ([]*domain.RepeatURL, error)
}
