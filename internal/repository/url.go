package repository

import (
	"context"

	"github.com/PythonCoderAS/wayback-archiver-go/internal/domain"
)

// URLRepository maps URL strings to their canonical rows. Existing rows are
// reused; implementations must never create duplicates for the same string.
type URLRepository interface {
	// Upsert ensures a URL row exists for every string in urls and returns
	// the url -> id mapping for all of them, inserted or pre-existing.
	Upsert(ctx context.Context, urls []string) (map[string]int64, error)

	GetByID(ctx context.Context, id int64) (*domain.URL, error)
	GetByURL(ctx context.Context, url string) (*domain.URL, error)
}
