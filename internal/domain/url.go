package domain

import (
	"errors"
	"time"
)

var (
	ErrURLNotFound = errors.New("url not found")
	ErrInvalidURL  = errors.New("invalid url")
)

// MaxURLLength mirrors the original schema's varchar(10000) bound on urls.url.
const MaxURLLength = 10000

// URL is the canonical row for an archived target. Rows are created lazily
// the first time their string is referenced and are never deleted.
type URL struct {
	ID        int64
	URL       string
	FirstSeen time.Time
	LastSeen  *time.Time
}
