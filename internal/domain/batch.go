package domain

import (
	"errors"
	"time"
)

var ErrBatchNotFound = errors.New("batch not found")

// MaxSubmitBatchSize is the internal partition threshold from spec §4.1:
// a SubmitBatch call with more URLs than this is split into several
// batches, each holding at most this many jobs.
const MaxSubmitBatchSize = 30_000

// Batch groups jobs created together. A batch is never deleted; it may be
// locked to forbid further job additions, though no worker relies on the
// flag for correctness.
type Batch struct {
	ID        int64
	CreatedAt time.Time
	Locked    bool
	Tags      []string
}
