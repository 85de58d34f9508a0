package domain

import (
	"errors"
	"time"
)

var (
	ErrOperatorNotFound = errors.New("operator not found")
	ErrTokenInvalid     = errors.New("token is invalid or expired")
	ErrUnauthorized     = errors.New("unauthorized")
)

// Operator is a human who can submit batches and declare repeat URLs
// through the collaborator HTTP surface. The queue itself has no concept
// of per-operator ownership — jobs, batches and repeaters are global —
// Operator exists only to gate the mutating endpoints.
type Operator struct {
	ID        string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MagicToken is a single-use, time-limited token mailed to an operator to
// exchange for a signed session JWT.
type MagicToken struct {
	ID         int64
	OperatorID string
	TokenHash  string
	ExpiresAt  time.Time
	UsedAt     *time.Time
	CreatedAt  time.Time
}
