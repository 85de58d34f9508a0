package repository

import (
	"context"
	"time"

	"github.com/PythonCoderAS/wayback-archiver-go/internal/domain"
)

// OperatorRepository backs the magic-link auth flow guarding the
// collaborator HTTP surface's mutating routes.
type OperatorRepository interface {
	FindOrCreate(ctx context.Context, email string) (*domain.Operator, error)
	FindByID(ctx context.Context, id string) (*domain.Operator, error)
	CreateMagicToken(ctx context.Context, operatorID, tokenHash string, expiresAt time.Time) error
	ClaimMagicToken(ctx context.Context, tokenHash string) (*domain.MagicToken, error)
}
