package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PythonCoderAS/wayback-archiver-go/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OperatorRepository struct {
	pool *pgxpool.Pool
}

func NewOperatorRepository(pool *pgxpool.Pool) *OperatorRepository {
	return &OperatorRepository{pool: pool}
}

func (r *OperatorRepository) FindOrCreate(ctx context.Context, email string) (*domain.Operator, error) {
	query := `
		INSERT INTO operators (id, email)
		VALUES (gen_random_uuid()::text, $1)
		ON CONFLICT (email) DO UPDATE SET updated_at = now()
		RETURNING id, email, created_at, updated_at`

	row := r.pool.QueryRow(ctx, query, email)
	return scanOperator(row)
}

func (r *OperatorRepository) FindByID(ctx context.Context, id string) (*domain.Operator, error) {
	query := `SELECT id, email, created_at, updated_at FROM operators WHERE id = $1`

	row := r.pool.QueryRow(ctx, query, id)
	return scanOperator(row)
}

func (r *OperatorRepository) CreateMagicToken(ctx context.Context, operatorID, tokenHash string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO magic_tokens (operator_id, token_hash, expires_at) VALUES ($1, $2, $3)`,
		operatorID, tokenHash, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("create magic token: %w", err)
	}
	return nil
}

// ClaimMagicToken atomically marks the token used and returns it. Returns
// domain.ErrTokenInvalid if the token doesn't exist, is already used, or has
// expired.
func (r *OperatorRepository) ClaimMagicToken(ctx context.Context, tokenHash string) (*domain.MagicToken, error) {
	query := `
		UPDATE magic_tokens
		SET used_at = now()
		WHERE token_hash = $1
		  AND used_at IS NULL
		  AND expires_at > now()
		RETURNING id, operator_id, token_hash, expires_at, used_at, created_at`

	row := r.pool.QueryRow(ctx, query, tokenHash)
	return scanMagicToken(row)
}

func scanOperator(row rowScanner) (*domain.Operator, error) {
	var o domain.Operator
	err := row.Scan(&o.ID, &o.Email, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOperatorNotFound
		}
		return nil, fmt.Errorf("scan operator: %w", err)
	}
	return &o, nil
}

func scanMagicToken(row rowScanner) (*domain.MagicToken, error) {
	var t domain.MagicToken
	err := row.Scan(&t.ID, &t.OperatorID, &t.TokenHash, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, fmt.Errorf("scan magic token: %w", err)
	}
	return &t, nil
}
