package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/PythonCoderAS/wayback-archiver-go/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type URLRepository struct {
	pool *pgxpool.Pool
}

func NewURLRepository(pool *pgxpool.Pool) *URLRepository {
	return &URLRepository{pool: pool}
}

// Upsert inserts any URL string in urls that doesn't already have a row,
// then re-selects the full set so the caller gets every id regardless of
// whether pgx's RETURNING clause saw the row as newly inserted or not —
// rows that hit the ON CONFLICT branch never appear in RETURNING.
func (r *URLRepository) Upsert(ctx context.Context, urls []string) (map[string]int64, error) {
	if len(urls) == 0 {
		return map[string]int64{}, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO urls (url)
		SELECT unnest($1::text[])
		ON CONFLICT (url) DO NOTHING`, urls)
	if err != nil {
		return nil, fmt.Errorf("insert urls: %w", err)
	}

	rows, err := tx.Query(ctx, `SELECT id, url FROM urls WHERE url = ANY($1::text[])`, urls)
	if err != nil {
		return nil, fmt.Errorf("select urls: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64, len(urls))
	for rows.Next() {
		var id int64
		var url string
		if err := rows.Scan(&id, &url); err != nil {
			return nil, fmt.Errorf("scan url: %w", err)
		}
		out[url] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate urls: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return out, nil
}

func (r *URLRepository) GetByID(ctx context.Context, id int64) (*domain.URL, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, url, first_seen, last_seen FROM urls WHERE id = $1`, id)
	return scanURL(row)
}

func (r *URLRepository) GetByURL(ctx context.Context, url string) (*domain.URL, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, url, first_seen, last_seen FROM urls WHERE url = $1`, url)
	return scanURL(row)
}

func scanURL(row rowScanner) (*domain.URL, error) {
	var u domain.URL
	err := row.Scan(&u.ID, &u.URL, &u.FirstSeen, &u.LastSeen)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrURLNotFound
		}
		return nil, fmt.Errorf("scan url: %w", err)
	}
	return &u, nil
}
