package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PythonCoderAS/wayback-archiver-go/internal/domain"
	"github.com/PythonCoderAS/wayback-archiver-go/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RepeatURLRepository struct {
	pool *pgxpool.Pool
}

func NewRepeatURLRepository(pool *pgxpool.Pool) *RepeatURLRepository {
	return &RepeatURLRepository{pool: pool}
}

// Declare creates a RepeatURL and its lineage batch for urlID if none
// exists yet, or updates interval and re-activates an existing one. Exactly
// one RepeatURL may exist per URL (repeat_urls_url_uk): an existing row's
// batch_id is looked up first (a lineage batch is inserted only when there
// is none), then a single upsert on url_id writes the row.
func (r *RepeatURLRepository) Declare(ctx context.Context, urlID int64, interval int, now time.Time) (*domain.RepeatURL, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var existingBatchID int64
	err = tx.QueryRow(ctx,
		`SELECT batch_id FROM repeat_urls WHERE url_id = $1`, urlID,
	).Scan(&existingBatchID)

	var batchID int64
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if err := tx.QueryRow(ctx,
			`INSERT INTO batches DEFAULT VALUES RETURNING id`,
		).Scan(&batchID); err != nil {
			return nil, fmt.Errorf("insert lineage batch: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("check existing repeat url: %w", err)
	default:
		batchID = existingBatchID
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO repeat_urls (url_id, batch_id, interval, active_since)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (url_id) DO UPDATE
			SET interval = EXCLUDED.interval, active_since = EXCLUDED.active_since
		RETURNING id, url_id, batch_id, interval, created_at, active_since`,
		urlID, batchID, interval, now)

	rep, err := scanRepeatURL(row)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return rep, nil
}

func (r *RepeatURLRepository) GetByID(ctx context.Context, id int64) (*domain.RepeatURL, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT r.id, r.url_id, u.url, r.batch_id, r.interval, r.created_at, r.active_since
		FROM repeat_urls r JOIN urls u ON u.id = r.url_id
		WHERE r.id = $1`, id)
	return scanRepeatURLWithURL(row)
}

func (r *RepeatURLRepository) ListActive(ctx context.Context, now time.Time) ([]*domain.RepeatURL, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.url_id, u.url, r.batch_id, r.interval, r.created_at, r.active_since
		FROM repeat_urls r JOIN urls u ON u.id = r.url_id
		WHERE r.active_since IS NOT NULL AND r.active_since <= $1
		ORDER BY r.id ASC`, now)
	if err != nil {
		return nil, fmt.Errorf("list active repeat urls: %w", err)
	}
	defer rows.Close()

	var out []*domain.RepeatURL
	for rows.Next() {
		rep, err := scanRepeatURLWithURL(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

// List returns every repeat URL regardless of active status, paginated on
// (created_at, id) for the collaborator read surface.
func (r *RepeatURLRepository) List(ctx context.Context, input repository.ListRepeatURLsInput) ([]*domain.RepeatURL, error) {
	args := []any{}
	where := []string{"1=1"}

	if input.CursorTime != nil {
		args = append(args, *input.CursorTime, input.CursorID)
		where = append(where, fmt.Sprintf("(r.created_at, r.id) < ($%d, $%d)", len(args)-1, len(args)))
	}
	args = append(args, input.Limit)

	query := fmt.Sprintf(`
		SELECT r.id, r.url_id, u.url, r.batch_id, r.interval, r.created_at, r.active_since
		FROM repeat_urls r JOIN urls u ON u.id = r.url_id
		WHERE %s
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT $%d`, strings.Join(where, " AND "), len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list repeat urls: %w", err)
	}
	defer rows.Close()

	var out []*domain.RepeatURL
	for rows.Next() {
		rep, err := scanRepeatURLWithURL(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func scanRepeatURL(row rowScanner) (*domain.RepeatURL, error) {
	var rep domain.RepeatURL
	err := row.Scan(&rep.ID, &rep.URLID, &rep.BatchID, &rep.Interval, &rep.CreatedAt, &rep.ActiveSince)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRepeatURLNotFound
		}
		return nil, fmt.Errorf("scan repeat url: %w", err)
	}
	return &rep, nil
}

func scanRepeatURLWithURL(row rowScanner) (*domain.RepeatURL, error) {
	var rep domain.RepeatURL
	err := row.Scan(&rep.ID, &rep.URLID, &rep.URL, &rep.BatchID, &rep.Interval, &rep.CreatedAt, &rep.ActiveSince)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRepeatURLNotFound
		}
		return nil, fmt.Errorf("scan repeat url: %w", err)
	}
	return &rep, nil
}
