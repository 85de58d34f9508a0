package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PythonCoderAS/wayback-archiver-go/internal/domain"
	"github.com/PythonCoderAS/wayback-archiver-go/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BatchRepository struct {
	pool *pgxpool.Pool
}

func NewBatchRepository(pool *pgxpool.Pool) *BatchRepository {
	return &BatchRepository{pool: pool}
}

func (r *BatchRepository) Create(ctx context.Context, tags []string) (*domain.Batch, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var b domain.Batch
	err = tx.QueryRow(ctx,
		`INSERT INTO batches DEFAULT VALUES RETURNING id, created_at, locked`,
	).Scan(&b.ID, &b.CreatedAt, &b.Locked)
	if err != nil {
		return nil, fmt.Errorf("insert batch: %w", err)
	}

	if len(tags) > 0 {
		tagIDs, err := resolveTags(ctx, tx, tags)
		if err != nil {
			return nil, err
		}
		for _, tagID := range tagIDs {
			if _, err := tx.Exec(ctx,
				`INSERT INTO batch_tag_batches (batch_id, batch_tag_id) VALUES ($1, $2)
				 ON CONFLICT DO NOTHING`, b.ID, tagID); err != nil {
				return nil, fmt.Errorf("link batch tag: %w", err)
			}
		}
		b.Tags = tags
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &b, nil
}

// resolveTags mirrors BatchTag.resolve_list from the original schema: select
// existing tags by name, then insert only the ones missing, all within the
// caller's transaction.
func resolveTags(ctx context.Context, tx pgx.Tx, names []string) ([]int64, error) {
	rows, err := tx.Query(ctx, `SELECT id, name FROM batch_tags WHERE name = ANY($1::text[])`, names)
	if err != nil {
		return nil, fmt.Errorf("select tags: %w", err)
	}
	seen := make(map[string]int64, len(names))
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		seen[name] = id
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}

	ids := make([]int64, 0, len(names))
	for _, name := range names {
		if id, ok := seen[name]; ok {
			ids = append(ids, id)
			continue
		}
		var id int64
		if err := tx.QueryRow(ctx,
			`INSERT INTO batch_tags (name) VALUES ($1)
			 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			 RETURNING id`, name).Scan(&id); err != nil {
			return nil, fmt.Errorf("insert tag %q: %w", name, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *BatchRepository) GetByID(ctx context.Context, id int64) (*domain.Batch, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, created_at, locked FROM batches WHERE id = $1`, id)
	b, err := scanBatch(row)
	if err != nil {
		return nil, err
	}
	tags, err := r.tagsForBatch(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Tags = tags
	return b, nil
}

func (r *BatchRepository) tagsForBatch(ctx context.Context, batchID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.name FROM batch_tags t
		JOIN batch_tag_batches j ON j.batch_tag_id = t.id
		WHERE j.batch_id = $1
		ORDER BY t.name`, batchID)
	if err != nil {
		return nil, fmt.Errorf("list batch tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan batch tag: %w", err)
		}
		tags = append(tags, name)
	}
	return tags, rows.Err()
}

func (r *BatchRepository) List(ctx context.Context, input repository.ListBatchesInput) ([]*domain.Batch, error) {
	args := []any{}
	where := []string{"1=1"}

	if input.CursorTime != nil {
		args = append(args, *input.CursorTime, input.CursorID)
		where = append(where, fmt.Sprintf("(created_at, id) < ($%d, $%d)", len(args)-1, len(args)))
	}
	args = append(args, input.Limit)

	query := fmt.Sprintf(`
		SELECT id, created_at, locked FROM batches
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d`, strings.Join(where, " AND "), len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var batches []*domain.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batches: %w", err)
	}

	for _, b := range batches {
		tags, err := r.tagsForBatch(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		b.Tags = tags
	}
	return batches, nil
}

func scanBatch(row rowScanner) (*domain.Batch, error) {
	var b domain.Batch
	err := row.Scan(&b.ID, &b.CreatedAt, &b.Locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBatchNotFound
		}
		return nil, fmt.Errorf("scan batch: %w", err)
	}
	return &b, nil
}
