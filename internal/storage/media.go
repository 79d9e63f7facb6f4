package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"media_gallery/internal/models"
)

const recordColumns = `id, user_id, url, prompt, intent, model_name, external_task_id, status, metadata, created_at, updated_at, deleted_at`

// MediaStore is the Postgres-backed store for a single gallery table.
type MediaStore struct {
	pool  *pgxpool.Pool
	kind  models.MediaKind
	table string
}

func newMediaStore(pool *pgxpool.Pool, kind models.MediaKind) *MediaStore {
	return &MediaStore{
		pool:  pool,
		kind:  kind,
		table: pq.QuoteIdentifier(kind.Table()),
	}
}

func (s *MediaStore) Kind() models.MediaKind {
	return s.kind
}

func scanRecord(row pgx.Row) (*models.MediaRecord, error) {
	var r models.MediaRecord
	err := row.Scan(&r.ID, &r.OwnerID, &r.URL, &r.Prompt, &r.Intent, &r.ModelName,
		&r.ExternalTaskID, &r.Status, &r.Metadata, &r.CreatedAt, &r.UpdatedAt, &r.DeletedAt)
	if err != nil {
		return nil, err
	}
	if r.Metadata == nil {
		r.Metadata = map[string]any{}
	}
	return &r, nil
}

func (s *MediaStore) List(ctx context.Context, f Filter) ([]*models.MediaRecord, error) {
	const op = "storage.List"

	query, args := selectQuery(s.table, f)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer rows.Close()

	records := make([]*models.MediaRecord, 0)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, wrapErr(op, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return records, nil
}

func (s *MediaStore) Count(ctx context.Context, f Filter) (int64, error) {
	const op = "storage.Count"

	query, args := countQuery(s.table, f)
	var n int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, wrapErr(op, err)
	}
	return n, nil
}

func (s *MediaStore) Get(ctx context.Context, id uuid.UUID) (*models.MediaRecord, error) {
	const op = "storage.Get"

	r, err := scanRecord(s.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM `+s.table+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wrapErr(op, ErrNotFound)
		}
		return nil, wrapErr(op, err)
	}
	return r, nil
}

func softDeleteQuery(table string) string {
	return `UPDATE ` + table + ` SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`
}

func restoreQuery(table string) string {
	return `UPDATE ` + table + ` SET deleted_at = NULL, updated_at = $2 WHERE id = $1 AND deleted_at IS NOT NULL
		RETURNING ` + recordColumns
}

func upsertQuery(table string) string {
	return `INSERT INTO ` + table + ` AS g (id, user_id, url, prompt, intent, model_name, external_task_id, status, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (external_task_id) DO UPDATE SET
			status     = EXCLUDED.status,
			url        = COALESCE(EXCLUDED.url, g.url),
			prompt     = COALESCE(EXCLUDED.prompt, g.prompt),
			intent     = COALESCE(EXCLUDED.intent, g.intent),
			model_name = COALESCE(EXCLUDED.model_name, g.model_name),
			metadata   = g.metadata || EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + recordColumns
}

// SoftDelete stamps deleted_at on an active row. It reports false when no active
// row with that id exists.
func (s *MediaStore) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	const op = "storage.SoftDelete"

	tag, err := s.pool.Exec(ctx, softDeleteQuery(s.table), id, at)
	if err != nil {
		return false, wrapErr(op, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Restore clears deleted_at on a soft-deleted row and returns the row as the
// update left it. It reports false when no deleted row with that id exists.
func (s *MediaStore) Restore(ctx context.Context, id uuid.UUID, at time.Time) (*models.MediaRecord, bool, error) {
	const op = "storage.Restore"

	r, err := scanRecord(s.pool.QueryRow(ctx, restoreQuery(s.table), id, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, wrapErr(op, err)
	}
	return r, true, nil
}

func (s *MediaStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	const op = "storage.Delete"

	tag, err := s.pool.Exec(ctx, `DELETE FROM `+s.table+` WHERE id = $1`, id)
	if err != nil {
		return false, wrapErr(op, err)
	}
	return tag.RowsAffected() == 1, nil
}

// UpsertByTask inserts rec, or, when a row with the same external task id exists,
// updates its status, metadata and any descriptive field rec carries. Owner,
// created_at and deleted_at of an existing row are left untouched.
func (s *MediaStore) UpsertByTask(ctx context.Context, rec *models.MediaRecord) (*models.MediaRecord, error) {
	const op = "storage.UpsertByTask"

	metadata := rec.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	r, err := scanRecord(s.pool.QueryRow(ctx, upsertQuery(s.table),
		rec.ID, rec.OwnerID, rec.URL, rec.Prompt, rec.Intent, rec.ModelName,
		rec.ExternalTaskID, rec.Status, metadata, rec.CreatedAt))
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return r, nil
}
