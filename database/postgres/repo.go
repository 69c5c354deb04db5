// Package postgres implements the metadata store and pending-upload tracker
// using a pgx connection pool
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/filedepot/filedepot"
	"github.com/filedepot/filedepot/internal"
)

type Repo struct {
	pool   *pgxpool.Pool
	tables filedepot.Tables
}

func NewRepo(pool *pgxpool.Pool, tables filedepot.Tables) (*Repo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}
	return &Repo{pool: pool, tables: tables}, nil
}

// Ping verifies database connectivity
func (r *Repo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

const recordColumns = `id, name, content_type, size_bytes, extension, user_id, meta, versions, created_at, updated_at`

// whereClause renders q as a WHERE fragment with $n placeholders starting
// at next.
func whereClause(q filedepot.Query, next int) (string, []any, int) {
	var conds []string
	var args []any

	if q.ID != "" {
		conds = append(conds, fmt.Sprintf("id = $%d", next))
		args = append(args, q.ID)
		next++
	}
	if len(q.IDs) > 0 {
		conds = append(conds, fmt.Sprintf("id = ANY($%d)", next))
		args = append(args, q.IDs)
		next++
	}
	if q.Name != "" {
		conds = append(conds, fmt.Sprintf("name = $%d", next))
		args = append(args, q.Name)
		next++
	}
	if q.UserID != "" {
		conds = append(conds, fmt.Sprintf("user_id = $%d", next))
		args = append(args, q.UserID)
		next++
	}

	if len(conds) == 0 {
		return "", nil, next
	}
	return " WHERE " + strings.Join(conds, " AND "), args, next
}

func orderClause(sort filedepot.SortOrder) string {
	if sort == filedepot.SortDesc {
		return " ORDER BY created_at DESC, id DESC"
	}
	return " ORDER BY created_at ASC, id ASC"
}

func (r *Repo) tableName() string {
	return pgx.Identifier{r.tables.Files}.Sanitize()
}

func (r *Repo) pendingTableName() string {
	return pgx.Identifier{r.tables.Pending}.Sanitize()
}

func scanRecord(row pgx.Row) (filedepot.FileRecord, error) {
	var rec filedepot.FileRecord
	var meta, versions []byte

	if err := row.Scan(
		&rec.ID, &rec.Name, &rec.Type, &rec.Size, &rec.Extension,
		&rec.UserID, &meta, &versions, &rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		return filedepot.FileRecord{}, err
	}

	if rec.Extension != "" {
		rec.ExtensionWithDot = "." + rec.Extension
	}
	if err := json.Unmarshal(meta, &rec.Meta); err != nil {
		return filedepot.FileRecord{}, fmt.Errorf("unmarshal meta: %w", err)
	}
	if err := json.Unmarshal(versions, &rec.Versions); err != nil {
		return filedepot.FileRecord{}, fmt.Errorf("unmarshal versions: %w", err)
	}
	return rec, nil
}

func (r *Repo) Insert(ctx context.Context, rec filedepot.FileRecord) (string, error) {
	if rec.ID == "" {
		return "", fmt.Errorf("insert: %w: record ID cannot be empty", filedepot.ErrInvalidInput)
	}

	meta, err := json.Marshal(orEmptyMeta(rec.Meta))
	if err != nil {
		return "", fmt.Errorf("insert: marshal meta: %w", err)
	}
	versions, err := json.Marshal(rec.Versions)
	if err != nil {
		return "", fmt.Errorf("insert: marshal versions: %w", err)
	}

	now := time.Now().UTC()
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, r.tableName(), recordColumns)

	_, err = r.pool.Exec(ctx, query,
		rec.ID, rec.Name, rec.Type, rec.Size, rec.Extension, rec.UserID,
		meta, versions, createdAt, updatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert: %w", err)
	}
	return rec.ID, nil
}

func (r *Repo) FindOne(ctx context.Context, q filedepot.Query) (filedepot.FileRecord, error) {
	recs, err := r.list(ctx, q, filedepot.SortAsc, 0, 1)
	if err != nil {
		return filedepot.FileRecord{}, fmt.Errorf("find one: %w", err)
	}
	if len(recs) == 0 {
		return filedepot.FileRecord{}, filedepot.ErrNotFound
	}
	return recs[0], nil
}

func (r *Repo) Find(ctx context.Context, q filedepot.Query, opts filedepot.FindOptions) (filedepot.StoreCursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	lister := func(ctx context.Context, skip, limit int) ([]filedepot.FileRecord, error) {
		return r.list(ctx, q, opts.Sort, skip, limit)
	}
	counter := func(ctx context.Context) (int64, error) {
		return r.Count(ctx, q)
	}
	return internal.NewCursor(opts.Skip, opts.Limit, lister, counter), nil
}

func (r *Repo) list(ctx context.Context, q filedepot.Query, sort filedepot.SortOrder, skip, limit int) ([]filedepot.FileRecord, error) {
	where, args, next := whereClause(q, 1)
	query := fmt.Sprintf(`SELECT %s FROM %s`, recordColumns, r.tableName()) + where + orderClause(sort)

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", next)
		args = append(args, limit)
		next++
	}
	if skip > 0 {
		query += fmt.Sprintf(" OFFSET $%d", next)
		args = append(args, skip)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	var recs []filedepot.FileRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	return recs, nil
}

func (r *Repo) Update(ctx context.Context, q filedepot.Query, patch filedepot.RecordPatch) (int64, error) {
	var sets []string
	var args []any
	next := 1

	if patch.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", next))
		args = append(args, *patch.Name)
		next++
	}
	if patch.Type != nil {
		sets = append(sets, fmt.Sprintf("content_type = $%d", next))
		args = append(args, *patch.Type)
		next++
	}
	if patch.Meta != nil {
		meta, err := json.Marshal(patch.Meta)
		if err != nil {
			return 0, fmt.Errorf("update: marshal meta: %w", err)
		}
		sets = append(sets, fmt.Sprintf("meta = $%d", next))
		args = append(args, meta)
		next++
	}
	if patch.Versions != nil {
		versions, err := json.Marshal(patch.Versions)
		if err != nil {
			return 0, fmt.Errorf("update: marshal versions: %w", err)
		}
		sets = append(sets, fmt.Sprintf("versions = $%d", next))
		args = append(args, versions)
		next++
	}

	if len(sets) == 0 {
		return 0, nil
	}

	sets = append(sets, "updated_at = NOW()")

	where, whereArgs, _ := whereClause(q, next)
	query := fmt.Sprintf(`UPDATE %s SET %s`, r.tableName(), strings.Join(sets, ", ")) + where

	result, err := r.pool.Exec(ctx, query, append(args, whereArgs...)...)
	if err != nil {
		return 0, fmt.Errorf("update: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *Repo) Remove(ctx context.Context, q filedepot.Query) (int64, error) {
	if q.IsEmpty() {
		return 0, fmt.Errorf("remove: %w: refusing to remove with an empty query", filedepot.ErrInvalidInput)
	}

	where, args, _ := whereClause(q, 1)
	query := fmt.Sprintf(`DELETE FROM %s`, r.tableName()) + where

	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("remove: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *Repo) Count(ctx context.Context, q filedepot.Query) (int64, error) {
	where, args, _ := whereClause(q, 1)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.tableName()) + where

	var n int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Track records an in-flight upload marker, replacing any stale marker for
// the same fileID.
func (r *Repo) Track(ctx context.Context, s filedepot.UploadSession) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (file_id, name, path, content_type, size_bytes, user_id, state)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		ON CONFLICT (file_id) DO UPDATE
		SET name = EXCLUDED.name,
			path = EXCLUDED.path,
			content_type = EXCLUDED.content_type,
			size_bytes = EXCLUDED.size_bytes,
			user_id = EXCLUDED.user_id,
			state = 'pending',
			resolved_at = NULL
	`, r.pendingTableName())

	if _, err := r.pool.Exec(ctx, query, s.FileID, s.Name, s.Path, s.Type, s.Size, s.UserID); err != nil {
		return fmt.Errorf("track pending: %w", err)
	}
	return nil
}

// Resolve marks the upload marker complete. A missing marker is not an
// error.
func (r *Repo) Resolve(ctx context.Context, fileID string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET state = 'complete', resolved_at = NOW() WHERE file_id = $1
	`, r.pendingTableName())

	if _, err := r.pool.Exec(ctx, query, fileID); err != nil {
		return fmt.Errorf("resolve pending: %w", err)
	}
	return nil
}

// Discard drops the upload marker for an abandoned session.
func (r *Repo) Discard(ctx context.Context, fileID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE file_id = $1`, r.pendingTableName())
	if _, err := r.pool.Exec(ctx, query, fileID); err != nil {
		return fmt.Errorf("discard pending: %w", err)
	}
	return nil
}

func orEmptyMeta(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}

var _ filedepot.MetadataStore = (*Repo)(nil)
var _ filedepot.PendingTracker = (*Repo)(nil)
