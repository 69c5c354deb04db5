// Package sqlite implements the metadata store and pending-upload tracker
// using SQLite
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/filedepot/filedepot"
	"github.com/filedepot/filedepot/internal"
)

type Repo struct {
	db     *sql.DB
	tables filedepot.Tables
}

func NewRepo(db *sql.DB, tables filedepot.Tables) (*Repo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}
	return &Repo{db: db, tables: tables}, nil
}

const recordColumns = `id, name, content_type, size_bytes, extension, user_id, meta, versions, created_at, updated_at`

// whereClause renders q as a WHERE fragment with '?' placeholders. An empty
// query renders to an empty fragment.
func whereClause(q filedepot.Query) (string, []any) {
	var conds []string
	var args []any

	if q.ID != "" {
		conds = append(conds, "id = ?")
		args = append(args, q.ID)
	}
	if len(q.IDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(q.IDs)), ",")
		conds = append(conds, fmt.Sprintf("id IN (%s)", placeholders))
		for _, id := range q.IDs {
			args = append(args, id)
		}
	}
	if q.Name != "" {
		conds = append(conds, "name = ?")
		args = append(args, q.Name)
	}
	if q.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, q.UserID)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderClause(sort filedepot.SortOrder) string {
	if sort == filedepot.SortDesc {
		return " ORDER BY created_at DESC, id DESC"
	}
	return " ORDER BY created_at ASC, id ASC"
}

func scanRecord(scan func(dest ...any) error) (filedepot.FileRecord, error) {
	var rec filedepot.FileRecord
	var meta, versions, createdAt, updatedAt string

	if err := scan(
		&rec.ID, &rec.Name, &rec.Type, &rec.Size, &rec.Extension,
		&rec.UserID, &meta, &versions, &createdAt, &updatedAt,
	); err != nil {
		return filedepot.FileRecord{}, err
	}

	if rec.Extension != "" {
		rec.ExtensionWithDot = "." + rec.Extension
	}
	if err := json.Unmarshal([]byte(meta), &rec.Meta); err != nil {
		return filedepot.FileRecord{}, fmt.Errorf("unmarshal meta: %w", err)
	}
	if err := json.Unmarshal([]byte(versions), &rec.Versions); err != nil {
		return filedepot.FileRecord{}, fmt.Errorf("unmarshal versions: %w", err)
	}

	var err error
	rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return filedepot.FileRecord{}, fmt.Errorf("parse created_at: %w", err)
	}
	rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return filedepot.FileRecord{}, fmt.Errorf("parse updated_at: %w", err)
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

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		quoteIdentifier(r.tables.Files), recordColumns)

	_, err = r.db.ExecContext(ctx, query,
		rec.ID, rec.Name, rec.Type, rec.Size, rec.Extension, rec.UserID,
		string(meta), string(versions),
		createdAt.Format(time.RFC3339Nano), updatedAt.Format(time.RFC3339Nano),
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
	where, args := whereClause(q)
	query := fmt.Sprintf(`SELECT %s FROM %s`, recordColumns, quoteIdentifier(r.tables.Files)) + //nolint:gosec // table name is validated
		where + orderClause(sort)

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	} else if skip > 0 {
		// SQLite needs a LIMIT before OFFSET; -1 means unlimited.
		query += " LIMIT -1"
	}
	if skip > 0 {
		query += " OFFSET ?"
		args = append(args, skip)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var recs []filedepot.FileRecord
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
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

	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Type != nil {
		sets = append(sets, "content_type = ?")
		args = append(args, *patch.Type)
	}
	if patch.Meta != nil {
		meta, err := json.Marshal(patch.Meta)
		if err != nil {
			return 0, fmt.Errorf("update: marshal meta: %w", err)
		}
		sets = append(sets, "meta = ?")
		args = append(args, string(meta))
	}
	if patch.Versions != nil {
		versions, err := json.Marshal(patch.Versions)
		if err != nil {
			return 0, fmt.Errorf("update: marshal versions: %w", err)
		}
		sets = append(sets, "versions = ?")
		args = append(args, string(versions))
	}

	if len(sets) == 0 {
		return 0, nil
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC().Format(time.RFC3339Nano))

	where, whereArgs := whereClause(q)
	query := fmt.Sprintf(`UPDATE %s SET %s`, quoteIdentifier(r.tables.Files), strings.Join(sets, ", ")) + where //nolint:gosec // table name is validated

	result, err := r.db.ExecContext(ctx, query, append(args, whereArgs...)...)
	if err != nil {
		return 0, fmt.Errorf("update: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update: %w", err)
	}
	return n, nil
}

func (r *Repo) Remove(ctx context.Context, q filedepot.Query) (int64, error) {
	if q.IsEmpty() {
		return 0, fmt.Errorf("remove: %w: refusing to remove with an empty query", filedepot.ErrInvalidInput)
	}

	where, args := whereClause(q)
	query := fmt.Sprintf(`DELETE FROM %s`, quoteIdentifier(r.tables.Files)) + where //nolint:gosec // table name is validated

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("remove: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("remove: %w", err)
	}
	return n, nil
}

func (r *Repo) Count(ctx context.Context, q filedepot.Query) (int64, error) {
	where, args := whereClause(q)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, quoteIdentifier(r.tables.Files)) + where //nolint:gosec // table name is validated

	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Track records an in-flight upload marker, replacing any stale marker for
// the same fileID.
func (r *Repo) Track(ctx context.Context, s filedepot.UploadSession) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT OR REPLACE INTO %s (file_id, name, path, content_type, size_bytes, user_id, state, created_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, 'pending', ?, NULL)`,
		quoteIdentifier(r.tables.Pending))

	_, err := r.db.ExecContext(ctx, query,
		s.FileID, s.Name, s.Path, s.Type, s.Size, s.UserID,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("track pending: %w", err)
	}
	return nil
}

// Resolve marks the upload marker complete. A missing marker is not an
// error: the transport may never have tracked one for sessions finished
// out of band.
func (r *Repo) Resolve(ctx context.Context, fileID string) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`UPDATE %s SET state = 'complete', resolved_at = ? WHERE file_id = ?`,
		quoteIdentifier(r.tables.Pending))

	_, err := r.db.ExecContext(ctx, query, time.Now().UTC().Format(time.RFC3339Nano), fileID)
	if err != nil {
		return fmt.Errorf("resolve pending: %w", err)
	}
	return nil
}

// Discard drops the upload marker for an abandoned session.
func (r *Repo) Discard(ctx context.Context, fileID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE file_id = ?`, quoteIdentifier(r.tables.Pending)) //nolint:gosec // table name is validated
	if _, err := r.db.ExecContext(ctx, query, fileID); err != nil {
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
