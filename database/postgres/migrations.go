package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/filedepot/filedepot"
)

func createFilesTable(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	indexOrder := pgx.Identifier{fmt.Sprintf("idx_%s_order", tableName)}.Sanitize()
	indexUser := pgx.Identifier{fmt.Sprintf("idx_%s_user", tableName)}.Sanitize()

	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			content_type TEXT NOT NULL,
			size_bytes BIGINT NOT NULL,
			extension TEXT NOT NULL,
			user_id TEXT NOT NULL DEFAULT '',
			meta JSONB NOT NULL DEFAULT '{}',
			versions JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS %s
		ON %s (created_at, id);

		CREATE INDEX IF NOT EXISTS %s
		ON %s (user_id);
	`,
		quotedTable,
		indexOrder, quotedTable,
		indexUser, quotedTable,
	)

	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("create files table: %w", err)
	}
	return nil
}

func createPendingTable(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	quotedTable := pgx.Identifier{tableName}.Sanitize()

	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			file_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			path TEXT NOT NULL,
			content_type TEXT NOT NULL,
			size_bytes BIGINT NOT NULL,
			user_id TEXT NOT NULL DEFAULT '',
			state TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			resolved_at TIMESTAMPTZ
		);
	`, quotedTable)

	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("create pending table: %w", err)
	}
	return nil
}

func Migrate(ctx context.Context, pool *pgxpool.Pool, tables filedepot.Tables) error {
	if err := createFilesTable(ctx, pool, tables.Files); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := createPendingTable(ctx, pool, tables.Pending); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func DropTables(ctx context.Context, pool *pgxpool.Pool, tables filedepot.Tables) error {
	for _, table := range []string{tables.Pending, tables.Files} {
		sql := fmt.Sprintf(`DROP TABLE IF EXISTS %s`, pgx.Identifier{table}.Sanitize())
		if _, err := pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("drop table %s: %w", table, err)
		}
	}
	return nil
}

// ValidateSchema checks the required tables exist with the expected
// columns.
func ValidateSchema(ctx context.Context, pool *pgxpool.Pool, tables filedepot.Tables) error {
	required := map[string][]string{
		tables.Files: {
			"id", "name", "content_type", "size_bytes", "extension",
			"user_id", "meta", "versions", "created_at", "updated_at",
		},
		tables.Pending: {
			"file_id", "name", "path", "content_type", "size_bytes",
			"user_id", "state", "created_at", "resolved_at",
		},
	}

	for table, columns := range required {
		rows, err := pool.Query(ctx,
			`SELECT column_name FROM information_schema.columns WHERE table_name = $1`, table)
		if err != nil {
			return fmt.Errorf("validate schema %s: %w", table, err)
		}

		actual := make(map[string]bool)
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				rows.Close()
				return fmt.Errorf("validate schema %s: %w", table, err)
			}
			actual[name] = true
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("validate schema %s: %w", table, err)
		}

		if len(actual) == 0 {
			return fmt.Errorf("validate schema: table %s does not exist", table)
		}
		for _, col := range columns {
			if !actual[col] {
				return fmt.Errorf("validate schema: table %s is missing column %s", table, col)
			}
		}
	}
	return nil
}
