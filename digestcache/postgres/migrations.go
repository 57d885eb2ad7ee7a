package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/servefile"
)

// Migrate creates the digest table and its indexes if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool, table servefile.DigestTable) error {
	if err := table.Validate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	if err := createDigestTable(ctx, pool, string(table)); err != nil {
		return fmt.Errorf("migrate up %s: %w", table, err)
	}

	return nil
}

// DropTables removes the digest table.
func DropTables(ctx context.Context, pool *pgxpool.Pool, table servefile.DigestTable) error {
	_, err := pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", pgx.Identifier{string(table)}.Sanitize()))
	if err != nil {
		return fmt.Errorf("migrate down %s: %w", table, err)
	}
	return nil
}

func createDigestTable(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	indexUpdatedAt := pgx.Identifier{fmt.Sprintf("idx_%s_updated_at", tableName)}.Sanitize()

	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			path TEXT PRIMARY KEY,
			size BIGINT NOT NULL,
			mod_time BIGINT NOT NULL,
			digest BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS %s
		ON %s (updated_at);
	`,
		quotedTable,
		indexUpdatedAt, quotedTable,
	)

	_, err := pool.Exec(ctx, sql)
	if err != nil {
		return fmt.Errorf("create digest table: %w", err)
	}
	return nil
}
