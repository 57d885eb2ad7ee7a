package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/servefile"
	"github.com/sagarc03/servefile/digestcache/internal/schema"
)

var digestColumns = map[string]schema.Column{
	"path":       {Type: "text"},
	"size":       {Type: "bigint"},
	"mod_time":   {Type: "bigint"},
	"digest":     {Type: "bytea"},
	"updated_at": {Type: "timestamp with time zone"},
}

// ValidateSchema checks that the digest table exists with the expected columns.
func ValidateSchema(ctx context.Context, pool *pgxpool.Pool, table servefile.DigestTable) error {
	if err := table.Validate(); err != nil {
		return err
	}

	got, err := readColumns(ctx, pool, string(table))
	if err != nil {
		return fmt.Errorf("validate schema %s: %w", table, err)
	}
	if len(got) == 0 {
		return fmt.Errorf("validate schema %s: table does not exist", table)
	}

	return schema.Compare(string(table), digestColumns, got)
}

type columnRow struct {
	Name       string
	DataType   string
	IsNullable string
}

// readColumns returns the columns of a table in the current schema, or none
// when the table does not exist.
func readColumns(ctx context.Context, pool *pgxpool.Pool, table string) (map[string]schema.Column, error) {
	rows, err := pool.Query(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
	`, table)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}

	found, err := pgx.CollectRows(rows, pgx.RowToStructByPos[columnRow])
	if err != nil {
		return nil, fmt.Errorf("collect columns: %w", err)
	}

	columns := make(map[string]schema.Column, len(found))
	for _, c := range found {
		columns[c.Name] = schema.Column{Type: c.DataType, Nullable: c.IsNullable == "YES"}
	}
	return columns, nil
}
