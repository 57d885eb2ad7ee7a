package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sagarc03/servefile"
	"github.com/sagarc03/servefile/digestcache/internal/schema"
)

var digestColumns = map[string]schema.Column{
	"path":       {Type: "text"},
	"size":       {Type: "integer"},
	"mod_time":   {Type: "integer"},
	"digest":     {Type: "blob"},
	"updated_at": {Type: "text"},
}

// ValidateSchema checks that the digest table exists with the expected columns.
func ValidateSchema(ctx context.Context, db *sql.DB, table servefile.DigestTable) error {
	if err := table.Validate(); err != nil {
		return err
	}

	got, err := readColumns(ctx, db, string(table))
	if err != nil {
		return fmt.Errorf("validate schema %s: %w", table, err)
	}
	if len(got) == 0 {
		return fmt.Errorf("validate schema %s: table does not exist", table)
	}

	return schema.Compare(string(table), digestColumns, got)
}

// readColumns returns the declared columns of a table, or none when the
// table does not exist.
func readColumns(ctx context.Context, db *sql.DB, table string) (map[string]schema.Column, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, quoteIdentifier(table)))
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns := make(map[string]schema.Column)
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, typ        string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns[name] = schema.Column{Type: typ, Nullable: notNull == 0}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	return columns, nil
}
