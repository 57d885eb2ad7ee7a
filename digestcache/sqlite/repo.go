// Package sqlite implements servefile.DigestStore using SQLite
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sagarc03/servefile"

	_ "modernc.org/sqlite" // SQLite driver
)

type Repo struct {
	db        *sql.DB
	tableName string
}

func NewRepo(db *sql.DB, table servefile.DigestTable) (*Repo, error) {
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}

	return &Repo{db: db, tableName: quoteIdentifier(string(table))}, nil
}

// Open opens a SQLite database, migrates and validates the digest table.
func Open(ctx context.Context, dsn string, table servefile.DigestTable) (*Repo, func(), error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite: %w", err)
	}

	// a pool of :memory: connections would each see a different database
	db.SetMaxOpenConns(1)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err = Migrate(ctx, db, table); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	if err = ValidateSchema(ctx, db, table); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("validate sqlite schema: %w", err)
	}

	repo, err := NewRepo(db, table)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("create sqlite repo: %w", err)
	}

	return repo, func() { _ = db.Close() }, nil
}

// Ping verifies database connectivity
func (r *Repo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repo) Get(ctx context.Context, key servefile.DigestKey) ([]byte, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT digest FROM %s WHERE path = ? AND size = ? AND mod_time = ?`, r.tableName)

	var digest []byte
	err := r.db.QueryRowContext(ctx, query, key.Path, int64(key.Size), key.ModTime.UnixNano()).Scan(&digest) //nolint:gosec // G115: file sizes fit in int64
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, servefile.ErrNotFound
		}
		return nil, fmt.Errorf("get: %w", err)
	}

	return digest, nil
}

func (r *Repo) Put(ctx context.Context, key servefile.DigestKey, digest []byte) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (path, size, mod_time, digest, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (path) DO UPDATE
		SET size = excluded.size,
			mod_time = excluded.mod_time,
			digest = excluded.digest,
			updated_at = excluded.updated_at`, r.tableName)

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := r.db.ExecContext(ctx, query, key.Path, int64(key.Size), key.ModTime.UnixNano(), digest, now) //nolint:gosec // G115: file sizes fit in int64
	if err != nil {
		return fmt.Errorf("put: %w", err)
	}

	return nil
}

func (r *Repo) Prune(ctx context.Context, keep func(path string) bool) (int, error) {
	paths, err := r.paths(ctx)
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("prune: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf(`DELETE FROM %s WHERE path = ?`, r.tableName) //nolint:gosec // G201: table name is validated

	removed := 0
	for _, p := range paths {
		if keep(p) {
			continue
		}
		if _, err := tx.ExecContext(ctx, query, p); err != nil {
			return 0, fmt.Errorf("prune: delete %s: %w", p, err)
		}
		removed++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("prune: commit: %w", err)
	}

	return removed, nil
}

func (r *Repo) paths(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT path FROM %s ORDER BY path`, r.tableName) //nolint:gosec // G201: table name is validated

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		paths = append(paths, p)
	}

	return paths, rows.Err()
}
