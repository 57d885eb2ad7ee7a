// Package postgres implements servefile.DigestStore using PostgreSQL
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/servefile"
)

type Repo struct {
	pool      *pgxpool.Pool
	tableName string
}

func NewRepo(pool *pgxpool.Pool, table servefile.DigestTable) (*Repo, error) {
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}

	return &Repo{pool: pool, tableName: pgx.Identifier{string(table)}.Sanitize()}, nil
}

// Open connects to PostgreSQL, migrates and validates the digest table.
func Open(ctx context.Context, dsn string, table servefile.DigestTable) (*Repo, func(), error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err = Migrate(ctx, pool, table); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate postgres: %w", err)
	}

	if err = ValidateSchema(ctx, pool, table); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("validate postgres schema: %w", err)
	}

	repo, err := NewRepo(pool, table)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("create postgres repo: %w", err)
	}

	return repo, pool.Close, nil
}

// Ping verifies database connectivity
func (r *Repo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repo) Get(ctx context.Context, key servefile.DigestKey) ([]byte, error) {
	query := fmt.Sprintf(`
		SELECT digest FROM %s
		WHERE path = $1 AND size = $2 AND mod_time = $3
	`, r.tableName)

	var digest []byte
	err := r.pool.QueryRow(ctx, query, key.Path, int64(key.Size), key.ModTime.UnixNano()).Scan(&digest) //nolint:gosec // G115: file sizes fit in int64
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, servefile.ErrNotFound
		}
		return nil, fmt.Errorf("get: %w", err)
	}

	return digest, nil
}

func (r *Repo) Put(ctx context.Context, key servefile.DigestKey, digest []byte) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (path, size, mod_time, digest)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (path) DO UPDATE
		SET size = EXCLUDED.size,
			mod_time = EXCLUDED.mod_time,
			digest = EXCLUDED.digest,
			updated_at = NOW()
	`, r.tableName)

	_, err := r.pool.Exec(ctx, query, key.Path, int64(key.Size), key.ModTime.UnixNano(), digest) //nolint:gosec // G115: file sizes fit in int64
	if err != nil {
		return fmt.Errorf("put: %w", err)
	}

	return nil
}

func (r *Repo) Prune(ctx context.Context, keep func(path string) bool) (int, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT path FROM %s ORDER BY path`, r.tableName))
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}

	paths, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return 0, fmt.Errorf("prune: scan: %w", err)
	}

	var stale []string
	for _, p := range paths {
		if !keep(p) {
			stale = append(stale, p)
		}
	}

	if len(stale) == 0 {
		return 0, nil
	}

	result, err := r.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE path = ANY($1)`, r.tableName), stale)
	if err != nil {
		return 0, fmt.Errorf("prune: delete: %w", err)
	}

	return int(result.RowsAffected()), nil
}
