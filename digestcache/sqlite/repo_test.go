package sqlite_test

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/servefile"
	"github.com/sagarc03/servefile/digestcache/sqlite"
)

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	assert.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

func setupTestRepo(t *testing.T) *sqlite.Repo {
	t.Helper()

	table := servefile.DigestTable(fmt.Sprintf("digests_%s", getRandomString(t)))
	repo, cleanup, err := sqlite.Open(context.Background(), ":memory:", table)
	require.NoError(t, err, "failed to open")
	t.Cleanup(cleanup)

	return repo
}

var modTime = time.Date(2024, time.March, 3, 10, 20, 30, 123456789, time.UTC)

func TestRepo_GetMiss(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.Get(context.Background(), servefile.DigestKey{Path: "a.txt", Size: 1, ModTime: modTime})

	assert.ErrorIs(t, err, servefile.ErrNotFound)
}

func TestRepo_PutGet(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	key := servefile.DigestKey{Path: "docs/a.txt", Size: 42, ModTime: modTime}

	require.NoError(t, repo.Put(ctx, key, []byte{0xde, 0xad}))

	got, err := repo.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad}, got)
}

func TestRepo_StaleKeyMisses(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	key := servefile.DigestKey{Path: "a.txt", Size: 42, ModTime: modTime}
	require.NoError(t, repo.Put(ctx, key, []byte{1}))

	tt := []struct {
		Name string
		Key  servefile.DigestKey
	}{
		{Name: "size changed", Key: servefile.DigestKey{Path: "a.txt", Size: 43, ModTime: modTime}},
		{Name: "mtime changed", Key: servefile.DigestKey{Path: "a.txt", Size: 42, ModTime: modTime.Add(time.Nanosecond)}},
		{Name: "other path", Key: servefile.DigestKey{Path: "b.txt", Size: 42, ModTime: modTime}},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			_, err := repo.Get(ctx, tc.Key)
			assert.ErrorIs(t, err, servefile.ErrNotFound)
		})
	}
}

func TestRepo_PutReplacesOlderVersion(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	old := servefile.DigestKey{Path: "a.txt", Size: 1, ModTime: modTime}
	updated := servefile.DigestKey{Path: "a.txt", Size: 2, ModTime: modTime.Add(time.Hour)}

	require.NoError(t, repo.Put(ctx, old, []byte{1}))
	require.NoError(t, repo.Put(ctx, updated, []byte{2}))

	_, err := repo.Get(ctx, old)
	assert.ErrorIs(t, err, servefile.ErrNotFound)

	got, err := repo.Get(ctx, updated)
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, got)
}

func TestRepo_Prune(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	for _, p := range []string{"a.txt", "b.txt", "c/d.txt"} {
		require.NoError(t, repo.Put(ctx, servefile.DigestKey{Path: p, Size: 1, ModTime: modTime}, []byte(p)))
	}

	removed, err := repo.Prune(ctx, func(p string) bool { return p == "b.txt" })

	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, err = repo.Get(ctx, servefile.DigestKey{Path: "b.txt", Size: 1, ModTime: modTime})
	assert.NoError(t, err)
	_, err = repo.Get(ctx, servefile.DigestKey{Path: "a.txt", Size: 1, ModTime: modTime})
	assert.ErrorIs(t, err, servefile.ErrNotFound)
}

func TestOpen_InvalidTable(t *testing.T) {
	_, _, err := sqlite.Open(context.Background(), ":memory:", "Bad-Name")
	assert.Error(t, err)
}

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	table := servefile.DigestTable("digests")
	require.NoError(t, sqlite.Migrate(ctx, db, table))
	require.NoError(t, sqlite.Migrate(ctx, db, table))
	assert.NoError(t, sqlite.ValidateSchema(ctx, db, table))

	require.NoError(t, sqlite.DropTables(ctx, db, table))
	assert.Error(t, sqlite.ValidateSchema(ctx, db, table))
}

func TestValidateSchema_Mismatch(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(ctx, `CREATE TABLE "digests" (path TEXT NOT NULL, size TEXT)`)
	require.NoError(t, err)

	err = sqlite.ValidateSchema(ctx, db, "digests")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing columns")
	assert.Contains(t, err.Error(), "size: expected integer")
	assert.Contains(t, err.Error(), "got text")
}
