package servefile

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"
)

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// DigestKey identifies one version of a file. A digest stored under a key is
// stale as soon as the file's size or modification time changes, so those
// are part of the key rather than checked on read.
type DigestKey struct {
	Path    string
	Size    uint64
	ModTime time.Time
}

// DigestKeyOf builds the key for an open handle and its Stat result.
func DigestKeyOf(h Handle, info FileInfo) DigestKey {
	return DigestKey{Path: h.Path(), Size: info.Size, ModTime: info.ModTime.UTC()}
}

// DigestStore persists content digests between runs.
type DigestStore interface {
	// Get returns the digest stored under key, or ErrNotFound.
	Get(ctx context.Context, key DigestKey) ([]byte, error)

	// Put stores digest under key, replacing any digest for an older
	// version of the same path.
	Put(ctx context.Context, key DigestKey, digest []byte) error

	// Prune removes every entry whose path is not in keep.
	Prune(ctx context.Context, keep func(path string) bool) (int, error)
}

// DigestTable names the table a DigestStore keeps its entries in.
type DigestTable string

// Validate checks that the table name is set and valid.
func (t DigestTable) Validate() error {
	if t == "" {
		return errors.New("validate table: digest table name cannot be empty")
	}

	if !IsValidTableName(string(t)) {
		return fmt.Errorf("validate table: invalid digest table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", t)
	}

	return nil
}
