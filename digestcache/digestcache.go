package digestcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sagarc03/servefile"
	"github.com/sagarc03/servefile/digestcache/postgres"
	"github.com/sagarc03/servefile/digestcache/sqlite"
)

// DefaultTimeout bounds each cache lookup and store made by a Digester.
const DefaultTimeout = 2 * time.Second

// Config holds the configuration for connecting to a digest store.
type Config struct {
	// Type specifies the backend: "memory", "sqlite" or "postgres"
	Type string
	// DSN is the data source name (connection string), unused for memory
	DSN string
	// Table is the name of the digest table
	Table string
}

// Connect opens the configured backend, runs migrations, validates the
// schema, and returns a ready DigestStore. The returned cleanup function
// should be called to close the connection.
func Connect(ctx context.Context, cfg Config) (servefile.DigestStore, func(), error) {
	table := servefile.DigestTable(cfg.Table)

	switch cfg.Type {
	case "memory":
		return NewMemory(), func() {}, nil
	case "sqlite":
		repo, cleanup, err := sqlite.Open(ctx, cfg.DSN, table)
		if err != nil {
			return nil, nil, err
		}
		return repo, cleanup, nil
	case "postgres":
		repo, cleanup, err := postgres.Open(ctx, cfg.DSN, table)
		if err != nil {
			return nil, nil, err
		}
		return repo, cleanup, nil
	default:
		return nil, nil, fmt.Errorf("unsupported digest cache type: %s", cfg.Type)
	}
}

// Digester answers from a DigestStore and falls back to another Digester on
// a miss, storing what it computes. Store failures are logged and never fail
// the digest.
type Digester struct {
	next    servefile.Digester
	store   servefile.DigestStore
	timeout time.Duration
}

// New wraps next with store.
func New(next servefile.Digester, store servefile.DigestStore) *Digester {
	return &Digester{next: next, store: store, timeout: DefaultTimeout}
}

// Digest implements servefile.Digester.
func (d *Digester) Digest(h servefile.Handle, info servefile.FileInfo) ([]byte, error) {
	key := servefile.DigestKeyOf(h, info)

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	digest, err := d.store.Get(ctx, key)
	if err == nil {
		return digest, nil
	}
	if !errors.Is(err, servefile.ErrNotFound) {
		slog.Warn("digest cache lookup failed", "path", key.Path, "error", err)
	}

	digest, err = d.next.Digest(h, info)
	if err != nil {
		return nil, err
	}

	if err := d.store.Put(ctx, key, digest); err != nil {
		slog.Warn("digest cache store failed", "path", key.Path, "error", err)
	}

	return digest, nil
}

// Memory is an in-process DigestStore holding one digest per path.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	key    servefile.DigestKey
	digest []byte
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry)}
}

func (m *Memory) Get(_ context.Context, key servefile.DigestKey) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[key.Path]
	if !ok || e.key.Size != key.Size || !e.key.ModTime.Equal(key.ModTime) {
		return nil, servefile.ErrNotFound
	}
	return e.digest, nil
}

func (m *Memory) Put(_ context.Context, key servefile.DigestKey, digest []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key.Path] = memoryEntry{key: key, digest: digest}
	return nil
}

func (m *Memory) Prune(_ context.Context, keep func(path string) bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for p := range m.entries {
		if !keep(p) {
			delete(m.entries, p)
			removed++
		}
	}
	return removed, nil
}
