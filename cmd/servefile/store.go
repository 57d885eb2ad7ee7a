package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/sagarc03/servefile"
	"github.com/sagarc03/servefile/config"
	"github.com/sagarc03/servefile/digestcache"
	"github.com/sagarc03/servefile/filesystem"
)

func openStore(cfg config.ServeConfig) (*filesystem.Store, func(), error) {
	info, err := os.Stat(cfg.Root)
	if err != nil {
		return nil, nil, fmt.Errorf("serve root: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("serve root %s is not a directory", cfg.Root)
	}

	root, err := os.OpenRoot(cfg.Root)
	if err != nil {
		return nil, nil, fmt.Errorf("open serve root: %w", err)
	}

	store := filesystem.New(root, filesystem.Options{FollowSymlinks: cfg.FollowSymlinks})
	return store, func() { _ = root.Close() }, nil
}

// openDigester returns the store itself when the digest cache is off, and a
// caching Digester in front of it otherwise.
func openDigester(ctx context.Context, cfg config.DigestCacheConfig, store *filesystem.Store) (servefile.Digester, servefile.DigestStore, func(), error) {
	if !cfg.Enabled {
		return store, nil, func() {}, nil
	}

	ds, cleanup, err := digestcache.Connect(ctx, cfg.Store())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect digest cache: %w", err)
	}

	slog.Info("connected to digest cache", "type", cfg.Type)
	return digestcache.New(store, ds), ds, cleanup, nil
}
