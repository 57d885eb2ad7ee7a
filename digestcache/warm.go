package digestcache

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/sagarc03/servefile"
	"github.com/sagarc03/servefile/filesystem"
)

// Tree is the part of filesystem.Store that Warm walks.
type Tree interface {
	Walk(ctx context.Context, fn filesystem.WalkFunc) error
	OpenPath(p string) (servefile.Handle, error)
}

type WarmOptions struct {
	// MaxSize skips files larger than this many bytes. Zero means no limit.
	MaxSize uint64
	// Workers bounds concurrent digests. Zero or less means one.
	Workers int
	// Prune removes entries for paths that no longer exist.
	Prune bool
}

type WarmReport struct {
	Digested int64
	Skipped  int64
	Pruned   int
}

// Warm digests every file below the tree's root through d, so the first
// request for each file finds its digest in the store.
func Warm(ctx context.Context, tree Tree, d servefile.Digester, store servefile.DigestStore, opts WarmOptions) (WarmReport, error) {
	var digested, skipped atomic.Int64
	seen := make(map[string]struct{})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Workers, 1))

	walkErr := tree.Walk(gctx, func(p string, info servefile.FileInfo) error {
		seen[p] = struct{}{}

		if opts.MaxSize > 0 && info.Size > opts.MaxSize {
			skipped.Add(1)
			return nil
		}

		g.Go(func() error {
			h, err := tree.OpenPath(p)
			if err != nil {
				return fmt.Errorf("warm %s: %w", p, err)
			}
			defer func() { _ = h.Close() }()

			if _, err := d.Digest(h, info); err != nil {
				return fmt.Errorf("warm %s: %w", p, err)
			}
			digested.Add(1)
			return nil
		})
		return nil
	})

	err := g.Wait()
	report := WarmReport{Digested: digested.Load(), Skipped: skipped.Load()}
	if err != nil {
		return report, err
	}
	if walkErr != nil {
		return report, walkErr
	}

	if opts.Prune {
		n, err := store.Prune(ctx, func(p string) bool {
			_, ok := seen[p]
			return ok
		})
		if err != nil {
			return report, fmt.Errorf("prune digests: %w", err)
		}
		report.Pruned = n
	}

	slog.Info("digest cache warmed", "digested", report.Digested, "skipped", report.Skipped, "pruned", report.Pruned)
	return report, nil
}
