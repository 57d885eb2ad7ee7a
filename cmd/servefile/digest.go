package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/servefile/config"
	"github.com/sagarc03/servefile/digestcache"
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Manage the content digest cache",
}

var digestWarmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Digest every file below the root into the cache",
	Long: `Walk the serve root and store the SHA256 of every file no larger than
serve.strong_etag_max_size, so strong ETags are ready before the first
request. Entries for files that changed since the last run are replaced.`,
	RunE: runDigestWarm,
}

func init() {
	digestWarmCmd.Flags().Int("workers", 4, "files digested concurrently")
	digestWarmCmd.Flags().Bool("prune", false, "remove entries for files that no longer exist")

	digestCmd.AddCommand(digestWarmCmd)
	rootCmd.AddCommand(digestCmd)
}

func runDigestWarm(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}
	if !cfg.DigestCache.Enabled {
		return errors.New("digest cache is not enabled (set digest_cache.enabled or --digest-cache)")
	}

	workers, _ := cmd.Flags().GetInt("workers")
	prune, _ := cmd.Flags().GetBool("prune")

	store, closeRoot, err := openStore(cfg.Serve)
	if err != nil {
		return err
	}
	defer closeRoot()

	digester, ds, closeCache, err := openDigester(ctx, cfg.DigestCache, store)
	if err != nil {
		return err
	}
	defer closeCache()

	slog.Info("warming digest cache", "root", cfg.Serve.Root, "type", cfg.DigestCache.Type)

	_, err = digestcache.Warm(ctx, store, digester, ds, digestcache.WarmOptions{
		MaxSize: cfg.Serve.StrongETagMaxSize,
		Workers: workers,
		Prune:   prune,
	})
	return err
}
