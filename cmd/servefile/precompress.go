package main

import (
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sagarc03/servefile/config"
	"github.com/sagarc03/servefile/negotiate"
	"github.com/sagarc03/servefile/precompress"
)

var precompressCmd = &cobra.Command{
	Use:   "precompress",
	Short: "Write compressed siblings for served files",
	Long: `Walk the serve root and write a.js.gz and a.js.zst next to every file
that encoding_support makes eligible. Siblings newer than their source are
left alone unless --force is given. Brotli siblings are served when present
but never written.`,
	RunE: runPrecompress,
}

func init() {
	precompressCmd.Flags().String("min-size", "1KiB", "skip files smaller than this")
	precompressCmd.Flags().String("max-size", "64MiB", "skip files larger than this")
	precompressCmd.Flags().Bool("force", false, "rewrite siblings that are up to date")
	precompressCmd.Flags().Bool("prune", false, "delete siblings whose source file is gone")
	rootCmd.AddCommand(precompressCmd)
}

func runPrecompress(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	minSize, err := sizeFlag(cmd, "min-size")
	if err != nil {
		return err
	}
	maxSize, err := sizeFlag(cmd, "max-size")
	if err != nil {
		return err
	}
	force, _ := cmd.Flags().GetBool("force")
	prune, _ := cmd.Flags().GetBool("prune")

	support, err := negotiate.ParseSupport(cfg.Serve.EncodingSupport)
	if err != nil {
		return err
	}
	types, err := cfg.Serve.ContentTypes()
	if err != nil {
		return err
	}

	store, closeRoot, err := openStore(cfg.Serve)
	if err != nil {
		return err
	}
	defer closeRoot()

	slog.Info("precompressing", "root", cfg.Serve.Root, "support", support)

	report, err := precompress.Run(ctx, store, precompress.Options{
		Variants: cfg.Serve.Variants,
		Support:  support,
		Types:    types,
		MinSize:  minSize,
		MaxSize:  maxSize,
		Force:    force,
		Prune:    prune,
	})
	if err != nil {
		return err
	}

	slog.Info("precompress complete",
		"written", report.Written,
		"skipped", report.Skipped,
		"pruned", report.Pruned,
		"saved", humanize.IBytes(uint64(report.Saved)), //nolint:gosec // G115: never negative
	)
	return nil
}

func sizeFlag(cmd *cobra.Command, name string) (uint64, error) {
	s, err := cmd.Flags().GetString(name)
	if err != nil {
		return 0, err
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return n, nil
}
