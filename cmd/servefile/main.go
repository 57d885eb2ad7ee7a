package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/servefile/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "servefile",
	Short:   "Static file server with ranges, validators and pre-compressed variants",
	Long: `servefile serves a directory tree over HTTP with conditional requests,
byte ranges, ETags, directory listings and pre-compressed sibling files.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var files []string
		if f, _ := cmd.Flags().GetString("config"); f != "" {
			files = append(files, f)
		}

		cfg, err := config.Load(files, cmd.Flags())
		if err != nil {
			return err
		}

		setupLogging(cfg)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("root", "", "directory to serve (default: ./public, env: SERVEFILE_SERVE_ROOT)")
	rootCmd.PersistentFlags().Bool("follow-symlinks", false, "follow symlinks that stay below the root")
	rootCmd.PersistentFlags().Bool("digest-cache", false, "cache content digests between runs")
	rootCmd.PersistentFlags().String("cache-type", "", "digest cache type: memory, sqlite, postgres (default: sqlite)")
	rootCmd.PersistentFlags().String("cache-dsn", "", "digest cache connection string (default: servefile.db)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
