package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/sagarc03/servefile"
	"github.com/sagarc03/servefile/config"
	servefilehttp "github.com/sagarc03/servefile/http"
	"github.com/sagarc03/servefile/offload"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Serve the configured root directory over HTTP.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 5708, "HTTP server port")
	serveCmd.Flags().Bool("listing", false, "list directories that have no index file")
	serveCmd.Flags().String("index-file", "index.html", "file served for directory paths, empty to disable")
	serveCmd.Flags().Bool("strong-etags", false, "use content digests for ETags")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	store, closeRoot, err := openStore(cfg.Serve)
	if err != nil {
		return err
	}
	defer closeRoot()

	digester, _, closeCache, err := openDigester(ctx, cfg.DigestCache, store)
	if err != nil {
		return err
	}
	defer closeCache()

	plannerCfg, err := cfg.Serve.PlannerConfig()
	if err != nil {
		return err
	}

	types, err := cfg.Serve.ContentTypes()
	if err != nil {
		return err
	}

	planner, err := servefile.NewPlanner(store, types, digester, plannerCfg)
	if err != nil {
		return fmt.Errorf("create planner: %w", err)
	}

	var metrics *servefilehttp.Metrics
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = servefilehttp.NewMetrics(reg)

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsServer = &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			slog.Info("starting metrics server", "addr", cfg.Metrics.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server error", "err", err)
			}
		}()
	}

	pool := offload.NewPool(cfg.Server.PoolSize)
	handler := servefilehttp.NewHandler(&servefilehttp.HandlerConfig{
		CORS:       cfg.CORS,
		Pool:       pool,
		Metrics:    metrics,
		ServerName: cfg.Server.Name,
	}, planner)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "err", err)
			}
		}
		cancel()
	}()

	slog.Info("starting server",
		"addr", addr,
		"root", cfg.Serve.Root,
		"listing", plannerCfg.Listing,
		"strong_etags", plannerCfg.StrongETags,
		"pool_size", pool.Size(),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
