package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scranton-labs/auditdex/internal/transport/httpapi"
	"github.com/scranton-labs/auditdex/internal/version"
	"github.com/scranton-labs/auditdex/internal/watch"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the audit Q&A HTTP API server",
	Long: `Start the HTTP API server.

Endpoints:
  POST /v1/query   run an audit query through the pipeline
  GET  /healthz    aggregated component health
  GET  /metrics    Prometheus metrics`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	a.logger.Info("Starting auditdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", rootFlags.env),
		zap.Int("http_port", a.cfg.HTTP.Port),
	)

	// Corpus watcher keeps the indices current while serving.
	if a.cfg.Corpus.Watch {
		watcher, err := watch.New(watch.DefaultDebounce, a.logger)
		if err != nil {
			return fmt.Errorf("create corpus watcher: %w", err)
		}
		if err := watcher.Add(a.cfg.Corpus.PolicyPath, a.policyIdx); err != nil {
			return fmt.Errorf("watch policy corpus: %w", err)
		}
		if err := watcher.Add(a.cfg.Corpus.EmailPath, a.emailIdx); err != nil {
			return fmt.Errorf("watch email corpus: %w", err)
		}
		go func() {
			if err := watcher.Run(ctx); err != nil {
				a.logger.Error("Corpus watcher stopped", zap.Error(err))
			}
		}()
	}

	// Optional scheduled reindex as a safety net.
	scheduler := watch.NewScheduler(a.cfg.Reindex.Schedule, map[string]watch.Refresher{
		"policy": a.policyIdx,
		"email":  a.emailIdx,
	}, a.logger)
	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	defer scheduler.Stop()

	server := httpapi.NewServer(a.pipeline, a.health, a.logger)

	addr := fmt.Sprintf(":%d", a.cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  time.Duration(a.cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(a.cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	a.logger.Info("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
		time.Duration(a.cfg.HTTP.ShutdownSec)*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Error during shutdown", zap.Error(err))
	}

	a.logger.Info("Server stopped gracefully")
	return nil
}
