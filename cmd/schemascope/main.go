// Command schemascope serves live database schema inspection over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkoline/schemascope/internal/config"
	"github.com/mkoline/schemascope/internal/inspect"
	"github.com/mkoline/schemascope/internal/logger"
	"github.com/mkoline/schemascope/internal/server"
	"github.com/mkoline/schemascope/internal/snapshot"
	"github.com/mkoline/schemascope/internal/snapshot/minio"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "schemascope:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var snaps snapshot.Store
	if cfg.Snapshot.Enabled {
		store, err := minio.New(ctx, cfg.Snapshot.Config)
		if err != nil {
			return fmt.Errorf("snapshot store: %w", err)
		}
		defer store.Close()
		snaps = store
		log.Info().Str("bucket", cfg.Snapshot.Bucket).Msg("snapshot store ready")
	}

	registry := inspect.NewRegistry(
		inspect.WithTTL(cfg.Cache.TTL.Std()),
		inspect.WithLogger(log),
	)

	srv := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      server.New(registry, snaps, log).Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("listen", cfg.Server.Listen).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
