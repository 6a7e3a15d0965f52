package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/immoshift/immoshift-web/internal/config"
	"github.com/immoshift/immoshift-web/internal/event"
	"github.com/immoshift/immoshift-web/internal/formtoken"
	"github.com/immoshift/immoshift-web/internal/media"
	"github.com/immoshift/immoshift-web/internal/metrics"
	"github.com/immoshift/immoshift-web/internal/placeholder"
	"github.com/immoshift/immoshift-web/internal/server"
	"github.com/immoshift/immoshift-web/internal/storage"
	"github.com/immoshift/immoshift-web/internal/telemetry"
)

const purgeInterval = 10 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the site server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := slog.Default()

	if cfg.Tracing {
		if _, err := telemetry.InitTracer(serviceName); err != nil {
			return fmt.Errorf("failed to initialize OpenTelemetry tracer: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			telemetry.ShutdownTracer(ctx)
		}()
	}

	ctx := cmd.Context()

	m := metrics.NewMetrics()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	store = storage.Instrument(store, m)
	defer store.Close()

	pub := event.NewPublisher(cfg.NATSURL, m)
	defer pub.Close()

	ready := map[string]server.ReadyCheck{}
	var cards placeholder.Store = placeholder.NewMemoryStore(0)
	if cfg.S3Enabled() {
		s3c, err := media.NewS3Client(ctx, cfg.S3Endpoint, cfg.S3Region, cfg.S3Bucket, cfg.S3AccessKey, cfg.S3SecretKey)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 client: %w", err)
		}
		cards = s3c
		ready["s3"] = s3c.Ping
	}
	gen := placeholder.New()

	mux := server.NewMux(server.Deps{
		Content:            newContentClient(cfg, m),
		Store:              store,
		Publisher:          pub,
		Placeholders:       placeholder.NewCache(gen, cards, m),
		Generator:          gen,
		Tokens:             formtoken.New(cfg.FormSecret),
		Metrics:            m,
		SiteURL:            cfg.SiteURL,
		NavStateTTL:        cfg.NavStateTTL,
		InlinePlaceholders: cfg.InlinePlaceholders,
		ReadyChecks:        ready,
	})

	go purgeLoop(ctx, store)

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.HTTPTimeout + 10*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", addr, "env", cfg.Env, "api", cfg.APIBaseURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("server exited")
	return nil
}

// openStore returns the PostgreSQL store when a DSN is configured and the
// in-memory store otherwise.
func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	if cfg.DatabaseDSN == "" {
		return storage.NewMemory(), nil
	}
	store, err := storage.NewPostgres(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres storage: %w", err)
	}
	return store, nil
}

func purgeLoop(ctx context.Context, store storage.Store) {
	t := time.NewTicker(purgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := store.Purge(ctx)
			if err != nil {
				slog.WarnContext(ctx, "navigation state purge failed", "error", err)
				continue
			}
			if n > 0 {
				slog.DebugContext(ctx, "purged navigation states", "count", n)
			}
		}
	}
}
