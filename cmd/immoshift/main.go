// cmd/immoshift/main.go
// Package main implements the immoshift command: the site server plus a few
// operator tools for the content pipeline.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/immoshift/immoshift-web/internal/config"
	"github.com/immoshift/immoshift-web/internal/content"
	"github.com/immoshift/immoshift-web/internal/imageurl"
	"github.com/immoshift/immoshift-web/internal/metrics"
	"github.com/immoshift/immoshift-web/internal/normalize"
)

const serviceName = "immoshift-web"

var rootCmd = &cobra.Command{
	Use:   "immoshift",
	Short: "Immoshift site server and content tools",
	Long: `immoshift serves the Immoshift marketing site from the content API and
ships the tools used around it.

Usage:
  immoshift serve
  immoshift fetch home
  immoshift fetch article <slug>
  immoshift placeholder --title "Investir" -o card.png
  immoshift download <ebook-slug> --first-name Léa --last-name Martin --email lea@example.fr
  immoshift purge`,
	SilenceUsage: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and installs the JSON logger.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, fmt.Errorf("config load failed: %w", err)
	}

	logLevel := slog.LevelInfo
	if cfg.Env == "dev" {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
	return cfg, nil
}

// newContentClient builds the content API client for cfg.
func newContentClient(cfg config.Config, m *metrics.Metrics) *content.Client {
	norm := normalize.New(imageurl.New(cfg.MediaBaseURL), normalize.WithMetrics(m))
	return content.New(cfg.APIBaseURL, norm,
		content.WithTimeout(cfg.HTTPTimeout),
		content.WithMetrics(m),
	)
}
