// cmd/catalogscrapexter/serve.go
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/valpere/CatalogScrapexter/internal/api"
	"github.com/valpere/CatalogScrapexter/internal/config"
	"github.com/valpere/CatalogScrapexter/internal/monitoring"
	"github.com/valpere/CatalogScrapexter/internal/pipeline"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Serve starts an HTTP API for running crawls in the background.

Endpoints:
  POST   /api/v1/crawls               start a crawl (body: profile JSON)
  GET    /api/v1/crawls               list crawls
  GET    /api/v1/crawls/{id}          status and progress events
  GET    /api/v1/crawls/{id}/records  extracted records of a finished crawl
  DELETE /api/v1/crawls/{id}          stop a crawl
  GET    /health, /metrics

File exports are written to server.output_dir as <id>.<ext>.`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}
	cmd.Flags().String("listen", "", "Listen address (default from settings, :8080)")
	cmd.Flags().String("output-dir", "", "Directory for file exports")
	cmd.Flags().StringP("format", "f", "", "Output format of every crawl")
	cmd.Flags().IntP("concurrency", "c", 0, "Product pages fetched at once per crawl")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("listen"); v != "" {
		settings.Server.ListenAddress = v
	}
	if v, _ := cmd.Flags().GetString("output-dir"); v != "" {
		settings.Server.OutputDir = v
	}
	if v, _ := cmd.Flags().GetString("format"); v != "" {
		settings.Output.Format = v
		settings.Output.File = ""
	}
	if v, _ := cmd.Flags().GetInt("concurrency"); v != 0 {
		settings.Concurrency = v
	}
	if err := applyServeDefaults(settings); err != nil {
		return err
	}

	logger, err := newLogger(cmd, settings)
	if err != nil {
		return err
	}

	metrics := newMetrics()
	server, err := api.NewServer(api.Options{
		Settings: *settings,
		Pipeline: pipeline.Options{
			Fetcher:     newFetcher(settings),
			Concurrency: settings.Concurrency,
			Logger:      logger,
			Metrics:     metrics,
		},
		Metrics: metrics,
		Health:  monitoring.NewHealthManager(0),
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.ListenAndServe(ctx, settings.Server.ListenAddress)
}

// applyServeDefaults validates settings once flags are applied. The per-job
// file name is chosen by the server, so only the format matters here.
func applyServeDefaults(settings *config.Settings) error {
	config.ApplyDefaults(settings)
	return settings.Validate()
}
