// cmd/catalogscrapexter/root.go
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/CatalogScrapexter/internal/config"
	"github.com/valpere/CatalogScrapexter/internal/errors"
	"github.com/valpere/CatalogScrapexter/internal/monitoring"
	"github.com/valpere/CatalogScrapexter/internal/scraper"
	"github.com/valpere/CatalogScrapexter/internal/utils"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalogscrapexter",
		Short: "Crawl a product catalog and export one row per product",
		Long: `CatalogScrapexter fetches a catalog page, follows every product link matched
by a CSS selector and extracts the title, images, description and
specifications of each product.

What to crawl is described by a JSON profile; how to run it (concurrency,
timeouts, output destination) by an optional YAML settings file.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("settings", "s", "", "YAML settings file")
	cmd.PersistentFlags().String("profile-dir", "", "Directory of named profiles (default $XDG_CONFIG_HOME/catalogscrapexter/profiles)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging and technical error details")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Only log errors and hide progress")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewProfileCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	return execute(NewRootCmd(), os.Args[1:], os.Stderr)
}

func execute(cmd *cobra.Command, args []string, stderr io.Writer) int {
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err == nil {
		return 0
	}

	verbose, _ := cmd.PersistentFlags().GetBool("verbose")
	errorService := errors.NewService().WithVerbose(verbose)
	fmt.Fprint(stderr, errorService.FormatErrorForCLI(err))
	return errorService.GetExitCode(err)
}

// loadSettings reads --settings, or returns the defaults.
func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	path, _ := cmd.Flags().GetString("settings")
	if path == "" {
		settings := config.DefaultSettings()
		return &settings, nil
	}
	return config.LoadFromFile(path)
}

func newLogger(cmd *cobra.Command, settings *config.Settings) (utils.Logger, error) {
	level := settings.LogLevel
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		level = "error"
	}
	return utils.NewLoggerWithOptions(utils.LoggerOptions{
		Level:  level,
		Format: settings.LogFormat,
		Output: cmd.ErrOrStderr(),
	})
}

func newFetcher(settings *config.Settings) *scraper.HTTPClient {
	return scraper.NewHTTPClient(scraper.ClientConfig{
		Timeout:      settings.RequestTimeout,
		UserAgents:   settings.UserAgents,
		Headers:      settings.Headers,
		RateLimit:    settings.RateLimit,
		MaxBodyBytes: settings.MaxBodyBytes,
	})
}

func newMetrics() *monitoring.MetricsManager {
	return monitoring.NewMetricsManager(monitoring.MetricsConfig{
		Namespace:       config.AppName,
		EnableGoMetrics: true,
	})
}

func profileStore(cmd *cobra.Command) *config.ProfileStore {
	dir, _ := cmd.Flags().GetString("profile-dir")
	return config.NewProfileStore(dir)
}

// loadCrawlConfig resolves a profile name or path to a run configuration.
func loadCrawlConfig(cmd *cobra.Command, name string) (config.CrawlConfig, error) {
	p, err := profileStore(cmd).Load(name)
	if err != nil {
		return config.CrawlConfig{}, err
	}
	return p.CrawlConfig(), nil
}

// applyTimeout overrides the request timeout when --timeout was given.
func applyTimeout(cmd *cobra.Command, settings *config.Settings) {
	if cmd.Flags().Changed("timeout") {
		timeout, _ := cmd.Flags().GetDuration("timeout")
		settings.RequestTimeout = timeout
	}
}

func addTimeoutFlag(cmd *cobra.Command) {
	cmd.Flags().Duration("timeout", 30*time.Second, "Per-request timeout")
}
