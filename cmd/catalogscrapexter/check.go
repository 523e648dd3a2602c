// cmd/catalogscrapexter/check.go
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/valpere/CatalogScrapexter/internal/config"
	"github.com/valpere/CatalogScrapexter/internal/pipeline"
)

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <profile>",
		Short: "List the product links a profile would crawl",
		Long: `Check fetches the seed page of the profile and prints the unique links
matched by its link selector, without visiting them. Use it to verify a
link_pattern before a full run.`,
		Args: cobra.ExactArgs(1),
		RunE: runCheckCmd,
	}
	addTimeoutFlag(cmd)
	return cmd
}

func runCheckCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadCrawlConfig(cmd, args[0])
	if err != nil {
		return err
	}
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	applyTimeout(cmd, settings)
	config.ApplyDefaults(settings)

	logger, err := newLogger(cmd, settings)
	if err != nil {
		return err
	}

	orchestrator, err := pipeline.New(pipeline.Options{
		Fetcher: newFetcher(settings),
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := orchestrator.CheckLinks(ctx, cfg, nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, link := range result.Links {
		fmt.Fprintln(out, link)
	}
	fmt.Fprintf(out, "Found %d links\n", len(result.Links))
	return nil
}
