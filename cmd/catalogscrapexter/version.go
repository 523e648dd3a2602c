// cmd/catalogscrapexter/version.go
package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version information (set by build flags)
var (
	version   = ""
	buildTime = ""
	gitCommit = ""
)

// getVersion prefers ldflags, then module build info.
func getVersion() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(devel)"
}

func buildSetting(key, fallback string) string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == key {
				return s.Value
			}
		}
	}
	return fallback
}

func getCommit() string {
	if gitCommit != "" {
		return gitCommit
	}
	c := buildSetting("vcs.revision", "unknown")
	if len(c) > 7 {
		c = c[:7]
	}
	return c
}

func getBuildTime() string {
	if buildTime != "" {
		return buildTime
	}
	return buildSetting("vcs.time", "unknown")
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "catalogscrapexter %s\n", getVersion())
			fmt.Fprintf(cmd.OutOrStdout(), "Build time: %s\n", getBuildTime())
			fmt.Fprintf(cmd.OutOrStdout(), "Git commit: %s\n", getCommit())
		},
	}
}
