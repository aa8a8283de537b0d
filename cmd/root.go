// Package cmd contains the publisher CLI commands.
package cmd

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"devpress/publisher/internal/config"
	"devpress/publisher/internal/logger"
)

var (
	cfg        *config.Config
	runTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "publisher",
	Short: "Sitemap and search index publisher for devpress",
	Long: `publisher reads published content from the devpress content store and
regenerates the derived artifacts served alongside the site.

Example usage:
  publisher sitemap             # Write sitemap.xml once
  publisher reindex             # Push all public articles to the search index
  publisher schedule            # Run both pipelines on their cron schedules
  publisher worker              # Run pipelines on NSQ trigger messages
  publisher trigger search      # Ask running workers to reindex
  publisher migrate             # Apply content schema migrations`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute runs the root command. A non-nil error means exit status 1.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string reported by --version.
func SetVersion(v string) {
	rootCmd.Version = v
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&runTimeout, "timeout", 30*time.Minute, "maximum duration of a single pipeline run")
}

func initConfig() error {
	if cfg != nil {
		return nil
	}
	loaded, err := config.Load()
	if err != nil {
		return err
	}
	cfg = loaded
	slog.SetDefault(logger.New(os.Stdout, cfg.LogLevel))
	return nil
}
