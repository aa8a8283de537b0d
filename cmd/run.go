package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"devpress/publisher/internal/app"
	"devpress/publisher/internal/audit"
	"devpress/publisher/internal/middleware"
	"devpress/publisher/internal/pipeline"
)

var sitemapCmd = &cobra.Command{
	Use:   "sitemap",
	Short: "Regenerate the XML sitemap",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd, pipeline.Sitemap)
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Replace the search index contents with all public articles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd, pipeline.Search)
	},
}

func init() {
	rootCmd.AddCommand(sitemapCmd, reindexCmd)
}

// runOnce executes each named pipeline in order and stops at the first failure.
func runOnce(cmd *cobra.Command, names ...string) error {
	ctx := middleware.WithCorrelationID(cmd.Context(), uuid.New().String())
	if runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runTimeout)
		defer cancel()
	}

	a, deps, err := app.Start(ctx, cfg, audit.Open(cfg.AuditLogPath), names)
	if err != nil {
		return err
	}
	defer deps.Close()

	for _, name := range names {
		res, err := a.Runner.Run(ctx, name)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d items in %s\n", res.Pipeline, res.Count, res.Duration)
	}
	return nil
}
