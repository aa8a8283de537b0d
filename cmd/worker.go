package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"devpress/publisher/internal/app"
	"devpress/publisher/internal/audit"
	"devpress/publisher/internal/pipeline"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run pipelines on NSQ trigger messages",
	Long: `worker consumes the pipeline.trigger topic and runs one pipeline per
message, serially. Failed runs are logged and not requeued. The ops
endpoints are served on SERVER_PORT.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		names := []string{pipeline.Sitemap, pipeline.Search}
		a, deps, err := app.Start(ctx, cfg, audit.Open(cfg.AuditLogPath), names)
		if err != nil {
			return err
		}
		defer deps.Close()

		consumer, err := startTriggerConsumer(a.Runner)
		if err != nil {
			return err
		}
		defer consumer.Stop()

		return a.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
