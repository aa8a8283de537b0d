package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"devpress/publisher/internal/app"
	"devpress/publisher/internal/pipeline"
	"devpress/publisher/internal/worker"
)

var triggerCmd = &cobra.Command{
	Use:       "trigger <pipeline>",
	Short:     "Publish a run request for a pipeline to the trigger topic",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{pipeline.Sitemap, pipeline.Search},
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if name != pipeline.Sitemap && name != pipeline.Search {
			return fmt.Errorf("%w: %s", pipeline.ErrUnknownPipeline, name)
		}

		producer, err := app.NewProducer(cfg)
		if err != nil {
			return err
		}
		defer producer.Stop()

		id := uuid.New().String()
		if err := worker.Trigger(producer, name, id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "triggered %s (correlation id %s)\n", name, id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(triggerCmd)
}
