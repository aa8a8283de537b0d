package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nsqio/go-nsq"
	"github.com/spf13/cobra"

	"devpress/publisher/internal/app"
	"devpress/publisher/internal/audit"
	"devpress/publisher/internal/config"
	"devpress/publisher/internal/pipeline"
	"devpress/publisher/internal/scheduler"
	"devpress/publisher/internal/worker"
)

const shutdownTimeout = 30 * time.Second

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipelines on their cron schedules and serve the ops endpoints",
	Long: `schedule runs sitemap on SITEMAP_SCHEDULE and search on SEARCH_SCHEDULE.
An empty schedule disables that pipeline. The ops server exposes /health,
/metrics, /stats and manual triggers on /runs/{pipeline}. With
ENABLE_TRIGGER_CONSUMER the daemon also consumes the NSQ trigger topic.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		jobs := scheduledJobs(cfg)
		if len(jobs) == 0 {
			return errors.New("no pipeline has a schedule")
		}
		names := make([]string, 0, len(jobs))
		for _, j := range jobs {
			names = append(names, j.Pipeline)
		}

		a, deps, err := app.Start(ctx, cfg, audit.Open(cfg.AuditLogPath), names)
		if err != nil {
			return err
		}
		defer deps.Close()

		sched, err := scheduler.New(a.Runner, jobs, runTimeout)
		if err != nil {
			return err
		}
		sched.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := sched.Stop(stopCtx); err != nil {
				slog.Warn("scheduler stopped before active runs finished", "error", err)
			}
		}()

		if cfg.EnableTriggerConsumer {
			consumer, err := startTriggerConsumer(a.Runner)
			if err != nil {
				return err
			}
			defer consumer.Stop()
		}

		return a.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

func scheduledJobs(c *config.Config) []scheduler.Job {
	var jobs []scheduler.Job
	if c.SitemapSchedule != "" {
		jobs = append(jobs, scheduler.Job{Pipeline: pipeline.Sitemap, Spec: c.SitemapSchedule})
	}
	if c.SearchSchedule != "" {
		jobs = append(jobs, scheduler.Job{Pipeline: pipeline.Search, Spec: c.SearchSchedule})
	}
	return jobs
}

func startTriggerConsumer(r worker.PipelineRunner) (*nsq.Consumer, error) {
	consumer, err := worker.NewTriggerNSQConsumer(worker.NewTriggerConsumer(r, runTimeout))
	if err != nil {
		return nil, err
	}
	if err := consumer.ConnectToNSQLookupd(cfg.NSQLookupd); err != nil {
		consumer.Stop()
		return nil, err
	}
	slog.Info("trigger consumer connected", "lookupd", cfg.NSQLookupd, "topic", config.TopicPipelineTrigger)
	return consumer, nil
}
