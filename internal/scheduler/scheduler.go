// Package scheduler triggers pipeline runs on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"devpress/publisher/internal/middleware"
	"devpress/publisher/internal/pipeline"
)

type Runner interface {
	Run(ctx context.Context, name string) (pipeline.Result, error)
}

// Job binds a pipeline to a cron expression. Descriptors such as @daily and
// @every 1h are accepted.
type Job struct {
	Pipeline string
	Spec     string
}

type Entry struct {
	Pipeline string    `json:"pipeline"`
	Spec     string    `json:"schedule"`
	Next     time.Time `json:"next_run"`
}

type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	timeout time.Duration
	jobs    map[string]scheduled
}

type scheduled struct {
	spec string
	id   cron.EntryID
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// New registers jobs without starting the clock. A job whose previous run is
// still active when it fires again is skipped. Panics inside a run are
// recovered and logged.
func New(r Runner, jobs []Job, timeout time.Duration) (*Scheduler, error) {
	logger := NewLogger(slog.Default().With("component", "scheduler"))
	s := &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		runner:  r,
		timeout: timeout,
		jobs:    make(map[string]scheduled, len(jobs)),
	}

	for _, j := range jobs {
		if j.Spec == "" {
			return nil, fmt.Errorf("empty schedule for %s", j.Pipeline)
		}
		if _, dup := s.jobs[j.Pipeline]; dup {
			return nil, fmt.Errorf("duplicate schedule for %s", j.Pipeline)
		}
		id, err := s.cron.AddFunc(j.Spec, s.job(j.Pipeline))
		if err != nil {
			return nil, fmt.Errorf("invalid schedule %q for %s: %w", j.Spec, j.Pipeline, err)
		}
		s.jobs[j.Pipeline] = scheduled{spec: j.Spec, id: id}
	}
	return s, nil
}

func (s *Scheduler) job(name string) func() {
	return func() {
		ctx := middleware.WithCorrelationID(context.Background(), uuid.New().String())
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}

		if _, err := s.runner.Run(ctx, name); err != nil && !errors.Is(err, pipeline.ErrAlreadyRunning) {
			slog.ErrorContext(ctx, "scheduled run failed", "pipeline", name, "error", err)
		}
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.Entries() {
		slog.Info("pipeline scheduled", "pipeline", e.Pipeline, "schedule", e.Spec, "next_run", e.Next)
	}
}

// Stop halts the clock and waits for active runs until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Entries lists the registered schedules ordered by pipeline name.
func (s *Scheduler) Entries() []Entry {
	entries := make([]Entry, 0, len(s.jobs))
	for name, j := range s.jobs {
		entries = append(entries, Entry{Pipeline: name, Spec: j.spec, Next: s.cron.Entry(j.id).Next})
	}
	sort.Slice(entries, func(i, k int) bool { return entries[i].Pipeline < entries[k].Pipeline })
	return entries
}
