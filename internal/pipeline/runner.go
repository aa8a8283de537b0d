package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"devpress/publisher/internal/audit"
	"devpress/publisher/internal/config"
	"devpress/publisher/internal/middleware"
)

type AuditLogger interface {
	Log(entry audit.Entry)
}

type Metrics interface {
	ObserveSuccess(pipeline string, count int, d time.Duration, at time.Time)
	ObserveFailure(pipeline, kind string, d time.Duration)
	ObserveSkipped(pipeline string)
}

type ResultPublisher interface {
	Publish(topic string, body []byte) error
}

type Runner struct {
	pipelines map[string]Pipeline
	audit     AuditLogger
	metrics   Metrics
	publisher ResultPublisher
	clock     func() time.Time

	mu     sync.Mutex
	active map[string]bool
	last   map[string]Result
}

type Option func(*Runner)

func WithMetrics(m Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

func WithPublisher(p ResultPublisher) Option {
	return func(r *Runner) { r.publisher = p }
}

func WithClock(clock func() time.Time) Option {
	return func(r *Runner) { r.clock = clock }
}

func NewRunner(a AuditLogger, pipelines []Pipeline, opts ...Option) *Runner {
	r := &Runner{
		pipelines: make(map[string]Pipeline, len(pipelines)),
		audit:     a,
		clock:     time.Now,
		active:    make(map[string]bool),
		last:      make(map[string]Result),
	}
	for _, p := range pipelines {
		r.pipelines[p.Name()] = p
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Names lists the registered pipelines in a stable order.
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.pipelines))
	for name := range r.pipelines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes the named pipeline once. A pipeline that is already running is
// skipped with ErrAlreadyRunning rather than queued.
func (r *Runner) Run(ctx context.Context, name string) (Result, error) {
	p, ok := r.pipelines[name]
	if !ok {
		return Result{Pipeline: name}, fmt.Errorf("%w: %s", ErrUnknownPipeline, name)
	}

	runID := middleware.GetCorrelationID(ctx)
	if runID == "unknown" {
		runID = uuid.New().String()
		ctx = middleware.WithCorrelationID(ctx, runID)
	}
	ctx = middleware.WithPipeline(ctx, name)

	if !r.acquire(name) {
		slog.WarnContext(ctx, "previous run still active, skipping")
		if r.metrics != nil {
			r.metrics.ObserveSkipped(name)
		}
		res := Result{Pipeline: name, RunID: runID, StartedAt: r.clock(), Status: audit.StatusSkipped, ErrorKind: KindBusy}
		r.audit.Log(r.entry(res))
		return res, ErrAlreadyRunning
	}
	defer r.release(name)

	now := r.clock()
	slog.InfoContext(ctx, "pipeline run started", "now", now)

	res, err := p.Run(ctx, now)
	res.Pipeline = name
	res.RunID = runID
	res.StartedAt = now
	res.Duration = r.clock().Sub(now)

	if err != nil {
		res.Status = audit.StatusFailed
		res.ErrorKind = Classify(err)
		res.Error = err.Error()
		slog.ErrorContext(ctx, "pipeline run failed", "error", err, "error_kind", res.ErrorKind, "duration", res.Duration)
		if r.metrics != nil {
			r.metrics.ObserveFailure(name, res.ErrorKind, res.Duration)
		}
	} else {
		res.Status = audit.StatusSuccess
		slog.InfoContext(ctx, "pipeline run completed", "count", res.Count, "duration", res.Duration)
		if r.metrics != nil {
			r.metrics.ObserveSuccess(name, res.Count, res.Duration, now)
		}
	}

	r.record(res)
	r.audit.Log(r.entry(res))
	r.publish(ctx, res)
	return res, err
}

func (r *Runner) acquire(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active[name] {
		return false
	}
	r.active[name] = true
	return true
}

func (r *Runner) release(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, name)
}

func (r *Runner) record(res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last[res.Pipeline] = res
}

// Last returns the most recent completed run of each pipeline. Skipped runs
// are not recorded.
func (r *Runner) Last() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	results := make([]Result, 0, len(r.last))
	for _, res := range r.last {
		results = append(results, res)
	}
	sort.Slice(results, func(i, k int) bool { return results[i].Pipeline < results[k].Pipeline })
	return results
}

// Running reports whether the named pipeline has an active run.
func (r *Runner) Running(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active[name]
}

func (r *Runner) entry(res Result) audit.Entry {
	return audit.Entry{
		Timestamp: res.StartedAt,
		RunID:     res.RunID,
		Pipeline:  res.Pipeline,
		Status:    res.Status,
		Count:     res.Count,
		Duration:  res.Duration,
		ErrorKind: res.ErrorKind,
		Error:     res.Error,
	}
}

func (r *Runner) publish(ctx context.Context, res Result) {
	if r.publisher == nil {
		return
	}
	body, err := json.Marshal(res)
	if err != nil {
		slog.WarnContext(ctx, "failed to encode run result", "error", err)
		return
	}
	if err := r.publisher.Publish(config.TopicPipelineResult, body); err != nil {
		slog.WarnContext(ctx, "failed to publish run result", "error", err)
	}
}
