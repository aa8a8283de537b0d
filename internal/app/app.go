package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"devpress/publisher/features/runs"
	"devpress/publisher/features/searchsync"
	"devpress/publisher/features/sitemap"
	"devpress/publisher/features/stats"
	"devpress/publisher/internal/audit"
	"devpress/publisher/internal/config"
	"devpress/publisher/internal/metrics"
	"devpress/publisher/internal/middleware"
	"devpress/publisher/internal/pipeline"
)

type App struct {
	Runner   *pipeline.Runner
	Handler  http.Handler
	Registry *prometheus.Registry

	port int
}

// New wires the requested pipelines to their stores and sinks and builds the
// ops HTTP handler around the runner.
func New(cfg *config.Config, deps *Dependencies, auditLog pipeline.AuditLogger, names []string) (*App, error) {
	pipelines := make([]pipeline.Pipeline, 0, len(names))
	for _, name := range names {
		switch name {
		case pipeline.Sitemap:
			assembler := sitemap.NewAssembler(sitemap.NewPostgresRepo(deps.DB), cfg.SiteURL, cfg.MediaURL)
			pipelines = append(pipelines, sitemap.NewService(assembler, sitemap.FileWriter{}, cfg.SitemapPath))
		case pipeline.Search:
			if deps.Index == nil {
				return nil, fmt.Errorf("%w: search index", config.ErrMissingRequired)
			}
			pipelines = append(pipelines, searchsync.NewService(searchsync.NewPostgresRepo(deps.DB), deps.Index, cfg.SiteURL, cfg.MediaURL))
		default:
			return nil, fmt.Errorf("%w: %s", pipeline.ErrUnknownPipeline, name)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []pipeline.Option{pipeline.WithMetrics(metrics.NewPipeline(reg))}
	if cfg.EnableResultEvents && deps.Producer != nil {
		opts = append(opts, pipeline.WithPublisher(deps.Producer))
	}
	runner := pipeline.NewRunner(auditLog, pipelines, opts...)

	runsHandler := runs.NewHandler(runner)
	statsHandler := stats.NewHandler(stats.NewPostgresRepo(deps.DB), runner)

	mux := http.NewServeMux()
	mux.Handle("GET /runs", middleware.CorrelationID(http.HandlerFunc(runsHandler.List)))
	mux.Handle("POST /runs/{pipeline}", middleware.CorrelationID(http.HandlerFunc(runsHandler.Trigger)))
	mux.Handle("GET /stats", middleware.CorrelationID(http.HandlerFunc(statsHandler.GetStats)))
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status, code := "ok", http.StatusOK
		if err := deps.DB.PingContext(ctx); err != nil {
			slog.WarnContext(ctx, "health check: db unreachable", "error", err)
			status, code = "degraded", http.StatusServiceUnavailable
		}
		w.WriteHeader(code)
		if err := json.NewEncoder(w).Encode(map[string]string{"status": status}); err != nil {
			slog.Error("failed to encode health response", "error", err)
		}
	})

	return &App{
		Runner:   runner,
		Handler:  mux,
		Registry: reg,
		port:     cfg.ServerPort,
	}, nil
}

// Start bootstraps the dependencies and builds the app. A failure before any
// pipeline can run is recorded as a failed run of every requested pipeline.
func Start(ctx context.Context, cfg *config.Config, auditLog pipeline.AuditLogger, names []string) (*App, *Dependencies, error) {
	deps, err := Bootstrap(ctx, cfg, names)
	if err != nil {
		RecordStartupFailure(ctx, auditLog, names, err)
		return nil, nil, err
	}
	a, err := New(cfg, deps, auditLog, names)
	if err != nil {
		deps.Close()
		RecordStartupFailure(ctx, auditLog, names, err)
		return nil, nil, err
	}
	return a, deps, nil
}

// RecordStartupFailure logs err and writes a failed audit entry per pipeline.
func RecordStartupFailure(ctx context.Context, auditLog pipeline.AuditLogger, names []string, err error) {
	runID := middleware.GetCorrelationID(ctx)
	if runID == "unknown" {
		runID = uuid.New().String()
	}
	kind := pipeline.Classify(err)
	now := time.Now()
	for _, name := range names {
		slog.ErrorContext(ctx, "pipeline startup failed", "pipeline", name, "error", err, "error_kind", kind)
		auditLog.Log(audit.Entry{
			Timestamp: now,
			RunID:     runID,
			Pipeline:  name,
			Status:    audit.StatusFailed,
			ErrorKind: kind,
			Error:     err.Error(),
		})
	}
}

// Run serves the ops endpoints until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.port),
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
