package runs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"devpress/publisher/internal/middleware"
	"devpress/publisher/internal/pipeline"
)

type Runner interface {
	Run(ctx context.Context, name string) (pipeline.Result, error)
	Names() []string
	Running(name string) bool
}

// Status is one configured pipeline in the list response.
type Status struct {
	Name    string `json:"name"`
	Running bool   `json:"running"`
}

type Handler struct {
	runner Runner
}

func NewHandler(r Runner) *Handler {
	return &Handler{runner: r}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	names := h.runner.Names()
	statuses := make([]Status, 0, len(names))
	for _, name := range names {
		statuses = append(statuses, Status{Name: name, Running: h.runner.Running(name)})
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": statuses,
		"meta": map[string]int{"count": len(statuses)},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// Trigger runs a pipeline synchronously and reports its outcome.
func (h *Handler) Trigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)
	name := r.PathValue("pipeline")

	slog.InfoContext(ctx, "manual run requested", "pipeline", name, "correlationId", correlationID)

	res, err := h.runner.Run(ctx, name)
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrUnknownPipeline):
			h.writeError(ctx, w, "NOT_FOUND", "Pipeline not found", http.StatusNotFound)
		case errors.Is(err, pipeline.ErrAlreadyRunning):
			h.writeError(ctx, w, "CONFLICT", "Pipeline is already running", http.StatusConflict)
		default:
			slog.ErrorContext(ctx, "manual run failed", "pipeline", name, "error", err, "correlationId", correlationID)
			h.writeError(ctx, w, "RUN_FAILED", err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": res}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
