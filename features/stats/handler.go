package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"devpress/publisher/internal/middleware"
	"devpress/publisher/internal/pipeline"
)

type ContentCounter interface {
	Counts(ctx context.Context, now time.Time) (ContentCounts, error)
}

type RunHistory interface {
	Last() []pipeline.Result
}

type Handler struct {
	counter ContentCounter
	history RunHistory
	now     func() time.Time
}

func NewHandler(c ContentCounter, h RunHistory) *Handler {
	return &Handler{counter: c, history: h, now: time.Now}
}

type StatsResponse struct {
	Content ContentCounts     `json:"content"`
	Runs    []pipeline.Result `json:"runs"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	slog.InfoContext(ctx, "getting stats", "correlationId", correlationID)

	counts, err := h.counter.Counts(ctx, h.now())
	if err != nil {
		slog.ErrorContext(ctx, "failed to count content", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count content", http.StatusInternalServerError)
		return
	}

	runs := h.history.Last()
	if runs == nil {
		runs = []pipeline.Result{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": StatsResponse{Content: counts, Runs: runs}}); err != nil {
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
