// Package pipeline runs the publishing batch jobs. Each run is a single
// Fetch, Transform, Write pass with no intermediate state; retrying means
// running the whole pipeline again.
package pipeline

import (
	"context"
	"errors"
	"time"

	"devpress/publisher/internal/config"
)

// Pipeline names.
const (
	Sitemap = "sitemap"
	Search  = "search"
)

var (
	ErrStoreRead       = errors.New("content store read failed")
	ErrSinkWrite       = errors.New("sink write failed")
	ErrUnknownPipeline = errors.New("unknown pipeline")
	ErrAlreadyRunning  = errors.New("pipeline already running")
)

// Error kinds reported in audit entries and metrics.
const (
	KindConfig    = "config"
	KindStoreRead = "store_read"
	KindSinkWrite = "sink_write"
	KindBusy      = "busy"
	KindUnknown   = "unknown"
)

type Pipeline interface {
	Name() string
	Run(ctx context.Context, now time.Time) (Result, error)
}

type Result struct {
	Pipeline  string        `json:"pipeline"`
	RunID     string        `json:"run_id"`
	Count     int           `json:"count"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Status    string        `json:"status"`
	ErrorKind string        `json:"error_kind,omitempty"`
	Error     string        `json:"error,omitempty"`
}

func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, config.ErrMissingRequired), errors.Is(err, config.ErrInvalidValue):
		return KindConfig
	case errors.Is(err, ErrStoreRead):
		return KindStoreRead
	case errors.Is(err, ErrSinkWrite):
		return KindSinkWrite
	case errors.Is(err, ErrAlreadyRunning):
		return KindBusy
	default:
		return KindUnknown
	}
}
