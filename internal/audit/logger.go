package audit

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

type Entry struct {
	Timestamp  time.Time     `json:"timestamp"`
	RunID      string        `json:"run_id"`
	Pipeline   string        `json:"pipeline"`
	Status     string        `json:"status"`
	Count      int           `json:"count"`
	Duration   time.Duration `json:"duration_ns"`
	DurationMs int64         `json:"duration_ms"`
	ErrorKind  string        `json:"error_kind,omitempty"`
	Error      string        `json:"error,omitempty"`
}

type Logger struct {
	writer io.Writer
	mu     sync.Mutex
	now    func() time.Time
}

func NewLogger(w io.Writer) *Logger {
	return &Logger{writer: w, now: time.Now}
}

// NewFileLogger appends entries to path and mirrors them to stdout.
func NewFileLogger(path string) (*Logger, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}

	cleanPath := filepath.Clean(path)
	f, err := os.OpenFile(cleanPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) // #nosec G304 -- path is from application config, not user input
	if err != nil {
		return nil, err
	}
	return NewLogger(io.MultiWriter(os.Stdout, f)), nil
}

// Open returns a file logger, falling back to stdout when the file is unusable.
func Open(path string) *Logger {
	if path == "" {
		return NewLogger(os.Stdout)
	}
	l, err := NewFileLogger(path)
	if err != nil {
		slog.Warn("failed to open audit log, falling back to stdout", "path", path, "error", err)
		return NewLogger(os.Stdout)
	}
	return l
}

func (l *Logger) Log(entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now()
	}
	entry.DurationMs = entry.Duration.Milliseconds()

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := json.NewEncoder(l.writer).Encode(entry); err != nil {
		slog.Error("failed to write audit entry", "error", err)
	}
}
