package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"devpress/publisher/internal/middleware"
	"devpress/publisher/internal/pipeline"
)

type MockRunner struct{ mock.Mock }

func (m *MockRunner) Run(ctx context.Context, name string) (pipeline.Result, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(pipeline.Result), args.Error(1)
}

func TestNew_DefaultSchedules(t *testing.T) {
	s, err := New(new(MockRunner), []Job{
		{Pipeline: pipeline.Sitemap, Spec: "@daily"},
		{Pipeline: pipeline.Search, Spec: "0 */6 * * *"},
	}, 0)
	require.NoError(t, err)

	s.Start()
	defer s.Stop(context.Background())

	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, pipeline.Search, entries[0].Pipeline)
	assert.Equal(t, "0 */6 * * *", entries[0].Spec)
	assert.Equal(t, 0, entries[0].Next.Hour()%6)
	assert.Equal(t, pipeline.Sitemap, entries[1].Pipeline)
	assert.Equal(t, 0, entries[1].Next.Hour())
	assert.True(t, entries[1].Next.After(time.Now()))
}

func TestNew_InvalidSchedules(t *testing.T) {
	tests := []struct {
		name string
		jobs []Job
	}{
		{"Malformed", []Job{{Pipeline: pipeline.Sitemap, Spec: "every day"}}},
		{"Empty", []Job{{Pipeline: pipeline.Sitemap}}},
		{"Seconds", []Job{{Pipeline: pipeline.Sitemap, Spec: "0 0 0 * * *"}}},
		{"Duplicate", []Job{{Pipeline: pipeline.Search, Spec: "@hourly"}, {Pipeline: pipeline.Search, Spec: "@daily"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(new(MockRunner), tt.jobs, 0)
			assert.Error(t, err)
		})
	}
}

func TestJob_RunsWithFreshCorrelationID(t *testing.T) {
	var seen []string
	r := new(MockRunner)
	r.On("Run", mock.Anything, pipeline.Sitemap).
		Run(func(args mock.Arguments) {
			seen = append(seen, middleware.GetCorrelationID(args.Get(0).(context.Context)))
		}).
		Return(pipeline.Result{}, nil)

	s, err := New(r, nil, time.Minute)
	require.NoError(t, err)

	s.job(pipeline.Sitemap)()
	s.job(pipeline.Sitemap)()

	require.Len(t, seen, 2)
	assert.Len(t, seen[0], 36)
	assert.NotEqual(t, seen[0], seen[1])
}

func TestJob_FailureIsLoggedNotPanicked(t *testing.T) {
	r := new(MockRunner)
	r.On("Run", mock.Anything, pipeline.Search).Return(pipeline.Result{}, errors.New("index down"))

	s, err := New(r, nil, 0)
	require.NoError(t, err)
	assert.NotPanics(t, s.job(pipeline.Search))
}

func TestScheduler_FiresAndStops(t *testing.T) {
	var calls atomic.Int32
	r := new(MockRunner)
	r.On("Run", mock.Anything, pipeline.Search).
		Run(func(mock.Arguments) { calls.Add(1) }).
		Return(pipeline.Result{}, nil)

	s, err := New(r, []Job{{Pipeline: pipeline.Search, Spec: "@every 1s"}}, 0)
	require.NoError(t, err)
	s.Start()

	assert.Eventually(t, func() bool { return calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}

func TestScheduler_SkipsWhileStillRunning(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	r := new(MockRunner)
	r.On("Run", mock.Anything, pipeline.Sitemap).
		Run(func(mock.Arguments) {
			calls.Add(1)
			<-release
		}).
		Return(pipeline.Result{}, nil)

	s, err := New(r, []Job{{Pipeline: pipeline.Sitemap, Spec: "@every 1s"}}, 0)
	require.NoError(t, err)
	s.Start()

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 3*time.Second, 50*time.Millisecond)
	time.Sleep(2200 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}

func TestCronLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	l.Error(errors.New("boom"), "panic", "entry", 1)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "ERROR", line["level"])
	assert.Equal(t, "panic", line["msg"])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, float64(1), line["entry"])
}
