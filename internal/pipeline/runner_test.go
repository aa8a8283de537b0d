package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"devpress/publisher/internal/audit"
	"devpress/publisher/internal/config"
	"devpress/publisher/internal/middleware"
	"devpress/publisher/internal/pipeline"
)

type MockPipeline struct {
	mock.Mock
	name string
}

func (m *MockPipeline) Name() string { return m.name }

func (m *MockPipeline) Run(ctx context.Context, now time.Time) (pipeline.Result, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(pipeline.Result), args.Error(1)
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (a *recordingAudit) Log(e audit.Entry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
}

func (a *recordingAudit) last() audit.Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.entries[len(a.entries)-1]
}

type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) ObserveSuccess(p string, count int, d time.Duration, at time.Time) {
	m.Called(p, count, d, at)
}

func (m *MockMetrics) ObserveFailure(p, kind string, d time.Duration) {
	m.Called(p, kind, d)
}

func (m *MockMetrics) ObserveSkipped(p string) {
	m.Called(p)
}

type recordingPublisher struct {
	topic string
	body  []byte
	err   error
}

func (p *recordingPublisher) Publish(topic string, body []byte) error {
	p.topic = topic
	p.body = body
	return p.err
}

func fixedClock(times ...time.Time) func() time.Time {
	var mu sync.Mutex
	i := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := times[i]
		if i < len(times)-1 {
			i++
		}
		return t
	}
}

var (
	start = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	end   = start.Add(1500 * time.Millisecond)
)

func TestRunner_Success(t *testing.T) {
	p := &MockPipeline{name: pipeline.Sitemap}
	p.On("Run", mock.Anything, start).Return(pipeline.Result{Count: 12}, nil)

	m := new(MockMetrics)
	m.On("ObserveSuccess", pipeline.Sitemap, 12, 1500*time.Millisecond, start).Return()

	a := &recordingAudit{}
	pub := &recordingPublisher{}
	r := pipeline.NewRunner(a, []pipeline.Pipeline{p},
		pipeline.WithMetrics(m), pipeline.WithPublisher(pub), pipeline.WithClock(fixedClock(start, end)))

	ctx := middleware.WithCorrelationID(context.Background(), "run-1")
	res, err := r.Run(ctx, pipeline.Sitemap)
	require.NoError(t, err)

	assert.Equal(t, pipeline.Sitemap, res.Pipeline)
	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, 12, res.Count)
	assert.Equal(t, audit.StatusSuccess, res.Status)
	assert.Equal(t, 1500*time.Millisecond, res.Duration)

	entry := a.last()
	assert.Equal(t, "run-1", entry.RunID)
	assert.Equal(t, audit.StatusSuccess, entry.Status)
	assert.Equal(t, 12, entry.Count)
	assert.Empty(t, entry.ErrorKind)

	assert.Equal(t, config.TopicPipelineResult, pub.topic)
	var published pipeline.Result
	require.NoError(t, json.Unmarshal(pub.body, &published))
	assert.Equal(t, "run-1", published.RunID)
	assert.Equal(t, audit.StatusSuccess, published.Status)

	m.AssertExpectations(t)
	p.AssertExpectations(t)
}

func TestRunner_PassesRunContext(t *testing.T) {
	p := &MockPipeline{name: pipeline.Search}
	p.On("Run", mock.MatchedBy(func(ctx context.Context) bool {
		return middleware.GetCorrelationID(ctx) != "unknown" && middleware.GetPipeline(ctx) == pipeline.Search
	}), mock.Anything).Return(pipeline.Result{}, nil)

	r := pipeline.NewRunner(&recordingAudit{}, []pipeline.Pipeline{p})
	res, err := r.Run(context.Background(), pipeline.Search)
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
	assert.Len(t, res.RunID, 36)
	p.AssertExpectations(t)
}

func TestRunner_FailureClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind string
	}{
		{"StoreRead", fmt.Errorf("%w: articles: timeout", pipeline.ErrStoreRead), pipeline.KindStoreRead},
		{"SinkWrite", fmt.Errorf("%w: 403", pipeline.ErrSinkWrite), pipeline.KindSinkWrite},
		{"Config", fmt.Errorf("%w: ALGOLIA_APP_ID", config.ErrMissingRequired), pipeline.KindConfig},
		{"Other", errors.New("boom"), pipeline.KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &MockPipeline{name: pipeline.Search}
			p.On("Run", mock.Anything, start).Return(pipeline.Result{}, tt.err)

			m := new(MockMetrics)
			m.On("ObserveFailure", pipeline.Search, tt.kind, 1500*time.Millisecond).Return()

			a := &recordingAudit{}
			r := pipeline.NewRunner(a, []pipeline.Pipeline{p},
				pipeline.WithMetrics(m), pipeline.WithClock(fixedClock(start, end)))

			res, err := r.Run(context.Background(), pipeline.Search)
			require.ErrorIs(t, err, tt.err)
			assert.Equal(t, audit.StatusFailed, res.Status)
			assert.Equal(t, tt.kind, res.ErrorKind)
			assert.Equal(t, tt.err.Error(), a.last().Error)
			assert.Equal(t, tt.kind, a.last().ErrorKind)
			m.AssertExpectations(t)
		})
	}
}

func TestRunner_UnknownPipeline(t *testing.T) {
	a := &recordingAudit{}
	r := pipeline.NewRunner(a, nil)

	_, err := r.Run(context.Background(), "rss")
	assert.ErrorIs(t, err, pipeline.ErrUnknownPipeline)
	assert.Empty(t, a.entries)
}

func TestRunner_SkipsOverlappingRun(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	p := &MockPipeline{name: pipeline.Sitemap}
	p.On("Run", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(pipeline.Result{Count: 4}, nil).Once()

	a := &recordingAudit{}
	m := new(MockMetrics)
	m.On("ObserveSkipped", pipeline.Sitemap).Return()
	m.On("ObserveSuccess", pipeline.Sitemap, 4, mock.Anything, mock.Anything).Return()
	r := pipeline.NewRunner(a, []pipeline.Pipeline{p}, pipeline.WithMetrics(m))

	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background(), pipeline.Sitemap)
		done <- err
	}()
	<-started

	res, err := r.Run(context.Background(), pipeline.Sitemap)
	assert.ErrorIs(t, err, pipeline.ErrAlreadyRunning)
	assert.Equal(t, audit.StatusSkipped, res.Status)
	assert.Equal(t, pipeline.KindBusy, res.ErrorKind)

	close(release)
	require.NoError(t, <-done)

	require.Len(t, a.entries, 2)
	assert.Equal(t, audit.StatusSkipped, a.entries[0].Status)
	assert.Equal(t, audit.StatusSuccess, a.entries[1].Status)
	m.AssertExpectations(t)
	p.AssertNumberOfCalls(t, "Run", 1)
}

func TestRunner_PublishFailureDoesNotFailRun(t *testing.T) {
	p := &MockPipeline{name: pipeline.Sitemap}
	p.On("Run", mock.Anything, mock.Anything).Return(pipeline.Result{Count: 1}, nil)

	pub := &recordingPublisher{err: errors.New("nsqd down")}
	r := pipeline.NewRunner(&recordingAudit{}, []pipeline.Pipeline{p}, pipeline.WithPublisher(pub))

	_, err := r.Run(context.Background(), pipeline.Sitemap)
	assert.NoError(t, err)
	assert.Equal(t, config.TopicPipelineResult, pub.topic)
}

func TestRunner_Names(t *testing.T) {
	r := pipeline.NewRunner(&recordingAudit{}, []pipeline.Pipeline{
		&MockPipeline{name: pipeline.Sitemap},
		&MockPipeline{name: pipeline.Search},
	})
	assert.Equal(t, []string{pipeline.Search, pipeline.Sitemap}, r.Names())
}

func TestClassify(t *testing.T) {
	assert.Equal(t, "", pipeline.Classify(nil))
	assert.Equal(t, pipeline.KindBusy, pipeline.Classify(pipeline.ErrAlreadyRunning))
	assert.Equal(t, pipeline.KindConfig, pipeline.Classify(fmt.Errorf("%w: ALGOLIA_APP_ID", config.ErrMissingRequired)))
	assert.Equal(t, pipeline.KindConfig, pipeline.Classify(fmt.Errorf("%w: unsupported SEARCH_BACKEND %q", config.ErrInvalidValue, "solr")))
	assert.Equal(t, pipeline.KindStoreRead, pipeline.Classify(fmt.Errorf("%w: x: %w", pipeline.ErrStoreRead, context.DeadlineExceeded)))
}

func TestRunner_Last(t *testing.T) {
	ok := &MockPipeline{name: pipeline.Sitemap}
	ok.On("Run", mock.Anything, mock.Anything).Return(pipeline.Result{Count: 5}, nil)
	bad := &MockPipeline{name: pipeline.Search}
	bad.On("Run", mock.Anything, mock.Anything).Return(pipeline.Result{}, fmt.Errorf("%w: 500", pipeline.ErrSinkWrite))

	r := pipeline.NewRunner(&recordingAudit{}, []pipeline.Pipeline{ok, bad})
	assert.Empty(t, r.Last())

	_, _ = r.Run(context.Background(), pipeline.Sitemap)
	_, _ = r.Run(context.Background(), pipeline.Search)

	last := r.Last()
	require.Len(t, last, 2)
	assert.Equal(t, pipeline.Search, last[0].Pipeline)
	assert.Equal(t, audit.StatusFailed, last[0].Status)
	assert.Equal(t, pipeline.Sitemap, last[1].Pipeline)
	assert.Equal(t, 5, last[1].Count)
	assert.False(t, r.Running(pipeline.Sitemap))
}
