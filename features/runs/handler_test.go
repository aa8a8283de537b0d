package runs_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"devpress/publisher/features/runs"
	"devpress/publisher/internal/middleware"
	"devpress/publisher/internal/pipeline"
)

type MockRunner struct{ mock.Mock }

func (m *MockRunner) Run(ctx context.Context, name string) (pipeline.Result, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(pipeline.Result), args.Error(1)
}

func (m *MockRunner) Names() []string {
	return m.Called().Get(0).([]string)
}

func (m *MockRunner) Running(name string) bool {
	return m.Called(name).Bool(0)
}

func serve(h *runs.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("POST /runs/{pipeline}", middleware.CorrelationID(http.HandlerFunc(h.Trigger)))
	mux.Handle("GET /runs", middleware.CorrelationID(http.HandlerFunc(h.List)))
	return mux
}

func TestHandler_Trigger(t *testing.T) {
	tests := []struct {
		name       string
		pipeline   string
		result     pipeline.Result
		err        error
		wantStatus int
		wantCode   string
	}{
		{"Success", "sitemap", pipeline.Result{Pipeline: "sitemap", Count: 9, Status: "success"}, nil, http.StatusOK, ""},
		{"Unknown", "rss", pipeline.Result{}, fmt.Errorf("%w: rss", pipeline.ErrUnknownPipeline), http.StatusNotFound, "NOT_FOUND"},
		{"Busy", "search", pipeline.Result{}, pipeline.ErrAlreadyRunning, http.StatusConflict, "CONFLICT"},
		{"Failed", "search", pipeline.Result{}, fmt.Errorf("%w: 401", pipeline.ErrSinkWrite), http.StatusInternalServerError, "RUN_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := new(MockRunner)
			r.On("Run", mock.MatchedBy(func(ctx context.Context) bool {
				return middleware.GetCorrelationID(ctx) == "req-1"
			}), tt.pipeline).Return(tt.result, tt.err)

			req := httptest.NewRequest(http.MethodPost, "/runs/"+tt.pipeline, nil)
			req.Header.Set(middleware.HeaderCorrelationID, "req-1")
			w := httptest.NewRecorder()
			serve(runs.NewHandler(r)).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			if tt.wantCode == "" {
				data := body["data"].(map[string]interface{})
				assert.EqualValues(t, 9, data["count"])
				return
			}
			assert.Equal(t, tt.wantCode, body["error"].(map[string]interface{})["code"])
			assert.Equal(t, "req-1", body["correlationId"])
			r.AssertExpectations(t)
		})
	}
}

func TestHandler_List(t *testing.T) {
	r := new(MockRunner)
	r.On("Names").Return([]string{"search", "sitemap"})
	r.On("Running", "search").Return(true)
	r.On("Running", "sitemap").Return(false)

	w := httptest.NewRecorder()
	serve(runs.NewHandler(r)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/runs", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data []runs.Status  `json:"data"`
		Meta map[string]int `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []runs.Status{{Name: "search", Running: true}, {Name: "sitemap", Running: false}}, body.Data)
	assert.Equal(t, 2, body.Meta["count"])
}

func TestHandler_Trigger_MethodNotAllowed(t *testing.T) {
	w := httptest.NewRecorder()
	serve(runs.NewHandler(new(MockRunner))).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/runs/sitemap", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
