package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline records run outcomes per pipeline.
type Pipeline struct {
	runsTotal   *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastCount   *prometheus.GaugeVec
	lastSuccess *prometheus.GaugeVec
}

func NewPipeline(reg prometheus.Registerer) *Pipeline {
	m := &Pipeline{
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devpress",
			Subsystem: "publisher",
			Name:      "runs_total",
			Help:      "Total pipeline runs by outcome",
		}, []string{"pipeline", "status", "error_kind"}),

		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "devpress",
			Subsystem: "publisher",
			Name:      "run_duration_seconds",
			Help:      "Pipeline run duration",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"pipeline"}),

		lastCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "devpress",
			Subsystem: "publisher",
			Name:      "last_run_items",
			Help:      "Items written by the last successful run",
		}, []string{"pipeline"}),

		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "devpress",
			Subsystem: "publisher",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run",
		}, []string{"pipeline"}),
	}

	if reg != nil {
		reg.MustRegister(m.runsTotal, m.duration, m.lastCount, m.lastSuccess)
	}
	return m
}

func (m *Pipeline) ObserveSuccess(pipeline string, count int, d time.Duration, at time.Time) {
	m.runsTotal.WithLabelValues(pipeline, "success", "").Inc()
	m.duration.WithLabelValues(pipeline).Observe(d.Seconds())
	m.lastCount.WithLabelValues(pipeline).Set(float64(count))
	m.lastSuccess.WithLabelValues(pipeline).Set(float64(at.Unix()))
}

func (m *Pipeline) ObserveFailure(pipeline, kind string, d time.Duration) {
	m.runsTotal.WithLabelValues(pipeline, "failed", kind).Inc()
	m.duration.WithLabelValues(pipeline).Observe(d.Seconds())
}

func (m *Pipeline) ObserveSkipped(pipeline string) {
	m.runsTotal.WithLabelValues(pipeline, "skipped", "busy").Inc()
}
