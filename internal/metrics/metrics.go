package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/weather-ingest/internal/weather"
)

// PrometheusRecorder implements weather.Recorder on a private registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	fetchTotal      *prometheus.CounterVec
	rowsTotal       *prometheus.CounterVec
	addedColumns    *prometheus.CounterVec
	runTotal        *prometheus.CounterVec
	runDurationSecs prometheus.Histogram
}

func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_ingest_fetch_total",
			Help: "Provider fetches by provider and outcome.",
		}, []string{"provider", "status"}),
		rowsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_ingest_rows_total",
			Help: "Rows deleted and inserted by table.",
		}, []string{"table", "op"}),
		addedColumns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_ingest_added_columns_total",
			Help: "Columns added to tables by schema growth.",
		}, []string{"table"}),
		runTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_ingest_runs_total",
			Help: "Ingestion runs by outcome.",
		}, []string{"status"}),
		runDurationSecs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "weather_ingest_run_duration_seconds",
			Help:    "Duration of ingestion runs.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	registry.MustRegister(r.fetchTotal, r.rowsTotal, r.addedColumns, r.runTotal, r.runDurationSecs)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *PrometheusRecorder) ObserveFetch(provider string, err error) {
	r.fetchTotal.WithLabelValues(provider, status(err)).Inc()
}

func (r *PrometheusRecorder) ObserveMerge(res weather.MergeResult) {
	r.rowsTotal.WithLabelValues(res.Table, "delete").Add(float64(res.Deleted))
	r.rowsTotal.WithLabelValues(res.Table, "insert").Add(float64(res.Inserted))
	if n := len(res.AddedColumns); n > 0 {
		r.addedColumns.WithLabelValues(res.Table).Add(float64(n))
	}
}

func (r *PrometheusRecorder) ObserveRun(d time.Duration, err error) {
	r.runTotal.WithLabelValues(status(err)).Inc()
	r.runDurationSecs.Observe(d.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
