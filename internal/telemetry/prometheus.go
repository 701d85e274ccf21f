package telemetry

import (
	"context"
	"net/http"
	"strings"
	"time"

	"heatwatch/internal/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder exposes the pipeline metrics for scraping. It owns its
// registry so tests and multiple instances never collide on the global one.
type PrometheusRecorder struct {
	registry       *prometheus.Registry
	fetchTotal     *prometheus.CounterVec
	batchDuration  prometheus.Histogram
	batchFailures  prometheus.Counter
	heatPoints     prometheus.Gauge
	surfaceClients prometheus.Gauge
}

// NewPrometheusRecorder registers the collectors under the given namespace,
// e.g. "HeatWatch" becomes the "heatwatch_" prefix.
func NewPrometheusRecorder(namespace string) *PrometheusRecorder {
	ns := strings.ToLower(namespace)
	r := &PrometheusRecorder{
		registry: prometheus.NewRegistry(),
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "provider_fetch_total",
			Help:      "Provider calls by provider, region and result",
		}, []string{"provider", "region", "result"}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "batch_duration_ms",
			Help:      "Temperature gather duration in milliseconds",
			Buckets:   []float64{10, 50, 100, 200, 500, 1000, 2000, 5000},
		}),
		batchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "batch_region_failures_total",
			Help:      "Regions whose temperature fetch failed",
		}),
		heatPoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "heat_points",
			Help:      "Points in the latest heat field",
		}),
		surfaceClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "surface_clients",
			Help:      "Connected render surface clients",
		}),
	}
	r.registry.MustRegister(r.fetchTotal, r.batchDuration, r.batchFailures, r.heatPoints, r.surfaceClients)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (r *PrometheusRecorder) Registry() *prometheus.Registry { return r.registry }

func (r *PrometheusRecorder) RecordFetch(_ context.Context, provider string, region types.RegionID, result Result) {
	r.fetchTotal.WithLabelValues(provider, string(region), string(result)).Inc()
}

func (r *PrometheusRecorder) RecordBatch(_ context.Context, latency time.Duration, failed int) {
	r.batchDuration.Observe(float64(latency.Milliseconds()))
	r.batchFailures.Add(float64(failed))
}

func (r *PrometheusRecorder) RecordHeatPoints(_ context.Context, n int) {
	r.heatPoints.Set(float64(n))
}

func (r *PrometheusRecorder) RecordSurfaceClients(_ context.Context, n int) {
	r.surfaceClients.Set(float64(n))
}

var _ Recorder = (*PrometheusRecorder)(nil)
