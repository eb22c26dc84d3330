package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	RefreshRuns     *prometheus.CounterVec
	ZoneLookups     *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
}

// New registers the metrics on reg under namespace.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "The total number of API requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Time taken to serve API requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		RefreshRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "zone_refresh_runs_total",
			Help:      "The total number of zone refresh runs",
		}, []string{"outcome"}),
		ZoneLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "zone_lookups_total",
			Help:      "The total number of airport zone lookups made by refresh runs",
		}, []string{"result"}),
		RefreshDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "zone_refresh_duration_seconds",
			Help:      "Time taken by a zone refresh run",
			Buckets:   []float64{1, 10, 30, 60, 120, 300, 600, 1800},
		}),
	}
}
