// Package metrics exports Prometheus metrics for price resolution and refresh runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pricefinder"

// Recorder holds the service metrics. It implements scraper.Recorder.
type Recorder struct {
	gatherer prometheus.Gatherer

	Resolutions        *prometheus.CounterVec
	ResolutionDuration *prometheus.HistogramVec
	RefreshRuns        prometheus.Counter
	ProductsUpdated    prometheus.Counter
}

// New registers the metrics with reg. Passing nil uses the default registry.
func New(reg *prometheus.Registry) *Recorder {
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if reg != nil {
		registerer, gatherer = reg, reg
	}
	factory := promauto.With(registerer)

	return &Recorder{
		gatherer: gatherer,
		Resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Price resolutions by resolving strategy, or unresolved",
		}, []string{"strategy"}),
		ResolutionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolution_duration_seconds",
			Help:      "Time spent running the strategy cascade",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"strategy"}),
		RefreshRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_runs_total",
			Help:      "Completed bulk price refresh runs",
		}),
		ProductsUpdated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "products_updated_total",
			Help:      "Products whose price was updated by a refresh",
		}),
	}
}

// ObserveResolution records one cascade run.
func (r *Recorder) ObserveResolution(strategy string, elapsed time.Duration) {
	r.Resolutions.WithLabelValues(strategy).Inc()
	r.ResolutionDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
}

// ObserveRefresh records a bulk refresh run and how many products it updated.
func (r *Recorder) ObserveRefresh(updated int) {
	r.RefreshRuns.Inc()
	r.ProductsUpdated.Add(float64(updated))
}

// Handler serves the metrics in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
