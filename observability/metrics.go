package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MarketplaceMetrics records RPC-level marketplace activity.
type MarketplaceMetrics struct {
	requests    *prometheus.CounterVec
	errors      *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	settlements *prometheus.CounterVec
}

var (
	marketplaceOnce sync.Once
	marketplaceReg  *MarketplaceMetrics
)

// Marketplace returns the lazily-initialised metrics registry used to
// record marketplace method activity.
func Marketplace() *MarketplaceMetrics {
	marketplaceOnce.Do(func() {
		marketplaceReg = &MarketplaceMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "ins",
				Subsystem: "marketplace",
				Name:      "requests_total",
				Help:      "Total JSON-RPC marketplace requests segmented by method and outcome.",
			}, []string{"method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "ins",
				Subsystem: "marketplace",
				Name:      "errors_total",
				Help:      "Total marketplace request failures segmented by method and error kind.",
			}, []string{"method", "kind"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "ins",
				Subsystem: "marketplace",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution of marketplace methods.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
			settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "ins",
				Subsystem: "marketplace",
				Name:      "settlements_total",
				Help:      "Successful settlements segmented by kind (sale, rental, offer).",
			}, []string{"kind"}),
		}
		prometheus.MustRegister(
			marketplaceReg.requests,
			marketplaceReg.errors,
			marketplaceReg.latency,
			marketplaceReg.settlements,
		)
	})
	return marketplaceReg
}

// ObserveRequest records one method invocation with its outcome.
func (m *MarketplaceMetrics) ObserveRequest(method, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	m.latency.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

// ObserveError records one classified failure.
func (m *MarketplaceMetrics) ObserveError(method, kind string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(method, kind).Inc()
}

// ObserveSettlement records one successful settlement by kind.
func (m *MarketplaceMetrics) ObserveSettlement(kind string) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(kind).Inc()
}
