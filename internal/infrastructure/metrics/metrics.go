package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, route, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "route", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "route", "status"},
	)

	// SignatureChecks counts inbound signature verifications by gate and outcome
	SignatureChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signature_checks_total", Help: "Inbound signature checks by gate and outcome."},
		[]string{"gate", "outcome"},
	)

	// MarketplaceCalls counts outbound marketplace calls by resource type and outcome
	MarketplaceCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "marketplace_calls_total", Help: "Outbound marketplace API calls."},
		[]string{"resource_type", "outcome"},
	)
	// MarketplaceLatency tracks outbound marketplace call latency in seconds
	MarketplaceLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "marketplace_call_duration_seconds", Help: "Outbound marketplace API call duration.", Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}},
		[]string{"resource_type"},
	)

	// ActivationOutcomes counts unlock results by variant
	ActivationOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "activation_outcomes_total", Help: "Provider unlock outcomes."},
		[]string{"variant", "result"},
	)
	// OrderOutcomes counts order operations by resulting state
	OrderOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "order_outcomes_total", Help: "Order create/confirm outcomes."},
		[]string{"operation", "state"},
	)
)

var regOnce sync.Once

// RegisterDefault registers all collectors on Registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(SignatureChecks)
		Registry.MustRegister(MarketplaceCalls)
		Registry.MustRegister(MarketplaceLatency)
		Registry.MustRegister(ActivationOutcomes)
		Registry.MustRegister(OrderOutcomes)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}
