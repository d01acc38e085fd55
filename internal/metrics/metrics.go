// Package metrics collects and exposes the service's Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "seopilot"

// Collector records dashboard, billing and function metrics. Its methods
// match the hook signatures of authstate, billing and edge so they can be
// passed as hooks directly.
type Collector struct {
	authActions   *prometheus.CounterVec
	authLatency   *prometheus.HistogramVec
	probes        *prometheus.CounterVec
	checkouts     *prometheus.CounterVec
	edgeResponses *prometheus.CounterVec
	edgeLatency   *prometheus.HistogramVec
	activeViews   prometheus.Gauge
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_actions_total",
			Help:      "Auth provider calls by action and result.",
		}, []string{"action", "result"}),
		authLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "auth_action_duration_seconds",
			Help:      "Auth provider call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_probes_total",
			Help:      "Subscription status probes by result.",
		}, []string{"result"}),
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_redirects_total",
			Help:      "Checkout redirects by plan.",
		}, []string{"plan"}),
		edgeResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "function_responses_total",
			Help:      "Billing function responses by function and status code.",
		}, []string{"function", "status_code"}),
		edgeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "function_duration_seconds",
			Help:      "Billing function latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"function"}),
		activeViews: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_views",
			Help:      "Dashboard views currently held in memory.",
		}),
	}

	reg.MustRegister(
		c.authActions,
		c.authLatency,
		c.probes,
		c.checkouts,
		c.edgeResponses,
		c.edgeLatency,
		c.activeViews,
	)
	return c
}

// AuthAction records one auth provider call.
func (c *Collector) AuthAction(action string, err error, elapsed time.Duration) {
	c.authActions.WithLabelValues(action, result(err)).Inc()
	c.authLatency.WithLabelValues(action).Observe(elapsed.Seconds())
}

// ProbeResult records one subscription probe.
func (c *Collector) ProbeResult(err error) {
	c.probes.WithLabelValues(result(err)).Inc()
}

// CheckoutRedirect records a plan selection that produced a checkout URL.
func (c *Collector) CheckoutRedirect(plan string) {
	c.checkouts.WithLabelValues(plan).Inc()
}

// FunctionResponse records one billing function response.
func (c *Collector) FunctionResponse(function string, status int, elapsed time.Duration) {
	c.edgeResponses.WithLabelValues(function, strconv.Itoa(status)).Inc()
	c.edgeLatency.WithLabelValues(function).Observe(elapsed.Seconds())
}

// SetActiveViews sets the number of live views.
func (c *Collector) SetActiveViews(n int) {
	c.activeViews.Set(float64(n))
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
