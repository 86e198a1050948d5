package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the service's prometheus instruments behind its own
// registry so tests can create collectors independently.
type Collector struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	discoveryProbes prometheus.Counter
	discoveryHits   prometheus.Counter
	balanceOps      *prometheus.CounterVec
}

// NewCollector registers all instruments on a fresh registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mtbridge_http_requests_total",
			Help: "HTTP requests by method, path and status code.",
		}, []string{"method", "path", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mtbridge_http_request_duration_seconds",
			Help:    "HTTP request latency. Discovery endpoints may take seconds.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}, []string{"path"}),
		discoveryProbes: factory.NewCounter(prometheus.CounterOpts{
			Name: "mtbridge_discovery_probes_total",
			Help: "Point-lookup probes issued by the discovery engine.",
		}),
		discoveryHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "mtbridge_discovery_hits_total",
			Help: "Discovery probes that found an account.",
		}),
		balanceOps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mtbridge_balance_operations_total",
			Help: "Balance operations by outcome.",
		}, []string{"result"}),
	}
}

// DiscoveryProbe counts one point-lookup probe.
func (c *Collector) DiscoveryProbe() {
	c.discoveryProbes.Inc()
}

// DiscoveryHit counts a probe that found an account.
func (c *Collector) DiscoveryHit() {
	c.discoveryHits.Inc()
}

// BalanceOperation counts one balance operation outcome.
func (c *Collector) BalanceOperation(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.balanceOps.WithLabelValues(result).Inc()
}

// Handler serves the registry for scraping.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency per route.
func (c *Collector) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)

			path := ctx.Path()
			if path == "" {
				path = ctx.Request().URL.Path
			}
			status := ctx.Response().Status
			if err != nil {
				if httpErr, ok := err.(*echo.HTTPError); ok {
					status = httpErr.Code
				}
			}
			c.httpRequests.WithLabelValues(ctx.Request().Method, path, strconv.Itoa(status)).Inc()
			c.requestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
