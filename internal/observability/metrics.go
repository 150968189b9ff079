package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by the API and dispatch flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal      *prometheus.CounterVec
	httpRequestDuration    *prometheus.HistogramVec
	dispatchesTotal        prometheus.Counter
	dispatchFanoutSize     prometheus.Histogram
	deliveriesTotal        *prometheus.CounterVec
	deliveryDuration       prometheus.Histogram
	dispatchInflight       prometheus.Gauge
	deactivationsTotal     prometheus.Counter
	registrationsTotal     prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notify",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "notify",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		dispatchesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "notify",
				Name:      "dispatches_total",
				Help:      "Total number of finalized dispatch operations.",
			},
		),
		dispatchFanoutSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "notify",
				Name:      "dispatch_fanout_size",
				Help:      "Number of endpoints resolved per dispatch.",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
		deliveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notify",
				Name:      "deliveries_total",
				Help:      "Total per-endpoint delivery attempts grouped by outcome status.",
			},
			[]string{"status"},
		),
		deliveryDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "notify",
				Name:      "delivery_duration_seconds",
				Help:      "Push provider call duration in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		dispatchInflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "notify",
				Name:      "dispatch_inflight",
				Help:      "Current number of in-flight provider delivery attempts.",
			},
		),
		deactivationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "notify",
				Name:      "subscriptions_deactivated_total",
				Help:      "Total subscriptions retired after permanent provider rejections.",
			},
		),
		registrationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "notify",
				Name:      "subscription_registrations_total",
				Help:      "Total subscription register/upsert operations.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.dispatchesTotal,
		m.dispatchFanoutSize,
		m.deliveriesTotal,
		m.deliveryDuration,
		m.dispatchInflight,
		m.deactivationsTotal,
		m.registrationsTotal,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncDispatch(fanoutSize int) {
	if m == nil {
		return
	}
	m.dispatchesTotal.Inc()
	m.dispatchFanoutSize.Observe(float64(fanoutSize))
}

func (m *Metrics) IncDelivery(status string) {
	if m == nil {
		return
	}
	statusLabel := strings.TrimSpace(strings.ToLower(status))
	if statusLabel == "" {
		statusLabel = "unknown"
	}
	m.deliveriesTotal.WithLabelValues(statusLabel).Inc()
}

func (m *Metrics) ObserveDeliveryDuration(duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.deliveryDuration.Observe(seconds)
}

func (m *Metrics) IncDispatchInFlight() {
	if m == nil {
		return
	}
	m.dispatchInflight.Inc()
}

func (m *Metrics) DecDispatchInFlight() {
	if m == nil {
		return
	}
	m.dispatchInflight.Dec()
}

func (m *Metrics) IncSubscriptionDeactivated() {
	if m == nil {
		return
	}
	m.deactivationsTotal.Inc()
}

func (m *Metrics) IncSubscriptionRegistered() {
	if m == nil {
		return
	}
	m.registrationsTotal.Inc()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}
