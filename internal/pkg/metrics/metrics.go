package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "togrefusjon",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "togrefusjon",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "togrefusjon",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Delay-check metrics
	DelayChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "togrefusjon",
		Subsystem: "delay",
		Name:      "checks_total",
		Help:      "Total delay checks performed, by resulting status",
	}, []string{"status", "source"})

	FeedRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "togrefusjon",
		Subsystem: "delay",
		Name:      "feed_request_duration_seconds",
		Help:      "Duration of real-time feed requests",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	FeedRequestErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "togrefusjon",
		Subsystem: "delay",
		Name:      "feed_request_errors_total",
		Help:      "Total real-time feed request failures",
	})

	BatchCyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "togrefusjon",
		Subsystem: "batch",
		Name:      "cycles_total",
		Help:      "Total batch check cycles completed",
	})

	BatchJourneysChecked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "togrefusjon",
		Subsystem: "batch",
		Name:      "journeys_checked_total",
		Help:      "Total journey instances checked by the batch runner",
	})

	JourneysCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "togrefusjon",
		Subsystem: "registry",
		Name:      "journeys_created_total",
		Help:      "Total journey instances created in the registry",
	})

	EvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "togrefusjon",
		Subsystem: "rules",
		Name:      "evaluations_total",
		Help:      "Total compensation evaluations, by eligibility outcome",
	}, []string{"eligibility"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "togrefusjon",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "togrefusjon",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "togrefusjon",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "togrefusjon",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "togrefusjon",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "togrefusjon",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// UpdateDBPoolMetrics updates pool gauges from pgx pool stats. The stat
// argument is asserted structurally so this package does not import
// pgxpool directly.
func UpdateDBPoolMetrics(stat interface{}) {
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
	}
}
