package telemetry

// SLI metric names used for instrumentation.
const (
	// Latency
	MetricAPILatencyP50 = "api.latency.p50"
	MetricAPILatencyP95 = "api.latency.p95"
	MetricAPILatencyP99 = "api.latency.p99"

	// Throughput
	MetricRequestsPerSec = "api.requests_per_second"

	// Data freshness
	MetricFeedFreshness    = "entur.feed_age_seconds"
	MetricDelayCheckLag    = "delay.check_lag_seconds"

	// Availability
	MetricUptime = "service.uptime_percentage"

	// Business
	MetricDelaysDetected  = "business.delays_detected"
	MetricClaimsEvaluated = "business.claims_evaluated"
)
