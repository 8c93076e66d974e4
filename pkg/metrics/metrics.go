package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Platform fetch metrics
	PlatformFetchesTotal   *prometheus.CounterVec
	PlatformFetchDuration  *prometheus.HistogramVec
	PlatformFetchFailures  *prometheus.CounterVec
	PlatformFallbacksTotal *prometheus.CounterVec

	// Attribution metrics
	TouchpointsRecorded *prometheus.CounterVec
	TouchpointsPurged   prometheus.Counter
	MatchesTotal        *prometheus.CounterVec
	MatchConfidence     prometheus.Histogram

	// Webhook metrics
	WebhookRejections *prometheus.CounterVec

	// Report cache metrics
	CacheRequests *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		PlatformFetchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "platform_fetches_total",
				Help: "Total number of platform data fetches",
			},
			[]string{"platform", "status"},
		),

		PlatformFetchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "platform_fetch_duration_seconds",
				Help:    "Platform API fetch duration in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"platform"},
		),

		PlatformFetchFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "platform_fetch_failures_total",
				Help: "Total number of platform fetch failures by error type",
			},
			[]string{"platform", "error_type"},
		),

		PlatformFallbacksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "platform_fallbacks_total",
				Help: "Total number of fallback records substituted for live data",
			},
			[]string{"platform", "reason"},
		),

		TouchpointsRecorded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "touchpoints_recorded_total",
				Help: "Total number of touchpoints recorded",
			},
			[]string{"source", "interaction_type"},
		),

		TouchpointsPurged: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "touchpoints_purged_total",
				Help: "Total number of expired touchpoints removed by purge sweeps",
			},
		),

		MatchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "attribution_matches_total",
				Help: "Total number of attribution matches by model and status",
			},
			[]string{"model", "status"},
		),

		MatchConfidence: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "attribution_match_confidence",
				Help:    "Confidence score distribution of attribution matches",
				Buckets: []float64{0, 20, 40, 60, 70, 80, 90, 95, 100},
			},
		),

		WebhookRejections: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhook_rejections_total",
				Help: "Total number of rejected webhooks",
			},
			[]string{"platform", "reason"},
		),

		CacheRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "report_cache_requests_total",
				Help: "Report cache lookups by outcome",
			},
			[]string{"key", "outcome"},
		),
	}
}

// HTTP request metrics
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// Platform fetch metrics
func (m *Metrics) RecordPlatformFetch(platform, status string, duration time.Duration) {
	m.PlatformFetchesTotal.WithLabelValues(platform, status).Inc()
	m.PlatformFetchDuration.WithLabelValues(platform).Observe(duration.Seconds())
}

// Platform fetch failure metrics
func (m *Metrics) RecordPlatformFailure(platform, errorType string) {
	m.PlatformFetchFailures.WithLabelValues(platform, errorType).Inc()
}

// Fallback substitution metrics
func (m *Metrics) RecordPlatformFallback(platform, reason string) {
	m.PlatformFallbacksTotal.WithLabelValues(platform, reason).Inc()
}

// Touchpoint recording metrics
func (m *Metrics) RecordTouchpoint(source, interactionType string) {
	m.TouchpointsRecorded.WithLabelValues(source, interactionType).Inc()
}

// Purge sweep metrics
func (m *Metrics) RecordTouchpointsPurged(count int) {
	m.TouchpointsPurged.Add(float64(count))
}

// Attribution match metrics
func (m *Metrics) RecordMatch(model, status string, confidence float64) {
	m.MatchesTotal.WithLabelValues(model, status).Inc()
	m.MatchConfidence.Observe(confidence)
}

// Webhook rejection metrics
func (m *Metrics) RecordWebhookRejection(platform, reason string) {
	m.WebhookRejections.WithLabelValues(platform, reason).Inc()
}

// Report cache metrics
func (m *Metrics) RecordCacheRequest(key, outcome string) {
	m.CacheRequests.WithLabelValues(key, outcome).Inc()
}

// HTTP requests in flight counter
func (m *Metrics) IncHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// HTTP requests in flight counter
func (m *Metrics) DecHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}
