package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases, SLO breaches.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation, capacity limits.
	HTTPRequestsInFlight prometheus.Gauge

	// Open-Meteo API call rate. Watch for: error vs success ratio, circuit_open bursts.
	UpstreamCallsTotal *prometheus.CounterVec

	// External API latency per request. Watch for: p95 > 2s (upstream degradation), p99 > 5s (timeout risk).
	UpstreamDuration *prometheus.HistogramVec

	// Cache hits and misses. Hit rate = hits/(hits+misses).
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// Total AQI lookups. Watch for: traffic volume, rate() for QPS.
	AQIQueriesTotal prometheus.Counter

	// Lookups by granularity (current, hourly, daily). Watch for: traffic mix.
	AQIQueriesByKindTotal *prometheus.CounterVec

	// Batch endpoint usage and per-location failure rate.
	BatchRequests  prometheus.Counter
	BatchLocations prometheus.Counter
	BatchFailures  prometheus.Counter
	BatchDuration  prometheus.Histogram

	// Cache warming runs. Watch for: warmingErrors > 0 = tracked locations going cold.
	CacheWarmingTotal           prometheus.Counter
	CacheWarmingErrorsTotal     prometheus.Counter
	CacheWarmingDurationSeconds prometheus.Histogram

	// Rate limit denials. Watch for: overload, capacity exceeded.
	RateLimitDeniedTotal prometheus.Counter
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	UpstreamCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airQualityApiCallsTotal",
			Help: "Total number of Open-Meteo air quality API calls",
		},
		[]string{"status"},
	)
	UpstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "airQualityApiDurationSeconds",
			Help:    "Open-Meteo API latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheHitsTotal",
			Help: "Total number of report cache hits",
		},
	)
	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheMissesTotal",
			Help: "Total number of report cache misses",
		},
	)
	AQIQueriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "aqiQueriesTotal",
			Help: "Total number of AQI lookups",
		},
	)
	AQIQueriesByKindTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aqiQueriesByKindTotal",
			Help: "AQI lookups by granularity (current, hourly, daily)",
		},
		[]string{"kind"},
	)
	BatchRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "batchRequestsTotal",
			Help: "Total number of batch AQI requests",
		},
	)
	BatchLocations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "batchLocationsTotal",
			Help: "Total number of locations submitted across batch requests",
		},
	)
	BatchFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "batchLocationFailuresTotal",
			Help: "Total number of batch locations that resolved to an error",
		},
	)
	BatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "batchDurationSeconds",
			Help:    "Batch resolution latency in seconds (per batch)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)
	CacheWarmingTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingRunsTotal",
			Help: "Total number of cache warming runs",
		},
	)
	CacheWarmingErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingErrorsTotal",
			Help: "Total number of cache warming runs with at least one failed location",
		},
	)
	CacheWarmingDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cacheWarmingDurationSeconds",
			Help:    "Cache warming run duration in seconds",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 30, 60},
		},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		UpstreamCallsTotal, UpstreamDuration,
		CacheHits, CacheMisses,
		AQIQueriesTotal, AQIQueriesByKindTotal,
		BatchRequests, BatchLocations, BatchFailures, BatchDuration,
		CacheWarmingTotal, CacheWarmingErrorsTotal, CacheWarmingDurationSeconds,
		RateLimitDeniedTotal,
	)
}

// RecordQuery records one AQI lookup at the given granularity.
func RecordQuery(kind string) {
	AQIQueriesTotal.Inc()
	AQIQueriesByKindTotal.WithLabelValues(kind).Inc()
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
