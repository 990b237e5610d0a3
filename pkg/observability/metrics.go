package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Access resolution metrics
	ResolutionsTotal   *prometheus.CounterVec
	ResolutionDuration *prometheus.HistogramVec
	FallbackScansTotal prometheus.Counter

	// Plant resolution metrics
	PlantResolutionsTotal *prometheus.CounterVec
	PlantFallbacksTotal   *prometheus.CounterVec
	EmptyPlantSetsTotal   *prometheus.CounterVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Store metrics
	StoreOperationsTotal   *prometheus.CounterVec
	StoreOperationDuration *prometheus.HistogramVec

	// Catalog metrics
	CatalogReloadsTotal *prometheus.CounterVec
	CatalogPlants       prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "safetypulse_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "safetypulse_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "safetypulse_access_resolutions_total",
				Help: "Total number of access-control resolutions",
			},
			[]string{"outcome"}, // resolved, not_found, error
		),
		ResolutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "safetypulse_access_resolution_duration_seconds",
				Help:    "Access-control resolution duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		FallbackScansTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "safetypulse_user_fallback_scans_total",
				Help: "Full-table scans triggered by exact email lookup misses",
			},
		),
		PlantResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "safetypulse_plant_resolutions_total",
				Help: "Total number of plant-set resolutions",
			},
			[]string{"scope"},
		),
		PlantFallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "safetypulse_plant_fallbacks_total",
				Help: "Division-tier fallback strategies that produced a result",
			},
			[]string{"strategy"},
		),
		EmptyPlantSetsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "safetypulse_empty_plant_sets_total",
				Help: "Resolutions that produced an empty plant set",
			},
			[]string{"scope"},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "safetypulse_cache_hits_total",
				Help: "Cache hits by cache name",
			},
			[]string{"cache"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "safetypulse_cache_misses_total",
				Help: "Cache misses by cache name",
			},
			[]string{"cache"},
		),
		StoreOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "safetypulse_store_operations_total",
				Help: "Total number of data-store operations",
			},
			[]string{"operation", "status"},
		),
		StoreOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "safetypulse_store_operation_duration_seconds",
				Help:    "Data-store operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		CatalogReloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "safetypulse_catalog_reloads_total",
				Help: "Hierarchy catalog reloads by status",
			},
			[]string{"status"},
		),
		CatalogPlants: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "safetypulse_catalog_plants",
				Help: "Number of distinct plants in the loaded catalog",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ResolutionsTotal,
		m.ResolutionDuration,
		m.FallbackScansTotal,
		m.PlantResolutionsTotal,
		m.PlantFallbacksTotal,
		m.EmptyPlantSetsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.StoreOperationsTotal,
		m.StoreOperationDuration,
		m.CatalogReloadsTotal,
		m.CatalogPlants,
	)

	return m
}

// Handler returns the Prometheus scrape handler for this metrics registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// HTTPMiddleware records request counts and latencies per route
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(sw.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
