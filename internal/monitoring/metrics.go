// internal/monitoring/metrics.go
package monitoring

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsManager manages Prometheus metrics for crawl runs. Every manager
// owns its registry, so several can coexist in one process (and in tests).
// All recording methods are safe to call on a nil *MetricsManager.
type MetricsManager struct {
	registry *prometheus.Registry

	// Request metrics
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestErrors   *prometheus.CounterVec

	// Extraction metrics
	pagesParsed      *prometheus.CounterVec
	recordsExtracted prometheus.Counter
	fieldUnavailable *prometheus.CounterVec
	linksCollected   prometheus.Histogram

	// Output metrics
	outputSuccess  *prometheus.CounterVec
	outputErrors   *prometheus.CounterVec
	outputTime     *prometheus.HistogramVec
	recordsWritten *prometheus.CounterVec

	// Run metrics
	runsTotal   *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	runsActive  prometheus.Gauge

	namespace string
	subsystem string
}

// MetricsConfig configuration for metrics
type MetricsConfig struct {
	Namespace       string `json:"namespace"`
	Subsystem       string `json:"subsystem"`
	EnableGoMetrics bool   `json:"enable_go_metrics"`
	MetricsPath     string `json:"metrics_path"`
}

// NewMetricsManager creates a new metrics manager
func NewMetricsManager(config MetricsConfig) *MetricsManager {
	if config.Namespace == "" {
		config.Namespace = "catalogscrapexter"
	}
	if config.Subsystem == "" {
		config.Subsystem = "crawler"
	}

	mm := &MetricsManager{
		registry:  prometheus.NewRegistry(),
		namespace: config.Namespace,
		subsystem: config.Subsystem,
	}
	if config.EnableGoMetrics {
		mm.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	mm.initializeMetrics()
	return mm
}

// initializeMetrics initializes all Prometheus metrics
func (mm *MetricsManager) initializeMetrics() {
	factory := promauto.With(mm.registry)

	mm.requestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests made",
		},
		[]string{"host", "status_code"},
	)
	mm.requestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"host"},
	)
	mm.requestErrors = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "request_errors_total",
			Help:      "Total number of failed HTTP requests",
		},
		[]string{"host", "error_type"},
	)

	mm.pagesParsed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "pages_parsed_total",
			Help:      "Product pages processed, by outcome",
		},
		[]string{"status"},
	)
	mm.recordsExtracted = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "records_extracted_total",
			Help:      "Product records extracted",
		},
	)
	mm.fieldUnavailable = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "fields_unavailable_total",
			Help:      "Extracted fields that fell back to Unavailable",
		},
		[]string{"field"},
	)
	mm.linksCollected = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "links_collected",
			Help:      "Unique links collected from a seed page",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	mm.outputSuccess = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: "output",
			Name:      "success_total",
			Help:      "Successful exports",
		},
		[]string{"format"},
	)
	mm.outputErrors = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: "output",
			Name:      "errors_total",
			Help:      "Failed exports",
		},
		[]string{"format"},
	)
	mm.outputTime = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: mm.namespace,
			Subsystem: "output",
			Name:      "duration_seconds",
			Help:      "Export duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"format"},
	)
	mm.recordsWritten = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: "output",
			Name:      "records_written_total",
			Help:      "Rows written by successful exports",
		},
		[]string{"format"},
	)

	mm.runsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: "runs",
			Name:      "total",
			Help:      "Finished crawl runs, by terminal state",
		},
		[]string{"state"},
	)
	mm.runDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: mm.namespace,
			Subsystem: "runs",
			Name:      "duration_seconds",
			Help:      "Crawl run duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		},
		[]string{"state"},
	)
	mm.runsActive = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: mm.namespace,
			Subsystem: "runs",
			Name:      "active",
			Help:      "Crawl runs currently in progress",
		},
	)
}

// Registry returns the registry the metrics are registered with.
func (mm *MetricsManager) Registry() *prometheus.Registry {
	return mm.registry
}

// RecordRequest records a completed HTTP request
func (mm *MetricsManager) RecordRequest(host string, statusCode int, duration time.Duration) {
	if mm == nil {
		return
	}
	mm.requestsTotal.WithLabelValues(host, strconv.Itoa(statusCode)).Inc()
	mm.requestDuration.WithLabelValues(host).Observe(duration.Seconds())
}

// RecordRequestError records a request that produced no usable response
func (mm *MetricsManager) RecordRequestError(host, errorType string) {
	if mm == nil {
		return
	}
	mm.requestErrors.WithLabelValues(host, errorType).Inc()
}

// RecordLinksCollected records the size of a LinkSet
func (mm *MetricsManager) RecordLinksCollected(count int) {
	if mm == nil {
		return
	}
	mm.linksCollected.Observe(float64(count))
}

// RecordPageParsed records a product page outcome; unavailable lists the
// fields that fell back to the default value.
func (mm *MetricsManager) RecordPageParsed(ok bool, unavailable []string) {
	if mm == nil {
		return
	}
	if !ok {
		mm.pagesParsed.WithLabelValues("failed").Inc()
		return
	}
	mm.pagesParsed.WithLabelValues("ok").Inc()
	mm.recordsExtracted.Inc()
	for _, field := range unavailable {
		mm.fieldUnavailable.WithLabelValues(field).Inc()
	}
}

// RecordOutputSuccess records successful output operation
func (mm *MetricsManager) RecordOutputSuccess(format string, duration time.Duration, records int) {
	if mm == nil {
		return
	}
	mm.outputSuccess.WithLabelValues(format).Inc()
	mm.outputTime.WithLabelValues(format).Observe(duration.Seconds())
	mm.recordsWritten.WithLabelValues(format).Add(float64(records))
}

// RecordOutputError records output error
func (mm *MetricsManager) RecordOutputError(format string) {
	if mm == nil {
		return
	}
	mm.outputErrors.WithLabelValues(format).Inc()
}

// RecordRunStart records a run entering the pipeline
func (mm *MetricsManager) RecordRunStart() {
	if mm == nil {
		return
	}
	mm.runsActive.Inc()
}

// RecordRunFinished records a run reaching a terminal state
func (mm *MetricsManager) RecordRunFinished(state string, duration time.Duration) {
	if mm == nil {
		return
	}
	mm.runsActive.Dec()
	mm.runsTotal.WithLabelValues(state).Inc()
	mm.runDuration.WithLabelValues(state).Observe(duration.Seconds())
}

// MetricsHandler returns HTTP handler for metrics endpoint
func (mm *MetricsManager) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(mm.registry, promhttp.HandlerOpts{Registry: mm.registry})
}

// StartMetricsServer serves the metrics endpoint until ctx is cancelled.
func (mm *MetricsManager) StartMetricsServer(ctx context.Context, address, path string) error {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, mm.MetricsHandler())

	server := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
