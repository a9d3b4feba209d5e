package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	RemoteRequestsTotal     metric.Int64Counter
	RemoteDurationSeconds   metric.Float64Histogram
	BreakerTransitionsTotal metric.Int64Counter
	AnalysesTotal           metric.Int64Counter
	CacheLookupsTotal       metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider, so call it
// after the provider is installed.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("county-ndvi")
		var err error
		m := &AppMetrics{}

		m.RemoteRequestsTotal, err = meter.Int64Counter(
			"earthengine_requests_total",
			metric.WithDescription("Total number of Earth Engine REST calls by method and outcome"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create earthengine_requests_total: %v", err)
		}

		m.RemoteDurationSeconds, err = meter.Float64Histogram(
			"earthengine_request_duration_seconds",
			metric.WithDescription("Duration of Earth Engine REST calls in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create earthengine_request_duration_seconds: %v", err)
		}

		m.BreakerTransitionsTotal, err = meter.Int64Counter(
			"earthengine_breaker_transitions_total",
			metric.WithDescription("Circuit breaker state transitions"),
			metric.WithUnit("{transition}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create earthengine_breaker_transitions_total: %v", err)
		}

		m.AnalysesTotal, err = meter.Int64Counter(
			"ndvi_analyses_total",
			metric.WithDescription("Completed NDVI analyses by satellite"),
			metric.WithUnit("{analysis}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create ndvi_analyses_total: %v", err)
		}

		m.CacheLookupsTotal, err = meter.Int64Counter(
			"cache_lookups_total",
			metric.WithDescription("In-process cache lookups by cache and result"),
			metric.WithUnit("{lookup}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create cache_lookups_total: %v", err)
		}

		log.Println("Application metrics instruments initialized.")
		appMetrics = m
	})
}

// Get returns the globally initialized AppMetrics instance.
// Panics if InitAppMetrics was not called first.
func Get() *AppMetrics {
	if appMetrics == nil {
		panic("metrics instruments not initialized. Call metrics.InitAppMetrics() first.")
	}
	return appMetrics
}
