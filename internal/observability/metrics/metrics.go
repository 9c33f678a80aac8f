package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rentwheels_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rentwheels_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	bookingOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rentwheels_booking_operations_total",
		Help: "Count of booking lifecycle operations by operation and result",
	}, []string{"operation", "result"})

	sweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rentwheels_sweep_runs_total",
		Help: "Count of overdue sweep passes by result",
	}, []string{"result"})

	sweepReturned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rentwheels_sweep_bookings_returned_total",
		Help: "Total bookings auto-returned by the overdue sweeper",
	})

	activeBookings = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rentwheels_active_bookings",
		Help: "Number of bookings currently in the active state",
	})

	catalogLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rentwheels_catalog_lookups_total",
		Help: "Availability catalog lookups by outcome (hit, miss, bypass)",
	}, []string{"outcome"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveBooking increments the booking operation counter for the given
// operation and result.
func ObserveBooking(operation, result string) {
	bookingOperations.WithLabelValues(operation, result).Inc()
}

// ObserveSweep records one sweep pass and how many bookings it returned.
func ObserveSweep(result string, returned int) {
	sweepRuns.WithLabelValues(result).Inc()
	if returned > 0 {
		sweepReturned.Add(float64(returned))
	}
}

// ObserveCatalogLookup records an availability catalog lookup outcome.
func ObserveCatalogLookup(outcome string) {
	catalogLookups.WithLabelValues(outcome).Inc()
}

// IncrementActiveBookings increments the active booking gauge.
func IncrementActiveBookings() {
	activeBookings.Inc()
}

// DecrementActiveBookings decrements the active booking gauge.
func DecrementActiveBookings() {
	activeBookings.Dec()
}

// SetActiveBookings sets the active booking gauge to a specific count.
func SetActiveBookings(count int) {
	if count < 0 {
		count = 0
	}
	activeBookings.Set(float64(count))
}
