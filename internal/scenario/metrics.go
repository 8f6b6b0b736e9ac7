package scenario

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the run's Prometheus collectors on a dedicated registry.
type Metrics struct {
	Registry         *prometheus.Registry
	ScenarioRuns     *prometheus.CounterVec
	ScenarioDuration *prometheus.HistogramVec
	APIRequests      *prometheus.CounterVec
	CleanupDeleted   prometheus.Counter
	DateProbes       *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_e2e_scenario_runs_total",
			Help: "Scenario executions by result.",
		},
		[]string{"scenario", "result"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "booking_e2e_scenario_duration_seconds",
			Help:    "Wall time of one scenario including browser start.",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 120},
		},
		[]string{"scenario"},
	)
	api := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_e2e_api_requests_total",
			Help: "Booking API requests by operation and HTTP status (0 for transport errors).",
		},
		[]string{"operation", "status"},
	)
	deleted := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_e2e_cleanup_deleted_total",
			Help: "Test bookings deleted through the API.",
		},
	)
	probes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_e2e_date_probes_total",
			Help: "Date availability probes by result.",
		},
		[]string{"result"},
	)

	registry.MustRegister(runs, duration, api, deleted, probes)

	return &Metrics{
		Registry:         registry,
		ScenarioRuns:     runs,
		ScenarioDuration: duration,
		APIRequests:      api,
		CleanupDeleted:   deleted,
		DateProbes:       probes,
	}
}

func (m *Metrics) ObserveScenario(name string, passed bool, d time.Duration) {
	if m == nil {
		return
	}
	result := "fail"
	if passed {
		result = "pass"
	}
	m.ScenarioRuns.WithLabelValues(name, result).Inc()
	m.ScenarioDuration.WithLabelValues(name).Observe(d.Seconds())
}

// ObserveAPIRequest matches bookingapi.Observer.
func (m *Metrics) ObserveAPIRequest(operation string, status int) {
	if m == nil {
		return
	}
	m.APIRequests.WithLabelValues(operation, strconv.Itoa(status)).Inc()
}

func (m *Metrics) AddCleanupDeleted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CleanupDeleted.Add(float64(n))
}

// ObserveDateProbe matches the dates.WithObserver callback.
func (m *Metrics) ObserveDateProbe(result string) {
	if m == nil {
		return
	}
	m.DateProbes.WithLabelValues(result).Inc()
}

// WriteTextfile dumps the registry in node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
