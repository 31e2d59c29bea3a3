// Package metrics exposes Prometheus collectors for HTTP traffic and
// booking activity.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the API reports. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	BookingsCreated   prometheus.Counter
	PaymentsApplied   *prometheus.CounterVec
	LoginDenied       *prometheus.CounterVec
	MissingReturnDate *prometheus.GaugeVec
}

// New creates the collectors on a dedicated registry
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		BookingsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "Bookings created",
		}),
		PaymentsApplied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payments_applied_total",
				Help:      "Payments recorded, by resulting payment status",
			},
			[]string{"payment_status"},
		),
		LoginDenied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "login_denied_total",
				Help:      "Refused logins by reason",
			},
			[]string{"reason"},
		),
		MissingReturnDate: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "bookings_missing_return_date",
				Help:      "Confirmed bookings departing soon without a return date",
			},
			[]string{"agency"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestCount,
		m.RequestDuration,
		m.BookingsCreated,
		m.PaymentsApplied,
		m.LoginDenied,
		m.MissingReturnDate,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestCount.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) BookingCreated() {
	if m == nil {
		return
	}
	m.BookingsCreated.Inc()
}

func (m *Metrics) PaymentApplied(paymentStatus string) {
	if m == nil {
		return
	}
	m.PaymentsApplied.WithLabelValues(paymentStatus).Inc()
}

func (m *Metrics) LoginRefused(reason string) {
	if m == nil {
		return
	}
	m.LoginDenied.WithLabelValues(reason).Inc()
}

// SetMissingReturnDates replaces the per-agency gauge values
func (m *Metrics) SetMissingReturnDates(counts map[string]int) {
	if m == nil {
		return
	}
	m.MissingReturnDate.Reset()
	for agency, n := range counts {
		m.MissingReturnDate.WithLabelValues(agency).Set(float64(n))
	}
}
