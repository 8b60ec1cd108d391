// Package telemetry exposes Prometheus metrics for the HTTP layer and the
// database pool, served at /metrics.
package telemetry

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mediflow/mediflow/internal/platform/apperr"
)

// Provider owns the metric registry and the collectors registered on it.
type Provider struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	activeRequests  prometheus.Gauge

	appointmentsBooked  prometheus.Counter
	appointmentsDecided *prometheus.CounterVec
}

// NewProvider creates a provider with a dedicated registry so tests can
// instantiate it repeatedly without duplicate-registration panics.
func NewProvider() *Provider {
	reg := prometheus.NewRegistry()

	p := &Provider{
		registry: reg,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: []float64{0.010, 0.025, 0.050, 0.100, 0.250, 0.500, 1.0, 2.5, 5.0, 10.0},
		}, []string{"method", "route"}),
		activeRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_active_requests",
			Help: "Number of in-flight HTTP requests.",
		}),
		appointmentsBooked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "appointments_booked_total",
			Help: "Total appointment booking requests accepted.",
		}),
		appointmentsDecided: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appointments_decided_total",
			Help: "Total appointment decisions by outcome.",
		}, []string{"status"}),
	}

	reg.MustRegister(
		p.requestsTotal,
		p.requestDuration,
		p.activeRequests,
		p.appointmentsBooked,
		p.appointmentsDecided,
	)

	return p
}

// Middleware records request count, latency and in-flight gauge for every
// request. Routes are recorded by pattern, not raw path, to bound cardinality.
func (p *Provider) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p.activeRequests.Inc()
			start := time.Now()

			err := next(c)

			p.activeRequests.Dec()

			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			method := c.Request().Method
			// The error handler has not run yet, so the response still
			// reads 200 on error paths; derive the status from the error.
			status := c.Response().Status
			if err != nil {
				var ae *apperr.Error
				var he *echo.HTTPError
				switch {
				case errors.As(err, &ae):
					status = ae.Kind.Status()
				case errors.As(err, &he):
					status = he.Code
				default:
					status = 500
				}
			}

			p.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			p.requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// Handler serves the registry in Prometheus text exposition format.
func (p *Provider) Handler() echo.HandlerFunc {
	h := promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
	return func(c echo.Context) error {
		h.ServeHTTP(c.Response(), c.Request())
		return nil
	}
}

// AppointmentBooked counts a successfully booked appointment.
func (p *Provider) AppointmentBooked() {
	p.appointmentsBooked.Inc()
}

// AppointmentDecided counts an approve or reject decision.
func (p *Provider) AppointmentDecided(status string) {
	p.appointmentsDecided.WithLabelValues(status).Inc()
}
