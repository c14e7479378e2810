// File: internal/infra/metrics/metrics.go
package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookings_created_total",
			Help: "Bookings created, by job type and immediacy.",
		},
		[]string{"job_type", "immediate"},
	)

	bookingTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_transitions_total",
			Help: "Lifecycle transitions by action and resulting status.",
		},
		[]string{"action", "status"},
	)

	bookingRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_rejections_total",
			Help: "Business rejections by outcome code.",
		},
		[]string{"code"},
	)

	acceptRaceLosses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_accept_race_losses_total",
			Help: "Accept attempts that lost the already-assigned race.",
		},
	)

	notificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Delivered notifications by channel and success.",
		},
		[]string{"channel", "success"},
	)

	sweepExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bookings_swept_total",
			Help: "Pending bookings timed out by the expiry sweeper.",
		},
	)

	httpLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_latency_ms",
			Help:    "API request latency distribution in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 200, 400, 800, 1600, 3000},
		},
		[]string{"route", "status"},
	)
)

// MustRegister registers collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			bookingsCreated, bookingTransitions, bookingRejections,
			acceptRaceLosses, notificationsSent, sweepExpired, httpLatencyMs,
		)
	})
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func IncBookingCreated(jobType string, immediate bool) {
	v := "false"
	if immediate {
		v = "true"
	}
	bookingsCreated.WithLabelValues(norm(jobType), v).Inc()
}

func IncTransition(action, status string) {
	bookingTransitions.WithLabelValues(norm(action), norm(status)).Inc()
}

func IncRejection(code string) {
	bookingRejections.WithLabelValues(norm(code)).Inc()
}

func IncAcceptRaceLoss() { acceptRaceLosses.Inc() }

func IncNotification(channel string, success bool) {
	s := "false"
	if success {
		s = "true"
	}
	notificationsSent.WithLabelValues(norm(channel), s).Inc()
}

func AddSweptBookings(n int) { sweepExpired.Add(float64(n)) }

func ObserveHTTP(route string, status int, latencyMs float64) {
	httpLatencyMs.WithLabelValues(route, normStatus(status)).Observe(latencyMs)
}

func normStatus(code int) string {
	switch {
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
