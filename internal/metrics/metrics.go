package metrics

import (
	"strconv"
	"sync"
	"time"

	"shareit/internal/events"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "shareit"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status code.",
		},
		[]string{"endpoint", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by endpoint.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	bookingTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_transitions_total",
			Help:      "Bookings entering each status.",
		},
		[]string{"status"},
	)

	commentsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "comments_created_total",
			Help:      "Comments accepted on items.",
		},
	)

	rateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, bookingTransitions, commentsCreated, rateLimited)
	})
}

// ObserveHTTP records one finished request.
func ObserveHTTP(endpoint string, status int, elapsed time.Duration) {
	httpRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

func IncBookingTransition(status string) {
	bookingTransitions.WithLabelValues(status).Inc()
}

func IncCommentCreated() {
	commentsCreated.Inc()
}

func IncRateLimited() {
	rateLimited.Inc()
}

// SubscribeEvents feeds domain counters from the event bus.
func SubscribeEvents(bus *events.EventBus) {
	bus.Subscribe(func(e *events.Event) error {
		var payload events.BookingEventPayload
		if err := e.Decode(&payload); err != nil {
			return err
		}
		IncBookingTransition(payload.Status)
		return nil
	}, events.BookingEventTypes...)

	bus.Subscribe(func(*events.Event) error {
		IncCommentCreated()
		return nil
	}, events.EventCommentCreated)
}
