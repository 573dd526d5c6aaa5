package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "duetmenu",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	ordersSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "duetmenu",
			Name:      "orders_submitted_total",
			Help:      "Successfully completed order submissions.",
		},
	)

	notificationsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "duetmenu",
			Name:      "notifications_failed_total",
			Help:      "Best-effort push notifications that did not go through.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, ordersSubmitted, notificationsFailed)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncOrderSubmitted counts a completed submission.
func IncOrderSubmitted() {
	ordersSubmitted.Inc()
}

// IncNotificationFailed counts a failed push attempt.
func IncNotificationFailed() {
	notificationsFailed.Inc()
}
