package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fixctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"service", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fixctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)
	sessionMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fixctl",
			Subsystem: "session",
			Name:      "messages_total",
			Help:      "FIX messages sent and received by msg type.",
		},
		[]string{"session", "direction", "msg_type"},
	)
	sessionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fixctl",
			Subsystem: "session",
			Name:      "errors_total",
			Help:      "Session failures by stage.",
		},
		[]string{"session", "stage"},
	)
	pendingOrders = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "fixctl",
			Subsystem: "session",
			Name:      "pending_orders",
			Help:      "Orders awaiting a linked ack.",
		},
		[]string{"session"},
	)
	ackLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fixctl",
			Subsystem: "session",
			Name:      "ack_latency_seconds",
			Help:      "Time from order send to its linked ack.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"session", "msg_type"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, sessionMessages, sessionErrors, pendingOrders, ackLatency)
	})
}

func RecordHTTPRequest(service, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(service, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(service, method, path, statusLabel).Observe(duration.Seconds())
}

// RecordMessage counts one message; direction is "in" or "out".
func RecordMessage(session, direction, msgType string) {
	RegisterMetrics()
	sessionMessages.WithLabelValues(session, direction, msgType).Inc()
}

func RecordSessionError(session, stage string) {
	RegisterMetrics()
	sessionErrors.WithLabelValues(session, stage).Inc()
}

func SetPendingOrders(session string, n int) {
	RegisterMetrics()
	pendingOrders.WithLabelValues(session).Set(float64(n))
}

func RecordAckLatency(session, msgType string, d time.Duration) {
	RegisterMetrics()
	ackLatency.WithLabelValues(session, msgType).Observe(d.Seconds())
}
