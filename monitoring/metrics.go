package monitoring

import "github.com/prometheus/client_golang/prometheus"

var (
	HttpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "status"},
	)

	HttpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_connections",
			Help: "Number of active connections",
		},
	)

	ChangeStreamDeltas = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "change_stream_deltas_total",
			Help: "Total number of deltas consumed from the store change streams",
		},
		[]string{"class", "operation"},
	)

	ChangeStreamProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "change_stream_processing_duration_seconds",
			Help:    "Duration of change stream delta processing",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"class", "operation"},
	)

	NotificationsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Total number of notification records fanned out",
		},
		[]string{"kind"},
	)

	WebsocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_clients",
			Help: "Number of connected websocket clients",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HttpRequestsTotal,
		HttpRequestDuration,
		ActiveConnections,
		ChangeStreamDeltas,
		ChangeStreamProcessingDuration,
		NotificationsCreated,
		WebsocketClients,
	)
}
