package nest

import "github.com/prometheus/client_golang/prometheus"

var (
	loginTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nest_login_total",
			Help: "Login attempts by result",
		},
		[]string{"result"},
	)
	requestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nest_api_requests_total",
			Help: "Requests to the Nest API by endpoint and response status",
		},
		[]string{"endpoint", "status"},
	)
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nest_api_request_duration_seconds",
			Help:    "Latency of requests to the Nest API",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
	sessionValid = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nest_session_valid",
			Help: "Session presence (1=authenticated, 0=none)",
		},
	)
)

// MetricsCollectors returns collectors for the Nest API client.
func MetricsCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		loginTotal,
		requestTotal,
		requestDuration,
		sessionValid,
	}
}
