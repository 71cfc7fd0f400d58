package plugin

import "github.com/prometheus/client_golang/prometheus"

var (
	refreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nest_refresh_total",
			Help: "Poll cycles by result",
		},
		[]string{"result"},
	)
	refreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nest_refresh_duration_seconds",
			Help:    "Time spent fetching the status payload",
			Buckets: prometheus.DefBuckets,
		},
	)
	anomalyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nest_device_anomaly_total",
			Help: "Devices skipped while reconciling, by reason",
		},
		[]string{"reason"},
	)
	deviceErrorTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nest_device_apply_errors_total",
			Help: "Device updates that failed to apply",
		},
	)
	commandErrorTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nest_command_errors_total",
			Help: "Target temperature commands that failed",
		},
	)
	devicesTracked = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nest_devices_tracked",
			Help: "Thermostats known to the plugin",
		},
	)
	pluginState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nest_plugin_state",
			Help: "Current plugin state (1=active)",
		},
		[]string{"state"},
	)
)

// MetricsCollectors returns collectors for the plugin lifecycle.
func MetricsCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		refreshTotal,
		refreshDuration,
		anomalyTotal,
		deviceErrorTotal,
		commandErrorTotal,
		devicesTracked,
		pluginState,
	}
}
