package metrics

import (
	"context"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/anicoll/nest-integration/internal/pkg/model"
)

// Sink exposes thermostat variables as Prometheus gauges. It is registered as a
// publisher sink and owns the registry served on /metrics.
type Sink struct {
	registry *prometheus.Registry

	mu    sync.Mutex
	names map[string]string

	temperature *prometheus.GaugeVec
	lastUpdated *prometheus.GaugeVec
	info        *prometheus.GaugeVec
	up          prometheus.Gauge
}

// New builds a sink whose registry also holds extra, typically the collectors
// of the Nest client and of the plugin.
func New(extra ...prometheus.Collector) *Sink {
	labels := []string{"device_id", "device_name"}
	s := &Sink{
		registry: prometheus.NewRegistry(),
		names:    make(map[string]string),
		temperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nest_thermostat_variable",
			Help: "Current thermostat variable value",
		}, append(labels, "variable", "unit")),
		lastUpdated: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nest_thermostat_last_updated_timestamp_seconds",
			Help: "Last variable update per thermostat (epoch seconds)",
		}, labels),
		info: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nest_thermostat_info",
			Help: "Thermostat metadata",
		}, append(labels, "manufacturer", "software_version")),
		up: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nest_up",
			Help: "Plugin running (1=running, 0=otherwise)",
		}),
	}
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		s.temperature,
		s.lastUpdated,
		s.info,
		s.up,
	)
	s.registry.MustRegister(extra...)
	return s
}

func (s *Sink) Registry() *prometheus.Registry {
	return s.registry
}

// Handler exposes the registry.
func (s *Sink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

func (s *Sink) RegisterDevice(ctx context.Context, device *model.Device) error {
	s.mu.Lock()
	s.names[device.ID] = device.Name
	s.mu.Unlock()
	s.info.WithLabelValues(device.ID, device.Name, device.Manufacturer, device.SoftwareVersion).Set(1)
	return nil
}

func (s *Sink) Write(ctx context.Context, batch model.VariableBatch) error {
	s.mu.Lock()
	name := s.names[batch.DeviceID]
	s.mu.Unlock()
	for _, v := range batch.Variables {
		s.temperature.WithLabelValues(batch.DeviceID, name, v.Name, v.Unit).Set(v.Value)
	}
	if !batch.Timestamp.IsZero() {
		s.lastUpdated.WithLabelValues(batch.DeviceID, name).Set(float64(batch.Timestamp.Unix()))
	}
	return nil
}

func (s *Sink) ReportStatus(ctx context.Context, status model.PluginStatus) error {
	if status.State == model.StateRunning {
		s.up.Set(1)
	} else {
		s.up.Set(0)
	}
	return nil
}
