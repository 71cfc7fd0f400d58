package thermostat

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/anicoll/nest-integration/internal/pkg/model"
	"github.com/anicoll/nest-integration/internal/pkg/temperature"
)

const (
	VarIndoorTempC = "indoorTempC"
	VarIndoorTempF = "indoorTempF"
	VarTargetTempC = "targetTempC"
	VarTargetTempF = "targetTempF"

	DefaultName  = "Nest"
	Manufacturer = "Nest"
)

// variableOrder is the order variables are published in.
var variableOrder = []string{VarIndoorTempC, VarIndoorTempF, VarTargetTempC, VarTargetTempF}

// Commander sends a target temperature change upstream.
type Commander interface {
	SetTargetTemperature(ctx context.Context, deviceID string, temperatureC float64) error
}

// Publisher receives device registrations and variable batches.
type Publisher interface {
	RegisterDevice(ctx context.Context, device *model.Device) error
	Write(ctx context.Context, batch model.VariableBatch) error
}

// Thermostat is one locally tracked Nest thermostat with its four temperature
// variables.
type Thermostat struct {
	id        string
	commander Commander
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time

	mu          sync.RWMutex
	name        string
	info        *model.DeviceInfo
	variables   map[string]model.Variable
	lastCheckin time.Time
	available   bool
}

func newThermostat(id string, shared model.SharedState, info *model.DeviceInfo, commander Commander, publisher Publisher, now func() time.Time) *Thermostat {
	t := &Thermostat{
		id:        id,
		commander: commander,
		publisher: publisher,
		logger:    zap.L().With(zap.String("device_id", id)),
		now:       now,
		name:      displayName(shared),
		info:      info,
	}
	ts := now()
	t.variables = variablesFor(shared, ts)
	t.lastCheckin = ts
	t.available = true
	return t
}

func displayName(shared model.SharedState) string {
	if strings.TrimSpace(shared.DisplayName) == "" {
		return DefaultName
	}
	return shared.DisplayName
}

func variablesFor(shared model.SharedState, ts time.Time) map[string]model.Variable {
	return map[string]model.Variable{
		VarIndoorTempC: {Name: VarIndoorTempC, Value: shared.CurrentTemperatureC, Unit: model.UnitCelsius, Mask: model.ReadOnly, UpdatedAt: ts},
		VarIndoorTempF: {Name: VarIndoorTempF, Value: temperature.ToFahrenheit(shared.CurrentTemperatureC), Unit: model.UnitFahrenheit, Mask: model.ReadOnly, UpdatedAt: ts},
		VarTargetTempC: {Name: VarTargetTempC, Value: shared.TargetTemperatureC, Unit: model.UnitCelsius, Mask: model.ReadWrite, UpdatedAt: ts},
		VarTargetTempF: {Name: VarTargetTempF, Value: temperature.ToFahrenheit(shared.TargetTemperatureC), Unit: model.UnitFahrenheit, Mask: model.ReadWrite, UpdatedAt: ts},
	}
}

func (t *Thermostat) ID() string {
	return t.id
}

func (t *Thermostat) Name() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.name
}

// Device describes the thermostat to the publishers.
func (t *Thermostat) Device() *model.Device {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.deviceLocked()
}

func (t *Thermostat) deviceLocked() *model.Device {
	d := &model.Device{
		ID:                t.id,
		Name:              t.name,
		Manufacturer:      Manufacturer,
		PreferredVariable: VarIndoorTempF,
	}
	if t.info != nil {
		d.SoftwareVersion = t.info.CurrentVersion
	}
	return d
}

// Variable returns the current value of one of the four variables.
func (t *Thermostat) Variable(name string) (model.Variable, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.variables[name]
	return v, ok
}

func (t *Thermostat) State() model.ThermostatState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	d := t.deviceLocked()
	return model.ThermostatState{
		ID:              t.id,
		Name:            t.name,
		Manufacturer:    d.Manufacturer,
		SoftwareVersion: d.SoftwareVersion,
		Available:       t.available,
		LastCheckin:     t.lastCheckin,
		Variables:       t.batchLocked(t.lastCheckin, variableOrder...).Variables,
	}
}

// ApplyUpdate replaces all four variables from a fresh shared state and
// publishes them as one batch. The device is checked in and marked available.
func (t *Thermostat) ApplyUpdate(ctx context.Context, shared model.SharedState, info *model.DeviceInfo) error {
	t.mu.Lock()
	ts := t.now()
	t.variables = variablesFor(shared, ts)
	if info != nil {
		t.info = info
	}
	t.lastCheckin = ts
	t.available = true
	batch := t.batchLocked(t.lastCheckin, variableOrder...)
	t.mu.Unlock()

	return t.publisher.Write(ctx, batch)
}

// RequestWrite handles a local write to targetTempC or targetTempF. Writes to
// any other variable are ignored. The new value is sent upstream in Celsius and
// then reflected locally without waiting for the next poll.
func (t *Thermostat) RequestWrite(ctx context.Context, name string, raw any) error {
	if name != VarTargetTempC && name != VarTargetTempF {
		t.logger.Debug("ignoring write to variable", zap.String("variable", name))
		return nil
	}

	value, err := ParseTemperature(name, raw)
	if err != nil {
		t.logger.Error("attempt to set temperature with no numeric value", zap.String("variable", name), zap.Any("value", raw))
		return err
	}

	celsius := value
	if name == VarTargetTempF {
		celsius = temperature.ToCelsius(value)
	}
	if err := t.commander.SetTargetTemperature(ctx, t.id, celsius); err != nil {
		return err
	}

	t.mu.Lock()
	ts := t.now()
	t.setLocked(VarTargetTempC, celsius, ts)
	t.setLocked(VarTargetTempF, temperature.ToFahrenheit(celsius), ts)
	// the written variable keeps the exact requested value
	t.setLocked(name, value, ts)
	batch := t.batchLocked(ts, VarTargetTempC, VarTargetTempF)
	t.mu.Unlock()

	t.logger.Info("target temperature set", zap.String("variable", name), zap.Float64("value", value), zap.Float64("target_temperature_c", celsius))
	return t.publisher.Write(ctx, batch)
}

func (t *Thermostat) setLocked(name string, value float64, ts time.Time) {
	v := t.variables[name]
	v.Value = value
	v.UpdatedAt = ts
	t.variables[name] = v
}

func (t *Thermostat) batchLocked(ts time.Time, names ...string) model.VariableBatch {
	batch := model.VariableBatch{
		DeviceID:  t.id,
		Variables: make([]model.Variable, 0, len(names)),
		Timestamp: ts,
	}
	for _, n := range names {
		if v, ok := t.variables[n]; ok {
			batch.Variables = append(batch.Variables, v)
		}
	}
	return batch
}

// LastCheckin is the time of the last applied status.
func (t *Thermostat) LastCheckin() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastCheckin
}

func (t *Thermostat) Available() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.available
}

// MarkUnavailable flags the device as unreachable until the next update.
func (t *Thermostat) MarkUnavailable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.available = false
}
