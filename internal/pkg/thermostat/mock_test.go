package thermostat

import (
	"context"
	"sync"

	"github.com/anicoll/nest-integration/internal/pkg/model"
)

type MockCommander struct {
	SetTargetTemperatureFunc func(ctx context.Context, deviceID string, temperatureC float64) error

	mu    sync.Mutex
	calls []float64
}

func (m *MockCommander) SetTargetTemperature(ctx context.Context, deviceID string, temperatureC float64) error {
	m.mu.Lock()
	m.calls = append(m.calls, temperatureC)
	m.mu.Unlock()
	if m.SetTargetTemperatureFunc != nil {
		return m.SetTargetTemperatureFunc(ctx, deviceID, temperatureC)
	}
	return nil
}

func (m *MockCommander) Calls() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.calls...)
}

type MockPublisher struct {
	RegisterDeviceFunc func(ctx context.Context, device *model.Device) error
	WriteFunc          func(ctx context.Context, batch model.VariableBatch) error

	mu      sync.Mutex
	devices []*model.Device
	batches []model.VariableBatch
}

func (m *MockPublisher) RegisterDevice(ctx context.Context, device *model.Device) error {
	m.mu.Lock()
	m.devices = append(m.devices, device)
	m.mu.Unlock()
	if m.RegisterDeviceFunc != nil {
		return m.RegisterDeviceFunc(ctx, device)
	}
	return nil
}

func (m *MockPublisher) Write(ctx context.Context, batch model.VariableBatch) error {
	m.mu.Lock()
	m.batches = append(m.batches, batch)
	m.mu.Unlock()
	if m.WriteFunc != nil {
		return m.WriteFunc(ctx, batch)
	}
	return nil
}

func (m *MockPublisher) Batches() []model.VariableBatch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.VariableBatch(nil), m.batches...)
}

func (m *MockPublisher) Devices() []*model.Device {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.Device(nil), m.devices...)
}
