package plugin

import (
	"context"
	"sync"

	"github.com/anicoll/nest-integration/internal/pkg/model"
)

type MockAPI struct {
	LoginFunc                func(ctx context.Context) (*model.Session, error)
	StatusFunc               func(ctx context.Context) (*model.StatusSnapshot, error)
	SetTargetTemperatureFunc func(ctx context.Context, deviceID string, temperatureC float64) error
}

func (m *MockAPI) Login(ctx context.Context) (*model.Session, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx)
	}
	return &model.Session{UserID: "user.1", BaseURL: "https://t", AccessToken: "token"}, nil
}

func (m *MockAPI) Status(ctx context.Context) (*model.StatusSnapshot, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx)
	}
	return &model.StatusSnapshot{Structures: map[string]model.Structure{}}, nil
}

func (m *MockAPI) SetTargetTemperature(ctx context.Context, deviceID string, temperatureC float64) error {
	if m.SetTargetTemperatureFunc != nil {
		return m.SetTargetTemperatureFunc(ctx, deviceID, temperatureC)
	}
	return nil
}

type MockPublisher struct {
	RegisterDeviceFunc func(ctx context.Context, device *model.Device) error
	WriteFunc          func(ctx context.Context, batch model.VariableBatch) error

	mu       sync.Mutex
	devices  []*model.Device
	batches  []model.VariableBatch
	statuses []model.PluginStatus
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

func (m *MockPublisher) ReportStatus(ctx context.Context, status model.PluginStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, status)
	return nil
}

func (m *MockPublisher) Statuses() []model.PluginStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.PluginStatus(nil), m.statuses...)
}

func (m *MockPublisher) Devices() []*model.Device {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.Device(nil), m.devices...)
}

func (m *MockPublisher) Batches() []model.VariableBatch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.VariableBatch(nil), m.batches...)
}
