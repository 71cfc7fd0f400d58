package thermostat

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anicoll/nest-integration/internal/pkg/model"
)

// Registry owns the thermostats created from reconciled snapshots. Devices are
// never removed.
type Registry struct {
	commander Commander
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time

	mu      sync.RWMutex
	devices map[string]*Thermostat
}

func NewRegistry(commander Commander, publisher Publisher) *Registry {
	return &Registry{
		commander: commander,
		publisher: publisher,
		logger:    zap.L(),
		now:       time.Now,
		devices:   make(map[string]*Thermostat),
	}
}

// ApplyCreate tracks a newly seen thermostat, registers it with the publisher
// and publishes its initial variables. Creating a known id updates it instead.
func (r *Registry) ApplyCreate(ctx context.Context, id string, shared model.SharedState, info *model.DeviceInfo) (*Thermostat, error) {
	r.mu.Lock()
	if existing, ok := r.devices[id]; ok {
		r.mu.Unlock()
		return existing, existing.ApplyUpdate(ctx, shared, info)
	}
	t := newThermostat(id, shared, info, r.commander, r.publisher, r.now)
	r.devices[id] = t
	r.mu.Unlock()

	r.logger.Info("discovered thermostat", zap.String("device_id", id), zap.String("name", t.Name()))
	if err := r.publisher.RegisterDevice(ctx, t.Device()); err != nil {
		return t, fmt.Errorf("register device %s: %w", id, err)
	}
	t.mu.RLock()
	batch := t.batchLocked(t.lastCheckin, variableOrder...)
	t.mu.RUnlock()
	return t, r.publisher.Write(ctx, batch)
}

// Lookup returns ErrDeviceNotFound for an unknown id.
func (r *Registry) Lookup(id string) (*Thermostat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.devices[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	return t, nil
}

// KnownIDs returns the ids of all tracked thermostats, sorted.
func (r *Registry) KnownIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := lo.Keys(r.devices)
	sort.Strings(ids)
	return ids
}

func (r *Registry) All() []*Thermostat {
	ids := r.KnownIDs()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.FilterMap(ids, func(id string, _ int) (*Thermostat, bool) {
		t, ok := r.devices[id]
		return t, ok
	})
}

// MarkAllUnavailable flags every thermostat as unreachable.
func (r *Registry) MarkAllUnavailable() {
	for _, t := range r.All() {
		t.MarkUnavailable()
	}
}
