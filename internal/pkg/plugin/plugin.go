package plugin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/anicoll/nest-integration/internal/pkg/model"
	"github.com/anicoll/nest-integration/internal/pkg/reconcile"
	"github.com/anicoll/nest-integration/internal/pkg/thermostat"
	"github.com/anicoll/nest-integration/pkg/hasher"
)

const (
	// DefaultRefreshInterval is the time between two status polls.
	DefaultRefreshInterval = 300 * time.Second

	msgNotConfigured = "Nest username and password are not set"
)

var ErrNotConfigured = errors.New("nest plugin is not configured")

// API is the authenticated Nest account the plugin polls.
type API interface {
	Login(ctx context.Context) (*model.Session, error)
	Status(ctx context.Context) (*model.StatusSnapshot, error)
	SetTargetTemperature(ctx context.Context, deviceID string, temperatureC float64) error
}

// APIFactory builds an API for a set of credentials.
type APIFactory func(creds model.Credentials) API

// Publisher is the host side of the plugin: device registration, variable
// batches and plugin status.
type Publisher interface {
	thermostat.Publisher
	ReportStatus(ctx context.Context, status model.PluginStatus) error
}

// Plugin ties one Nest account to the local thermostat registry.
type Plugin struct {
	newAPI    APIFactory
	publisher Publisher
	registry  *thermostat.Registry
	logger    *zap.Logger

	mu          sync.RWMutex
	api         API
	username    string
	fingerprint string
	status      model.PluginStatus

	// refreshSeq numbers refreshes in start order; applyMu guards appliedSeq
	// and serialises applying snapshots.
	refreshSeq atomic.Uint64
	applyMu    sync.Mutex
	appliedSeq uint64
}

func New(newAPI APIFactory, publisher Publisher) *Plugin {
	p := &Plugin{
		newAPI:    newAPI,
		publisher: publisher,
		logger:    zap.L(),
		status:    model.NotConfigured(msgNotConfigured),
	}
	p.registry = thermostat.NewRegistry(p, publisher)
	return p
}

func (p *Plugin) Registry() *thermostat.Registry {
	return p.registry
}

// Status returns the current plugin status.
func (p *Plugin) Status() model.PluginStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// Configure applies a set of credentials. Empty credentials leave the plugin
// not configured. Otherwise the account is logged in and polled once. Calling
// Configure again with the same credentials while running is a no-op.
func (p *Plugin) Configure(ctx context.Context, creds model.Credentials) error {
	if creds.Empty() {
		p.mu.Lock()
		p.api = nil
		p.username = ""
		p.fingerprint = ""
		p.mu.Unlock()
		p.setStatus(ctx, model.NotConfigured(msgNotConfigured))
		return nil
	}

	if p.unchanged(creds) {
		p.logger.Debug("nest credentials unchanged", zap.Object("credentials", creds))
		return nil
	}

	fingerprint, err := hasher.HashPassword([]byte(creds.Password))
	if err != nil {
		return fmt.Errorf("fingerprint credentials: %w", err)
	}
	api := p.newAPI(creds)
	p.mu.Lock()
	p.api = api
	p.username = creds.Username
	p.fingerprint = fingerprint
	p.mu.Unlock()

	p.logger.Info("configuring nest account", zap.Object("credentials", creds))
	if _, err := api.Login(ctx); err != nil {
		p.logger.Error("error logging into Nest", zap.Error(err))
		p.setStatus(ctx, model.Failed(fmt.Sprintf("Error logging into Nest: %v", err)))
		return err
	}
	p.setStatus(ctx, model.Running())

	return p.Refresh(ctx)
}

func (p *Plugin) unchanged(creds model.Credentials) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.api != nil &&
		p.status.State == model.StateRunning &&
		p.username == creds.Username &&
		hasher.PasswordCorrect(creds.Password, p.fingerprint)
}

func (p *Plugin) currentAPI() (API, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.api == nil {
		return nil, ErrNotConfigured
	}
	return p.api, nil
}

// Refresh runs one poll cycle: fetch the status, reconcile it against the known
// thermostats and apply the result. A snapshot that arrives after a newer one
// was applied is dropped.
func (p *Plugin) Refresh(ctx context.Context) error {
	api, err := p.currentAPI()
	if err != nil {
		return err
	}

	seq := p.refreshSeq.Add(1)
	start := time.Now()
	snapshot, err := api.Status(ctx)
	refreshDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		refreshTotal.WithLabelValues("error").Inc()
		p.logger.Error("error refreshing nest status", zap.Error(err))
		p.registry.MarkAllUnavailable()
		p.setStatus(ctx, model.Failed(fmt.Sprintf("Error refreshing Nest status: %v", err)))
		return err
	}

	p.applyMu.Lock()
	defer p.applyMu.Unlock()
	if seq < p.appliedSeq {
		refreshTotal.WithLabelValues("stale").Inc()
		p.logger.Debug("discarding stale nest status", zap.Uint64("seq", seq), zap.Uint64("applied_seq", p.appliedSeq))
		return nil
	}
	p.appliedSeq = seq

	if err := p.apply(ctx, snapshot); err != nil {
		refreshTotal.WithLabelValues("anomaly").Inc()
		p.setStatus(ctx, model.Failed(err.Error()))
		return err
	}
	refreshTotal.WithLabelValues("success").Inc()
	devicesTracked.Set(float64(len(p.registry.KnownIDs())))
	p.setStatus(ctx, model.Running())
	return nil
}

func (p *Plugin) apply(ctx context.Context, snapshot *model.StatusSnapshot) error {
	actions := reconcile.Reconcile(snapshot, reconcile.KnownSet(p.registry.KnownIDs()))
	for _, action := range actions {
		switch action.Kind {
		case reconcile.ActionAnomaly:
			if action.Fatal() {
				p.logger.Error("unsupported nest structure", zap.String("reason", action.Anomaly.Reason))
				return action.Anomaly
			}
			anomalyTotal.WithLabelValues(action.Anomaly.Reason).Inc()
			p.logger.Warn("skipping nest device", zap.String("device_id", action.DeviceID), zap.String("reason", action.Anomaly.Reason))
		default:
			if err := p.applyDevice(ctx, action); err != nil {
				deviceErrorTotal.Inc()
				p.logger.Error("error applying nest device state", zap.String("device_id", action.DeviceID), zap.Stringer("action", action.Kind), zap.Error(err))
			}
		}
	}
	return nil
}

// applyDevice applies one create or update. A panic is turned into an error so
// the remaining devices are still processed.
func (p *Plugin) applyDevice(ctx context.Context, action reconcile.DeviceAction) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic applying device %s: %v", action.DeviceID, r)
		}
	}()

	if action.Kind == reconcile.ActionCreate {
		_, err = p.registry.ApplyCreate(ctx, action.DeviceID, action.Shared, action.Info)
		return err
	}
	t, err := p.registry.Lookup(action.DeviceID)
	if errors.Is(err, thermostat.ErrDeviceNotFound) {
		_, err = p.registry.ApplyCreate(ctx, action.DeviceID, action.Shared, action.Info)
		return err
	}
	if err != nil {
		return err
	}
	return t.ApplyUpdate(ctx, action.Shared, action.Info)
}

// SetVariable routes a local write to a thermostat.
func (p *Plugin) SetVariable(ctx context.Context, deviceID, name string, value any) error {
	t, err := p.registry.Lookup(deviceID)
	if err != nil {
		return err
	}
	return t.RequestWrite(ctx, name, value)
}

// SetTargetTemperature forwards a thermostat command to the configured account.
func (p *Plugin) SetTargetTemperature(ctx context.Context, deviceID string, temperatureC float64) error {
	api, err := p.currentAPI()
	if err != nil {
		return err
	}
	if err := api.SetTargetTemperature(ctx, deviceID, temperatureC); err != nil {
		commandErrorTotal.Inc()
		p.logger.Error("error setting target temperature", zap.String("device_id", deviceID), zap.Error(err))
		return err
	}
	return nil
}

func (p *Plugin) setStatus(ctx context.Context, status model.PluginStatus) {
	p.mu.Lock()
	changed := p.status != status
	p.status = status
	p.mu.Unlock()

	for _, s := range []model.PluginState{model.StateRunning, model.StateNotConfigured, model.StateFailed} {
		v := 0.0
		if s == status.State {
			v = 1
		}
		pluginState.WithLabelValues(s.String()).Set(v)
	}
	if !changed {
		return
	}

	switch status.State {
	case model.StateRunning:
		p.logger.Info("nest plugin running")
	case model.StateNotConfigured:
		p.logger.Warn("nest plugin not configured", zap.String("message", status.Message))
	default:
		p.logger.Error("nest plugin failed", zap.String("message", status.Message))
	}
	if err := p.publisher.ReportStatus(ctx, status); err != nil {
		p.logger.Error("failed to report plugin status", zap.Error(err))
	}
}

// Devices returns the state of every tracked thermostat.
func (p *Plugin) Devices() []model.ThermostatState {
	all := p.registry.All()
	out := make([]model.ThermostatState, 0, len(all))
	for _, t := range all {
		out = append(out, t.State())
	}
	return out
}
