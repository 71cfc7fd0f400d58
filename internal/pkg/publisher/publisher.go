package publisher

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/anicoll/nest-integration/internal/pkg/model"
)

var errAlreadyRegistered = errors.New("publisher already registered")

type sink interface {
	// Write publishes one device's variables. A batch is never split.
	Write(ctx context.Context, batch model.VariableBatch) error
	RegisterDevice(ctx context.Context, device *model.Device) error
	ReportStatus(ctx context.Context, status model.PluginStatus) error
}

type namedSink struct {
	name string
	sink sink
}

// Publisher fans device registrations, variable batches and plugin status out
// to every registered sink. A failing sink is logged and skipped.
type Publisher struct {
	mu     sync.RWMutex
	sinks  []namedSink
	logger *zap.Logger
}

func New() *Publisher {
	return &Publisher{logger: zap.L()}
}

func (p *Publisher) RegisterPublisher(name string, s sink) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ns := range p.sinks {
		if ns.name == name {
			return errAlreadyRegistered
		}
	}
	p.sinks = append(p.sinks, namedSink{name: name, sink: s})
	return nil
}

func (p *Publisher) snapshot() []namedSink {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]namedSink(nil), p.sinks...)
}

func (p *Publisher) Write(ctx context.Context, batch model.VariableBatch) error {
	for _, ns := range p.snapshot() {
		if err := ns.sink.Write(ctx, batch); err != nil {
			p.logger.Error("failed to publish data", zap.Error(err), zap.String("publisher", ns.name), zap.String("device", batch.DeviceID))
			continue
		}
		p.logger.Debug("updated variables", zap.Int("count", len(batch.Variables)), zap.String("device", batch.DeviceID), zap.String("publisher", ns.name))
	}
	return nil
}

func (p *Publisher) RegisterDevice(ctx context.Context, device *model.Device) error {
	for _, ns := range p.snapshot() {
		if err := ns.sink.RegisterDevice(ctx, device); err != nil {
			p.logger.Error("failed to register device", zap.Error(err), zap.String("publisher", ns.name))
			continue
		}
		p.logger.Debug("registered device", zap.String("device", device.ID), zap.String("publisher", ns.name))
	}
	return nil
}

func (p *Publisher) ReportStatus(ctx context.Context, status model.PluginStatus) error {
	for _, ns := range p.snapshot() {
		if err := ns.sink.ReportStatus(ctx, status); err != nil {
			p.logger.Error("failed to report status", zap.Error(err), zap.String("publisher", ns.name))
		}
	}
	return nil
}
