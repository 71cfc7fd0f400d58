package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/anicoll/nest-integration/internal/pkg/model"
)

const (
	varTargetTempC = "targetTempC"
	varTargetTempF = "targetTempF"
)

func deviceTopic(id string) string {
	return fmt.Sprintf("%s/%s", topicPrefix, slug.Make(id))
}

func (s *service) RegisterDevice(ctx context.Context, device *model.Device) error {
	s.mu.Lock()
	_, exists := s.configuredDevices[slug.Make(device.ID)]
	s.mu.Unlock()
	if exists {
		return nil
	}

	registerMessage := defaultRegisterMsg(device)
	topic := fmt.Sprintf("%s/%s/config", discoveryPrefix, registerMessage.ID)
	payload, err := json.Marshal(registerMessage)
	if err != nil {
		return err
	}
	if err := wait(s.client.Publish(topic, 1, true, payload)); err != nil {
		return err
	}

	s.mu.Lock()
	s.configuredDevices[slug.Make(device.ID)] = device.ID
	s.mu.Unlock()
	return nil
}

// Write merges the batch into the device's last known state and publishes the
// full state, so partial batches never blank out other values.
func (s *service) Write(ctx context.Context, batch model.VariableBatch) error {
	s.mu.Lock()
	state, ok := s.state[batch.DeviceID]
	if !ok {
		state = make(map[string]any)
		s.state[batch.DeviceID] = state
	}
	for _, v := range batch.Variables {
		state[v.Name] = v.Value
	}
	state["updated_at"] = batch.Timestamp
	publishData, err := json.Marshal(state)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	return wait(s.client.Publish(deviceTopic(batch.DeviceID)+"/state", 0, false, publishData))
}

func (s *service) ReportStatus(ctx context.Context, status model.PluginStatus) error {
	payload := payloadOffline
	if status.State == model.StateRunning {
		payload = payloadOnline
	}
	s.logger.Debug("publishing availability", zap.String("availability", payload))
	return wait(s.client.Publish(availabilityTopic, 1, true, payload))
}

func defaultRegisterMsg(device *model.Device) model.RegisterMessage {
	id := slug.Make(device.ID)
	uniqueID := fmt.Sprintf("nest_%s", id)

	return model.RegisterMessage{
		Tilda:                      deviceTopic(device.ID),
		Name:                       device.Name,
		ID:                         uniqueID,
		AvailabilityTopic:          availabilityTopic,
		CurrentTemperatureTopic:    "~/state",
		CurrentTemperatureTemplate: "{{ value_json.indoorTempC }}",
		TemperatureStateTopic:      "~/state",
		TemperatureStateTemplate:   "{{ value_json.targetTempC }}",
		TemperatureCommandTopic:    "~/target_temperature_c/set",
		TemperatureUnit:            "C",
		Modes:                      []string{"heat"},
		Device: model.RegisterDevice{
			Name:            device.Name,
			Identifiers:     []string{uniqueID},
			Manufacturer:    device.Manufacturer,
			SoftwareVersion: device.SoftwareVersion,
		},
	}
}
