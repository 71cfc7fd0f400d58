package mqtt

import (
	"context"
	"strings"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// SetVariableFunc applies a write received on a command topic.
type SetVariableFunc func(ctx context.Context, deviceID, name string, value any) error

var commandTopics = map[string]string{
	"target_temperature_c": varTargetTempC,
	"target_temperature_f": varTargetTempF,
}

// Subscribe listens on nest/<device>/target_temperature_{c,f}/set and hands
// every payload to set. Commands for devices that were never registered are
// dropped.
func (s *service) Subscribe(ctx context.Context, set SetVariableFunc) error {
	for segment := range commandTopics {
		topic := topicPrefix + "/+/" + segment + "/set"
		if err := wait(s.client.Subscribe(topic, 1, s.handler(ctx, set))); err != nil {
			return err
		}
		s.logger.Info("subscribed to command topic", zap.String("topic", topic))
	}
	return nil
}

func (s *service) handler(ctx context.Context, set SetVariableFunc) paho_mqtt.MessageHandler {
	return func(_ paho_mqtt.Client, msg paho_mqtt.Message) {
		parts := strings.Split(msg.Topic(), "/")
		if len(parts) != 4 || parts[0] != topicPrefix || parts[3] != "set" {
			return
		}
		name, ok := commandTopics[parts[2]]
		if !ok {
			return
		}
		s.mu.Lock()
		deviceID, ok := s.configuredDevices[parts[1]]
		s.mu.Unlock()
		if !ok {
			s.logger.Warn("command for unknown device", zap.String("topic", msg.Topic()))
			return
		}

		value := strings.TrimSpace(string(msg.Payload()))
		if err := set(ctx, deviceID, name, value); err != nil {
			s.logger.Error("failed to apply command", zap.String("device", deviceID), zap.String("variable", name), zap.Error(err))
		}
	}
}
