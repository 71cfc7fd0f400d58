package mqtt

import (
	"errors"
	"sync"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const (
	discoveryPrefix   = "homeassistant/climate"
	topicPrefix       = "nest"
	availabilityTopic = topicPrefix + "/availability"

	payloadOnline  = "online"
	payloadOffline = "offline"

	connectTimeout = 5 * time.Second
	publishTimeout = 10 * time.Second
)

// client is the part of paho_mqtt.Client the service uses.
type client interface {
	Connect() paho_mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) paho_mqtt.Token
	Subscribe(topic string, qos byte, callback paho_mqtt.MessageHandler) paho_mqtt.Token
}

type service struct {
	client client
	logger *zap.Logger

	mu                sync.Mutex
	configuredDevices map[string]string
	state             map[string]map[string]any
}

func New(client client) *service {
	return &service{
		client:            client,
		logger:            zap.L(),
		configuredDevices: make(map[string]string),
		state:             make(map[string]map[string]any),
	}
}

// NewClient builds a paho client for the broker at host with a last will
// marking all thermostats offline.
func NewClient(host, username, password string) paho_mqtt.Client {
	opts := paho_mqtt.NewClientOptions()
	opts.AddBroker(host)
	opts.SetUsername(username)
	opts.SetPassword(password)
	opts.SetClientID("nest-integration")
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetWill(availabilityTopic, payloadOffline, 1, true)
	return paho_mqtt.NewClient(opts)
}

func (s *service) Connect() error {
	token := s.client.Connect()
	res := token.WaitTimeout(connectTimeout)
	if res {
		return token.Error()
	}
	if err := token.Error(); err != nil {
		return err
	}
	return errors.New("unable to connect in time")
}

func wait(token paho_mqtt.Token) error {
	if !token.WaitTimeout(publishTimeout) {
		return errors.New("mqtt operation timed out")
	}
	return token.Error()
}
