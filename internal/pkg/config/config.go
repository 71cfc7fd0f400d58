package config

import (
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/anicoll/nest-integration/internal/pkg/model"
)

type Config struct {
	NestCfg          *NestConfig
	MqttCfg          *MqttConfig
	DatabaseURL      string        `env:"DATABASE_URL"`
	MigrationsFolder string        `env:"MIGRATIONS_FOLDER"`
	HTTPAddr         string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8000"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"INFO"`
	PollInterval     time.Duration `env:"POLL_INTERVAL" envDefault:"300s"`
}

type NestConfig struct {
	Username string        `env:"NEST_USERNAME"`
	Password string        `env:"NEST_PASSWORD"`
	LoginURL string        `env:"NEST_LOGIN_URL" envDefault:"https://home.nest.com/user/login"`
	Timeout  time.Duration `env:"NEST_TIMEOUT" envDefault:"30s"`
}

type MqttConfig struct {
	Host     string `env:"MQTT_HOST"`
	Username string `env:"MQTT_USER"`
	Password string `env:"MQTT_PASS"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		NestCfg: &NestConfig{},
		MqttCfg: &MqttConfig{},
	}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Credentials returns the configured Nest account.
func (c *Config) Credentials() model.Credentials {
	if c.NestCfg == nil {
		return model.Credentials{}
	}
	return model.Credentials{Username: c.NestCfg.Username, Password: c.NestCfg.Password}
}

// Configured reports whether both Nest username and password are set.
func (c *Config) Configured() bool {
	return !c.Credentials().Empty()
}
