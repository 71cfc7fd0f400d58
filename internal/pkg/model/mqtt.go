package model

type RegisterDevice struct {
	Name            string   `json:"name"`
	Identifiers     []string `json:"identifiers"`
	Model           string   `json:"model,omitempty"`
	Manufacturer    string   `json:"manufacturer"`
	SoftwareVersion string   `json:"sw_version,omitempty"`
}

// RegisterMessage is a Home Assistant MQTT discovery payload for a climate entity.
type RegisterMessage struct {
	Tilda                      string         `json:"~"`
	Name                       string         `json:"name"`
	ID                         string         `json:"unique_id"`
	AvailabilityTopic          string         `json:"availability_topic"`
	CurrentTemperatureTopic    string         `json:"current_temperature_topic"`
	CurrentTemperatureTemplate string         `json:"current_temperature_template"`
	TemperatureStateTopic      string         `json:"temperature_state_topic"`
	TemperatureStateTemplate   string         `json:"temperature_state_template"`
	TemperatureCommandTopic    string         `json:"temperature_command_topic"`
	TemperatureUnit            string         `json:"temperature_unit"`
	Modes                      []string       `json:"modes"`
	Device                     RegisterDevice `json:"device"`
}
