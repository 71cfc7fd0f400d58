package model

import "time"

// StatusSnapshot is one decoded status payload from the transport endpoint.
// Each collection is keyed by the id used upstream.
type StatusSnapshot struct {
	Structures map[string]Structure
	Devices    map[string]DeviceInfo
	Shared     map[string]SharedState
}

// Structure is a single physical site grouping one or more thermostats.
type Structure struct {
	ID         string
	Away       bool
	Location   string
	PostalCode string
	OwnerUser  string
	// DeviceIDs keep the upstream order and may carry a "device." prefix.
	DeviceIDs []string
	SwarmIDs  []string
}

// DeviceInfo is the per-device metadata from the "device" collection.
type DeviceInfo struct {
	CurrentVersion   string
	FanMode          string
	HasAirFilter     bool
	HasDehumidifier  bool
	HasFan           bool
	HasHeatPump      bool
	HasHumidifier    bool
	TargetHumidity   int
	Leaf             bool
	TemperatureScale string
}

// SharedState is the per-device runtime state from the "shared" collection.
type SharedState struct {
	CurrentTemperatureC    float64
	TargetTemperatureC     float64
	TargetTemperatureHighC float64
	TargetTemperatureLowC  float64
	TargetTemperatureType  string
	TargetChangePending    bool
	// DisplayName is empty when upstream sent no name or a blank one.
	DisplayName string
}

// Device describes a thermostat to the publishing sinks.
type Device struct {
	ID                string
	Name              string
	Manufacturer      string
	SoftwareVersion   string
	PreferredVariable string
}

// ThermostatState is a read-only view of a tracked thermostat.
type ThermostatState struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Manufacturer    string     `json:"manufacturer"`
	SoftwareVersion string     `json:"software_version,omitempty"`
	Available       bool       `json:"available"`
	LastCheckin     time.Time  `json:"last_checkin"`
	Variables       []Variable `json:"variables"`
}
