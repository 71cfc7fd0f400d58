package model

import "time"

// VariableMask tells sinks whether a variable accepts writes.
type VariableMask string

func (m VariableMask) String() string {
	return string(m)
}

const (
	ReadOnly  VariableMask = "read_only"
	ReadWrite VariableMask = "read_write"
)

const (
	UnitCelsius    = "°C"
	UnitFahrenheit = "°F"
)

type Variable struct {
	Name      string       `json:"name"`
	Value     float64      `json:"value"`
	Unit      string       `json:"unit_of_measurement"`
	Mask      VariableMask `json:"mask"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// VariableBatch is the set of variables of one device published together.
type VariableBatch struct {
	DeviceID  string     `json:"device_id"`
	Variables []Variable `json:"variables"`
	Timestamp time.Time  `json:"timestamp"`
}

type PluginState string

func (s PluginState) String() string {
	return string(s)
}

const (
	StateRunning       PluginState = "running"
	StateNotConfigured PluginState = "not_configured"
	StateFailed        PluginState = "failed"
)

type PluginStatus struct {
	State   PluginState `json:"state"`
	Message string      `json:"message,omitempty"`
}

func Running() PluginStatus {
	return PluginStatus{State: StateRunning}
}

func NotConfigured(msg string) PluginStatus {
	return PluginStatus{State: StateNotConfigured, Message: msg}
}

func Failed(msg string) PluginStatus {
	return PluginStatus{State: StateFailed, Message: msg}
}
