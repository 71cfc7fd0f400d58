package model

import "time"

// Property is one persisted variable sample.
type Property struct {
	Id        int64     `json:"id"`
	TimeStamp time.Time `json:"timestamp"`
	DeviceID  string    `json:"device_id"`
	Name      string    `json:"name"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit_of_measurement"`
}
type Properties []Property
