package model

import "time"

type DeviceType string

const (
	DeviceTypeHub         DeviceType = "hub"
	DeviceTypeMotion      DeviceType = "motion_detector"
	DeviceTypeDoor        DeviceType = "door_sensor"
	DeviceTypeLeak        DeviceType = "leak_detector"
	DeviceTypeFire        DeviceType = "fire_detector"
	DeviceTypeTemperature DeviceType = "temperature_sensor"
)

// IsBinarySensor reports whether devices of this type expose a tripped/active flag.
func (t DeviceType) IsBinarySensor() bool {
	switch t {
	case DeviceTypeMotion, DeviceTypeDoor, DeviceTypeLeak, DeviceTypeFire:
		return true
	}
	return false
}

type AlarmMode string

const (
	AlarmModeDisarmed   AlarmMode = "disarmed"
	AlarmModeArmedHome  AlarmMode = "armed_home"
	AlarmModeArmedAway  AlarmMode = "armed_away"
	AlarmModeArmedNight AlarmMode = "armed_night"
)

// ParseAlarmMode maps a backend mode string to an AlarmMode.
// Anything unrecognised is reported as disarmed.
func ParseAlarmMode(s string) AlarmMode {
	switch AlarmMode(s) {
	case AlarmModeArmedAway, AlarmModeArmedHome, AlarmModeArmedNight:
		return AlarmMode(s)
	}
	return AlarmModeDisarmed
}

// IsArmed reports whether m is one of the modes accepted by the arm command.
func (m AlarmMode) IsArmed() bool {
	switch m {
	case AlarmModeArmedAway, AlarmModeArmedHome, AlarmModeArmedNight:
		return true
	}
	return false
}

// DeviceRecord is one device as reported by GET /devices.
// Pointer fields are optional; nil means the backend did not send the key.
// Decoding is lenient per field, see UnmarshalJSON.
type DeviceRecord struct {
	ID             string     `json:"id"`
	Type           DeviceType `json:"type"`
	Name           string     `json:"name,omitempty"`
	Online         bool       `json:"online"`
	State          *bool      `json:"state,omitempty"`
	Mode           *string    `json:"mode,omitempty"`
	Battery        *int       `json:"battery,omitempty"`
	SignalStrength *float64   `json:"signal_strength,omitempty"`
	Tamper         *bool      `json:"tamper,omitempty"`
	Temperature    *float64   `json:"temperature,omitempty"`
	Humidity       *float64   `json:"humidity,omitempty"`

	invalid []string
}

// InvalidFields lists the keys that were present but could not be decoded.
func (d *DeviceRecord) InvalidFields() []string {
	return d.invalid
}

// Snapshot is the device list produced by one successful refresh.
// It is never mutated after being published by the coordinator.
type Snapshot struct {
	Devices   []DeviceRecord `json:"devices"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// Find returns the device with the given id, or nil.
func (s *Snapshot) Find(id string) *DeviceRecord {
	if s == nil {
		return nil
	}
	for i := range s.Devices {
		if s.Devices[i].ID == id {
			return &s.Devices[i]
		}
	}
	return nil
}

// AuthStatus is the approval state returned by the handshake endpoints.
type AuthStatus string

const (
	AuthStatusPending  AuthStatus = "pending"
	AuthStatusApproved AuthStatus = "approved"
	AuthStatusRejected AuthStatus = "rejected"
)

type AuthResult struct {
	Status AuthStatus `json:"status"`
	Token  string     `json:"token,omitempty"`
}
