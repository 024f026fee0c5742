package view

import "ajax-cloud-bridge/internal/domain/model"

type Platform string

const (
	PlatformAlarmPanel   Platform = "alarm_control_panel"
	PlatformBinarySensor Platform = "binary_sensor"
	PlatformSensor       Platform = "sensor"
)

// Kind identifies the presenter responsible for an entity.
type Kind string

const (
	KindAlarmPanel   Kind = "alarm_panel"
	KindBinarySensor Kind = "binary_sensor"
	KindTemperature  Kind = "temperature"
	KindBattery      Kind = "battery"
	KindHumidity     Kind = "humidity"
)

type Metadata struct {
	Platform          Platform `json:"platform"`
	DeviceClass       string   `json:"device_class,omitempty"`
	Unit              string   `json:"unit_of_measurement,omitempty"`
	StateClass        string   `json:"state_class,omitempty"`
	SupportedFeatures []string `json:"supported_features,omitempty"`
}

// Entity is one presentable value derived from a device.
type Entity struct {
	UniqueID string `json:"unique_id"`
	Name     string `json:"name"`
	DeviceID string `json:"device_id"`
	Kind     Kind   `json:"kind"`
	Metadata
}

// EntityState is an entity rendered against a particular snapshot.
type EntityState struct {
	Entity
	Available  bool                   `json:"available"`
	State      interface{}            `json:"state"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// Presenter maps a device record to one kind of entity.
// State and Attributes must accept a nil device.
type Presenter interface {
	Applies(d *model.DeviceRecord) bool
	Describe(d *model.DeviceRecord) Entity
	State(d *model.DeviceRecord) interface{}
	Attributes(d *model.DeviceRecord) map[string]interface{}
	GetMetadata() Metadata
}

func nameOr(d *model.DeviceRecord, fallback string) string {
	if d.Name != "" {
		return d.Name
	}
	return fallback
}
