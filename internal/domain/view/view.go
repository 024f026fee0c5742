// Package view derives typed presentation values from the coordinator's
// snapshot. Nothing here mutates a snapshot or talks to the backend.
package view

import "ajax-cloud-bridge/internal/domain/model"

// Field names a numeric reading carried by a device record.
type Field string

const (
	FieldTemperature    Field = "temperature"
	FieldHumidity       Field = "humidity"
	FieldBattery        Field = "battery"
	FieldSignalStrength Field = "signal_strength"
)

const attrTamper = "tamper"

// FindDevice returns the record with the given id, or nil.
func FindDevice(s *model.Snapshot, id string) *model.DeviceRecord {
	return s.Find(id)
}

// IsAvailable is true only for a present device explicitly reported online.
func IsAvailable(d *model.DeviceRecord) bool {
	return d != nil && d.Online
}

// BinaryState returns the tripped/active flag. known is false only when the
// device is absent; a present device without a state reads as off.
func BinaryState(d *model.DeviceRecord) (on bool, known bool) {
	if d == nil {
		return false, false
	}
	if d.State == nil {
		return false, true
	}
	return *d.State, true
}

// AlarmMode maps the hub mode; missing or unknown modes read as disarmed.
func AlarmMode(d *model.DeviceRecord) model.AlarmMode {
	if d == nil || d.Mode == nil {
		return model.AlarmModeDisarmed
	}
	return model.ParseAlarmMode(*d.Mode)
}

// NumericReading returns the requested reading and whether it was present.
func NumericReading(d *model.DeviceRecord, f Field) (float64, bool) {
	if d == nil {
		return 0, false
	}
	switch f {
	case FieldTemperature:
		if d.Temperature != nil {
			return *d.Temperature, true
		}
	case FieldHumidity:
		if d.Humidity != nil {
			return *d.Humidity, true
		}
	case FieldBattery:
		if d.Battery != nil {
			return float64(*d.Battery), true
		}
	case FieldSignalStrength:
		if d.SignalStrength != nil {
			return *d.SignalStrength, true
		}
	}
	return 0, false
}

// AuxiliaryAttributes collects battery, signal_strength and tamper, omitting
// whichever the device does not report.
func AuxiliaryAttributes(d *model.DeviceRecord) map[string]interface{} {
	attrs := make(map[string]interface{})
	if d == nil {
		return attrs
	}
	if d.Battery != nil {
		attrs[string(FieldBattery)] = *d.Battery
	}
	if d.SignalStrength != nil {
		attrs[string(FieldSignalStrength)] = *d.SignalStrength
	}
	if d.Tamper != nil {
		attrs[attrTamper] = *d.Tamper
	}
	return attrs
}
