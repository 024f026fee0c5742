package model

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
)

// UnmarshalJSON decodes a device record one field at a time. A value of the
// wrong type is dropped and reported by InvalidFields instead of failing the
// whole record. Numbers are accepted as JSON numbers or numeric strings, the
// battery percentage is rounded, and a numeric id is kept as its text.
func (d *DeviceRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*d = DeviceRecord{}
	for key, value := range raw {
		if isNull(value) {
			continue
		}
		if !d.decodeField(key, value) {
			d.invalid = append(d.invalid, key)
		}
	}
	sort.Strings(d.invalid)
	return nil
}

func (d *DeviceRecord) decodeField(key string, value json.RawMessage) bool {
	switch key {
	case "id":
		if s, ok := decodeString(value); ok {
			d.ID = s
			return true
		}
		if n, ok := decodeNumberLiteral(value); ok {
			d.ID = n
			return true
		}
		return false
	case "type":
		s, ok := decodeString(value)
		d.Type = DeviceType(s)
		return ok
	case "name":
		s, ok := decodeString(value)
		d.Name = s
		return ok
	case "online":
		b, ok := decodeBool(value)
		d.Online = b
		return ok
	case "state":
		return assign(&d.State, decodeBool, value)
	case "tamper":
		return assign(&d.Tamper, decodeBool, value)
	case "mode":
		return assign(&d.Mode, decodeString, value)
	case "signal_strength":
		return assign(&d.SignalStrength, decodeFloat, value)
	case "temperature":
		return assign(&d.Temperature, decodeFloat, value)
	case "humidity":
		return assign(&d.Humidity, decodeFloat, value)
	case "battery":
		f, ok := decodeFloat(value)
		if !ok {
			return false
		}
		b := int(math.Round(f))
		d.Battery = &b
		return true
	}
	// Unknown keys are ignored.
	return true
}

func assign[T any](dst **T, decode func(json.RawMessage) (T, bool), value json.RawMessage) bool {
	v, ok := decode(value)
	if ok {
		*dst = &v
	}
	return ok
}

func isNull(value json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(value), []byte("null"))
}

func decodeString(value json.RawMessage) (string, bool) {
	var s string
	err := json.Unmarshal(value, &s)
	return s, err == nil
}

func decodeBool(value json.RawMessage) (bool, bool) {
	var b bool
	err := json.Unmarshal(value, &b)
	return b, err == nil
}

func decodeNumberLiteral(value json.RawMessage) (string, bool) {
	var n json.Number
	if err := json.Unmarshal(value, &n); err != nil {
		return "", false
	}
	if _, err := n.Float64(); err != nil {
		return "", false
	}
	return n.String(), true
}

func decodeFloat(value json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(value, &f); err == nil {
		return f, !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	s, ok := decodeString(value)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
