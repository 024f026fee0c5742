package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceRecord_UnmarshalJSON(t *testing.T) {
	var d DeviceRecord
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": "2", "type": "motion_detector", "name": "Hall", "online": true,
		"state": true, "battery": 87.5, "signal_strength": -60, "tamper": false,
		"temperature": "21.5", "humidity": null, "extra": {"nested": 1}
	}`), &d))

	assert.Equal(t, "2", d.ID)
	assert.Equal(t, DeviceTypeMotion, d.Type)
	assert.Equal(t, "Hall", d.Name)
	assert.True(t, d.Online)
	require.NotNil(t, d.Battery)
	assert.Equal(t, 88, *d.Battery)
	assert.Equal(t, -60.0, *d.SignalStrength)
	assert.False(t, *d.Tamper)
	assert.Equal(t, 21.5, *d.Temperature)
	assert.Nil(t, d.Humidity)
	assert.Nil(t, d.Mode)
	assert.Empty(t, d.InvalidFields())
}

func TestDeviceRecord_UnmarshalJSONDropsBadFields(t *testing.T) {
	var d DeviceRecord
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": 7, "type": "hub", "online": "yes", "mode": 3,
		"battery": "full", "tamper": 1
	}`), &d))

	assert.Equal(t, "7", d.ID)
	assert.Equal(t, DeviceTypeHub, d.Type)
	assert.False(t, d.Online)
	assert.Nil(t, d.Mode)
	assert.Nil(t, d.Battery)
	assert.Nil(t, d.Tamper)
	assert.Equal(t, []string{"battery", "mode", "online", "tamper"}, d.InvalidFields())
}

func TestDeviceRecord_UnmarshalJSONNotAnObject(t *testing.T) {
	var d DeviceRecord
	assert.Error(t, json.Unmarshal([]byte(`["id"]`), &d))
}

func TestSnapshot_DecodeKeepsRecordsWithFloatBattery(t *testing.T) {
	var s Snapshot
	require.NoError(t, json.Unmarshal([]byte(`{"devices":[
		{"id":"1","type":"hub","mode":"armed_away","online":true},
		{"id":"2","type":"motion_detector","battery":87.0,"online":true}
	]}`), &s))

	require.Len(t, s.Devices, 2)
	assert.Equal(t, 87, *s.Find("2").Battery)
}

func TestDeviceRecord_MarshalRoundTripOmitsInvalid(t *testing.T) {
	b := 40
	data, err := json.Marshal(DeviceRecord{ID: "3", Battery: &b, invalid: []string{"tamper"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"3","type":"","online":false,"battery":40}`, string(data))
}
