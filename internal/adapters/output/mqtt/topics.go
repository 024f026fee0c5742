package mqtt

import "strings"

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
	StatusError   = "error"

	availabilityOnline  = "online"
	availabilityOffline = "offline"
)

func StatusTopic(prefix string) string {
	return prefix + "/bridge/status"
}

func stateTopic(prefix, deviceID string) string {
	return prefix + "/" + deviceID + "/state"
}

func availabilityTopic(prefix, deviceID string) string {
	return prefix + "/" + deviceID + "/availability"
}

func commandFilter(prefix string) string {
	return prefix + "/+/set"
}

// hubFromCommandTopic extracts the hub id from <prefix>/<hub_id>/set.
func hubFromCommandTopic(prefix, topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, prefix+"/")
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, "/set")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
