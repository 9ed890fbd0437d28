package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	RunID         string       `json:"run_id"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"counts"`
	LastError     string       `json:"last_error,omitempty"`
	Devices       []DeviceJSON `json:"devices"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Enabled   bool   `json:"enabled"`
	Connected bool   `json:"connected"`
	Broker    string `json:"broker,omitempty"`
}

// CountsJSON is the JSON representation of actuation counts.
type CountsJSON struct {
	Actuations int `json:"actuations"`
	Failures   int `json:"failures"`
}

// DeviceJSON is the JSON representation of one device.
type DeviceJSON struct {
	Name    string `json:"name"`
	Group   string `json:"group"`
	Kind    string `json:"kind"`
	Pin     string `json:"pin"`
	Engaged bool   `json:"engaged"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Chip      string `json:"chip"`
	ActiveLow bool   `json:"active_low"`
	HTTPAddr  string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	devices := make([]DeviceJSON, 0, len(snap.Devices))
	for _, d := range snap.Devices {
		devices = append(devices, DeviceJSON{
			Name:    d.Name,
			Group:   d.Group,
			Kind:    d.Kind.String(),
			Pin:     d.Pin.String(),
			Engaged: d.Engaged,
		})
	}

	return StatusInner{
		RunID:         snap.RunID,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT: MQTTStatus{
			Enabled:   snap.Config.MQTTEnabled,
			Connected: snap.MQTTConnected,
			Broker:    snap.Config.Broker,
		},
		Counts: CountsJSON{
			Actuations: snap.Counts.Actuations,
			Failures:   snap.Counts.Failures,
		},
		LastError: snap.LastError,
		Devices:   devices,
		Config: ConfigJSON{
			Chip:      snap.Config.Chip,
			ActiveLow: snap.Config.ActiveLow,
			HTTPAddr:  snap.Config.HTTPAddr,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
