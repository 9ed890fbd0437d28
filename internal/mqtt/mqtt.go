// Package mqtt publishes actuation and lifecycle events, with an abstraction
// for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/oligo-synth/internal/board"
	"github.com/sweeney/oligo-synth/internal/device"
)

// Topic is the MQTT topic for device actuation events.
const Topic = "oligo/synth/actuation"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "oligo/synth/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishActuation sends a device actuation event to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishActuation(event ActuationEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// ActuationEvent records a successful change of a device's state.
type ActuationEvent struct {
	Timestamp time.Time
	Device    string
	Pin       board.Pin
	Kind      device.Kind
	Engaged   bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Device states as published.
const (
	StateEngaged    = "ENGAGED"
	StateDisengaged = "DISENGAGED"
)

// Payload represents the MQTT message payload structure.
type Payload struct {
	Actuation ActuationPayload `json:"actuation"`
}

// ActuationPayload contains the actuation details.
type ActuationPayload struct {
	Timestamp string `json:"timestamp"`
	Device    string `json:"device"`
	Pin       string `json:"pin"`
	Kind      string `json:"kind"`
	State     string `json:"state"`
}

// FormatPayload creates the JSON payload for an actuation event.
func FormatPayload(event ActuationEvent) ([]byte, error) {
	state := StateDisengaged
	if event.Engaged {
		state = StateEngaged
	}
	payload := Payload{
		Actuation: ActuationPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Device:    event.Device,
			Pin:       event.Pin.String(),
			Kind:      event.Kind.String(),
			State:     state,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	inner := SystemPayloadInner{
		Event:  event.Event,
		Reason: event.Reason,
	}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}

// WillPayload is registered with the broker as the last will, published when
// the daemon drops off without a clean shutdown.
func WillPayload() []byte {
	data, _ := FormatSystemPayload(SystemEvent{Event: "LWT", Reason: "connection lost"})
	return data
}
