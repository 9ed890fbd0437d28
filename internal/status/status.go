// Package status provides a thread-safe status tracker for the oligo-synth daemon.
// It is read by HTTP handlers and by the MQTT lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/oligo-synth/internal/board"
	"github.com/sweeney/oligo-synth/internal/device"
	"github.com/sweeney/oligo-synth/internal/pinout"
)

// Config contains daemon configuration for display.
type Config struct {
	Chip        string
	ActiveLow   bool
	MQTTEnabled bool
	Broker      string
	HTTPAddr    string
}

// Counts tracks actuation requests since startup.
type Counts struct {
	Actuations int
	Failures   int
}

// DeviceStatus is the state of one registered device.
type DeviceStatus struct {
	Name    string
	Group   string
	Kind    device.Kind
	Pin     board.Pin
	Engaged bool
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	RunID         string
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Counts        Counts
	LastError     string
	Devices       []DeviceStatus
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex. Device states are
// read from the registry when a snapshot is taken.
type Tracker struct {
	reg *pinout.Registry

	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker for reg. reg may be nil.
func NewTracker(startTime time.Time, runID string, reg *pinout.Registry, cfg Config) *Tracker {
	return &Tracker{
		reg: reg,
		snap: Snapshot{
			RunID:     runID,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// RecordActuation counts one actuation request and remembers the last failure.
func (t *Tracker) RecordActuation(err error) {
	t.mu.Lock()
	t.snap.Counts.Actuations++
	if err != nil {
		t.snap.Counts.Failures++
		t.snap.LastError = err.Error()
	}
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()

	if t.reg != nil {
		entries := t.reg.Entries()
		s.Devices = make([]DeviceStatus, 0, len(entries))
		for _, e := range entries {
			s.Devices = append(s.Devices, DeviceStatus{
				Name:    e.Name,
				Group:   e.Group,
				Kind:    e.Device.Kind(),
				Pin:     e.Device.Pin(),
				Engaged: e.Device.IsEngaged(),
			})
		}
	}
	s.Now = time.Now()
	return s
}
