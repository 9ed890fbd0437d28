// Package device models the instrument's actuators. A Device is either a
// Switch (on/off, e.g. the pump) or a Valve (open/closed), bound to exactly
// one header pin for its whole lifetime.
package device

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sweeney/oligo-synth/internal/board"
)

var (
	// ErrActuation matches every *ActuationError.
	ErrActuation = errors.New("device: actuation failed")

	// ErrNoDriver is the cause of an ActuationError on a device built without a driver.
	ErrNoDriver = errors.New("device: no driver")
)

// Kind tags a Device as a Switch or a Valve.
type Kind uint8

const (
	KindSwitch Kind = iota + 1
	KindValve
)

// String returns "switch" or "valve".
func (k Kind) String() string {
	switch k {
	case KindSwitch:
		return "switch"
	case KindValve:
		return "valve"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Driver changes the physical level of a pin. gpio.Writer satisfies it.
type Driver interface {
	Write(pin board.Pin, level bool) error
}

// Switchable is the actuation capability shared by switches and valves.
type Switchable interface {
	Pin() board.Pin
	IsEngaged() bool
	SetEngaged(on bool) error
}

// Device is a logical actuator bound to one pin.
// Actuation is serialized per device; a device is safe for concurrent use.
type Device struct {
	kind   Kind
	pin    board.Pin
	driver Driver

	mu      sync.Mutex
	engaged bool
}

// NewSwitch creates a switch on pin.
func NewSwitch(pin board.Pin, driver Driver) *Device {
	return &Device{kind: KindSwitch, pin: pin, driver: driver}
}

// NewValve creates a valve on pin.
func NewValve(pin board.Pin, driver Driver) *Device {
	return &Device{kind: KindValve, pin: pin, driver: driver}
}

// Kind returns the device variant.
func (d *Device) Kind() Kind { return d.kind }

// Pin returns the header pin the device is bound to.
func (d *Device) Pin() board.Pin { return d.pin }

// IsEngaged reports the last successfully written state.
// Engaged means open for a valve and on for a switch.
func (d *Device) IsEngaged() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engaged
}

// SetEngaged drives the pin high (engaged) or low. The recorded state only
// changes when the driver write succeeds. Failures are not retried.
func (d *Device) SetEngaged(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.driver == nil {
		return &ActuationError{Kind: d.kind, Pin: d.pin, Engaged: on, Err: ErrNoDriver}
	}
	if err := d.driver.Write(d.pin, on); err != nil {
		return &ActuationError{Kind: d.kind, Pin: d.pin, Engaged: on, Err: err}
	}
	d.engaged = on
	return nil
}

// Equal reports whether both devices are bound to the same pin.
// The kind is ignored, so a switch and a valve on one pin are equal.
func (d *Device) Equal(other *Device) bool {
	if d == nil || other == nil {
		return d == other
	}
	return d.pin == other.pin
}

// String returns e.g. "valve(P7)".
func (d *Device) String() string {
	return fmt.Sprintf("%s(%s)", d.kind, d.pin)
}

// ActuationError reports a failed physical write.
type ActuationError struct {
	Kind    Kind
	Pin     board.Pin
	Engaged bool
	Err     error
}

func (e *ActuationError) Error() string {
	return fmt.Sprintf("device: set %s on %v engaged=%t: %v", e.Kind, e.Pin, e.Engaged, e.Err)
}

func (e *ActuationError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrActuation) true for any ActuationError.
func (e *ActuationError) Is(target error) bool { return target == ErrActuation }

var _ Switchable = (*Device)(nil)
