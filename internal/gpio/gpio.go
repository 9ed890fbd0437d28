// Package gpio drives the instrument's output lines with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"errors"

	"github.com/sweeney/oligo-synth/internal/board"
)

var (
	// ErrNotGPIO is returned for header positions that carry power or ground.
	ErrNotGPIO = errors.New("gpio: pin has no gpio line")

	// ErrNotRequested is returned when writing a pin whose line was never requested.
	ErrNotRequested = errors.New("gpio: line not requested")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("gpio: writer closed")
)

// Writer sets the level of output pins.
type Writer interface {
	// Write drives pin high (true) or low (false).
	Write(pin board.Pin, level bool) error

	// Close releases GPIO resources.
	Close() error
}

// DefaultChip is the character device carrying the header lines on a Raspberry Pi.
const DefaultChip = "gpiochip0"

var (
	_ Writer = (*RealWriter)(nil)
	_ Writer = (*FakeWriter)(nil)
)
