//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/oligo-synth/internal/board"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealWriter is not available on non-Linux platforms.
type RealWriter struct{}

// NewRealWriter returns an error on non-Linux platforms.
func NewRealWriter(chipName, consumer string, activeLow bool) (*RealWriter, error) {
	return nil, errUnsupported
}

// Request is not implemented on non-Linux platforms.
func (w *RealWriter) Request(pins ...board.Pin) error {
	return errUnsupported
}

// Write is not implemented on non-Linux platforms.
func (w *RealWriter) Write(pin board.Pin, level bool) error {
	return errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (w *RealWriter) Close() error {
	return nil
}
