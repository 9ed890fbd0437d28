//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/oligo-synth/internal/board"
)

// RealWriter drives output lines on actual hardware using the Linux GPIO
// character device.
type RealWriter struct {
	chip      *gpiocdev.Chip
	activeLow bool

	mu     sync.Mutex
	lines  map[board.Pin]*gpiocdev.Line
	closed bool
}

// NewRealWriter opens the named chip. Lines are requested separately with
// Request once the pinout is known.
func NewRealWriter(chipName, consumer string, activeLow bool) (*RealWriter, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}
	return &RealWriter{
		chip:      chip,
		activeLow: activeLow,
		lines:     make(map[board.Pin]*gpiocdev.Line),
	}, nil
}

// Request claims each pin's line as an output, initially inactive.
// Pins already requested are skipped.
func (w *RealWriter) Request(pins ...board.Pin) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}

	for _, pin := range pins {
		if _, ok := w.lines[pin]; ok {
			continue
		}
		offset, ok := pin.Line()
		if !ok {
			return fmt.Errorf("request %v: %w", pin, ErrNotGPIO)
		}

		opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}
		if w.activeLow {
			opts = append(opts, gpiocdev.AsActiveLow)
		}
		line, err := w.chip.RequestLine(offset, opts...)
		if err != nil {
			return fmt.Errorf("request %v (line %d): %w", pin, offset, err)
		}
		w.lines[pin] = line
	}
	return nil
}

// Write drives the pin's line. The line must have been requested.
func (w *RealWriter) Write(pin board.Pin, level bool) error {
	w.mu.Lock()
	line, ok := w.lines[pin]
	closed := w.closed
	w.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if !ok {
		return fmt.Errorf("write %v: %w", pin, ErrNotRequested)
	}

	value := 0
	if level {
		value = 1
	}
	if err := line.SetValue(value); err != nil {
		return fmt.Errorf("write %v: %w", pin, err)
	}
	return nil
}

// Close drives every line inactive, returns it to input (matching Pi boot
// defaults) and closes the chip.
func (w *RealWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	var errs []error
	for pin, line := range w.lines {
		if err := line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("release %v: %w", pin, err))
		}
		if err := line.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %v: %w", pin, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %v: %w", pin, err))
		}
	}
	w.lines = nil

	if err := w.chip.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close chip: %w", err))
	}

	return errors.Join(errs...)
}
