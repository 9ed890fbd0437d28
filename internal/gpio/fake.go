package gpio

import (
	"sync"

	"github.com/sweeney/oligo-synth/internal/board"
)

// WriteCall records a single Write on a FakeWriter.
type WriteCall struct {
	Pin   board.Pin
	Level bool
}

// FakeWriter is a test double that records writes instead of driving hardware.
// It is safe for concurrent use.
type FakeWriter struct {
	mu sync.Mutex

	// Calls contains every successful write, in order.
	Calls []WriteCall

	// levels holds the last written level per pin.
	levels map[board.Pin]bool

	// WriteError, if set, is returned by every Write.
	WriteError error

	// FailPins makes writes to specific pins fail with the mapped error.
	FailPins map[board.Pin]error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeWriter creates an empty FakeWriter.
func NewFakeWriter() *FakeWriter {
	return &FakeWriter{
		levels:   make(map[board.Pin]bool),
		FailPins: make(map[board.Pin]error),
	}
}

// Write records the call, or returns the configured error.
func (f *FakeWriter) Write(pin board.Pin, level bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Closed {
		return ErrClosed
	}
	if f.WriteError != nil {
		return f.WriteError
	}
	if err, ok := f.FailPins[pin]; ok {
		return err
	}

	f.Calls = append(f.Calls, WriteCall{Pin: pin, Level: level})
	f.levels[pin] = level
	return nil
}

// Level returns the last level written to pin and whether it was ever written.
func (f *FakeWriter) Level(pin board.Pin) (level, written bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	level, written = f.levels[pin]
	return level, written
}

// WriteCount returns the number of successful writes.
func (f *FakeWriter) WriteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

// Close marks the writer as closed.
func (f *FakeWriter) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// Reset clears recorded writes and injected failures.
func (f *FakeWriter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = nil
	f.levels = make(map[board.Pin]bool)
	f.WriteError = nil
	f.FailPins = make(map[board.Pin]error)
	f.Closed = false
}
