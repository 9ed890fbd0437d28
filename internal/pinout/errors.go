package pinout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sweeney/oligo-synth/internal/board"
)

var (
	// ErrDuplicatePin matches every *DuplicatePinError.
	ErrDuplicatePin = errors.New("pinout: pin used twice")

	// ErrDuplicateName matches every *DuplicateNameError.
	ErrDuplicateName = errors.New("pinout: name used twice")

	// ErrNameNotFound matches every *NameNotFoundError.
	ErrNameNotFound = errors.New("pinout: name not found")

	// ErrInvalidName is returned for empty names.
	ErrInvalidName = errors.New("pinout: invalid name")

	// ErrInvalidDevice is returned for nil devices, pins outside the header,
	// and switches placed in a configurable group.
	ErrInvalidDevice = errors.New("pinout: invalid device")
)

// DuplicatePinError reports two names bound to one physical pin.
type DuplicatePinError struct {
	Group string
	Name  string
	Pin   board.Pin

	ClaimedGroup string
	ClaimedBy    string
}

func (e *DuplicatePinError) Error() string {
	return fmt.Sprintf("pinout: pin %v used twice: %s.%s conflicts with %s.%s",
		e.Pin, e.Group, e.Name, e.ClaimedGroup, e.ClaimedBy)
}

func (e *DuplicatePinError) Is(target error) bool { return target == ErrDuplicatePin }

// DuplicateNameError reports a name registered twice after lower-casing.
type DuplicateNameError struct {
	Group        string
	Name         string
	ClaimedGroup string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("pinout: name %q in %s already registered in %s",
		e.Name, e.Group, e.ClaimedGroup)
}

func (e *DuplicateNameError) Is(target error) bool { return target == ErrDuplicateName }

// NameNotFoundError reports a lookup miss together with every registered name.
type NameNotFoundError struct {
	Name      string
	Available []string
}

func (e *NameNotFoundError) Error() string {
	return fmt.Sprintf("pinout: %q not found, available: %s",
		e.Name, strings.Join(e.Available, ", "))
}

func (e *NameNotFoundError) Is(target error) bool { return target == ErrNameNotFound }
