package pinout

import (
	"github.com/sweeney/oligo-synth/internal/board"
	"github.com/sweeney/oligo-synth/internal/device"
)

// Names of the devices wired permanently to instrument-critical functions.
const (
	Waste    = "waste"
	WasteRxn = "waste_rxn"
	Product  = "prod"
	Branch   = "branch"
	RxnOut   = "rxn_out"
	Solvent  = "sol"
	Gas      = "gas"
	Pump     = "pump"
)

// fixedPins is the hard-wired part of the pinout. Everything except the
// pump is a valve.
var fixedPins = map[string]board.Pin{
	Waste:    board.P7,
	WasteRxn: board.P5,
	Product:  board.P8,
	Branch:   board.P12,
	RxnOut:   board.P13,
	Solvent:  board.P3,
	Gas:      board.P10,
	Pump:     board.P11,
}

// Fixed returns fresh devices for the hard-wired pinout, driven by driver.
func Fixed(driver device.Driver) map[string]*device.Device {
	devices := make(map[string]*device.Device, len(fixedPins))
	for name, pin := range fixedPins {
		if name == Pump {
			devices[name] = device.NewSwitch(pin, driver)
			continue
		}
		devices[name] = device.NewValve(pin, driver)
	}
	return devices
}

// FixedPins returns the pins claimed by the hard-wired pinout, ascending.
func FixedPins() []board.Pin {
	return sortedPins(fixedPins)
}

// ConfigurablePins returns every header position the hard-wired pinout
// leaves free. Use it when assembling a configuration, before any registry
// exists.
func ConfigurablePins() []board.Pin {
	return board.Complement(FixedPins())
}

// Valves builds a valve per entry of pins. Names are kept as given; the
// registry normalizes them.
func Valves(pins map[string]board.Pin, driver device.Driver) map[string]*device.Device {
	devices := make(map[string]*device.Device, len(pins))
	for name, pin := range pins {
		devices[name] = device.NewValve(pin, driver)
	}
	return devices
}
