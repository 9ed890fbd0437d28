// Package pinout binds logical, chemistry-meaningful device names to header
// pins. A Registry is built once from the hard-wired devices plus the
// operator-configured reagent valves, and guarantees that no physical pin is
// claimed by two names.
//
// Names are case-insensitive: they are stored lower-cased and lookups are
// lower-cased the same way. After construction the name to device binding
// never changes, so a Registry is safe for concurrent readers without
// locking. Device actuation is serialized by each device.
package pinout

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sweeney/oligo-synth/internal/board"
	"github.com/sweeney/oligo-synth/internal/device"
)

// Group names used by New.
const (
	GroupFixed            = "fixed"
	GroupPhosphoramidites = "phosphoramidites"
	GroupReactants        = "reactants"
)

// Group is a named set of devices folded into a registry.
type Group struct {
	Name    string
	Devices map[string]*device.Device
}

// Entry is one registered device with its normalized name and source group.
type Entry struct {
	Name   string
	Group  string
	Device *device.Device
}

// Registry is the validated, read-only name to device table.
type Registry struct {
	devices   map[string]*device.Device
	groups    map[string]string
	names     []string
	fixedPins []board.Pin
}

// New builds the registry from the hard-wired devices and the two
// configurable valve groups. Either configurable map may be nil.
func New(fixed, phosphoramidites, reactants map[string]*device.Device) (*Registry, error) {
	return Build(
		Group{Name: GroupFixed, Devices: fixed},
		Group{Name: GroupPhosphoramidites, Devices: phosphoramidites},
		Group{Name: GroupReactants, Devices: reactants},
	)
}

// Build folds fixed and then each configurable group, in order, through the
// same validation. It stops at the first problem and never returns a partial
// registry. Configurable groups may only hold valves.
func Build(fixed Group, configurable ...Group) (*Registry, error) {
	b := newBuilder()
	if err := b.add(fixed, false); err != nil {
		return nil, err
	}
	for _, g := range configurable {
		if err := b.add(g, true); err != nil {
			return nil, err
		}
	}

	fixedPins := make([]board.Pin, 0, len(fixed.Devices))
	for _, d := range fixed.Devices {
		fixedPins = append(fixedPins, d.Pin())
	}
	sort.Slice(fixedPins, func(i, j int) bool { return fixedPins[i] < fixedPins[j] })

	names := make([]string, 0, len(b.devices))
	for name := range b.devices {
		names = append(names, name)
	}
	sort.Strings(names)

	return &Registry{
		devices:   b.devices,
		groups:    b.groups,
		names:     names,
		fixedPins: fixedPins,
	}, nil
}

type claim struct {
	group string
	name  string
}

type builder struct {
	devices map[string]*device.Device
	groups  map[string]string
	claimed map[board.Pin]claim
}

func newBuilder() *builder {
	return &builder{
		devices: make(map[string]*device.Device),
		groups:  make(map[string]string),
		claimed: make(map[board.Pin]claim),
	}
}

func (b *builder) add(g Group, valvesOnly bool) error {
	names := make([]string, 0, len(g.Devices))
	for name := range g.Devices {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		dev := g.Devices[name]
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: empty name in %s", ErrInvalidName, g.Name)
		}
		if dev == nil {
			return fmt.Errorf("%w: %s.%s is nil", ErrInvalidDevice, g.Name, name)
		}
		if !dev.Pin().Valid() {
			return fmt.Errorf("%w: %s.%s has pin %d outside the header", ErrInvalidDevice, g.Name, name, dev.Pin())
		}
		if valvesOnly && dev.Kind() != device.KindValve {
			return fmt.Errorf("%w: %s.%s is a %s, only valves are configurable", ErrInvalidDevice, g.Name, name, dev.Kind())
		}

		if c, ok := b.claimed[dev.Pin()]; ok {
			return &DuplicatePinError{
				Group:        g.Name,
				Name:         name,
				Pin:          dev.Pin(),
				ClaimedGroup: c.group,
				ClaimedBy:    c.name,
			}
		}

		key := strings.ToLower(name)
		if prev, ok := b.groups[key]; ok {
			return &DuplicateNameError{Group: g.Name, Name: name, ClaimedGroup: prev}
		}

		b.devices[key] = dev
		b.groups[key] = g.Name
		b.claimed[dev.Pin()] = claim{group: g.Name, name: key}
	}
	return nil
}

// Get returns the device registered under name, ignoring case.
func (r *Registry) Get(name string) (*device.Device, error) {
	d, ok := r.devices[strings.ToLower(name)]
	if !ok {
		return nil, &NameNotFoundError{Name: name, Available: r.Names()}
	}
	return d, nil
}

// Pins returns every registered device by name. The map is a copy.
func (r *Registry) Pins() map[string]*device.Device {
	out := make(map[string]*device.Device, len(r.devices))
	for name, d := range r.devices {
		out[name] = d
	}
	return out
}

// Valves returns only the valves, by name. The map is a copy.
func (r *Registry) Valves() map[string]*device.Device {
	out := make(map[string]*device.Device, len(r.devices))
	for name, d := range r.devices {
		if d.Kind() == device.KindValve {
			out[name] = d
		}
	}
	return out
}

// ListConfigurablePins returns every header position not claimed by the
// fixed group, ascending.
func (r *Registry) ListConfigurablePins() []board.Pin {
	return board.Complement(r.fixedPins)
}

// ClaimedPins returns the pin of every registered device, ascending.
func (r *Registry) ClaimedPins() []board.Pin {
	pins := make([]board.Pin, 0, len(r.devices))
	for _, d := range r.devices {
		pins = append(pins, d.Pin())
	}
	sort.Slice(pins, func(i, j int) bool { return pins[i] < pins[j] })
	return pins
}

// Names returns every registered name, sorted.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Entries returns every registration ordered by pin.
func (r *Registry) Entries() []Entry {
	entries := make([]Entry, 0, len(r.devices))
	for _, name := range r.names {
		entries = append(entries, Entry{Name: name, Group: r.groups[name], Device: r.devices[name]})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Device.Pin() < entries[j].Device.Pin()
	})
	return entries
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	return len(r.devices)
}

func sortedPins(m map[string]board.Pin) []board.Pin {
	pins := make([]board.Pin, 0, len(m))
	for _, p := range m {
		pins = append(pins, p)
	}
	sort.Slice(pins, func(i, j int) bool { return pins[i] < pins[j] })
	return pins
}
