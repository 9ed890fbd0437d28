// Package board enumerates the physical positions of the instrument's
// 40-pin GPIO header (Raspberry Pi layout, physical numbering).
package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidPin is returned when a value does not name a header position.
var ErrInvalidPin = errors.New("board: invalid pin")

// Pin identifies one physical header position.
type Pin uint8

// Header positions.
const (
	P1 Pin = iota + 1
	P2
	P3
	P4
	P5
	P6
	P7
	P8
	P9
	P10
	P11
	P12
	P13
	P14
	P15
	P16
	P17
	P18
	P19
	P20
	P21
	P22
	P23
	P24
	P25
	P26
	P27
	P28
	P29
	P30
	P31
	P32
	P33
	P34
	P35
	P36
	P37
	P38
	P39
	P40
)

// Count is the number of positions on the header.
const Count = int(P40)

// bcm maps GPIO-capable physical positions to their BCM line offset on
// gpiochip0. Power and ground positions are absent.
var bcm = map[Pin]int{
	P3: 2, P5: 3, P7: 4, P8: 14, P10: 15,
	P11: 17, P12: 18, P13: 27, P15: 22, P16: 23,
	P18: 24, P19: 10, P21: 9, P22: 25, P23: 11,
	P24: 8, P26: 7, P27: 0, P28: 1, P29: 5,
	P31: 6, P32: 12, P33: 13, P35: 19, P36: 16,
	P37: 26, P38: 20, P40: 21,
}

// Valid reports whether p is one of the header positions.
func (p Pin) Valid() bool {
	return p >= P1 && p <= P40
}

// String returns the position in "P<n>" form.
func (p Pin) String() string {
	return "P" + strconv.Itoa(int(p))
}

// Line returns the BCM GPIO line offset driven by this position.
// ok is false for power and ground positions.
func (p Pin) Line() (line int, ok bool) {
	line, ok = bcm[p]
	return line, ok
}

// ParsePin accepts "P7", "p7" or "7". Signs and repeated prefixes are rejected.
func ParsePin(s string) (Pin, error) {
	v := strings.TrimSpace(s)
	if len(v) > 0 && (v[0] == 'P' || v[0] == 'p') {
		v = v[1:]
	}
	if v == "" || v[0] < '0' || v[0] > '9' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPin, s)
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < int(P1) || n > int(P40) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPin, s)
	}
	return Pin(n), nil
}

// All returns every header position in ascending order.
func All() []Pin {
	pins := make([]Pin, 0, Count)
	for p := P1; p <= P40; p++ {
		pins = append(pins, p)
	}
	return pins
}

// Complement returns every header position not present in excluded,
// in ascending order.
func Complement(excluded []Pin) []Pin {
	skip := make(map[Pin]bool, len(excluded))
	for _, p := range excluded {
		skip[p] = true
	}
	pins := make([]Pin, 0, Count)
	for _, p := range All() {
		if !skip[p] {
			pins = append(pins, p)
		}
	}
	return pins
}
