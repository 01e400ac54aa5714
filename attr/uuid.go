// Package attr holds the passive GATT value containers: services,
// characteristics, descriptors, and advertisement records. Nothing in this
// package talks to the bus; it only describes attribute shape and value.
package attr

import "github.com/go-ble/ble"

// UUID identifies a GATT attribute. It is a 16-, 32-, or 128-bit value,
// comparable by value. We reuse go-ble/ble's UUID rather than rolling a
// parallel type: its reversed-byte-order comparison and short-form string
// rendering already match what real BLE stacks (and this emulator's test
// fixtures) expect.
type UUID = ble.UUID

// MustUUID parses s (e.g. "180d" or a full 128-bit form) and panics on
// failure. Intended for UUID literals known at compile time.
func MustUUID(s string) UUID {
	return ble.MustParse(s)
}

// ParseUUID parses s, returning an error for malformed input.
func ParseUUID(s string) (UUID, error) {
	return ble.Parse(s)
}

// UUID16 builds a UUID from the 16-bit Bluetooth SIG assigned number form.
func UUID16(v uint16) UUID {
	return ble.UUID16(v)
}

// EqualUUID reports whether a and b identify the same attribute.
func EqualUUID(a, b UUID) bool {
	return a.Equal(b)
}
