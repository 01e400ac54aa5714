package remote

import (
	"github.com/google/uuid"

	"github.com/srg/bleemu/bus"
)

// Central is the peripheral-side proxy for a connected central (spec.md
// §3 C2 "central-view-from-peripheral"). It carries no GATT client
// surface — the peripheral is the GATT server — just identity, ANCS
// authorization lookups and the per-central update-length budget. The
// peripheral delegate's callbacks identify a central by its bare uuid.UUID,
// not by a Central.
type Central struct {
	id uuid.UUID
	bus *bus.Bus
}

// NewCentral constructs a proxy for centralID as seen from a peripheral.
func NewCentral(b *bus.Bus, centralID uuid.UUID) *Central {
	return &Central{id: centralID, bus: b}
}

// ID returns the central's stable identifier.
func (c *Central) ID() uuid.UUID { return c.id }

// IsANCSAuthorized returns the last-known ANCS authorization flag the Bus
// has recorded for this central.
func (c *Central) IsANCSAuthorized() bool {
	return c.bus.GetANCSAuthorization(c.id)
}

// MaximumUpdateValueLength returns MTU-3 for the peripheral identifier
// given, mirroring CoreBluetooth's per-central MTU budget for
// updateValue/notify payloads.
func (c *Central) MaximumUpdateValueLength(peripheralID uuid.UUID) int {
	return c.bus.MaximumWriteValueLength(c.id, peripheralID)
}
