package bus

import (
	"math/rand"

	"github.com/google/uuid"

	"github.com/srg/bleemu/attr"
)

// StartAdvertising installs peripheral's advertisement record verbatim —
// the Bus never mutates the application-supplied keys (spec.md §3). Any
// auto-generated TxPowerLevel/IsConnectable fields are synthesized fresh
// per delivery by the scan matcher (spec.md §4.2.2 step 4), not spliced
// into the stored record here. Returns ErrAlreadyAdvertising if
// peripheral is already advertising.
func (b *Bus) StartAdvertising(peripheral uuid.UUID, rec attr.Record) error {
	var outErr error
	b.submit(func() {
		if _, already := b.advertising.Get(peripheral); already {
			outErr = ErrAlreadyAdvertising
			return
		}
		b.advertising.Insert(peripheral, rec.Clone())
	})
	return outErr
}

// withAutoGeneratedFields returns a delivery-time copy of rec with
// TxPowerLevel/IsConnectable filled in when absent and
// AutoGenerateAdvertisementFields is set (spec.md §4.2.2 step 4). The
// stored record itself is left untouched so every delivery — and every
// scanning central — synthesizes its own values independently.
func (b *Bus) withAutoGeneratedFields(rec attr.Record) attr.Record {
	if !b.config().AutoGenerateAdvertisementFields {
		return rec
	}
	out := rec.Clone()
	if !out.Has(attr.KeyIsConnectable) {
		out[attr.KeyIsConnectable] = attr.BoolValue(true)
	}
	if !out.Has(attr.KeyTxPowerLevel) {
		out[attr.KeyTxPowerLevel] = attr.IntValue(-12 + rand.Intn(9))
	}
	return out
}

// StopAdvertising removes peripheral's advertisement record.
func (b *Bus) StopAdvertising(peripheral uuid.UUID) {
	b.submit(func() {
		b.advertising.Del(peripheral)
	})
}

// IsAdvertising reports whether peripheral currently has an installed
// advertisement record.
func (b *Bus) IsAdvertising(peripheral uuid.UUID) bool {
	_, ok := b.advertising.Get(peripheral)
	return ok
}

// AdvertisedPeripherals returns every peripheral with an active
// advertisement record.
func (b *Bus) AdvertisedPeripherals() []uuid.UUID {
	var out []uuid.UUID
	b.advertising.Range(func(id uuid.UUID, _ attr.Record) bool {
		out = append(out, id)
		return true
	})
	return out
}
