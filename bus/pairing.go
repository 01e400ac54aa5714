package bus

import (
	"context"

	"github.com/google/uuid"
)

// isPaired reports whether central and peripheral have completed pairing.
// Safe to call off the mailbox: reads the concurrent connection map
// directly.
func (b *Bus) isPaired(central, peripheral uuid.UUID) bool {
	cs, ok := b.connections.Get(connKey{Central: central, Peripheral: peripheral})
	if !ok {
		return false
	}
	return cs.paired
}

// IsPaired is the exported form of isPaired.
func (b *Bus) IsPaired(central, peripheral uuid.UUID) bool {
	return b.isPaired(central, peripheral)
}

// pair runs the pairing sub-protocol (spec.md §4.2.7): if SimulatePairing
// is set it sleeps pairingDelay, then succeeds or fails according to
// PairingSucceeds; otherwise pairing always succeeds immediately once the
// connection exists. On success the pair is marked paired in the
// connection table.
func (b *Bus) pair(ctx context.Context, central, peripheral uuid.UUID) *AttError {
	cfg := b.config()
	if cfg.SimulatePairing {
		if err := b.sleep(ctx, cfg.PairingDelay); err != nil {
			return NewAttError(ATTUnlikelyError)
		}
		if !cfg.PairingSucceeds {
			return ErrInsufficientAuthentication
		}
	}

	var aerr *AttError
	b.submit(func() {
		cs, ok := b.connections.Get(connKey{Central: central, Peripheral: peripheral})
		if !ok {
			aerr = ErrInsufficientAuthentication
			return
		}
		cs.paired = true
	})
	return aerr
}

// RequestPairing is the façade-facing entry point for an explicit pairing
// request (as opposed to pairing implicitly triggered by an
// encryption-required attribute access).
func (b *Bus) RequestPairing(ctx context.Context, central, peripheral uuid.UUID) error {
	if aerr := b.pair(ctx, central, peripheral); aerr != nil {
		return aerr
	}
	return nil
}
