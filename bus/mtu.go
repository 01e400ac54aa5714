package bus

import "github.com/google/uuid"

// NegotiateMTU sets the MTU for (central, peripheral) to min(requested,
// maximumMTU), per spec.md §4.2.9/Testable property 6. Requesting a value
// below the current default is rejected with ErrInvalidParameters.
func (b *Bus) NegotiateMTU(central, peripheral uuid.UUID, requested int) (int, error) {
	cfg := b.config()
	if requested < cfg.DefaultMTU {
		return 0, ErrInvalidParameters
	}

	negotiated := requested
	if negotiated > cfg.MaximumMTU {
		negotiated = cfg.MaximumMTU
	}

	var outErr error
	b.submit(func() {
		cs, ok := b.connections.Get(connKey{Central: central, Peripheral: peripheral})
		if !ok {
			outErr = ErrNotConnected
			return
		}
		cs.mtu = negotiated
	})
	if outErr != nil {
		return 0, outErr
	}
	return negotiated, nil
}

// GetMTU returns the negotiated MTU for (central, peripheral), or the
// configured default MTU if the pair isn't connected.
func (b *Bus) GetMTU(central, peripheral uuid.UUID) int {
	cs, ok := b.connections.Get(connKey{Central: central, Peripheral: peripheral})
	if !ok {
		return b.config().DefaultMTU
	}
	return cs.mtu
}

// MaximumWriteValueLength returns MTU-3, the largest value writable in a
// single ATT write for this pair.
func (b *Bus) MaximumWriteValueLength(central, peripheral uuid.UUID) int {
	return b.GetMTU(central, peripheral) - 3
}
