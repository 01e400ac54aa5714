package bus

import (
	"context"

	"github.com/google/uuid"
)

// Connect establishes a connection from central to peripheral. The
// connection delay and failure-injection sampling happen on the calling
// goroutine (outside the mailbox) so that concurrent connect attempts to
// different peripherals overlap rather than serialize (spec.md §5,
// ordering guarantee 2); only the resulting state mutation and delegate
// dispatch run on the actor.
func (b *Bus) Connect(ctx context.Context, central, peripheral uuid.UUID) {
	cfg := b.config()

	if err := b.sleep(ctx, cfg.ConnectionDelay); err != nil {
		return
	}

	fail := cfg.SimulateConnectionFailure && b.sample() < cfg.ConnectionFailureRate

	b.submit(func() {
		csink, ok := b.centrals.Get(central)
		if !ok {
			return
		}
		if fail {
			csink.DeliverConnectFailed(peripheral, ErrConnectionFailed)
			return
		}
		psink, ok := b.peripherals.Get(peripheral)
		if !ok {
			csink.DeliverConnectFailed(peripheral, ErrUnknownDevice)
			return
		}
		b.connections.Insert(connKey{Central: central, Peripheral: peripheral}, &connState{mtu: cfg.DefaultMTU})
		csink.DeliverConnected(peripheral)
		if cfg.FireConnectionEvents && b.wantsConnectionEvents(central) {
			csink.DeliverConnectionEvent(peripheral, PeerConnected)
		}
		_ = psink
	})
}

// Disconnect tears down a connection: removes the connection entry, clears
// subscriptions the peripheral holds for central, and delivers
// disconnection events to both sides (spec.md §4.2.4).
func (b *Bus) Disconnect(ctx context.Context, central, peripheral uuid.UUID, cause error) {
	cfg := b.config()
	if err := b.sleep(ctx, cfg.DisconnectionDelay); err != nil {
		return
	}

	b.submit(func() {
		key := connKey{Central: central, Peripheral: peripheral}
		if _, ok := b.connections.Get(key); !ok {
			return
		}
		b.connections.Del(key)

		if psink, ok := b.peripherals.Get(peripheral); ok {
			psink.NotifyCentralDisconnected(central)
		}
		if csink, ok := b.centrals.Get(central); ok {
			csink.DeliverDisconnected(peripheral, cause)
			if cfg.FireConnectionEvents && b.wantsConnectionEvents(central) {
				csink.DeliverConnectionEvent(peripheral, PeerDisconnected)
			}
		}
	})
}

// CancelConnection is an application-initiated disconnect: it runs the same
// teardown as a peripheral-initiated Disconnect, with a nil cause.
func (b *Bus) CancelConnection(ctx context.Context, central, peripheral uuid.UUID) {
	b.Disconnect(ctx, central, peripheral, nil)
}

// ConnectedPeripherals is the exported form of connectedPeripherals.
func (b *Bus) ConnectedPeripherals(central uuid.UUID) []uuid.UUID {
	return b.connectedPeripherals(central)
}

// ConnectedCentrals is the exported form of connectedCentrals.
func (b *Bus) ConnectedCentrals(peripheral uuid.UUID) []uuid.UUID {
	return b.connectedCentrals(peripheral)
}
