package transport

import (
	"context"
	"errors"
	"sync"
)

// ErrTransportClosed is returned by Send/Receive once Close has run.
var ErrTransportClosed = errors.New("transport: closed")

// InMemory is a loopback transport pair: Send on one end appears on the
// other's Receive channel. Intended for same-process multi-bus tests that
// want to exercise the envelope/Transport boundary without a real PTY.
type InMemory struct {
	mu     sync.Mutex
	closed bool
	done   chan struct{}
	out    chan Envelope
	peer   *InMemory
}

// NewInMemoryPair returns two transports wired to each other: a.Send
// delivers to b.Receive and vice versa.
func NewInMemoryPair(bufSize int) (a, b *InMemory) {
	a = &InMemory{out: make(chan Envelope, bufSize), done: make(chan struct{})}
	b = &InMemory{out: make(chan Envelope, bufSize), done: make(chan struct{})}
	a.peer = b
	b.peer = a
	return a, b
}

// Send delivers payload to the peer's Receive channel as a raw-variant
// envelope. done (rather than closing t.peer.out directly) is what Close
// signals, so a concurrent Send can never race a send on a closed channel.
func (t *InMemory) Send(ctx context.Context, targetID string, payload []byte) error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return ErrTransportClosed
	}

	env := Envelope{TargetID: targetID, Variant: "raw", Payload: map[string]any{"data": payload}}
	select {
	case t.peer.out <- env:
		return nil
	case <-t.peer.done:
		return ErrTransportClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive returns the channel envelopes destined for this end arrive on.
func (t *InMemory) Receive(ctx context.Context) (<-chan Envelope, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrTransportClosed
	}
	return t.out, nil
}

// Close marks the transport closed, unblocking any peer Send in flight.
func (t *InMemory) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.done)
	return nil
}

var _ Transport = (*InMemory)(nil)
