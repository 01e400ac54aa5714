// Package transport carries EmulatorBus envelopes between processes (or
// loopback, in the same process) so a scenario driver can address a bus
// that isn't the one it's linked against. It is optional: every in-process
// package (bus, central, peripheral, remote) has no dependency on it.
package transport

import (
	"context"
)

// Envelope is the tagged-union payload a Transport carries: a target
// identifier (the central/peripheral UUID the message concerns), a variant
// tag naming the operation, and an untyped payload keyed by field name.
type Envelope struct {
	TargetID string
	Variant  string
	Payload  map[string]any
}

// Transport is the minimal send/receive/close surface every concrete
// transport implements.
type Transport interface {
	Send(ctx context.Context, targetID string, payload []byte) error
	Receive(ctx context.Context) (<-chan Envelope, error)
	Close() error
}

// Encode gob-encodes env. A Go-only, in-process-to-in-process wire format
// has no business paying for a schema-driven codec; see DESIGN.md for why
// no pack library improves on encoding/gob here.
func Encode(env Envelope) ([]byte, error) {
	return encodeGob(env)
}

// Decode is the inverse of Encode.
func Decode(data []byte) (Envelope, error) {
	return decodeGob(data)
}
