package transport

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/srg/bleemu/internal/ptyio"
)

// PTYTransport frames gob-encoded envelopes, length-prefixed with a
// 4-byte big-endian header, over a pseudo-terminal pair. Adapted from
// bridge/bridge.go's BLE-to-PTY bridge: there a real BLE characteristic's
// bytes flowed through the PTY; here an envelope stream does, so a second
// emulator process attached to the PTY slave can drive (or observe) this
// one's bus without linking against it.
type PTYTransport struct {
	pty ptyio.PTY

	mu      sync.Mutex
	partial []byte

	envelopes chan Envelope
}

// NewPTYTransport opens a PTY pair and starts framing envelopes over it.
// TTYName() on the returned transport's underlying PTY names the slave a
// peer process should open.
func NewPTYTransport(logger *logrus.Logger) (*PTYTransport, error) {
	if logger == nil {
		logger = logrus.New()
	}
	pty, err := ptyio.NewPty(ptyio.DefaultPollTimeoutMs*64, ptyio.DefaultPollTimeoutMs*64, logger)
	if err != nil {
		return nil, err
	}

	t := &PTYTransport{
		pty:       pty,
		envelopes: make(chan Envelope, 32),
	}
	pty.SetReadCallback(t.onData)
	return t, nil
}

// TTYName returns the filesystem path of the PTY slave a peer process
// should open to exchange envelopes with this transport.
func (t *PTYTransport) TTYName() string { return t.pty.TTYName() }

// onData reassembles length-prefixed frames out of arbitrarily chunked PTY
// reads and decodes each complete frame into an Envelope.
func (t *PTYTransport) onData(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.partial = append(t.partial, data...)
	for {
		if len(t.partial) < 4 {
			return
		}
		n := binary.BigEndian.Uint32(t.partial[:4])
		if uint32(len(t.partial)-4) < n {
			return
		}
		frame := t.partial[4 : 4+n]
		t.partial = t.partial[4+n:]

		env, err := Decode(frame)
		if err != nil {
			continue
		}
		select {
		case t.envelopes <- env:
		default:
			// Drop the oldest queued envelope rather than block the PTY
			// read dispatcher (spec.md §4.4 back-pressure philosophy:
			// an emulator never blocks indefinitely on a slow consumer).
			select {
			case <-t.envelopes:
			default:
			}
			t.envelopes <- env
		}
	}
}

// Send frames payload as a raw-variant envelope targeting targetID and
// writes it length-prefixed to the PTY.
func (t *PTYTransport) Send(ctx context.Context, targetID string, payload []byte) error {
	env := Envelope{TargetID: targetID, Variant: "raw", Payload: map[string]any{"data": payload}}
	encoded, err := Encode(env)
	if err != nil {
		return err
	}

	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(encoded)))

	if _, err := t.pty.Write(header); err != nil {
		return err
	}
	_, err = t.pty.Write(encoded)
	return err
}

// Receive returns the channel decoded envelopes arrive on.
func (t *PTYTransport) Receive(ctx context.Context) (<-chan Envelope, error) {
	return t.envelopes, nil
}

// Close releases the PTY pair.
func (t *PTYTransport) Close() error {
	return t.pty.Close()
}

var _ Transport = (*PTYTransport)(nil)
