package transport_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/bleemu/transport"
)

func TestEnvelopeGobRoundTrip(t *testing.T) {
	env := transport.Envelope{
		TargetID: "peripheral-1",
		Variant:  "notify",
		Payload:  map[string]any{"char": "2A37", "value": []byte{0x01, 0x02}},
	}

	encoded, err := transport.Encode(env)
	require.NoError(t, err)

	decoded, err := transport.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, env.TargetID, decoded.TargetID)
	assert.Equal(t, env.Variant, decoded.Variant)
	assert.Equal(t, env.Payload["char"], decoded.Payload["char"])
}

func TestInMemoryPairDeliversEnvelope(t *testing.T) {
	a, b := transport.NewInMemoryPair(4)
	defer a.Close()
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, a.Send(ctx, "peripheral-1", []byte("hello")))

	ch, err := b.Receive(ctx)
	require.NoError(t, err)

	select {
	case env := <-ch:
		assert.Equal(t, "peripheral-1", env.TargetID)
		assert.Equal(t, []byte("hello"), env.Payload["data"])
	case <-ctx.Done():
		t.Fatal("timed out waiting for envelope")
	}
}

func TestInMemoryReceiveAfterCloseReturnsError(t *testing.T) {
	a, b := transport.NewInMemoryPair(1)
	defer a.Close()

	require.NoError(t, b.Close())
	_, err := b.Receive(context.Background())
	assert.ErrorIs(t, err, transport.ErrTransportClosed)
}
