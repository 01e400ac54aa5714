package peripheral_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/bleemu/attr"
	"github.com/srg/bleemu/bus"
	"github.com/srg/bleemu/config"
	"github.com/srg/bleemu/peripheral"
)

func uuidForTest() uuid.UUID { return uuid.New() }

func heartRateService() *attr.Service {
	svc := attr.NewService(attr.UUID16(0x180D), true)
	svc.AddCharacteristic(attr.NewCharacteristic(attr.UUID16(0x2A37), attr.PropRead, attr.PermReadable, []byte{0x00}))
	return svc
}

func TestAddRemoveServices(t *testing.T) {
	b := bus.New(config.Instant(), nil)
	defer b.Close()

	p := peripheral.New(b)
	svc := heartRateService()
	p.AddService(svc)

	require.Len(t, p.Services(), 1)
	char, ok := p.FindCharacteristic(attr.UUID16(0x2A37))
	require.True(t, ok)
	assert.Equal(t, attr.UUID16(0x2A37), char.UUID)

	p.RemoveService(svc.UUID)
	assert.Empty(t, p.Services())
}

func TestRemoveAllServices(t *testing.T) {
	b := bus.New(config.Instant(), nil)
	defer b.Close()

	p := peripheral.New(b)
	p.AddService(heartRateService())
	p.AddService(attr.NewService(attr.UUID16(0x180F), true))
	require.Len(t, p.Services(), 2)

	p.RemoveAllServices()
	assert.Empty(t, p.Services())
}

func TestServicesPreserveInsertionOrder(t *testing.T) {
	b := bus.New(config.Instant(), nil)
	defer b.Close()

	p := peripheral.New(b)
	first := attr.NewService(attr.UUID16(0x1800), true)
	second := attr.NewService(attr.UUID16(0x180D), true)
	p.AddService(first)
	p.AddService(second)

	svcs := p.Services()
	require.Len(t, svcs, 2)
	assert.Equal(t, first.UUID, svcs[0].UUID)
	assert.Equal(t, second.UUID, svcs[1].UUID)
}

func TestPublishL2CAPChannelRoundTrip(t *testing.T) {
	b := bus.New(config.Instant(), nil)
	defer b.Close()

	p := peripheral.New(b)
	local, remote, err := p.PublishL2CAPChannel(0x80)
	require.NoError(t, err)
	defer p.UnpublishL2CAPChannel(0x80)

	go func() {
		_, _ = local.Write([]byte("ping"))
	}()

	buf := make([]byte, 4)
	done := make(chan struct{})
	go func() {
		_, _ = remote.Read(buf)
		close(done)
	}()

	select {
	case <-done:
		assert.Equal(t, "ping", string(buf))
	case <-time.After(time.Second):
		t.Fatal("timed out reading across l2cap channel")
	}
}

func TestPublishL2CAPChannelRejectsDuplicatePSM(t *testing.T) {
	b := bus.New(config.Instant(), nil)
	defer b.Close()

	p := peripheral.New(b)
	_, _, err := p.PublishL2CAPChannel(0x80)
	require.NoError(t, err)
	defer p.UnpublishL2CAPChannel(0x80)

	_, _, err = p.PublishL2CAPChannel(0x80)
	assert.ErrorIs(t, err, peripheral.ErrChannelInUse)
}

// TestUpdateValueGatedWhenNotNotifying implements spec.md §8.8 step 1: a
// characteristic with no subscribers rejects UpdateValue outright.
func TestUpdateValueGatedWhenNotNotifying(t *testing.T) {
	b := bus.New(config.Instant(), nil)
	defer b.Close()

	p := peripheral.New(b)
	svc := heartRateService()
	p.AddService(svc)
	char, ok := p.FindCharacteristic(attr.UUID16(0x2A37))
	require.True(t, ok)

	assert.False(t, p.UpdateValue(char, []byte{0x42}))
}

// TestUpdateValueGatedAtBusQueueCap implements spec.md §8.8 step 2: once a
// subscribed characteristic's (peripheral, characteristic) queue is at cap,
// further UpdateValue calls are rejected until the queue drains.
func TestUpdateValueGatedAtBusQueueCap(t *testing.T) {
	cfg := config.Slow()
	cfg.NotificationDelay = 0
	cfg.BackpressureProcessingDelay = 30 * time.Millisecond
	cfg.MaxNotificationQueue = 2
	b := bus.New(cfg, nil)
	defer b.Close()

	p := peripheral.New(b, peripheral.WithLocalNotificationQueueCap(100))
	svc := heartRateService()
	p.AddService(svc)
	char, ok := p.FindCharacteristic(attr.UUID16(0x2A37))
	require.True(t, ok)
	char.Subscribe(uuidForTest())

	for i := 0; i < cfg.MaxNotificationQueue; i++ {
		require.True(t, p.UpdateValue(char, []byte{byte(i)}), "update %d should be accepted under cap", i)
	}
	assert.False(t, p.UpdateValue(char, []byte{0xFF}), "update beyond the bus queue cap must be rejected")

	assert.Eventually(t, func() bool {
		return p.UpdateValue(char, []byte{0xAA})
	}, time.Second, 10*time.Millisecond, "queue should drain and accept again after BackpressureProcessingDelay")
}

// TestUpdateValueLocalQueueGatesTightLoop implements spec.md §4.4: the
// peripheral's own local queue cap gates a tight loop of UpdateValue calls
// for the duration the notification is considered in flight, rather than
// resetting its slot the instant the call returns.
func TestUpdateValueLocalQueueGatesTightLoop(t *testing.T) {
	cfg := config.Instant()
	cfg.NotificationDelay = 50 * time.Millisecond
	cfg.BackpressureProcessingDelay = 50 * time.Millisecond
	b := bus.New(cfg, nil)
	defer b.Close()

	p := peripheral.New(b, peripheral.WithLocalNotificationQueueCap(1))
	svc := heartRateService()
	p.AddService(svc)
	char, ok := p.FindCharacteristic(attr.UUID16(0x2A37))
	require.True(t, ok)
	char.Subscribe(uuidForTest())

	require.True(t, p.UpdateValue(char, []byte{0x01}))
	assert.False(t, p.UpdateValue(char, []byte{0x02}), "local queue slot must still be held by the in-flight update")

	assert.Eventually(t, func() bool {
		return p.UpdateValue(char, []byte{0x03})
	}, time.Second, 10*time.Millisecond, "local queue slot should release once the in-flight update drains")
}

type denyingDelegate struct {
	peripheral.NoopDelegate
}

func (denyingDelegate) DidReceiveRead(req *peripheral.ReadRequest) {
	req.Deny()
}

func (denyingDelegate) DidReceiveWrite(reqs []*peripheral.WriteRequest) {
	for _, r := range reqs {
		r.Deny()
	}
}

func TestReadRequestDenyReturnsReadNotPermitted(t *testing.T) {
	b := bus.New(config.Instant(), nil)
	defer b.Close()

	p := peripheral.New(b, peripheral.WithDelegate(denyingDelegate{}))
	char := attr.NewCharacteristic(attr.UUID16(0x2A37), attr.PropRead, attr.PermReadable, []byte{0x01})

	_, attErr := p.HandleRead(uuidForTest(), char)
	require.NotNil(t, attErr)
	assert.True(t, attErr.Is(bus.ErrReadNotPermitted))
}

func TestWriteRequestDenyReturnsWriteNotPermitted(t *testing.T) {
	b := bus.New(config.Instant(), nil)
	defer b.Close()

	p := peripheral.New(b, peripheral.WithDelegate(denyingDelegate{}))
	char := attr.NewCharacteristic(attr.UUID16(0x2A37), attr.PropWrite, attr.PermWriteable, []byte{0x00})

	attErr := p.HandleWrite(uuidForTest(), char, []byte{0x01}, true)
	require.NotNil(t, attErr)
	assert.True(t, attErr.Is(bus.ErrWriteNotPermitted))
	assert.Equal(t, byte(0x00), char.Value()[0], "denied write must not mutate attribute state")
}
