package central_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/bleemu/attr"
	"github.com/srg/bleemu/bus"
	"github.com/srg/bleemu/central"
	"github.com/srg/bleemu/config"
	"github.com/srg/bleemu/peripheral"
	"github.com/srg/bleemu/remote"
)

func TestRetrievePeripheralsOnlyReturnsDiscovered(t *testing.T) {
	b := bus.New(config.Instant(), nil)
	defer b.Close()

	var discovered []*remote.Peripheral
	cen := central.New(b, central.WithDelegate(&captureDiscoverDelegate{out: &discovered}))

	per := peripheral.New(b)
	require.NoError(t, per.StartAdvertising(attr.Record{}))
	cen.ScanForPeripherals(nil, false)

	waitForTest(t, func() bool { return len(discovered) == 1 })

	unknown := uuid.New()
	found := cen.RetrievePeripherals([]uuid.UUID{per.ID(), unknown})
	require.Len(t, found, 1)
	assert.Equal(t, per.ID(), found[0].ID())
}

func TestRetrieveConnectedPeripheralsReflectsConnectionState(t *testing.T) {
	b := bus.New(config.Instant(), nil)
	defer b.Close()

	cen := central.New(b)
	per := peripheral.New(b)
	require.NoError(t, per.StartAdvertising(attr.Record{}))
	cen.ScanForPeripherals(nil, false)
	cen.StopScan()

	cen.Connect(context.Background(), per.ID())

	waitForTest(t, func() bool { return len(cen.RetrieveConnectedPeripherals(nil)) == 1 })

	connected := cen.RetrieveConnectedPeripherals(nil)
	require.Len(t, connected, 1)
	assert.True(t, connected[0].IsConnected())

	cen.CancelPeripheralConnection(context.Background(), per.ID())
	waitForTest(t, func() bool { return len(cen.RetrieveConnectedPeripherals(nil)) == 0 })
}

// TestRetrieveConnectedPeripheralsFiltersByCachedServices implements
// spec.md §4.3: a non-empty services filter excludes connected
// peripherals whose cached services don't intersect it, and excludes
// peripherals that haven't had DiscoverServices called at all.
func TestRetrieveConnectedPeripheralsFiltersByCachedServices(t *testing.T) {
	b := bus.New(config.Instant(), nil)
	defer b.Close()

	heartRate := attr.NewService(attr.UUID16(0x180D), true)
	battery := attr.NewService(attr.UUID16(0x180F), true)

	discovered := peripheral.New(b)
	discovered.AddService(heartRate)
	require.NoError(t, discovered.StartAdvertising(attr.Record{}))

	undiscovered := peripheral.New(b)
	undiscovered.AddService(battery)
	require.NoError(t, undiscovered.StartAdvertising(attr.Record{}))

	cen := central.New(b)
	cen.Connect(context.Background(), discovered.ID())
	cen.Connect(context.Background(), undiscovered.ID())
	waitForTest(t, func() bool { return len(cen.RetrieveConnectedPeripherals(nil)) == 2 })

	proxies := cen.RetrieveConnectedPeripherals(nil)
	var discoveredProxy *remote.Peripheral
	for _, p := range proxies {
		if p.ID() == discovered.ID() {
			discoveredProxy = p
		}
	}
	require.NotNil(t, discoveredProxy)
	_, err := discoveredProxy.DiscoverServices(context.Background())
	require.NoError(t, err)

	filtered := cen.RetrieveConnectedPeripherals([]attr.UUID{attr.UUID16(0x180D)})
	require.Len(t, filtered, 1)
	assert.Equal(t, discovered.ID(), filtered[0].ID())
}

type captureDiscoverDelegate struct {
	central.NoopDelegate
	out *[]*remote.Peripheral
}

func (d *captureDiscoverDelegate) DidDiscover(p *remote.Peripheral, adv attr.Record, rssi int) {
	*d.out = append(*d.out, p)
}

func waitForTest(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	require.True(t, cond(), "condition not met within timeout")
}
