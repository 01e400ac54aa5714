// Package bus implements the EmulatorBus: the process-wide coordinator
// that owns the graph of registered centrals and peripherals, the
// connection table, per-connection MTU and back-pressure state, the
// pairing set, and the scan/advertise matcher. Central and peripheral
// façades (packages central, peripheral) are thin dispatchers around a
// *Bus; application code normally never imports this package directly.
package bus

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	pkgerrors "github.com/pkg/errors"

	"github.com/srg/bleemu/attr"
	"github.com/srg/bleemu/config"
	"github.com/srg/bleemu/internal/groutine"
)

type connKey struct {
	Central    uuid.UUID
	Peripheral uuid.UUID
}

// connState holds the per-connection data the bus tracks: negotiated MTU,
// pairing status, and the write-without-response back-pressure counter.
// Fields are only ever mutated from within the actor's mailbox.
type connState struct {
	mtu       int
	paired    bool
	wwrQueued int
}

// charQueueKey identifies a peripheral/characteristic pair for the
// notification back-pressure counters (spec.md §3).
type charQueueKey struct {
	Peripheral uuid.UUID
	Char       string // attr.UUID.String()
}

// Bus is the EmulatorBus (C5). All mutable state is reachable only through
// its mailbox goroutine; exported methods are safe to call concurrently
// from any number of façades.
type Bus struct {
	logger *logrus.Logger

	cfg atomic.Pointer[config.Snapshot]

	ops  chan func()
	stop chan struct{}
	wg   sync.WaitGroup

	centrals    *hashmap.Map[uuid.UUID, CentralSink]
	peripherals *hashmap.Map[uuid.UUID, PeripheralSink]

	connections *hashmap.Map[connKey, *connState]
	scans       *hashmap.Map[uuid.UUID, *scanState]
	advertising *hashmap.Map[uuid.UUID, attr.Record]

	notifyQueues *hashmap.Map[charQueueKey, *int32]

	ancsAuth *hashmap.Map[uuid.UUID, bool]

	connectionEventRegs *hashmap.Map[uuid.UUID, struct{}]

	restoration *restorationStore

	taskCancels *hashmap.Map[string, context.CancelFunc]
}

// New constructs a Bus with cfg installed (config.Default() if cfg is nil)
// and starts its mailbox goroutine.
func New(cfg *config.Snapshot, logger *logrus.Logger) *Bus {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logrus.New()
	}

	b := &Bus{
		logger:       logger,
		ops:          make(chan func()),
		stop:         make(chan struct{}),
		centrals:     hashmap.New[uuid.UUID, CentralSink](),
		peripherals:  hashmap.New[uuid.UUID, PeripheralSink](),
		connections:  hashmap.New[connKey, *connState](),
		scans:        hashmap.New[uuid.UUID, *scanState](),
		advertising:  hashmap.New[uuid.UUID, attr.Record](),
		notifyQueues:        hashmap.New[charQueueKey, *int32](),
		ancsAuth:            hashmap.New[uuid.UUID, bool](),
		connectionEventRegs: hashmap.New[uuid.UUID, struct{}](),
		restoration:         newRestorationStore(),
		taskCancels:         hashmap.New[string, context.CancelFunc](),
	}
	b.cfg.Store(cfg)

	b.wg.Add(1)
	groutine.Go(nil, "emulator-bus-mailbox", func(ctx context.Context) {
		defer b.wg.Done()
		b.run()
	})

	return b
}

// run is the actor's single-writer mailbox loop: every state mutation the
// bus performs runs here, one at a time.
func (b *Bus) run() {
	for {
		select {
		case fn := <-b.ops:
			fn()
		case <-b.stop:
			return
		}
	}
}

// submit runs fn on the actor goroutine and blocks the caller until it
// completes. This is the "requestors get a completion handle" mailbox
// pattern described in spec.md §4.2/§9.
func (b *Bus) submit(fn func()) {
	done := make(chan struct{})
	select {
	case b.ops <- func() { fn(); close(done) }:
		<-done
	case <-b.stop:
	}
}

// Configure atomically installs cfg as the bus's configuration snapshot.
func (b *Bus) Configure(cfg *config.Snapshot) {
	if cfg == nil {
		cfg = config.Default()
	}
	b.cfg.Store(cfg.Clone())
}

// GetConfiguration returns the currently installed configuration snapshot.
func (b *Bus) GetConfiguration() *config.Snapshot {
	return b.cfg.Load()
}

func (b *Bus) config() *config.Snapshot {
	return b.cfg.Load()
}

// Reset cancels every registered scan loop and clears every map. Intended
// for test teardown (spec.md §4.2.12). Back-pressure and notification
// drain goroutines are not registered as tasks and are not cancelled.
func (b *Bus) Reset() {
	b.submit(func() {
		b.taskCancels.Range(func(_ string, cancel context.CancelFunc) bool {
			cancel()
			return true
		})
		b.taskCancels = hashmap.New[string, context.CancelFunc]()
		b.centrals = hashmap.New[uuid.UUID, CentralSink]()
		b.peripherals = hashmap.New[uuid.UUID, PeripheralSink]()
		b.connections = hashmap.New[connKey, *connState]()
		b.scans = hashmap.New[uuid.UUID, *scanState]()
		b.advertising = hashmap.New[uuid.UUID, attr.Record]()
		b.notifyQueues = hashmap.New[charQueueKey, *int32]()
		b.ancsAuth = hashmap.New[uuid.UUID, bool]()
		b.connectionEventRegs = hashmap.New[uuid.UUID, struct{}]()
		b.restoration = newRestorationStore()
	})
}

// Close stops the mailbox goroutine. Not part of the spec surface, but
// required for leak-free tests/processes.
func (b *Bus) Close() {
	close(b.stop)
	b.wg.Wait()
}

// RegisterCentral registers a central façade's sink (spec.md §4.2.1). It
// does not change the façade's power state or deliver restoration state;
// the central façade does both itself during construction.
func (b *Bus) RegisterCentral(sink CentralSink) {
	b.submit(func() {
		b.centrals.Insert(sink.ID(), sink)
	})
}

// UnregisterCentral removes sink and all derived state: scan registration,
// connections, MTU entries, back-pressure counters, pairing entries, and
// cancels its scan loop.
func (b *Bus) UnregisterCentral(id uuid.UUID) {
	b.submit(func() {
		b.cancelTask(scanTaskName(id))
		b.centrals.Del(id)
		b.scans.Del(id)
		b.connections.Range(func(k connKey, _ *connState) bool {
			if k.Central == id {
				b.connections.Del(k)
			}
			return true
		})
		b.ancsAuth.Del(id)
		b.connectionEventRegs.Del(id)
	})
}

// RegisterForConnectionEvents marks central as opted into
// connectionEventDidOccur delivery (spec.md §4.2.10). Firing still also
// requires Snapshot.FireConnectionEvents.
func (b *Bus) RegisterForConnectionEvents(central uuid.UUID) {
	b.submit(func() {
		b.connectionEventRegs.Insert(central, struct{}{})
	})
}

// wantsConnectionEvents reports whether central has registered via
// RegisterForConnectionEvents. Must run on the actor.
func (b *Bus) wantsConnectionEvents(central uuid.UUID) bool {
	_, ok := b.connectionEventRegs.Get(central)
	return ok
}

// RegisterPeripheral registers a peripheral façade's sink.
func (b *Bus) RegisterPeripheral(sink PeripheralSink) {
	b.submit(func() {
		b.peripherals.Insert(sink.ID(), sink)
	})
}

// UnregisterPeripheral removes sink and all derived state: advertising
// entry and every connection naming this peripheral.
func (b *Bus) UnregisterPeripheral(id uuid.UUID) {
	b.submit(func() {
		b.peripherals.Del(id)
		b.advertising.Del(id)
		b.connections.Range(func(k connKey, _ *connState) bool {
			if k.Peripheral == id {
				b.connections.Del(k)
			}
			return true
		})
	})
}

// GetAllCentrals returns every registered central identifier.
func (b *Bus) GetAllCentrals() []uuid.UUID {
	var out []uuid.UUID
	b.centrals.Range(func(id uuid.UUID, _ CentralSink) bool {
		out = append(out, id)
		return true
	})
	return out
}

// GetAllPeripherals returns every registered peripheral identifier.
func (b *Bus) GetAllPeripherals() []uuid.UUID {
	var out []uuid.UUID
	b.peripherals.Range(func(id uuid.UUID, _ PeripheralSink) bool {
		out = append(out, id)
		return true
	})
	return out
}

// isConnected reports whether central and peripheral have an active
// connection. It reads the concurrent map directly rather than going
// through the mailbox, so it can be called both on the actor and from
// other goroutines.
func (b *Bus) isConnected(central, peripheral uuid.UUID) bool {
	_, ok := b.connections.Get(connKey{Central: central, Peripheral: peripheral})
	return ok
}

// IsConnected is the exported form of isConnected.
func (b *Bus) IsConnected(central, peripheral uuid.UUID) bool {
	return b.isConnected(central, peripheral)
}

// connectedPeripherals returns every peripheral currently connected to
// central.
func (b *Bus) connectedPeripherals(central uuid.UUID) []uuid.UUID {
	var out []uuid.UUID
	b.connections.Range(func(k connKey, _ *connState) bool {
		if k.Central == central {
			out = append(out, k.Peripheral)
		}
		return true
	})
	return out
}

// connectedCentrals returns every central currently connected to
// peripheral.
func (b *Bus) connectedCentrals(peripheral uuid.UUID) []uuid.UUID {
	var out []uuid.UUID
	b.connections.Range(func(k connKey, _ *connState) bool {
		if k.Peripheral == peripheral {
			out = append(out, k.Central)
		}
		return true
	})
	return out
}

// sleep blocks for d, honoring ctx cancellation, unless d is zero.
func (b *Bus) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// sample draws a uniform float64 in [0,1) for error-injection / RSSI
// decisions. math/rand's package-level functions are safe for concurrent
// use, which is what we need here since sampling happens outside the
// mailbox (alongside the operation's delay sleep, not serialized with
// other operations).
func (b *Bus) sample() float64 {
	return rand.Float64()
}

// sampleRSSI draws a simulated RSSI reading per spec.md §4.1: clamp(range,
// uniform(range) + uniform(-v,+v)).
func (b *Bus) sampleRSSI() int {
	cfg := b.config()
	low, high := cfg.RSSIRange()
	if high < low {
		low, high = high, low
	}
	base := low
	if high > low {
		base = low + rand.Intn(high-low+1)
	}
	v := cfg.RSSIVariation
	jitter := 0
	if v > 0 {
		jitter = rand.Intn(2*v+1) - v
	}
	out := base + jitter
	if out < low {
		out = low
	}
	if out > high {
		out = high
	}
	return out
}

// registerTask records a cancel func under name so Reset/Unregister can
// cancel it deterministically (spec.md §4.2.12).
func (b *Bus) registerTask(name string, cancel context.CancelFunc) {
	if prev, ok := b.taskCancels.Get(name); ok {
		prev()
	}
	b.taskCancels.Insert(name, cancel)
}

func (b *Bus) cancelTask(name string) {
	if cancel, ok := b.taskCancels.Get(name); ok {
		cancel()
		b.taskCancels.Del(name)
	}
}

// GetANCSAuthorization returns the last-set ANCS authorization flag for
// central, defaulting to false.
func (b *Bus) GetANCSAuthorization(central uuid.UUID) bool {
	v, _ := b.ancsAuth.Get(central)
	return v
}

// UpdateANCSAuthorization sets central's ANCS authorization flag and, if
// FireANCSAuthorizationUpdates is set, notifies every peripheral connected
// to it (spec.md §4.2.10).
func (b *Bus) UpdateANCSAuthorization(central uuid.UUID, authorized bool) {
	b.submit(func() {
		b.ancsAuth.Insert(central, authorized)
		if !b.config().FireANCSAuthorizationUpdates {
			return
		}
		for _, p := range b.connectedPeripherals(central) {
			if sink, ok := b.peripherals.Get(p); ok {
				sink.DeliverANCSAuthorizationChanged(central, authorized)
			}
		}
		if csink, ok := b.centrals.Get(central); ok {
			for _, p := range b.connectedPeripherals(central) {
				csink.DeliverANCSAuthorization(p, authorized)
			}
		}
	})
}

// wrapInvariant logs a violated internal invariant and returns
// ErrUnknownDevice, the bus's no-panic failure path (spec.md §7).
func (b *Bus) wrapInvariant(where string, err error) error {
	b.logger.WithError(pkgerrors.Wrap(err, where)).Error("bus: internal invariant violated")
	return ErrUnknownDevice
}
