// Package central implements the Central façade (C3): per-central state,
// scan/connect/retrieve calls translated into Bus operations, and Bus
// events dispatched onto the central's own delivery queue.
package central

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/srg/bleemu/attr"
	"github.com/srg/bleemu/bus"
	"github.com/srg/bleemu/remote"
)

// Option configures a Central at construction time.
type Option func(*Central)

// WithDelegate installs the application delegate.
func WithDelegate(d Delegate) Option {
	return func(c *Central) { c.delegate = d }
}

// WithRestoreID enables state restoration under the given identifier
// (spec.md §4.2.11).
func WithRestoreID(id string) Option {
	return func(c *Central) { c.restoreID = id }
}

// WithQueueCapacity overrides the delivery queue's backlog capacity.
func WithQueueCapacity(n int) Option {
	return func(c *Central) { c.queueCapacity = n }
}

// WithLogger installs a logrus logger; a default logrus.New() is used
// otherwise.
func WithLogger(l *logrus.Logger) Option {
	return func(c *Central) { c.logger = l }
}

// Central is the central manager façade (spec.md §4.3).
type Central struct {
	id  uuid.UUID
	bus *bus.Bus

	delegate      Delegate
	queue         *DeliveryQueue
	queueCapacity int
	restoreID     string
	logger        *logrus.Logger

	mu          sync.RWMutex
	state       bus.ManagerState
	scanning    bool
	peripherals map[uuid.UUID]*remote.Peripheral
}

// New constructs and registers a Central with b.
func New(b *bus.Bus, opts ...Option) *Central {
	c := &Central{
		id:          uuid.New(),
		bus:         b,
		delegate:    NoopDelegate{},
		peripherals: make(map[uuid.UUID]*remote.Peripheral),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logrus.New()
	}
	c.queue = NewDeliveryQueue(c.queueCapacity)

	b.RegisterCentral(c)
	c.bootstrap()
	return c
}

// bootstrap fires willRestoreState (if a restoration blob exists) before
// the poweredOn transition, per spec.md §4.2.11.
func (c *Central) bootstrap() {
	if c.restoreID != "" {
		if dict, ok := c.bus.RestoreState(c.restoreID); ok {
			c.queue.Submit("willRestoreState", func() {
				c.delegate.WillRestoreState(dict)
			})
		}
	}
	c.mu.Lock()
	c.state = bus.StatePoweredOn
	c.mu.Unlock()
	c.queue.Submit("stateDidUpdate", func() {
		c.delegate.StateDidUpdate(bus.StatePoweredOn)
	})
}

// ID returns the central's stable identifier (bus.CentralSink).
func (c *Central) ID() uuid.UUID { return c.id }

// State returns the central manager's current power state.
func (c *Central) State() bus.ManagerState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsScanning reports whether this central has an active scan
// registration.
func (c *Central) IsScanning() bool {
	return c.bus.IsScanning(c.id)
}

// ScanForPeripherals starts scanning, optionally filtered by
// serviceUUIDs, with duplicate suppression governed by allowDuplicates
// and the bus's HonorAllowDuplicatesOption (spec.md §4.2.2).
func (c *Central) ScanForPeripherals(serviceUUIDs []attr.UUID, allowDuplicates bool) {
	c.bus.StartScan(c.id, serviceUUIDs, nil, allowDuplicates)
}

// ScanForPeripheralsSolicited starts scanning like ScanForPeripherals, with
// an additional solicited-service-UUIDs filter that is independent of
// serviceUUIDs: a peripheral must pass both filters to be delivered,
// subject to the bus's HonorSolicitedServiceUUIDs option (spec.md §4.2.2
// step 2).
func (c *Central) ScanForPeripheralsSolicited(serviceUUIDs, solicitedServiceUUIDs []attr.UUID, allowDuplicates bool) {
	c.bus.StartScan(c.id, serviceUUIDs, solicitedServiceUUIDs, allowDuplicates)
}

// StopScan cancels the active scan registration.
func (c *Central) StopScan() {
	c.bus.StopScan(c.id)
}

// Connect initiates a connection to peripheral.
func (c *Central) Connect(ctx context.Context, peripheralID uuid.UUID) {
	c.bus.Connect(ctx, c.id, peripheralID)
}

// CancelPeripheralConnection tears down an existing connection.
func (c *Central) CancelPeripheralConnection(ctx context.Context, peripheralID uuid.UUID) {
	c.bus.CancelConnection(ctx, c.id, peripheralID)
}

// RetrievePeripherals returns the proxies for the given identifiers that
// this central has discovered.
func (c *Central) RetrievePeripherals(ids []uuid.UUID) []*remote.Peripheral {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*remote.Peripheral, 0, len(ids))
	for _, id := range ids {
		if p, ok := c.peripherals[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// RetrieveConnectedPeripherals returns every connected proxy whose cached
// services (populated by a prior DiscoverServices call) intersect
// services; an empty services list matches unconditionally (spec.md
// §4.3). A peripheral connected but not yet discovered has no cached
// services and so is excluded by any non-empty filter.
func (c *Central) RetrieveConnectedPeripherals(services []attr.UUID) []*remote.Peripheral {
	connected := c.bus.ConnectedPeripherals(c.id)
	candidates := c.RetrievePeripherals(connected)
	if len(services) == 0 {
		return candidates
	}
	out := make([]*remote.Peripheral, 0, len(candidates))
	for _, p := range candidates {
		if attr.IntersectsUUIDs(services, cachedServiceUUIDs(p)) {
			out = append(out, p)
		}
	}
	return out
}

func cachedServiceUUIDs(p *remote.Peripheral) []attr.UUID {
	svcs := p.Services()
	uuids := make([]attr.UUID, 0, len(svcs))
	for _, svc := range svcs {
		uuids = append(uuids, svc.UUID)
	}
	return uuids
}

// RegisterForConnectionEvents opts this central into
// connectionEventDidOccur delivery. Connection events still also require
// config.Snapshot.FireConnectionEvents to be enabled bus-wide (spec.md
// §4.2.10).
func (c *Central) RegisterForConnectionEvents() {
	c.bus.RegisterForConnectionEvents(c.id)
}

// UpdateANCSAuthorization sets the ANCS authorization flag the Bus reports
// for this central to every connected peripheral.
func (c *Central) UpdateANCSAuthorization(authorized bool) {
	c.bus.UpdateANCSAuthorization(c.id, authorized)
}

// Close stops the delivery queue and unregisters from the bus.
func (c *Central) Close() {
	c.bus.UnregisterCentral(c.id)
	c.queue.Close()
}

func (c *Central) peripheralProxy(id uuid.UUID, adv attr.Record, rssi int) *remote.Peripheral {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.peripherals[id]; ok {
		return p
	}
	p := remote.NewPeripheral(c.bus, c.id, id, adv, rssi)
	c.peripherals[id] = p
	return p
}
