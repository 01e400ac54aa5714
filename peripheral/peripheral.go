// Package peripheral implements the Peripheral façade (C4): the owned
// service/characteristic tree, advertising state, the Bus-driven
// read/write/subscribe handlers, and per-characteristic notification
// back-pressure.
package peripheral

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/wk8/go-ordered-map/v2"

	"github.com/srg/bleemu/attr"
	"github.com/srg/bleemu/bus"
	"github.com/srg/bleemu/internal/groutine"
)

// ErrChannelInUse is returned by PublishL2CAPChannel when psm is already
// published.
var ErrChannelInUse = errors.New("peripheral: l2cap channel already published")

// defaultLocalNotificationQueueCap is the per-characteristic immediate
// back-pressure cap applied before the Bus's own queue semantics run
// (spec.md §4.4).
const defaultLocalNotificationQueueCap = 10

// Option configures a Peripheral at construction time.
type Option func(*Peripheral)

// WithDelegate installs the application delegate.
func WithDelegate(d Delegate) Option {
	return func(p *Peripheral) { p.delegate = d }
}

// WithRestoreID enables state restoration under the given identifier.
func WithRestoreID(id string) Option {
	return func(p *Peripheral) { p.restoreID = id }
}

// WithQueueCapacity overrides the delivery queue's backlog capacity.
func WithQueueCapacity(n int) Option {
	return func(p *Peripheral) { p.queueCapacity = n }
}

// WithLogger installs a logrus logger.
func WithLogger(l *logrus.Logger) Option {
	return func(p *Peripheral) { p.logger = l }
}

// WithLocalNotificationQueueCap overrides defaultLocalNotificationQueueCap.
func WithLocalNotificationQueueCap(n int) Option {
	return func(p *Peripheral) { p.localQueueCap = n }
}

// Peripheral is the peripheral manager façade (spec.md §4.4).
type Peripheral struct {
	id  uuid.UUID
	bus *bus.Bus

	delegate      Delegate
	queue         *deliveryQueue
	queueCapacity int
	restoreID     string
	logger        *logrus.Logger
	localQueueCap int

	mu            sync.RWMutex
	state         bus.ManagerState
	advertising   bool
	advRecord     attr.Record
	services      *orderedmap.OrderedMap[string, *attr.Service]
	localNotifyQ  map[string]int // characteristic UUID string -> queued count
	channels      map[uint16]*l2capChannel
}

// New constructs and registers a Peripheral with b.
func New(b *bus.Bus, opts ...Option) *Peripheral {
	p := &Peripheral{
		id:           uuid.New(),
		bus:          b,
		delegate:     NoopDelegate{},
		services:     orderedmap.New[string, *attr.Service](),
		localNotifyQ: make(map[string]int),
		channels:     make(map[uint16]*l2capChannel),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logrus.New()
	}
	if p.localQueueCap <= 0 {
		p.localQueueCap = defaultLocalNotificationQueueCap
	}
	p.queue = newDeliveryQueue(p.queueCapacity)

	b.RegisterPeripheral(p)
	p.bootstrap()
	return p
}

func (p *Peripheral) bootstrap() {
	if p.restoreID != "" {
		if dict, ok := p.bus.RestoreState(p.restoreID); ok {
			p.queue.submit(func() { p.delegate.WillRestoreState(dict) })
			if adv, ok := dict[bus.KeyRestoredAdvertisement].(attr.Record); ok {
				p.mu.Lock()
				p.advRecord = adv
				p.mu.Unlock()
			}
		}
	}
	p.mu.Lock()
	p.state = bus.StatePoweredOn
	p.mu.Unlock()
	p.queue.submit(func() { p.delegate.StateDidUpdate(bus.StatePoweredOn) })

	if p.advertising {
		go p.StartAdvertising(p.advRecord)
	}
}

// ID returns the peripheral's stable identifier (bus.PeripheralSink).
func (p *Peripheral) ID() uuid.UUID { return p.id }

// State returns the peripheral manager's current power state.
func (p *Peripheral) State() bus.ManagerState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// AddService installs svc into the owned service tree and fires didAdd.
func (p *Peripheral) AddService(svc *attr.Service) {
	p.mu.Lock()
	svc.PeripheralID = p.id
	p.services.Set(svc.UUID.String(), svc)
	p.mu.Unlock()
	p.queue.submit(func() { p.delegate.DidAdd(svc, nil) })
}

// RemoveService removes a single service by UUID.
func (p *Peripheral) RemoveService(id attr.UUID) {
	p.mu.Lock()
	p.services.Delete(id.String())
	p.mu.Unlock()
}

// RemoveAllServices clears the owned service tree.
func (p *Peripheral) RemoveAllServices() {
	p.mu.Lock()
	p.services = orderedmap.New[string, *attr.Service]()
	p.mu.Unlock()
}

// StartAdvertising installs rec as the advertised record via the Bus.
func (p *Peripheral) StartAdvertising(rec attr.Record) error {
	err := p.bus.StartAdvertising(p.id, rec)
	p.mu.Lock()
	if err == nil {
		p.advertising = true
		p.advRecord = rec
	}
	p.mu.Unlock()
	p.queue.submit(func() { p.delegate.DidStartAdvertising(err) })
	return err
}

// StopAdvertising removes the peripheral's advertised record.
func (p *Peripheral) StopAdvertising() {
	p.bus.StopAdvertising(p.id)
	p.mu.Lock()
	p.advertising = false
	p.mu.Unlock()
}

// IsAdvertising reports whether this peripheral currently advertises
// (bus.PeripheralSink).
func (p *Peripheral) IsAdvertising() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.advertising
}

// AdvertisementRecord returns the currently installed advertisement record
// (bus.PeripheralSink).
func (p *Peripheral) AdvertisementRecord() attr.Record {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.advRecord.Clone()
}

// Services returns the owned service list in insertion order
// (bus.PeripheralSink).
func (p *Peripheral) Services() []*attr.Service {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*attr.Service, 0, p.services.Len())
	for pair := p.services.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// FindCharacteristic looks up an owned characteristic across every
// service (bus.PeripheralSink).
func (p *Peripheral) FindCharacteristic(id attr.UUID) (*attr.Characteristic, bool) {
	for _, svc := range p.Services() {
		if c, ok := svc.Characteristic(id); ok {
			return c, true
		}
	}
	return nil, false
}

// FindDescriptor looks up an owned descriptor by (characteristic,
// descriptor) UUID pair (bus.PeripheralSink).
func (p *Peripheral) FindDescriptor(charID, descID attr.UUID) (*attr.Descriptor, bool) {
	char, ok := p.FindCharacteristic(charID)
	if !ok {
		return nil, false
	}
	return char.Descriptor(descID)
}

// Respond acknowledges a read/write request. It is a no-op: reads are
// resolved synchronously from attribute state and writes are already
// applied by the time this would be called (spec.md §4.4).
func (p *Peripheral) Respond(req any, resultCode int) {}

// SetDesiredConnectionLatency is a no-op retained for API parity with the
// platform surface this façade emulates (spec.md §4.4).
func (p *Peripheral) SetDesiredConnectionLatency(central uuid.UUID, latency int) {}

// UpdateValue publishes a new value for char to its subscribers, subject
// to the local notification queue cap before the Bus's own back-pressure
// model runs (spec.md §4.4), and propagates the Bus's own gating — false
// if char isn't notifying or the Bus's (peripheral, characteristic) queue
// is at cap (spec.md §4.2.6).
func (p *Peripheral) UpdateValue(char *attr.Characteristic, value []byte) bool {
	key := char.UUID.String()

	p.mu.Lock()
	if p.localNotifyQ[key] >= p.localQueueCap {
		p.mu.Unlock()
		return false
	}
	p.localNotifyQ[key]++
	p.mu.Unlock()

	if ok := p.bus.UpdateValue(p.id, char, value); !ok {
		p.releaseLocalQueueSlot(key)
		return false
	}

	// The slot stays occupied for as long as the Bus itself considers the
	// notification in flight (delivery + its own back-pressure drain),
	// so a tight loop of UpdateValue calls is actually gated locally
	// instead of the slot being released the instant this call returns.
	cfg := p.bus.GetConfiguration()
	drain := cfg.NotificationDelay + cfg.BackpressureProcessingDelay
	groutine.Go(nil, "peripheral-local-queue-drain", func(ctx context.Context) {
		timer := time.NewTimer(drain)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
		}
		p.releaseLocalQueueSlot(key)
	})
	return true
}

func (p *Peripheral) releaseLocalQueueSlot(key string) {
	p.mu.Lock()
	if p.localNotifyQ[key] > 0 {
		p.localNotifyQ[key]--
	}
	p.mu.Unlock()
}

// PublishL2CAPChannel opens a virtual L2CAP channel under psm and returns
// both ends: local for the peripheral side and remote_ for the caller to
// hand to the central side.
func (p *Peripheral) PublishL2CAPChannel(psm uint16) (local, remote_ io.ReadWriteCloser, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.channels[psm]; exists {
		return nil, nil, ErrChannelInUse
	}
	ch := newL2CAPChannel()
	p.channels[psm] = ch
	return ch.Local, ch.Remote, nil
}

// UnpublishL2CAPChannel closes and removes the channel at psm.
func (p *Peripheral) UnpublishL2CAPChannel(psm uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ch, ok := p.channels[psm]; ok {
		_ = ch.Local.Close()
		_ = ch.Remote.Close()
		delete(p.channels, psm)
	}
}

// Close stops the delivery queue and unregisters from the bus.
func (p *Peripheral) Close() {
	p.bus.UnregisterPeripheral(p.id)
	p.queue.close()
}
