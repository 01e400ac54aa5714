// Package remote implements the peripheral-view-from-central and
// central-view-from-peripheral proxies (C2): thin handles that hold
// identity plus a cached view of the other side, forwarding every
// operation to the Bus. Neither proxy owns mutable cross-component state.
package remote

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/srg/bleemu/attr"
	"github.com/srg/bleemu/bus"
)

// Peripheral is the central-side proxy for a discovered/connected
// peripheral (spec.md §4.5). Its identifier always equals the
// corresponding peripheral façade's identifier, so the Bus can route by
// one key (spec.md §4.5 invariant).
type Peripheral struct {
	id       uuid.UUID
	centralID uuid.UUID
	bus      *bus.Bus

	mu        sync.RWMutex
	name      string
	rssi      int
	services  []*attr.Service
	connected bool
	delegate  PeripheralDelegate
}

// NewPeripheral constructs a proxy bound to centralID's view of
// peripheral id.
func NewPeripheral(b *bus.Bus, centralID, id uuid.UUID, adv attr.Record, rssi int) *Peripheral {
	return &Peripheral{
		id:        id,
		centralID: centralID,
		bus:       b,
		name:      adv.LocalName(),
		rssi:      rssi,
	}
}

// ID returns the peripheral's stable identifier.
func (p *Peripheral) ID() uuid.UUID { return p.id }

// Name returns the cached advertised local name.
func (p *Peripheral) Name() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.name
}

// RSSI returns the last RSSI reported for this peripheral.
func (p *Peripheral) RSSI() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.rssi
}

// UpdateAdvertisement refreshes the cached name/RSSI on a repeat discovery
// (spec.md §4.2.2 duplicate handling).
func (p *Peripheral) UpdateAdvertisement(adv attr.Record, rssi int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if name := adv.LocalName(); name != "" {
		p.name = name
	}
	p.rssi = rssi
}

// SetConnected records the proxy's last-known connection state.
func (p *Peripheral) SetConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}

// IsConnected reports whether the Bus currently has this pair connected.
func (p *Peripheral) IsConnected() bool {
	return p.bus.IsConnected(p.centralID, p.id)
}

// DiscoverServices populates the cached service list from the peripheral's
// GATT tree via the Bus (spec.md §4.2.5/§6.2 didDiscoverServices).
func (p *Peripheral) DiscoverServices(ctx context.Context) ([]*attr.Service, error) {
	services, err := p.bus.DiscoverServices(ctx, p.centralID, p.id)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.services = services
	p.mu.Unlock()
	return services, nil
}

// Services returns the cached service list from the last DiscoverServices.
func (p *Peripheral) Services() []*attr.Service {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]*attr.Service(nil), p.services...)
}

// ReadValue reads char's current value.
func (p *Peripheral) ReadValue(ctx context.Context, char *attr.Characteristic) ([]byte, error) {
	return p.bus.ReadCharacteristic(ctx, p.centralID, p.id, char)
}

// WriteValue writes value to char, with or without a response.
func (p *Peripheral) WriteValue(ctx context.Context, char *attr.Characteristic, value []byte, withResponse bool) error {
	return p.bus.WriteCharacteristic(ctx, p.centralID, p.id, char, value, withResponse)
}

// ReadDescriptorValue reads desc's current value.
func (p *Peripheral) ReadDescriptorValue(ctx context.Context, char *attr.Characteristic, desc *attr.Descriptor) ([]byte, error) {
	return p.bus.ReadDescriptor(ctx, p.centralID, p.id, char, desc)
}

// WriteDescriptorValue writes value to desc.
func (p *Peripheral) WriteDescriptorValue(ctx context.Context, char *attr.Characteristic, desc *attr.Descriptor, value []byte) error {
	return p.bus.WriteDescriptor(ctx, p.centralID, p.id, char, desc, value)
}

// SetNotifyValue subscribes or unsubscribes from char's notifications.
func (p *Peripheral) SetNotifyValue(ctx context.Context, char *attr.Characteristic, enabled bool) error {
	return p.bus.SetNotifyValue(ctx, p.centralID, p.id, char, enabled)
}

// CanSendWriteWithoutResponse reports whether the back-pressure counter
// for this pair is below its configured cap.
func (p *Peripheral) CanSendWriteWithoutResponse() bool {
	return p.bus.CanSendWriteWithoutResponse(p.centralID, p.id)
}

// MaximumWriteValueLength returns MTU-3 for the current negotiated MTU.
func (p *Peripheral) MaximumWriteValueLength() int {
	return p.bus.MaximumWriteValueLength(p.centralID, p.id)
}

// RequestMTU negotiates a new MTU for this connection.
func (p *Peripheral) RequestMTU(requested int) (int, error) {
	return p.bus.NegotiateMTU(p.centralID, p.id, requested)
}
