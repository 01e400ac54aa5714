package peripheral

import (
	"github.com/google/uuid"

	"github.com/srg/bleemu/attr"
	"github.com/srg/bleemu/bus"
)

// The methods below implement bus.PeripheralSink. They run on the Bus's
// mailbox goroutine and only touch the owned attribute tree. HandleRead and
// HandleWrite call DidReceiveRead/DidReceiveWrite inline on that goroutine,
// so the delegate can deny the request; every other delegate call is
// scheduled on the façade's own delivery queue.

func (p *Peripheral) HandleRead(central uuid.UUID, char *attr.Characteristic) ([]byte, *bus.AttError) {
	req := &ReadRequest{Central: central, Characteristic: char}
	p.delegate.DidReceiveRead(req)
	if req.denied {
		return nil, bus.ErrReadNotPermitted
	}
	return char.Value(), nil
}

func (p *Peripheral) HandleWrite(central uuid.UUID, char *attr.Characteristic, value []byte, withResponse bool) *bus.AttError {
	req := &WriteRequest{Central: central, Characteristic: char, Value: value, WithResponse: withResponse}
	p.delegate.DidReceiveWrite([]*WriteRequest{req})
	if req.denied {
		return bus.ErrWriteNotPermitted
	}
	char.SetValue(value)
	return nil
}

func (p *Peripheral) HandleReadDescriptor(central uuid.UUID, desc *attr.Descriptor) ([]byte, *bus.AttError) {
	return desc.Value(), nil
}

func (p *Peripheral) HandleWriteDescriptor(central uuid.UUID, desc *attr.Descriptor, value []byte) *bus.AttError {
	desc.SetValue(value)
	return nil
}

func (p *Peripheral) HandleSetNotify(central uuid.UUID, char *attr.Characteristic, enabled bool) *bus.AttError {
	if enabled {
		if char.Subscribe(central) {
			p.queue.submit(func() { p.delegate.DidSubscribeTo(central, char) })
		}
		return nil
	}
	if char.Unsubscribe(central) {
		p.queue.submit(func() { p.delegate.DidUnsubscribeFrom(central, char) })
	}
	return nil
}

// NotifyCentralDisconnected clears every subscription central held across
// every owned characteristic (spec.md §4.2.4).
func (p *Peripheral) NotifyCentralDisconnected(central uuid.UUID) {
	for _, svc := range p.Services() {
		for _, char := range svc.Characteristics() {
			if char.Unsubscribe(central) {
				p.queue.submit(func() { p.delegate.DidUnsubscribeFrom(central, char) })
			}
		}
	}
}

func (p *Peripheral) DeliverReady() {
	p.queue.submit(func() { p.delegate.IsReadyToUpdateSubscribers() })
}

func (p *Peripheral) DeliverANCSAuthorizationChanged(central uuid.UUID, authorized bool) {
	p.queue.submit(func() { p.delegate.DidUpdateANCSAuthorization(central, authorized) })
}

func (p *Peripheral) DeliverWillRestoreState(dict map[string]any) {
	p.queue.submit(func() { p.delegate.WillRestoreState(dict) })
}

var _ bus.PeripheralSink = (*Peripheral)(nil)
