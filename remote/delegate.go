package remote

import "github.com/srg/bleemu/attr"

// PeripheralDelegate is the per-peripheral-proxy callback surface (spec.md
// §6.2 "Remote-peripheral" delegate list). A central's Delegate.DidDiscover
// callback is the natural place to call SetDelegate on the proxy it's
// handed.
type PeripheralDelegate interface {
	DidUpdateValueFor(char attr.UUID, value []byte, err error)
	DidWriteValueFor(char attr.UUID, err error)
	DidUpdateNotificationStateFor(char attr.UUID, enabled bool, err error)
	DidUpdateValueForDescriptor(char, desc attr.UUID, value []byte, err error)
	DidWriteValueForDescriptor(char, desc attr.UUID, err error)
	IsReadyToSendWriteWithoutResponse()
}

// NoopPeripheralDelegate implements PeripheralDelegate with empty methods.
type NoopPeripheralDelegate struct{}

func (NoopPeripheralDelegate) DidUpdateValueFor(attr.UUID, []byte, error)             {}
func (NoopPeripheralDelegate) DidWriteValueFor(attr.UUID, error)                      {}
func (NoopPeripheralDelegate) DidUpdateNotificationStateFor(attr.UUID, bool, error)   {}
func (NoopPeripheralDelegate) DidUpdateValueForDescriptor(attr.UUID, attr.UUID, []byte, error) {}
func (NoopPeripheralDelegate) DidWriteValueForDescriptor(attr.UUID, attr.UUID, error) {}
func (NoopPeripheralDelegate) IsReadyToSendWriteWithoutResponse()                     {}

var _ PeripheralDelegate = NoopPeripheralDelegate{}

// SetDelegate installs d as the proxy's callback target.
func (p *Peripheral) SetDelegate(d PeripheralDelegate) {
	p.mu.Lock()
	p.delegate = d
	p.mu.Unlock()
}

func (p *Peripheral) currentDelegate() PeripheralDelegate {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.delegate == nil {
		return NoopPeripheralDelegate{}
	}
	return p.delegate
}

// DeliverValueUpdate forwards didUpdateValueFor to the installed delegate.
func (p *Peripheral) DeliverValueUpdate(char attr.UUID, value []byte, err error) {
	p.currentDelegate().DidUpdateValueFor(char, value, err)
}

// DeliverWriteResult forwards didWriteValueFor.
func (p *Peripheral) DeliverWriteResult(char attr.UUID, err error) {
	p.currentDelegate().DidWriteValueFor(char, err)
}

// DeliverNotificationStateUpdate forwards didUpdateNotificationStateFor.
func (p *Peripheral) DeliverNotificationStateUpdate(char attr.UUID, enabled bool, err error) {
	p.currentDelegate().DidUpdateNotificationStateFor(char, enabled, err)
}

// DeliverDescriptorValueUpdate forwards didUpdateValueFor(descriptor).
func (p *Peripheral) DeliverDescriptorValueUpdate(char, desc attr.UUID, value []byte, err error) {
	p.currentDelegate().DidUpdateValueForDescriptor(char, desc, value, err)
}

// DeliverDescriptorWriteResult forwards didWriteValueFor(descriptor).
func (p *Peripheral) DeliverDescriptorWriteResult(char, desc attr.UUID, err error) {
	p.currentDelegate().DidWriteValueForDescriptor(char, desc, err)
}
