package central

import (
	"github.com/google/uuid"

	"github.com/srg/bleemu/attr"
	"github.com/srg/bleemu/bus"
)

// The methods below implement bus.CentralSink. Each one only looks up or
// creates the relevant proxy and schedules the actual delegate call on the
// delivery queue — none of them may run application code inline, since
// they execute on the Bus's own mailbox goroutine.

func (c *Central) DeliverDiscovered(peripheralID uuid.UUID, adv attr.Record, rssi int) {
	p := c.peripheralProxy(peripheralID, adv, rssi)
	p.UpdateAdvertisement(adv, rssi)
	c.queue.Submit("didDiscover", func() {
		c.delegate.DidDiscover(p, adv, rssi)
	})
}

func (c *Central) DeliverConnected(peripheralID uuid.UUID) {
	p := c.peripheralProxy(peripheralID, attr.Record{}, 0)
	p.SetConnected(true)
	c.queue.Submit("didConnect", func() {
		c.delegate.DidConnect(p)
	})
}

func (c *Central) DeliverConnectFailed(peripheralID uuid.UUID, err error) {
	p := c.peripheralProxy(peripheralID, attr.Record{}, 0)
	c.queue.Submit("didFailToConnect", func() {
		c.delegate.DidFailToConnect(p, err)
	})
}

func (c *Central) DeliverDisconnected(peripheralID uuid.UUID, err error) {
	p := c.peripheralProxy(peripheralID, attr.Record{}, 0)
	p.SetConnected(false)
	c.queue.Submit("didDisconnectPeripheral", func() {
		c.delegate.DidDisconnectPeripheral(p, err)
	})
}

func (c *Central) DeliverConnectionEvent(peripheralID uuid.UUID, event bus.ConnectionEvent) {
	p := c.peripheralProxy(peripheralID, attr.Record{}, 0)
	c.queue.Submit("connectionEventDidOccur", func() {
		c.delegate.ConnectionEventDidOccur(p, event)
	})
}

func (c *Central) DeliverANCSAuthorization(peripheralID uuid.UUID, authorized bool) {
	p := c.peripheralProxy(peripheralID, attr.Record{}, 0)
	c.queue.Submit("didUpdateANCSAuthorizationFor", func() {
		c.delegate.DidUpdateANCSAuthorizationFor(p, authorized)
	})
}

func (c *Central) DeliverWriteWithoutResponseReady(peripheralID uuid.UUID) {
	p := c.peripheralProxy(peripheralID, attr.Record{}, 0)
	c.queue.Submit("peripheralIsReadyToSendWriteWithoutResponse", func() {
		c.delegate.PeripheralIsReadyToSendWriteWithoutResponse(p)
	})
}

func (c *Central) DeliverWillRestoreState(dict map[string]any) {
	c.queue.Submit("willRestoreState", func() {
		c.delegate.WillRestoreState(dict)
	})
}

// DeliverValueUpdate, DeliverWriteResult, DeliverNotificationStateUpdate,
// DeliverDescriptorValueUpdate and DeliverDescriptorWriteResult forward to
// the per-characteristic/descriptor delegate callbacks, which live on the
// remote.Peripheral proxy rather than on Central's own Delegate (spec.md
// §6.2 "Remote-peripheral" delegate list) — the proxy owns the
// per-attribute callback registrations a consumer installed.

func (c *Central) DeliverValueUpdate(peripheralID uuid.UUID, char attr.UUID, value []byte, err error) {
	p := c.peripheralProxy(peripheralID, attr.Record{}, 0)
	c.queue.Submit("didUpdateValueFor", func() {
		p.DeliverValueUpdate(char, value, err)
	})
}

func (c *Central) DeliverWriteResult(peripheralID uuid.UUID, char attr.UUID, err error) {
	p := c.peripheralProxy(peripheralID, attr.Record{}, 0)
	c.queue.Submit("didWriteValueFor", func() {
		p.DeliverWriteResult(char, err)
	})
}

func (c *Central) DeliverNotificationStateUpdate(peripheralID uuid.UUID, char attr.UUID, enabled bool, err error) {
	p := c.peripheralProxy(peripheralID, attr.Record{}, 0)
	c.queue.Submit("didUpdateNotificationStateFor", func() {
		p.DeliverNotificationStateUpdate(char, enabled, err)
	})
}

func (c *Central) DeliverDescriptorValueUpdate(peripheralID uuid.UUID, char, desc attr.UUID, value []byte, err error) {
	p := c.peripheralProxy(peripheralID, attr.Record{}, 0)
	c.queue.Submit("didUpdateValueForDescriptor", func() {
		p.DeliverDescriptorValueUpdate(char, desc, value, err)
	})
}

func (c *Central) DeliverDescriptorWriteResult(peripheralID uuid.UUID, char, desc attr.UUID, err error) {
	p := c.peripheralProxy(peripheralID, attr.Record{}, 0)
	c.queue.Submit("didWriteValueForDescriptor", func() {
		p.DeliverDescriptorWriteResult(char, desc, err)
	})
}

var _ bus.CentralSink = (*Central)(nil)
