package central

import (
	"github.com/srg/bleemu/attr"
	"github.com/srg/bleemu/bus"
	"github.com/srg/bleemu/remote"
)

// Delegate is the application-facing callback surface for a Central
// (spec.md §6.2 central-side delegate list). Every method is dispatched on
// the Central's delivery queue, never called inline from Bus code.
type Delegate interface {
	StateDidUpdate(state bus.ManagerState)
	DidDiscover(peripheral *remote.Peripheral, adv attr.Record, rssi int)
	DidConnect(peripheral *remote.Peripheral)
	DidFailToConnect(peripheral *remote.Peripheral, err error)
	DidDisconnectPeripheral(peripheral *remote.Peripheral, err error)
	ConnectionEventDidOccur(peripheral *remote.Peripheral, event bus.ConnectionEvent)
	DidUpdateANCSAuthorizationFor(peripheral *remote.Peripheral, authorized bool)
	PeripheralIsReadyToSendWriteWithoutResponse(peripheral *remote.Peripheral)
	WillRestoreState(dict map[string]any)
}

// NoopDelegate implements Delegate with empty methods; embed it and
// override only the callbacks a particular test or application cares
// about (spec.md §9 "model as an interface with default empty methods").
type NoopDelegate struct{}

func (NoopDelegate) StateDidUpdate(bus.ManagerState)                                  {}
func (NoopDelegate) DidDiscover(*remote.Peripheral, attr.Record, int)                  {}
func (NoopDelegate) DidConnect(*remote.Peripheral)                                     {}
func (NoopDelegate) DidFailToConnect(*remote.Peripheral, error)                        {}
func (NoopDelegate) DidDisconnectPeripheral(*remote.Peripheral, error)                 {}
func (NoopDelegate) ConnectionEventDidOccur(*remote.Peripheral, bus.ConnectionEvent)   {}
func (NoopDelegate) DidUpdateANCSAuthorizationFor(*remote.Peripheral, bool)            {}
func (NoopDelegate) PeripheralIsReadyToSendWriteWithoutResponse(*remote.Peripheral)    {}
func (NoopDelegate) WillRestoreState(map[string]any)                                  {}

var _ Delegate = NoopDelegate{}
