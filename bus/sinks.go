package bus

import (
	"github.com/google/uuid"
	"github.com/srg/bleemu/attr"
)

// ManagerState mirrors a central or peripheral manager's power state
// (spec.md §3).
type ManagerState int

const (
	StateUnknown ManagerState = iota
	StateResetting
	StateUnsupported
	StateUnauthorized
	StatePoweredOff
	StatePoweredOn
)

func (s ManagerState) String() string {
	switch s {
	case StateResetting:
		return "resetting"
	case StateUnsupported:
		return "unsupported"
	case StateUnauthorized:
		return "unauthorized"
	case StatePoweredOff:
		return "poweredOff"
	case StatePoweredOn:
		return "poweredOn"
	default:
		return "unknown"
	}
}

// ConnectionEvent is the auxiliary peer-connected/peer-disconnected
// notification gated by Snapshot.FireConnectionEvents (spec.md §4.2.10).
type ConnectionEvent int

const (
	PeerConnected ConnectionEvent = iota
	PeerDisconnected
)

// CentralSink is how the bus delivers events to a central façade. Central
// façades (package central) implement this and register it with
// Bus.RegisterCentral. Every method must return quickly — its job is to
// hand the event to the façade's own delivery queue, not to run application
// delegate code inline (spec.md §4.3, §5).
type CentralSink interface {
	ID() uuid.UUID
	DeliverDiscovered(peripheral uuid.UUID, adv attr.Record, rssi int)
	DeliverConnected(peripheral uuid.UUID)
	DeliverConnectFailed(peripheral uuid.UUID, err error)
	DeliverDisconnected(peripheral uuid.UUID, err error)
	DeliverConnectionEvent(peripheral uuid.UUID, event ConnectionEvent)
	DeliverANCSAuthorization(peripheral uuid.UUID, authorized bool)
	DeliverWriteWithoutResponseReady(peripheral uuid.UUID)
	DeliverValueUpdate(peripheral uuid.UUID, char attr.UUID, value []byte, err error)
	DeliverWriteResult(peripheral uuid.UUID, char attr.UUID, err error)
	DeliverNotificationStateUpdate(peripheral uuid.UUID, char attr.UUID, enabled bool, err error)
	DeliverDescriptorValueUpdate(peripheral uuid.UUID, char, desc attr.UUID, value []byte, err error)
	DeliverDescriptorWriteResult(peripheral uuid.UUID, char, desc attr.UUID, err error)
	DeliverWillRestoreState(dict map[string]any)
}

// PeripheralSink is how the bus delivers requests and events to a
// peripheral façade (package peripheral), registered via
// Bus.RegisterPeripheral.
type PeripheralSink interface {
	ID() uuid.UUID

	// FindCharacteristic looks up an owned characteristic by UUID across
	// all added services.
	FindCharacteristic(id attr.UUID) (*attr.Characteristic, bool)
	// FindDescriptor looks up an owned descriptor by (characteristic,
	// descriptor) UUID pair.
	FindDescriptor(charID, descID attr.UUID) (*attr.Descriptor, bool)
	// Services returns the owned service list in insertion order.
	Services() []*attr.Service

	// HandleRead services a read request, invoking the façade's own
	// didReceiveRead delegate and returning the current value.
	HandleRead(central uuid.UUID, char *attr.Characteristic) ([]byte, *AttError)
	// HandleWrite services a write request (with or without response).
	HandleWrite(central uuid.UUID, char *attr.Characteristic, value []byte, withResponse bool) *AttError
	HandleReadDescriptor(central uuid.UUID, desc *attr.Descriptor) ([]byte, *AttError)
	HandleWriteDescriptor(central uuid.UUID, desc *attr.Descriptor, value []byte) *AttError
	// HandleSetNotify toggles a subscription and fires didSubscribeTo /
	// didUnsubscribeFrom.
	HandleSetNotify(central uuid.UUID, char *attr.Characteristic, enabled bool) *AttError

	// NotifyCentralDisconnected is called once per disconnect so the
	// façade can clear subscriptions for every characteristic it owns
	// (spec.md §4.2.4).
	NotifyCentralDisconnected(central uuid.UUID)

	// DeliverReady fires peripheralManagerIsReady /
	// isReadyToUpdateSubscribers.
	DeliverReady()
	// DeliverANCSAuthorizationChanged notifies the peripheral that a
	// central's ANCS authorization value changed.
	DeliverANCSAuthorizationChanged(central uuid.UUID, authorized bool)
	// DeliverWillRestoreState fires willRestoreState before poweredOn.
	DeliverWillRestoreState(dict map[string]any)

	// IsAdvertising and AdvertisementRecord report the façade's own
	// advertising view; SavePeripheralState reads the Bus's advertising
	// table instead.
	IsAdvertising() bool
	AdvertisementRecord() attr.Record
}
