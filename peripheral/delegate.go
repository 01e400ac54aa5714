package peripheral

import (
	"github.com/google/uuid"

	"github.com/srg/bleemu/attr"
	"github.com/srg/bleemu/bus"
)

// ReadRequest is handed to Delegate.DidReceiveRead. Responding is a no-op
// in this emulator (spec.md §4.4 "respond(to:withResult:)... because reads
// are resolved synchronously from attribute state") — the hook exists so
// application code can observe or veto a read via Deny.
type ReadRequest struct {
	Central        uuid.UUID
	Characteristic *attr.Characteristic
	denied         bool
}

// Deny marks the request to fail with ReadNotPermitted.
func (r *ReadRequest) Deny() { r.denied = true }

// WriteRequest is handed to Delegate.DidReceiveWrite.
type WriteRequest struct {
	Central        uuid.UUID
	Characteristic *attr.Characteristic
	Value          []byte
	WithResponse   bool
	denied         bool
}

// Deny marks the request to fail with WriteNotPermitted.
func (r *WriteRequest) Deny() { r.denied = true }

// Delegate is the application-facing callback surface for a Peripheral
// (spec.md §6.2 peripheral-side delegate list).
type Delegate interface {
	StateDidUpdate(state bus.ManagerState)
	DidStartAdvertising(err error)
	DidAdd(service *attr.Service, err error)
	DidSubscribeTo(central uuid.UUID, char *attr.Characteristic)
	DidUnsubscribeFrom(central uuid.UUID, char *attr.Characteristic)
	DidReceiveRead(req *ReadRequest)
	DidReceiveWrite(reqs []*WriteRequest)
	IsReadyToUpdateSubscribers()
	WillRestoreState(dict map[string]any)
	DidUpdateANCSAuthorization(central uuid.UUID, authorized bool)
}

// NoopDelegate implements Delegate with empty methods.
type NoopDelegate struct{}

func (NoopDelegate) StateDidUpdate(bus.ManagerState)               {}
func (NoopDelegate) DidStartAdvertising(error)                     {}
func (NoopDelegate) DidAdd(*attr.Service, error)                   {}
func (NoopDelegate) DidSubscribeTo(uuid.UUID, *attr.Characteristic) {}
func (NoopDelegate) DidUnsubscribeFrom(uuid.UUID, *attr.Characteristic) {}
func (NoopDelegate) DidReceiveRead(*ReadRequest)                   {}
func (NoopDelegate) DidReceiveWrite([]*WriteRequest)               {}
func (NoopDelegate) IsReadyToUpdateSubscribers()                   {}
func (NoopDelegate) WillRestoreState(map[string]any)               {}
func (NoopDelegate) DidUpdateANCSAuthorization(uuid.UUID, bool)    {}

var _ Delegate = NoopDelegate{}
