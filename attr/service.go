package attr

import (
	"sync"

	"github.com/google/uuid"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Service is a GATT service: a UUID, a primary/secondary flag, an ordered
// list of characteristics, and an ordered list of included services.
type Service struct {
	UUID    UUID
	Primary bool

	// PeripheralID is a non-owning back-reference to the owning peripheral
	// façade. Zero value means the service has not yet been added to a
	// peripheral.
	PeripheralID uuid.UUID

	mu              sync.RWMutex
	characteristics *orderedmap.OrderedMap[string, *Characteristic]
	included        *orderedmap.OrderedMap[string, *Service]
}

// NewService builds a primary or secondary service with no children.
func NewService(id UUID, primary bool) *Service {
	return &Service{
		UUID:            id,
		Primary:         primary,
		characteristics: orderedmap.New[string, *Characteristic](),
		included:        orderedmap.New[string, *Service](),
	}
}

// AddCharacteristic appends c to the service, setting c's back-reference.
func (s *Service) AddCharacteristic(c *Characteristic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ServiceUUID = s.UUID
	s.characteristics.Set(c.UUID.String(), c)
}

// Characteristic looks up an owned characteristic by UUID.
func (s *Service) Characteristic(id UUID) (*Characteristic, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.characteristics.Get(id.String())
}

// Characteristics returns the characteristic list in insertion order.
func (s *Service) Characteristics() []*Characteristic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Characteristic, 0, s.characteristics.Len())
	for p := s.characteristics.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Value)
	}
	return out
}

// AddIncludedService appends inc to the service's included-service list.
func (s *Service) AddIncludedService(inc *Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.included.Set(inc.UUID.String(), inc)
}

// IncludedServices returns the included-service list in insertion order.
func (s *Service) IncludedServices() []*Service {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Service, 0, s.included.Len())
	for p := s.included.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Value)
	}
	return out
}
