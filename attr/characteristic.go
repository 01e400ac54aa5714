package attr

import (
	"sync"

	"github.com/google/uuid"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Characteristic is a GATT attribute with a value, a property set, and an
// optional subscriber list. Descriptors are kept in an ordered map so
// discovery order (the order descriptors were added) is preserved without a
// parallel index slice.
type Characteristic struct {
	UUID       UUID
	Property   Property
	Permission Permission

	// ServiceUUID is a non-owning back-reference to the owning service.
	// It is an identifier, not a pointer: the owning peripheral façade (or
	// the bus) resolves it by lookup, sidestepping any ownership cycle.
	ServiceUUID UUID

	mu          sync.RWMutex
	value       []byte
	descriptors *orderedmap.OrderedMap[string, *Descriptor]
	subscribers map[uuid.UUID]struct{}
}

// NewCharacteristic builds a characteristic with no descriptors and no
// subscribers.
func NewCharacteristic(id UUID, prop Property, perm Permission, value []byte) *Characteristic {
	return &Characteristic{
		UUID:        id,
		Property:    prop,
		Permission:  perm,
		value:       append([]byte(nil), value...),
		descriptors: orderedmap.New[string, *Descriptor](),
		subscribers: make(map[uuid.UUID]struct{}),
	}
}

// AddDescriptor appends d to the characteristic's descriptor list,
// preserving insertion order.
func (c *Characteristic) AddDescriptor(d *Descriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.descriptors.Set(d.UUID.String(), d)
}

// Descriptor looks up a descriptor by UUID.
func (c *Characteristic) Descriptor(id UUID) (*Descriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.descriptors.Get(id.String())
}

// Descriptors returns the descriptor list in insertion order.
func (c *Characteristic) Descriptors() []*Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Descriptor, 0, c.descriptors.Len())
	for p := c.descriptors.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Value)
	}
	return out
}

// Value returns a copy of the characteristic's current value.
func (c *Characteristic) Value() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]byte(nil), c.value...)
}

// SetValue stores a copy of v as the characteristic's current value.
func (c *Characteristic) SetValue(v []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = append([]byte(nil), v...)
}

// IsNotifying reports whether the subscriber list is non-empty. This is
// always kept consistent with the subscriber set (invariant: isNotifying
// iff subscribers non-empty).
func (c *Characteristic) IsNotifying() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subscribers) > 0
}

// Subscribe adds central to the subscriber set. Returns true if this call
// changed membership (central was not already subscribed).
func (c *Characteristic) Subscribe(central uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.subscribers[central]; ok {
		return false
	}
	c.subscribers[central] = struct{}{}
	return true
}

// Unsubscribe removes central from the subscriber set. Returns true if
// central had been subscribed.
func (c *Characteristic) Unsubscribe(central uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.subscribers[central]; !ok {
		return false
	}
	delete(c.subscribers, central)
	return true
}

// IsSubscribed reports whether central is currently subscribed.
func (c *Characteristic) IsSubscribed(central uuid.UUID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.subscribers[central]
	return ok
}

// Subscribers returns a snapshot of the subscriber set.
func (c *Characteristic) Subscribers() []uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]uuid.UUID, 0, len(c.subscribers))
	for id := range c.subscribers {
		out = append(out, id)
	}
	return out
}
