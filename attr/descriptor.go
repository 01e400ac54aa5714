package attr

import "sync"

// Descriptor is a metadata attribute attached to a characteristic.
type Descriptor struct {
	UUID       UUID
	Permission Permission

	mu    sync.RWMutex
	value []byte
}

// NewDescriptor builds a descriptor with the default (readable|writeable)
// permission set — descriptor permissions are not independently negotiable
// in this emulator (see DESIGN.md).
func NewDescriptor(uuid UUID, value []byte) *Descriptor {
	return &Descriptor{
		UUID:       uuid,
		Permission: DefaultDescriptorPermission,
		value:      append([]byte(nil), value...),
	}
}

// Value returns a copy of the descriptor's current value.
func (d *Descriptor) Value() []byte {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]byte(nil), d.value...)
}

// SetValue stores a copy of v as the descriptor's current value.
func (d *Descriptor) SetValue(v []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.value = append([]byte(nil), v...)
}
