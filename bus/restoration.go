package bus

import (
	"sync"

	"github.com/google/uuid"

	"github.com/srg/bleemu/attr"
)

// Restoration payload dictionary keys (spec.md §6.3).
const (
	KeyRestoredPeripherals  = "restored-peripherals"
	KeyRestoredScanServices = "restored-scan-services"
	KeyRestoredScanOptions  = "restored-scan-options"
	KeyRestoredServices     = "restored-services"
	KeyRestoredAdvertisement = "restored-advertisement-data"
)

// restorationStore holds saved state blobs keyed by restoreId, kept
// separate from the connection/scan/advertising maps since it must
// survive Unregister* (a façade may disappear and come back under the
// same restore identifier).
type restorationStore struct {
	mu   sync.Mutex
	data map[string]map[string]any
}

func newRestorationStore() *restorationStore {
	return &restorationStore{data: make(map[string]map[string]any)}
}

func (r *restorationStore) save(restoreID string, dict map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[restoreID] = dict
}

func (r *restorationStore) load(restoreID string) (map[string]any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.data[restoreID]
	return d, ok
}

// SaveCentralState serializes central's connected peripherals and active
// scan filter under restoreID (spec.md §4.2.11).
func (b *Bus) SaveCentralState(central uuid.UUID, restoreID string) {
	b.submit(func() {
		dict := map[string]any{
			KeyRestoredPeripherals: b.connectedPeripherals(central),
		}
		if st, ok := b.scans.Get(central); ok {
			dict[KeyRestoredScanServices] = append([]attr.UUID(nil), st.serviceUUIDs...)
			dict[KeyRestoredScanOptions] = map[string]any{"allowDuplicates": st.allowDuplicates}
		}
		b.restoration.save(restoreID, dict)
	})
}

// SavePeripheralState serializes peripheral's advertising flag and
// advertisement record under restoreID.
func (b *Bus) SavePeripheralState(peripheral uuid.UUID, restoreID string) {
	b.submit(func() {
		dict := map[string]any{}
		if rec, ok := b.advertising.Get(peripheral); ok {
			dict[KeyRestoredAdvertisement] = rec.Clone()
		}
		if psink, ok := b.peripherals.Get(peripheral); ok {
			var ids []string
			for _, s := range psink.Services() {
				ids = append(ids, s.UUID.String())
			}
			dict[KeyRestoredServices] = ids
		}
		b.restoration.save(restoreID, dict)
	})
}

// RestoreState returns the saved restoration dictionary for restoreID, if
// StateRestorationEnabled and a blob was previously saved under that
// identifier.
func (b *Bus) RestoreState(restoreID string) (map[string]any, bool) {
	if !b.config().StateRestorationEnabled {
		return nil, false
	}
	return b.restoration.load(restoreID)
}
