package bus

import (
	"context"

	"github.com/google/uuid"

	"github.com/srg/bleemu/attr"
	"github.com/srg/bleemu/internal/groutine"
)

// scanState records one central's active scan registration: the service
// filter and whether duplicate advertisements should be suppressed
// (spec.md §3, §4.2.2).
type scanState struct {
	serviceUUIDs          []attr.UUID
	solicitedServiceUUIDs []attr.UUID
	allowDuplicates       bool
	seen                  map[uuid.UUID]struct{}
}

func scanTaskName(central uuid.UUID) string {
	return "scan:" + central.String()
}

// StartScan registers central's scan filter and starts its discovery loop.
// serviceUUIDs and solicitedServiceUUIDs are independent filters (spec.md
// §4.2.2 steps 1-2): a peripheral must pass the service filter AND, when
// honorSolicitedServiceUUIDs is set and solicitedServiceUUIDs is non-empty,
// the solicited filter. Every ScanDiscoveryInterval, the bus checks every
// advertising peripheral against the matcher algorithm and delivers a
// discovery event for each match.
func (b *Bus) StartScan(central uuid.UUID, serviceUUIDs, solicitedServiceUUIDs []attr.UUID, allowDuplicates bool) {
	ctx, cancel := context.WithCancel(context.Background())

	b.submit(func() {
		cfg := b.config()
		effectiveDup := allowDuplicates
		if !cfg.HonorAllowDuplicatesOption {
			effectiveDup = true
		}
		b.scans.Insert(central, &scanState{
			serviceUUIDs:          serviceUUIDs,
			solicitedServiceUUIDs: solicitedServiceUUIDs,
			allowDuplicates:       effectiveDup,
			seen:                  make(map[uuid.UUID]struct{}),
		})
		b.registerTask(scanTaskName(central), cancel)
	})

	groutine.Go(ctx, "scan-loop-"+central.String(), func(ctx context.Context) {
		b.runScanLoop(ctx, central)
	})
}

func (b *Bus) runScanLoop(ctx context.Context, central uuid.UUID) {
	for {
		cfg := b.config()
		if err := b.sleep(ctx, cfg.ScanDiscoveryInterval); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
		b.submit(func() {
			b.pollScanOnce(central)
		})
	}
}

// pollScanOnce checks every advertising peripheral against central's
// filter and delivers discoveries for matches. Must run on the actor.
func (b *Bus) pollScanOnce(central uuid.UUID) {
	st, ok := b.scans.Get(central)
	if !ok {
		return
	}
	sink, ok := b.centrals.Get(central)
	if !ok {
		return
	}

	b.advertising.Range(func(peripheral uuid.UUID, rec attr.Record) bool {
		if !b.matchesScanFilter(st, rec) {
			return true
		}
		if !st.allowDuplicates {
			if _, seen := st.seen[peripheral]; seen {
				return true
			}
			st.seen[peripheral] = struct{}{}
		}
		rssi := b.sampleRSSI()
		sink.DeliverDiscovered(peripheral, b.withAutoGeneratedFields(rec), rssi)
		return true
	})
}

// matchesScanFilter implements the discovery matcher (spec.md §4.2.2 steps
// 1-2). The service filter and the solicited filter are independent ANDed
// conditions, not alternatives: an empty filter passes unconditionally, a
// non-empty one requires an intersection with the corresponding advertised
// list; the solicited filter only applies at all when
// HonorSolicitedServiceUUIDs is set and the scan specified one.
func (b *Bus) matchesScanFilter(st *scanState, rec attr.Record) bool {
	if len(st.serviceUUIDs) > 0 && !attr.IntersectsUUIDs(st.serviceUUIDs, rec.ServiceUUIDs()) {
		return false
	}
	if b.config().HonorSolicitedServiceUUIDs && len(st.solicitedServiceUUIDs) > 0 {
		if !attr.IntersectsUUIDs(st.solicitedServiceUUIDs, rec.SolicitedServiceUUIDs()) {
			return false
		}
	}
	return true
}

// StopScan cancels central's scan loop and clears its filter.
func (b *Bus) StopScan(central uuid.UUID) {
	b.submit(func() {
		b.cancelTask(scanTaskName(central))
		b.scans.Del(central)
	})
}

// IsScanning reports whether central currently has an active scan
// registration.
func (b *Bus) IsScanning(central uuid.UUID) bool {
	_, ok := b.scans.Get(central)
	return ok
}
