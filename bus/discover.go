package bus

import (
	"context"

	"github.com/google/uuid"

	"github.com/srg/bleemu/attr"
)

// DiscoverServices returns peripheral's full service list, including each
// service's owned characteristics and descriptors in insertion order
// (spec.md §4.2.5, §6.2 didDiscoverServices).
func (b *Bus) DiscoverServices(ctx context.Context, central, peripheral uuid.UUID) ([]*attr.Service, error) {
	cfg := b.config()
	if err := b.sleep(ctx, cfg.ServiceDiscoveryDelay); err != nil {
		return nil, err
	}
	if err := b.sleep(ctx, cfg.CharacteristicDiscoveryDelay); err != nil {
		return nil, err
	}
	if err := b.sleep(ctx, cfg.DescriptorDiscoveryDelay); err != nil {
		return nil, err
	}

	var services []*attr.Service
	var outErr error
	b.submit(func() {
		if !b.isConnected(central, peripheral) {
			outErr = ErrNotConnected
			return
		}
		psink, ok := b.peripherals.Get(peripheral)
		if !ok {
			outErr = ErrUnknownDevice
			return
		}
		services = psink.Services()
	})
	if outErr != nil {
		return nil, outErr
	}
	return services, nil
}
