package bus

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/srg/bleemu/attr"
	"github.com/srg/bleemu/internal/groutine"
)

// requiresPairing reports whether an attribute's permission bits demand an
// encrypted/authenticated link before access.
func requiresPairing(perm attr.Permission, forWrite bool) bool {
	if forWrite {
		return perm.Has(attr.PermWriteEncryptionRequired)
	}
	return perm.Has(attr.PermReadEncryptionRequired)
}

// ensurePaired runs the pairing sub-protocol if the attribute demands it
// and the pair isn't already paired; on failure returns the ATT error to
// propagate (spec.md §4.2.7, §4.2.6 "Read/Write of encrypted-required
// attribute").
func (b *Bus) ensurePaired(ctx context.Context, central, peripheral uuid.UUID, perm attr.Permission, forWrite bool) *AttError {
	if !requiresPairing(perm, forWrite) {
		return nil
	}
	if b.isPaired(central, peripheral) {
		return nil
	}
	if err := b.pair(ctx, central, peripheral); err != nil {
		return err
	}
	return nil
}

// ReadCharacteristic performs a GATT characteristic read (spec.md §4.2.6).
// The delay and error-injection sampling happen outside the mailbox so
// reads to independent (central, peripheral) pairs overlap.
func (b *Bus) ReadCharacteristic(ctx context.Context, central, peripheral uuid.UUID, char *attr.Characteristic) ([]byte, error) {
	cfg := b.config()
	if err := b.sleep(ctx, cfg.ReadDelay); err != nil {
		return nil, err
	}

	if !char.Permission.Has(attr.PermReadable) {
		return nil, ErrReadNotPermitted
	}
	if cfg.SimulateReadWriteErrors && b.sample() < cfg.ReadWriteErrorRate {
		return nil, ErrReadNotPermitted
	}
	if aerr := b.ensurePaired(ctx, central, peripheral, char.Permission, false); aerr != nil {
		return nil, aerr
	}

	var value []byte
	var aerr *AttError
	var connErr error
	b.submit(func() {
		if !b.isConnected(central, peripheral) {
			connErr = ErrNotConnected
			return
		}
		psink, ok := b.peripherals.Get(peripheral)
		if !ok {
			aerr = NewAttError(ATTAttributeNotFound)
			return
		}
		value, aerr = psink.HandleRead(central, char)
	})
	if connErr != nil {
		return nil, connErr
	}
	if aerr != nil {
		return nil, aerr
	}
	return value, nil
}

// WriteCharacteristic performs a GATT characteristic write. When
// withResponse is false the write is subject to the back-pressure model
// (spec.md §4.2.8) instead of producing a didWriteValueFor callback.
func (b *Bus) WriteCharacteristic(ctx context.Context, central, peripheral uuid.UUID, char *attr.Characteristic, value []byte, withResponse bool) error {
	cfg := b.config()

	if !withResponse {
		return b.writeWithoutResponse(ctx, central, peripheral, char, value)
	}

	if err := b.sleep(ctx, cfg.WriteDelay); err != nil {
		return err
	}
	if !char.Permission.Has(attr.PermWriteable) {
		return ErrWriteNotPermitted
	}
	if cfg.SimulateReadWriteErrors && b.sample() < cfg.ReadWriteErrorRate {
		return ErrWriteNotPermitted
	}
	if aerr := b.ensurePaired(ctx, central, peripheral, char.Permission, true); aerr != nil {
		return aerr
	}

	var aerr *AttError
	var connErr error
	b.submit(func() {
		if !b.isConnected(central, peripheral) {
			connErr = ErrNotConnected
			return
		}
		psink, ok := b.peripherals.Get(peripheral)
		if !ok {
			aerr = NewAttError(ATTAttributeNotFound)
			return
		}
		aerr = psink.HandleWrite(central, char, value, true)
		if csink, ok := b.centrals.Get(central); ok {
			var derr error
			if aerr != nil {
				derr = aerr
			}
			csink.DeliverWriteResult(peripheral, char.UUID, derr)
		}
	})
	if connErr != nil {
		return connErr
	}
	if aerr != nil {
		return aerr
	}
	return nil
}

// writeWithoutResponse enqueues a write-without-response subject to the
// back-pressure counter (spec.md §4.2.8).
func (b *Bus) writeWithoutResponse(ctx context.Context, central, peripheral uuid.UUID, char *attr.Characteristic, value []byte) error {
	cfg := b.config()
	key := connKey{Central: central, Peripheral: peripheral}

	var aerr *AttError
	var connErr error
	b.submit(func() {
		cs, ok := b.connections.Get(key)
		if !ok {
			connErr = ErrNotConnected
			return
		}
		if cfg.SimulateBackpressure && cs.wwrQueued >= cfg.MaxWriteWithoutResponseQueue {
			aerr = NewAttError(ATTInsufficientResources)
			return
		}
		if !char.Permission.Has(attr.PermWriteable) {
			aerr = ErrWriteNotPermitted
			return
		}
		cs.wwrQueued++
		psink, ok := b.peripherals.Get(peripheral)
		if ok {
			_ = psink.HandleWrite(central, char, value, false)
		}
	})
	if connErr != nil {
		return connErr
	}
	if aerr != nil {
		return aerr
	}

	b.scheduleBackpressureDrain(central, peripheral, cfg.BackpressureProcessingDelay)
	return nil
}

// scheduleBackpressureDrain decrements the write-without-response counter
// after delay and, if the decrement crosses cap -> cap-1, fires
// peripheralIsReadyToSendWriteWithoutResponse on the central's delegate
// (spec.md §4.2.8).
func (b *Bus) scheduleBackpressureDrain(central, peripheral uuid.UUID, delay time.Duration) {
	key := connKey{Central: central, Peripheral: peripheral}
	groutine.Go(nil, "backpressure-drain", func(ctx context.Context) {
		if err := b.sleep(ctx, delay); err != nil {
			return
		}
		b.submit(func() {
			cfg := b.config()
			cs, ok := b.connections.Get(key)
			if !ok {
				return
			}
			wasAtCap := cs.wwrQueued == cfg.MaxWriteWithoutResponseQueue
			if cs.wwrQueued > 0 {
				cs.wwrQueued--
			}
			if wasAtCap && cs.wwrQueued == cfg.MaxWriteWithoutResponseQueue-1 {
				if csink, ok := b.centrals.Get(central); ok {
					csink.DeliverWriteWithoutResponseReady(peripheral)
				}
			}
		})
	})
}

// CanSendWriteWithoutResponse reports whether central can issue another
// write-without-response to peripheral without exceeding the configured
// queue cap (spec.md §4.2.8).
func (b *Bus) CanSendWriteWithoutResponse(central, peripheral uuid.UUID) bool {
	cfg := b.config()
	if !cfg.SimulateBackpressure {
		return true
	}
	cs, ok := b.connections.Get(connKey{Central: central, Peripheral: peripheral})
	if !ok {
		return false
	}
	return cs.wwrQueued < cfg.MaxWriteWithoutResponseQueue
}

// ReadDescriptor performs a GATT descriptor read.
func (b *Bus) ReadDescriptor(ctx context.Context, central, peripheral uuid.UUID, char *attr.Characteristic, desc *attr.Descriptor) ([]byte, error) {
	cfg := b.config()
	if err := b.sleep(ctx, cfg.ReadDelay); err != nil {
		return nil, err
	}
	if !desc.Permission.Has(attr.PermReadable) {
		return nil, ErrReadNotPermitted
	}

	var value []byte
	var aerr *AttError
	var connErr error
	b.submit(func() {
		if !b.isConnected(central, peripheral) {
			connErr = ErrNotConnected
			return
		}
		psink, ok := b.peripherals.Get(peripheral)
		if !ok {
			aerr = NewAttError(ATTAttributeNotFound)
			return
		}
		value, aerr = psink.HandleReadDescriptor(central, desc)
		if csink, ok := b.centrals.Get(central); ok {
			var derr error
			if aerr != nil {
				derr = aerr
			}
			csink.DeliverDescriptorValueUpdate(peripheral, char.UUID, desc.UUID, value, derr)
		}
	})
	if connErr != nil {
		return nil, connErr
	}
	if aerr != nil {
		return nil, aerr
	}
	return value, nil
}

// WriteDescriptor performs a GATT descriptor write.
func (b *Bus) WriteDescriptor(ctx context.Context, central, peripheral uuid.UUID, char *attr.Characteristic, desc *attr.Descriptor, value []byte) error {
	cfg := b.config()
	if err := b.sleep(ctx, cfg.WriteDelay); err != nil {
		return err
	}
	if !desc.Permission.Has(attr.PermWriteable) {
		return ErrWriteNotPermitted
	}

	var aerr *AttError
	var connErr error
	b.submit(func() {
		if !b.isConnected(central, peripheral) {
			connErr = ErrNotConnected
			return
		}
		psink, ok := b.peripherals.Get(peripheral)
		if !ok {
			aerr = NewAttError(ATTAttributeNotFound)
			return
		}
		aerr = psink.HandleWriteDescriptor(central, desc, value)
		if csink, ok := b.centrals.Get(central); ok {
			var derr error
			if aerr != nil {
				derr = aerr
			}
			csink.DeliverDescriptorWriteResult(peripheral, char.UUID, desc.UUID, derr)
		}
	})
	if connErr != nil {
		return connErr
	}
	if aerr != nil {
		return aerr
	}
	return nil
}

// SetNotifyValue toggles a central's subscription to char on peripheral
// (spec.md §4.2.6, §4.2.9). The peripheral façade's didSubscribeTo /
// didUnsubscribeFrom delegate fires via HandleSetNotify; the central's
// didUpdateNotificationStateFor fires here.
func (b *Bus) SetNotifyValue(ctx context.Context, central, peripheral uuid.UUID, char *attr.Characteristic, enabled bool) error {
	var aerr *AttError
	var connErr error
	b.submit(func() {
		if !b.isConnected(central, peripheral) {
			connErr = ErrNotConnected
			return
		}
		psink, ok := b.peripherals.Get(peripheral)
		if !ok {
			aerr = NewAttError(ATTAttributeNotFound)
			return
		}
		aerr = psink.HandleSetNotify(central, char, enabled)
		if csink, ok := b.centrals.Get(central); ok {
			var derr error
			if aerr != nil {
				derr = aerr
			}
			csink.DeliverNotificationStateUpdate(peripheral, char.UUID, enabled, derr)
		}
	})
	if connErr != nil {
		return connErr
	}
	if aerr != nil {
		return aerr
	}
	return nil
}
