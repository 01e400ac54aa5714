package bus

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/srg/bleemu/attr"
	"github.com/srg/bleemu/internal/groutine"
)

// UpdateValue publishes a new characteristic value to its subscribers
// (spec.md §4.2.6). Returns false without publishing anything when char
// isn't notifying (step 1) or when the peripheral/characteristic
// back-pressure counter is already at cap (step 2); otherwise the counter
// is incremented, a drain is scheduled for BackpressureProcessingDelay
// (step 3), and every subscribed central is delivered the value after
// NotificationDelay (step 4).
func (b *Bus) UpdateValue(peripheral uuid.UUID, char *attr.Characteristic, value []byte) bool {
	if !char.IsNotifying() {
		return false
	}

	cfg := b.config()
	key := charQueueKey{Peripheral: peripheral, Char: char.UUID.String()}

	accepted := true
	var recipients []uuid.UUID
	b.submit(func() {
		n, _ := b.notifyQueues.Get(key)
		cur := int32(0)
		if n != nil {
			cur = *n
		}
		if cfg.SimulateBackpressure && int(cur) >= cfg.MaxNotificationQueue {
			accepted = false
			return
		}
		cur++
		b.notifyQueues.Insert(key, &cur)
		recipients = append(recipients, char.Subscribers()...)
	})
	if !accepted {
		return false
	}

	char.SetValue(value)
	b.scheduleNotificationDrain(key, peripheral, cfg.BackpressureProcessingDelay)
	for _, central := range recipients {
		b.deliverNotification(central, peripheral, char, value, cfg.NotificationDelay)
	}
	return true
}

// scheduleNotificationDrain decrements key's counter after delay and, if it
// transitions from cap to cap-1, fires DeliverReady on the peripheral
// (peripheralManagerIsReady, spec.md §4.2.6 step 3).
func (b *Bus) scheduleNotificationDrain(key charQueueKey, peripheral uuid.UUID, delay time.Duration) {
	groutine.Go(nil, "notification-drain", func(ctx context.Context) {
		if err := b.sleep(ctx, delay); err != nil {
			return
		}
		b.submit(func() {
			cfg := b.config()
			n, ok := b.notifyQueues.Get(key)
			if !ok || *n <= 0 {
				return
			}
			wasAtCap := cfg.SimulateBackpressure && int(*n) >= cfg.MaxNotificationQueue
			*n--
			if wasAtCap {
				if psink, ok := b.peripherals.Get(peripheral); ok {
					psink.DeliverReady()
				}
			}
		})
	})
}

// deliverNotification sleeps NotificationDelay then delivers
// didUpdateValueFor to central.
func (b *Bus) deliverNotification(central, peripheral uuid.UUID, char *attr.Characteristic, value []byte, delay time.Duration) {
	groutine.Go(nil, "notify-deliver", func(ctx context.Context) {
		if err := b.sleep(ctx, delay); err != nil {
			return
		}
		b.submit(func() {
			if !b.isConnected(central, peripheral) {
				return
			}
			if csink, ok := b.centrals.Get(central); ok {
				csink.DeliverValueUpdate(peripheral, char.UUID, value, nil)
			}
		})
	})
}
