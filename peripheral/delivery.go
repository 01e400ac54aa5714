package peripheral

import (
	"context"

	"github.com/srg/bleemu/internal/groutine"
)

// deliveryQueue is the peripheral façade's own FIFO delegate dispatch
// queue, mirroring central.DeliveryQueue (spec.md §5, §9). Kept as a
// private duplicate rather than importing package central, since C3 and
// C4 are siblings with no dependency between them.
type deliveryQueue struct {
	tasks  chan func()
	ctx    context.Context
	cancel context.CancelFunc
}

func newDeliveryQueue(capacity int) *deliveryQueue {
	if capacity <= 0 {
		capacity = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &deliveryQueue{tasks: make(chan func(), capacity), ctx: ctx, cancel: cancel}
	groutine.Go(ctx, "peripheral-delivery-queue", func(ctx context.Context) {
		for {
			select {
			case fn := <-q.tasks:
				fn()
			case <-ctx.Done():
				return
			}
		}
	})
	return q
}

func (q *deliveryQueue) submit(fn func()) {
	select {
	case q.tasks <- fn:
	case <-q.ctx.Done():
	}
}

func (q *deliveryQueue) close() {
	q.cancel()
}
