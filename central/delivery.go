package central

import (
	"context"

	"github.com/srg/bleemu/internal/groutine"
	"github.com/srg/bleemu/internal/ringchan"
)

// DeliveryQueue is a cooperative, FIFO task pool with one worker: every
// delegate callback scheduled on it runs after every callback scheduled
// before it, on a goroutine distinct from the caller, so that reentrancy
// from application code back into the façade cannot deadlock (spec.md §5,
// §9 "delegate dispatch model").
type DeliveryQueue struct {
	tasks  chan func()
	ctx    context.Context
	cancel context.CancelFunc
	recent *ringchan.RingChannel[string]
}

// NewDeliveryQueue starts a queue with the given backlog capacity.
func NewDeliveryQueue(capacity int) *DeliveryQueue {
	if capacity <= 0 {
		capacity = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &DeliveryQueue{
		tasks:  make(chan func(), capacity),
		ctx:    ctx,
		cancel: cancel,
		recent: ringchan.New[string](32),
	}
	groutine.Go(ctx, "central-delivery-queue", func(ctx context.Context) {
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

// Submit schedules fn for execution, tagging it with label for
// introspection via RecentLabels.
func (q *DeliveryQueue) Submit(label string, fn func()) {
	q.recent.Send(label)
	select {
	case q.tasks <- fn:
	case <-q.ctx.Done():
	}
}

// RecentLabels returns the most recently submitted task labels, newest
// last, for debugging/tooling.
func (q *DeliveryQueue) RecentLabels() []string {
	var out []string
	for {
		v, ok := q.recent.TryReceive()
		if !ok {
			break
		}
		out = append(out, v)
	}
	return out
}

// Close stops the queue's worker goroutine.
func (q *DeliveryQueue) Close() {
	q.cancel()
}
