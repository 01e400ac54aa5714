package central_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/bleemu/central"
)

func TestDeliveryQueueFIFOOrdering(t *testing.T) {
	q := central.NewDeliveryQueue(16)
	defer q.Close()

	var mu sync.Mutex
	var order []int

	var wg sync.WaitGroup
	wg.Add(10)
	for i := 0; i < 10; i++ {
		i := i
		q.Submit("task", func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for submitted tasks")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 10)
	for i, v := range order {
		assert.Equal(t, i, v, "tasks must run in submission order")
	}
}

func TestDeliveryQueueRecentLabels(t *testing.T) {
	q := central.NewDeliveryQueue(16)
	defer q.Close()

	var wg sync.WaitGroup
	wg.Add(3)
	q.Submit("didDiscover", func() { wg.Done() })
	q.Submit("didConnect", func() { wg.Done() })
	q.Submit("didDisconnectPeripheral", func() { wg.Done() })
	wg.Wait()

	labels := q.RecentLabels()
	assert.Equal(t, []string{"didDiscover", "didConnect", "didDisconnectPeripheral"}, labels)

	// A second call drains nothing further until new tasks are submitted.
	assert.Empty(t, q.RecentLabels())
}
