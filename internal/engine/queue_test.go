package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nimbus/internal/testutil"
	"github.com/roach88/nimbus/internal/wheel"
)

func imp(delta int) wheel.Impulse {
	return wheel.Impulse{Axis: wheel.Vertical, Delta: delta, At: testutil.Epoch}
}

func TestImpulseQueue_OfferDequeue(t *testing.T) {
	q := NewImpulseQueue(4)

	require.True(t, q.Offer(imp(1)))
	got, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, imp(1), got)
}

func TestImpulseQueue_FIFO(t *testing.T) {
	q := NewImpulseQueue(4)
	for d := 1; d <= 3; d++ {
		q.Offer(imp(d))
	}
	for d := 1; d <= 3; d++ {
		got, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, d, got.Delta)
	}
}

func TestImpulseQueue_TryDequeue_Empty(t *testing.T) {
	q := NewImpulseQueue(4)
	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestImpulseQueue_FullRejects(t *testing.T) {
	q := NewImpulseQueue(2)

	assert.True(t, q.Offer(imp(1)))
	assert.True(t, q.Offer(imp(2)))
	assert.False(t, q.Offer(imp(3)), "offer must fail rather than block")
	assert.Equal(t, int64(1), q.Dropped())
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, 2, q.Cap())
}

func TestImpulseQueue_WrapsAround(t *testing.T) {
	q := NewImpulseQueue(3)
	for round := 0; round < 5; round++ {
		require.True(t, q.Offer(imp(round*2+1)))
		require.True(t, q.Offer(imp(round*2+2)))

		a, _ := q.TryDequeue()
		b, _ := q.TryDequeue()
		assert.Equal(t, round*2+1, a.Delta)
		assert.Equal(t, round*2+2, b.Delta)
	}
	assert.Zero(t, q.Len())
}

func TestImpulseQueue_DefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultQueueCapacity, NewImpulseQueue(0).Cap())
}

func TestImpulseQueue_WaitSignals(t *testing.T) {
	q := NewImpulseQueue(4)

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Offer(imp(1))
	}()

	select {
	case <-q.Wait():
	case <-time.After(time.Second):
		t.Fatal("Wait was not signalled")
	}
	_, ok := q.TryDequeue()
	assert.True(t, ok)
}

func TestImpulseQueue_Close(t *testing.T) {
	q := NewImpulseQueue(4)
	q.Offer(imp(1))
	q.Close()

	assert.Zero(t, q.Len(), "close discards queued impulses")
	assert.False(t, q.Offer(imp(2)))

	_, open := <-q.Wait()
	assert.False(t, open)

	q.Close()
}

func TestImpulseQueue_ConcurrentProducers(t *testing.T) {
	q := NewImpulseQueue(1000)
	const producers, each = 10, 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				q.Offer(imp(1))
			}
		}()
	}
	wg.Wait()

	n := 0
	for {
		if _, ok := q.TryDequeue(); !ok {
			break
		}
		n++
	}
	assert.Equal(t, producers*each, n)
	assert.Zero(t, q.Dropped())
}
