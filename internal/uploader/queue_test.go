package uploader

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-publisher/internal/weather"
)

func tagged(n float64) weather.Record {
	return weather.Record{weather.FieldTime: 1700000000 + n, weather.FieldOutTemp: n}
}

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue(0)
	for i := 1; i <= 3; i++ {
		q.Put(tagged(float64(i)))
	}

	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		e, err := q.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, float64(i), e.Record[weather.FieldOutTemp])
	}
	assert.Equal(t, 0, q.Len())
}

func TestQueue_MaxBacklogDropsOldest(t *testing.T) {
	q := NewQueue(2)

	q.Put(tagged(1))               // A
	q.Put(tagged(2))               // B
	_, dropped := q.Put(tagged(3)) // C

	require.Len(t, dropped, 1)
	assert.Equal(t, 1.0, dropped[0].Record[weather.FieldOutTemp])

	left := q.Drain()
	require.Len(t, left, 2)
	assert.Equal(t, 2.0, left[0].Record[weather.FieldOutTemp])
	assert.Equal(t, 3.0, left[1].Record[weather.FieldOutTemp])
}

func TestQueue_PutAssignsIDs(t *testing.T) {
	q := NewQueue(0)
	a, _ := q.Put(tagged(1))
	b, _ := q.Put(tagged(2))
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.Enqueued.IsZero())
}

func TestQueue_GetBlocksUntilPut(t *testing.T) {
	q := NewQueue(0)

	got := make(chan Entry, 1)
	go func() {
		e, err := q.Get(context.Background())
		if err == nil {
			got <- e
		}
	}()

	select {
	case <-got:
		t.Fatal("Get returned before anything was queued")
	case <-time.After(20 * time.Millisecond):
	}

	q.Put(tagged(7))
	select {
	case e := <-got:
		assert.Equal(t, 7.0, e.Record[weather.FieldOutTemp])
	case <-time.After(time.Second):
		t.Fatal("Get did not wake up")
	}
}

func TestQueue_GetHonoursCancel(t *testing.T) {
	q := NewQueue(0)
	ctx, cancel := context.WithCancel(context.Background())

	errs := make(chan error, 1)
	go func() {
		_, err := q.Get(ctx)
		errs <- err
	}()

	cancel()
	select {
	case err := <-errs:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Get ignored cancellation")
	}
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	q := NewQueue(0)

	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				q.Put(tagged(float64(i)))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, q.Len())
}

func TestQueue_TrimKeepsOrderUnderLoad(t *testing.T) {
	q := NewQueue(5)
	for i := 1; i <= 20; i++ {
		q.Put(tagged(float64(i)))
	}

	left := q.Drain()
	require.Len(t, left, 5)
	for i, e := range left {
		assert.Equal(t, float64(16+i), e.Record[weather.FieldOutTemp])
	}
}
