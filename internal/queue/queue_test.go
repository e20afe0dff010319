package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpowers/ratedispatch/internal/request"
)

func TestQueue_FIFO(t *testing.T) {
	q := New()
	for i := int64(0); i < 10; i++ {
		q.Push(request.New(i, 0))
	}

	ctx := context.Background()
	for i := int64(0); i < 10; i++ {
		r, ok := q.Pop(ctx)
		require.True(t, ok)
		assert.Equal(t, i, r.ID)
	}
}

func TestQueue_PopBlocksUntilPush(t *testing.T) {
	q := New()
	ctx := context.Background()

	done := make(chan request.Request, 1)
	go func() {
		r, ok := q.Pop(ctx)
		if ok {
			done <- r
		}
	}()

	time.Sleep(10 * time.Millisecond)
	q.Push(request.New(42, 0))

	select {
	case r := <-done:
		assert.Equal(t, int64(42), r.ID)
	case <-time.After(time.Second):
		t.Fatal("Pop did not unblock after Push")
	}
}

func TestQueue_PopReturnsFalseOnCancel(t *testing.T) {
	q := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := q.Pop(ctx)
	assert.False(t, ok)
}

func TestQueue_HighWaterCallback(t *testing.T) {
	var mu sync.Mutex
	var fires int
	q := New(WithHighWaterMark(2), WithHighWaterCallback(func(d int) {
		mu.Lock()
		fires++
		mu.Unlock()
	}))

	// fill the buffer exactly to capacity: no crossing yet.
	q.Push(request.New(0, 0))
	q.Push(request.New(1, 0))

	// the buffer is now full: this Push must block and fire the callback
	// exactly once, not once per Push past the mark.
	blocked := make(chan struct{})
	go func() {
		q.Push(request.New(2, 0))
		close(blocked)
	}()

	time.Sleep(10 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 1, fires)
	mu.Unlock()

	// the first Pop hands the freed slot directly to the waiting sender,
	// so the buffer stays full and the latch must not reset yet.
	_, ok := q.Pop(context.Background())
	require.True(t, ok)
	<-blocked

	// the second Pop has no waiting sender to refill it, so depth truly
	// drops below the mark and the latch resets.
	_, ok = q.Pop(context.Background())
	require.True(t, ok)

	// refill to capacity (no crossing: this is a plain successful Push).
	q.Push(request.New(3, 0))

	// saturated again: the reset latch lets the callback fire a second
	// time.
	go q.Push(request.New(4, 0))
	time.Sleep(10 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, 2, fires)
	mu.Unlock()
}
