package fanout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue[int](0, OverflowReject)
	for i := range 200 {
		_, err := q.Push(i)
		require.NoError(t, err)
	}
	assert.Equal(t, 200, q.Len())

	ctx := context.Background()
	for i := range 200 {
		v, ok := q.Pop(ctx)
		require.True(t, ok)
		require.Equal(t, i, v)
	}
	assert.Equal(t, 0, q.Len())
}

func TestQueueInterleaved(t *testing.T) {
	q := NewQueue[int](0, OverflowReject)
	ctx := context.Background()
	next := 0
	for i := range 500 {
		_, _ = q.Push(i)
		if i%3 == 0 {
			v, ok := q.Pop(ctx)
			require.True(t, ok)
			require.Equal(t, next, v)
			next++
		}
	}
	for q.Len() > 0 {
		v, _ := q.Pop(ctx)
		require.Equal(t, next, v)
		next++
	}
	assert.Equal(t, 500, next)
}

func TestQueueDrainsAfterClose(t *testing.T) {
	q := NewQueue[string](0, OverflowReject)
	_, _ = q.Push("a")
	_, _ = q.Push("b")
	q.Close()

	_, err := q.Push("c")
	assert.ErrorIs(t, err, ErrQueueClosed)
	assert.True(t, q.Closed())

	ctx := context.Background()
	v, ok := q.Pop(ctx)
	assert.True(t, ok)
	assert.Equal(t, "a", v)
	v, ok = q.Pop(ctx)
	assert.True(t, ok)
	assert.Equal(t, "b", v)
	_, ok = q.Pop(ctx)
	assert.False(t, ok)
}

func TestQueuePopWakesOnPush(t *testing.T) {
	q := NewQueue[int](0, OverflowReject)
	got := make(chan int, 1)
	go func() {
		v, _ := q.Pop(context.Background())
		got <- v
	}()

	time.Sleep(10 * time.Millisecond)
	_, _ = q.Push(42)

	select {
	case v := <-got:
		assert.Equal(t, 42, v)
	case <-time.After(2 * time.Second):
		t.Fatal("Pop did not wake up")
	}
}

func TestQueuePopWakesOnClose(t *testing.T) {
	q := NewQueue[int](0, OverflowReject)
	done := make(chan bool, 1)
	go func() {
		_, ok := q.Pop(context.Background())
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("Pop did not return after Close")
	}
}

func TestQueuePopContextCancel(t *testing.T) {
	q := NewQueue[int](0, OverflowReject)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, ok := q.Pop(ctx)
	assert.False(t, ok)
}

func TestQueueBoundedReject(t *testing.T) {
	q := NewQueue[int](2, OverflowReject)
	_, err := q.Push(1)
	require.NoError(t, err)
	_, err = q.Push(2)
	require.NoError(t, err)

	_, err = q.Push(3)
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, 2, q.Len())
}

func TestQueueBoundedDropOldest(t *testing.T) {
	q := NewQueue[int](2, OverflowDropOldest)
	_, _ = q.Push(1)
	_, _ = q.Push(2)

	dropped, err := q.Push(3)
	require.NoError(t, err)
	assert.True(t, dropped)

	ctx := context.Background()
	v, _ := q.Pop(ctx)
	assert.Equal(t, 2, v)
	v, _ = q.Pop(ctx)
	assert.Equal(t, 3, v)
}
