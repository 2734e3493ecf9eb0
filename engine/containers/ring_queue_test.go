package containers

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingQueueFIFO(t *testing.T) {
	rq := NewRingQueue[int](3)
	assert.True(t, rq.IsEmpty())

	for i := 1; i <= 3; i++ {
		require.NoError(t, rq.Enqueue(i))
	}
	assert.True(t, rq.IsFull())
	assert.True(t, errors.Is(rq.Enqueue(4), ErrQueueFull))

	v, err := rq.Peek()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	for i := 1; i <= 3; i++ {
		v, err := rq.Dequeue()
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
	_, err = rq.Dequeue()
	assert.True(t, errors.Is(err, ErrQueueEmpty))
}

func TestRingQueuePushDropsOldest(t *testing.T) {
	rq := NewRingQueue[string](2)
	rq.Push("a")
	rq.Push("b")
	rq.Push("c")
	assert.Equal(t, 2, rq.Len())

	var got []string
	rq.Each(func(s string) { got = append(got, s) })
	assert.Equal(t, []string{"b", "c"}, got)

	empty := NewRingQueue[string](0)
	empty.Push("x")
	assert.Zero(t, empty.Len())
}
