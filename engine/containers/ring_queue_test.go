package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingQueueFIFOOrder(t *testing.T) {
	rq := NewRingQueue[int](4)
	assert.True(t, rq.IsEmpty())

	for i := 1; i <= 4; i++ {
		require.NoError(t, rq.Enqueue(i))
	}
	assert.True(t, rq.IsFull())
	assert.Equal(t, 4, rq.Len())

	assert.Error(t, rq.Enqueue(5))

	front, err := rq.Peek()
	require.NoError(t, err)
	assert.Equal(t, 1, front)

	for i := 1; i <= 4; i++ {
		value, err := rq.Dequeue()
		require.NoError(t, err)
		assert.Equal(t, i, value)
	}
	assert.True(t, rq.IsEmpty())

	_, err = rq.Dequeue()
	assert.Error(t, err)
	_, err = rq.Peek()
	assert.Error(t, err)
}

func TestRingQueueWrapsAround(t *testing.T) {
	rq := NewRingQueue[string](2)

	require.NoError(t, rq.Enqueue("a"))
	require.NoError(t, rq.Enqueue("b"))

	value, err := rq.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, "a", value)

	require.NoError(t, rq.Enqueue("c"))

	value, err = rq.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, "b", value)

	value, err = rq.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, "c", value)
}
