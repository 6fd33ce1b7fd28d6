package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingQueue(t *testing.T) {
	q := NewRingQueue[int](3)
	assert.True(t, q.IsEmpty())

	_, err := q.Dequeue()
	assert.ErrorIs(t, err, ErrQueueEmpty)
	_, err = q.Peek()
	assert.ErrorIs(t, err, ErrQueueEmpty)

	for i := 1; i <= 3; i++ {
		require.NoError(t, q.Enqueue(i))
	}
	assert.True(t, q.IsFull())
	assert.ErrorIs(t, q.Enqueue(4), ErrQueueFull)

	v, err := q.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	require.NoError(t, q.Enqueue(4))
	v, err = q.Peek()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, 3, q.Len())
}

func TestRingQueuePushDropsOldest(t *testing.T) {
	q := NewRingQueue[string](2)
	q.Push("a")
	q.Push("b")
	q.Push("c")

	var got []string
	q.Each(func(s string) { got = append(got, s) })
	assert.Equal(t, []string{"b", "c"}, got)

	empty := NewRingQueue[string](0)
	empty.Push("x")
	assert.Equal(t, 0, empty.Len())
}
