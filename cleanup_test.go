package detkernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupStack_DrainsLIFO(t *testing.T) {
	c := NewCleanupStack(4)
	var order []int
	_, err := c.Push(func() { order = append(order, 1) })
	require.NoError(t, err)
	_, err = c.Push(func() { order = append(order, 2) })
	require.NoError(t, err)
	_, err = c.Push(func() { order = append(order, 3) })
	require.NoError(t, err)

	c.Drain()
	assert.Equal(t, []int{3, 2, 1}, order)
	assert.True(t, c.Drained())
}

func TestCleanupStack_PopSkipsCallback(t *testing.T) {
	c := NewCleanupStack(4)
	var ran bool
	h, err := c.Push(func() { ran = true })
	require.NoError(t, err)
	require.NoError(t, c.Pop(h))

	c.Drain()
	assert.False(t, ran)
}

func TestCleanupStack_PopStaleHandleFails(t *testing.T) {
	c := NewCleanupStack(2)
	h, err := c.Push(func() {})
	require.NoError(t, err)
	require.NoError(t, c.Pop(h))

	err = c.Pop(h)
	require.Error(t, err)
	assert.Equal(t, StatusStaleHandle, StatusOf(err))
}

func TestCleanupStack_ExhaustionReported(t *testing.T) {
	c := NewCleanupStack(1)
	_, err := c.Push(func() {})
	require.NoError(t, err)
	_, err = c.Push(func() {})
	require.Error(t, err)
	assert.Equal(t, StatusResourceExhausted, StatusOf(err))
}

func TestCleanupStack_PushAfterDrainResets(t *testing.T) {
	c := NewCleanupStack(2)
	_, err := c.Push(func() {})
	require.NoError(t, err)
	c.Drain()
	assert.True(t, c.Drained())

	var ran bool
	_, err = c.Push(func() { ran = true })
	require.NoError(t, err)
	assert.False(t, c.Drained())
	c.Drain()
	assert.True(t, ran)
}
