package detkernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel_ReserveSendRecv(t *testing.T) {
	c := newChannelEntity(1, 2)
	c.self = NewHandle(KindChannel, 0, 0)

	p1, err := c.tryReserve()
	require.NoError(t, err)
	p2, err := c.tryReserve()
	require.NoError(t, err)

	_, err = c.tryReserve()
	require.Error(t, err)
	assert.Equal(t, StatusChannelFull, StatusOf(err))

	require.NoError(t, c.permitSend(p1, "a"))
	require.NoError(t, c.permitSend(p2, "b"))

	v, err := c.tryRecv()
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	v, err = c.tryRecv()
	require.NoError(t, err)
	assert.Equal(t, "b", v)

	_, err = c.tryRecv()
	require.Error(t, err)
	assert.Equal(t, StatusWouldBlock, StatusOf(err))
}

func TestChannel_PermitAbortReleasesSlot(t *testing.T) {
	c := newChannelEntity(1, 1)
	p, err := c.tryReserve()
	require.NoError(t, err)
	require.NoError(t, c.permitAbort(p))
	assert.Equal(t, 0, c.reservedCount())

	_, err = c.tryReserve()
	require.NoError(t, err)
}

func TestChannel_PermitDoubleUseFails(t *testing.T) {
	c := newChannelEntity(1, 1)
	p, err := c.tryReserve()
	require.NoError(t, err)
	require.NoError(t, c.permitSend(p, 1))

	err = c.permitSend(p, 2)
	require.Error(t, err)
	assert.Equal(t, StatusInvalidState, StatusOf(err))
}

func TestChannel_CloseSenderThenReceiverReachesFullyClosed(t *testing.T) {
	c := newChannelEntity(1, 1)
	require.NoError(t, c.closeSender())
	assert.Equal(t, ChannelSenderClosed, c.getState())

	// closing the sender twice must fail, not silently succeed by
	// routing through the fully-closed edge meant for the other half.
	err := c.closeSender()
	require.Error(t, err)
	assert.Equal(t, StatusInvalidTransition, StatusOf(err))

	require.NoError(t, c.closeReceiver())
	assert.Equal(t, ChannelFullyClosed, c.getState())
}

func TestChannel_CloseReceiverDiscardsQueue(t *testing.T) {
	c := newChannelEntity(1, 2)
	p, err := c.tryReserve()
	require.NoError(t, err)
	require.NoError(t, c.permitSend(p, "x"))
	require.Equal(t, 1, c.queueLength())

	require.NoError(t, c.closeReceiver())
	assert.Equal(t, 0, c.queueLength())
	assert.Equal(t, ChannelReceiverClosed, c.getState())
}

func TestChannel_TryReserveAfterSenderClosedIsDisconnected(t *testing.T) {
	c := newChannelEntity(1, 1)
	require.NoError(t, c.closeSender())
	_, err := c.tryReserve()
	require.Error(t, err)
	assert.Equal(t, StatusDisconnected, StatusOf(err))
}

func TestChannel_TryRecvAfterSenderClosedDrainsThenDisconnects(t *testing.T) {
	c := newChannelEntity(1, 1)
	p, err := c.tryReserve()
	require.NoError(t, err)
	require.NoError(t, c.permitSend(p, "last"))
	require.NoError(t, c.closeSender())

	v, err := c.tryRecv()
	require.NoError(t, err)
	assert.Equal(t, "last", v)

	_, err = c.tryRecv()
	require.Error(t, err)
	assert.Equal(t, StatusDisconnected, StatusOf(err))
}
