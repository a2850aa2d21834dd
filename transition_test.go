package detkernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRegionTransition(t *testing.T) {
	assert.NoError(t, validateRegionTransition(RegionOpen, RegionClosing))
	assert.NoError(t, validateRegionTransition(RegionClosing, RegionDraining))
	assert.NoError(t, validateRegionTransition(RegionClosing, RegionFinalizing))
	assert.NoError(t, validateRegionTransition(RegionFinalizing, RegionClosed))
	assert.Error(t, validateRegionTransition(RegionOpen, RegionClosed))
	assert.Error(t, validateRegionTransition(RegionClosed, RegionOpen))
}

func TestValidateTaskTransition(t *testing.T) {
	assert.NoError(t, validateTaskTransition(TaskCreated, TaskRunning))
	assert.NoError(t, validateTaskTransition(TaskRunning, TaskCancelRequested))
	assert.NoError(t, validateTaskTransition(TaskCancelRequested, TaskCancelRequested))
	assert.NoError(t, validateTaskTransition(TaskCancelling, TaskFinalizing))
	assert.Error(t, validateTaskTransition(TaskCompleted, TaskRunning))
	assert.Error(t, validateTaskTransition(TaskCreated, TaskFinalizing))
}

func TestValidateObligationTransition(t *testing.T) {
	assert.NoError(t, validateObligationTransition(ObligationReserved, ObligationCommitted))
	assert.NoError(t, validateObligationTransition(ObligationReserved, ObligationAborted))
	assert.NoError(t, validateObligationTransition(ObligationReserved, ObligationLeaked))
	assert.Error(t, validateObligationTransition(ObligationCommitted, ObligationAborted))
}

func TestValidateChannelTransition(t *testing.T) {
	assert.NoError(t, validateChannelTransition(ChannelOpen, ChannelSenderClosed))
	assert.NoError(t, validateChannelTransition(ChannelOpen, ChannelReceiverClosed))
	assert.NoError(t, validateChannelTransition(ChannelSenderClosed, ChannelFullyClosed))
	assert.NoError(t, validateChannelTransition(ChannelReceiverClosed, ChannelFullyClosed))
	assert.Error(t, validateChannelTransition(ChannelSenderClosed, ChannelReceiverClosed))
	assert.Error(t, validateChannelTransition(ChannelFullyClosed, ChannelOpen))
}

func TestStateStringers(t *testing.T) {
	assert.Equal(t, "Open", RegionOpen.String())
	assert.Equal(t, "Unknown", RegionState(255).String())
	assert.Equal(t, "Created", TaskCreated.String())
	assert.Equal(t, "Reserved", ObligationReserved.String())
	assert.Equal(t, "Open", ChannelOpen.String())
}
