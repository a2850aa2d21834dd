package detkernel

import (
	"testing"
	"time"

	"github.com/joeycumines/go-detkernel/adaptive"
	"github.com/joeycumines/go-detkernel/hindsight"
	"github.com/joeycumines/go-detkernel/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKernel_RegionLifecycle(t *testing.T) {
	k, err := New()
	require.NoError(t, err)

	region, err := k.RegionOpen()
	require.NoError(t, err)

	state, err := k.RegionGetState(region)
	require.NoError(t, err)
	assert.Equal(t, RegionOpen, state)

	require.NoError(t, k.RegionClose(region))
	state, err = k.RegionGetState(region)
	require.NoError(t, err)
	assert.Equal(t, RegionClosing, state)
}

func TestKernel_RegionPoisonBlocksAdmission(t *testing.T) {
	k, err := New()
	require.NoError(t, err)
	region, err := k.RegionOpen()
	require.NoError(t, err)

	require.NoError(t, k.RegionPoison(region))

	_, err = k.TaskSpawn(region, pollOk, nil)
	require.Error(t, err)
	assert.Equal(t, StatusRegionPoisoned, StatusOf(err))
}

func TestKernel_TaskSpawnAndGetOutcome(t *testing.T) {
	k, err := New()
	require.NoError(t, err)
	region, err := k.RegionOpen()
	require.NoError(t, err)

	task, err := k.TaskSpawn(region, pollOk, nil)
	require.NoError(t, err)

	_, err = k.TaskGetOutcome(task)
	require.Error(t, err)
	assert.Equal(t, StatusTaskNotCompleted, StatusOf(err))

	_, err = k.SchedulerRun(region, NewBudget(4), time.Unix(0, 0))
	require.NoError(t, err)

	outcome, err := k.TaskGetOutcome(task)
	require.NoError(t, err)
	assert.Equal(t, SeverityOk, outcome.Severity)
}

func TestKernel_TaskSpawnCapturedBumpAllocates(t *testing.T) {
	k, err := New()
	require.NoError(t, err)
	region, err := k.RegionOpen()
	require.NoError(t, err)

	task, buf, err := k.TaskSpawnCaptured(region, pollOk, 16, nil)
	require.NoError(t, err)
	assert.NotEqual(t, NilHandle, task)
	assert.Len(t, buf, 16)
}

func TestKernel_ObligationReserveCommit(t *testing.T) {
	k, err := New()
	require.NoError(t, err)
	region, err := k.RegionOpen()
	require.NoError(t, err)

	obligation, err := k.ObligationReserve(region)
	require.NoError(t, err)
	require.NoError(t, k.ObligationCommit(obligation))

	err = k.ObligationAbort(obligation)
	require.Error(t, err)
	assert.Equal(t, StatusObligationAlreadyResolved, StatusOf(err))
}

func TestKernel_RegionDrainLeaksReservedObligation(t *testing.T) {
	k, err := New()
	require.NoError(t, err)
	region, err := k.RegionOpen()
	require.NoError(t, err)

	obligation, err := k.ObligationReserve(region)
	require.NoError(t, err)

	status, err := k.RegionDrain(region, NewBudget(100), time.Unix(0, 0))
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)

	state, err := k.RegionGetState(region)
	require.NoError(t, err)
	assert.Equal(t, RegionClosed, state)

	o, err := k.obligationAt(obligation)
	require.NoError(t, err)
	assert.Equal(t, ObligationLeaked, o.getState())
}

func TestKernel_ChannelRoundTrip(t *testing.T) {
	k, err := New()
	require.NoError(t, err)
	region, err := k.RegionOpen()
	require.NoError(t, err)

	channel, err := k.ChannelCreate(region, 2)
	require.NoError(t, err)

	permit, err := k.ChannelTryReserve(channel)
	require.NoError(t, err)
	require.NoError(t, k.ChannelPermitSend(permit, "a"))

	n, err := k.ChannelQueueLen(channel)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	v, err := k.ChannelTryRecv(channel)
	require.NoError(t, err)
	assert.Equal(t, "a", v)
}

func TestKernel_TimerRoundTrip(t *testing.T) {
	k, err := New()
	require.NoError(t, err)
	base := time.Unix(0, 0)

	_, err = k.TimerRegister(base.Add(10*time.Millisecond), 42, 7)
	require.NoError(t, err)

	fired := k.TimerCollectExpired(base.Add(20*time.Millisecond), 4)
	require.Len(t, fired, 1)
	assert.Equal(t, uint64(42), fired[0].EntityID)
	assert.Equal(t, uint64(7), fired[0].Aux)
}

func TestKernel_TraceDigestChangesOnEmit(t *testing.T) {
	k, err := New()
	require.NoError(t, err)
	before := k.TraceDigest()
	k.TraceEmit("custom-event", 1, 2)
	after := k.TraceDigest()
	assert.NotEqual(t, before, after)
}

func TestKernel_TraceReplayVerifyMatchesRecordedReference(t *testing.T) {
	k, err := New()
	require.NoError(t, err)
	k.TraceEmit("a", 1, 0)
	k.TraceEmit("b", 2, 0)

	var events []trace.Event
	for i := 0; i < k.TraceEventCount(); i++ {
		e, ok := k.TraceEventGet(i)
		require.True(t, ok)
		events = append(events, e)
	}
	k.TraceLoadReference(events)

	result := k.TraceReplayVerify()
	assert.Equal(t, trace.ReplayMatch, result.Outcome)
}

func TestKernel_HindsightLogAndDigest(t *testing.T) {
	k, err := New()
	require.NoError(t, err)
	entry := k.HindsightLog(hindsight.BoundaryClockRead, 1, 99)
	assert.Equal(t, uint64(99), entry.Value)
	assert.NotZero(t, k.HindsightDigest())
}

func TestKernel_AdaptiveDecideRecordsLedgerEntry(t *testing.T) {
	k, err := New()
	require.NoError(t, err)
	surface := adaptive.Surface{
		Name:        "test-surface",
		ActionCount: 2,
		StateCount:  1,
		Loss: func(action, state int) adaptive.Q16_16 {
			return adaptive.FromInt(int32(action))
		},
		Fallback: 0,
	}
	decision := k.AdaptiveDecide(surface, []adaptive.Q0_32{1 << 31}, 1<<31, []uint64{1})
	assert.Equal(t, 0, decision.Action)

	_, ok := k.AdaptiveLedgerGet(0)
	assert.True(t, ok)
}

func TestKernel_FailingOperationRecordsErrorLedgerEntry(t *testing.T) {
	k, err := New()
	require.NoError(t, err)

	_, err = k.TaskGetState(Handle(999))
	require.Error(t, err)

	entries := k.ErrorLedgerEntries(NilHandle)
	require.NotEmpty(t, entries)
	last := entries[len(entries)-1]
	assert.Equal(t, StatusOf(err), last.Status)
	assert.Equal(t, "Kernel.TaskGetState", last.Operation)
	assert.NotEmpty(t, last.File)
}

func TestKernel_SchedulerRunRecordsLedgerEntryOnTaskFailure(t *testing.T) {
	k, err := New()
	require.NoError(t, err)
	region, err := k.RegionOpen()
	require.NoError(t, err)

	failing := func(Checkpoint) PollOutcome {
		return PollOutcome{Status: PollErr, Err: NewFault(StatusInvalidState, "test-task", "deliberate failure")}
	}
	task, err := k.TaskSpawn(region, failing, nil)
	require.NoError(t, err)

	_, err = k.SchedulerRun(region, NewBudget(4), time.Unix(0, 0))
	require.NoError(t, err)

	entries := k.ErrorLedgerEntries(task)
	require.NotEmpty(t, entries)
	assert.Equal(t, StatusInvalidState, entries[len(entries)-1].Status)
}

func TestKernel_SnapshotCapturesOwnedEntities(t *testing.T) {
	k, err := New()
	require.NoError(t, err)
	region, err := k.RegionOpen()
	require.NoError(t, err)

	task, err := k.TaskSpawn(region, pollOk, nil)
	require.NoError(t, err)
	obligation, err := k.ObligationReserve(region)
	require.NoError(t, err)
	channel, err := k.ChannelCreate(region, 1)
	require.NoError(t, err)

	snap, err := k.Snapshot(region)
	require.NoError(t, err)

	assert.Equal(t, region, snap.Region.Region)
	assert.Equal(t, 1, snap.Region.TaskCount)
	assert.Equal(t, 1, snap.Region.ObligationCount)
	require.Len(t, snap.Tasks, 1)
	assert.Equal(t, task, snap.Tasks[0].Task)
	require.Len(t, snap.Obligations, 1)
	assert.Equal(t, obligation, snap.Obligations[0].Obligation)
	require.Len(t, snap.Channels, 1)
	assert.Equal(t, channel, snap.Channels[0].Channel)
}
