// Package detkernel implements a deterministic structured-concurrency
// runtime kernel: bounded, replayable execution of cooperative tasks
// grouped into hierarchical regions with explicit lifecycle, explicit
// obligations (linearity tokens), bounded channels, a timer wheel, and
// a full event-trace/replay subsystem.
//
// The runtime is intended as the execution substrate for
// latency-sensitive or safety-critical workloads — high-frequency
// trading bursts, automotive watchdog loops, router admission control
// — where every scheduling decision must be reproducible from a seed
// and fixture. There is exactly one scheduling domain: tasks never run
// concurrently, and every arena is a fixed-size static structure owned
// by the Kernel.
package detkernel

import (
	"time"

	"github.com/joeycumines/go-detkernel/adaptive"
	"github.com/joeycumines/go-detkernel/hindsight"
	"github.com/joeycumines/go-detkernel/trace"
)

// defaultCaptureArenaBytes sizes each region's fixed capture-byte
// pool, backing spawn_captured (spec §3). Not independently
// configurable via KernelOption; regions are cheap enough (default
// capacity 256) that a generous fixed per-region pool is affordable.
const defaultCaptureArenaBytes = 64 * 1024

// Kernel owns every fixed arena and subsystem: regions, tasks,
// obligations, channels, the timer wheel, the trace log, the
// hindsight ring, the error ledger, and the adaptive decision engine
// (spec §2).
type Kernel struct {
	opts *kernelOptions

	regions     *Arena[*regionEntity]
	tasks       *Arena[*taskEntity]
	obligations *Arena[*obligationEntity]
	channels    *Arena[*channelEntity]
	timers      *TimerWheel

	traceLog      *trace.Log
	hindsightRing *hindsight.Ring
	ledger        *ErrorLedger
	adaptiveE     *adaptive.Engine

	cancelChainLimit int
	cleanupAllowance int
	taskEpoch        uint64
}

// New constructs a Kernel with the given options applied over the
// spec's defaults.
func New(opts ...KernelOption) (*Kernel, error) {
	cfg, err := resolveKernelOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Kernel{
		opts:             cfg,
		regions:          NewArena[*regionEntity](KindRegion, cfg.regionCapacity),
		tasks:            NewArena[*taskEntity](KindTask, cfg.taskCapacity),
		obligations:      NewArena[*obligationEntity](KindObligation, cfg.obligationCapacity),
		channels:         NewArena[*channelEntity](KindChannel, cfg.channelCapacity),
		timers:           NewTimerWheel(cfg.timerCapacity, cfg.timerMaxDuration),
		traceLog:         trace.NewLog(cfg.traceRingCapacity),
		hindsightRing:    hindsight.NewRing(cfg.hindsightCapacity, hindsight.FlushOnGhostViolation|hindsight.FlushOnDigestDivergence),
		ledger:           NewErrorLedger(cfg.ledgerTaskSlots, cfg.ledgerDepth),
		adaptiveE:        adaptive.NewEngine(adaptive.Policy{Threshold: 0, DecisionBudget: adaptive.BudgetUnlimited}, cfg.ledgerTaskSlots),
		cancelChainLimit: cfg.cancelChainLimit,
		cleanupAllowance: cfg.cleanupAllowance,
	}, nil
}

func (k *Kernel) regionAt(h Handle) (*regionEntity, error) {
	pp, err := k.regions.Get(h)
	if err != nil {
		return nil, err
	}
	return *pp, nil
}

func (k *Kernel) taskAt(h Handle) (*taskEntity, error) {
	pp, err := k.tasks.Get(h)
	if err != nil {
		return nil, err
	}
	return *pp, nil
}

func (k *Kernel) obligationAt(h Handle) (*obligationEntity, error) {
	pp, err := k.obligations.Get(h)
	if err != nil {
		return nil, err
	}
	return *pp, nil
}

func (k *Kernel) channelAt(h Handle) (*channelEntity, error) {
	pp, err := k.channels.Get(h)
	if err != nil {
		return nil, err
	}
	return *pp, nil
}

// --- Region operations (spec §6) ---

// RegionOpen creates a new Open region.
func (k *Kernel) RegionOpen() (Handle, error) {
	h, _, err := k.regions.Alloc(newRegionEntity(k.opts.cleanupCapacity, defaultCaptureArenaBytes))
	if err != nil {
		return try(k, "Kernel.RegionOpen", NilHandle, err)
	}
	k.traceLog.Emit("region-open", uint64(h), 0, int32(StatusOK))
	return h, nil
}

// RegionClose requests an Open region begin closing (Open→Closing).
func (k *Kernel) RegionClose(region Handle) error {
	r, err := k.regionAt(region)
	if err != nil {
		return tryErr(k, "Kernel.RegionClose", err)
	}
	if err := r.transitionTo(RegionClosing); err != nil {
		return tryErr(k, "Kernel.RegionClose", err)
	}
	k.traceLog.Emit("region-close", uint64(region), 0, int32(StatusOK))
	return nil
}

// RegionGetState returns region's current lifecycle state.
func (k *Kernel) RegionGetState(region Handle) (RegionState, error) {
	r, err := k.regionAt(region)
	if err != nil {
		return try(k, "Kernel.RegionGetState", RegionState(0), err)
	}
	return r.getState(), nil
}

// RegionPoison sets region's one-way poisoned flag.
func (k *Kernel) RegionPoison(region Handle) error {
	r, err := k.regionAt(region)
	if err != nil {
		return tryErr(k, "Kernel.RegionPoison", err)
	}
	r.poison()
	return nil
}

// --- Task operations (spec §6) ---

// TaskSpawn spawns a task inside region, in state Created.
func (k *Kernel) TaskSpawn(region Handle, poll PollFunc, userData any) (Handle, error) {
	r, err := k.regionAt(region)
	if err != nil {
		return try(k, "Kernel.TaskSpawn", NilHandle, err)
	}
	if err := r.checkAdmission("Task.Spawn"); err != nil {
		return try(k, "Kernel.TaskSpawn", NilHandle, err)
	}
	k.taskEpoch++
	h, _, err := k.tasks.Alloc(newTaskEntity(region, poll, userData, k.taskEpoch))
	if err != nil {
		return try(k, "Kernel.TaskSpawn", NilHandle, err)
	}
	r.addTask(h)
	k.traceLog.Emit("task-spawn", uint64(h), uint64(region), int32(StatusOK))
	return h, nil
}

// TaskSpawnCaptured spawns a task whose user-data lives in a
// capture_bytes-sized slice bump-allocated from region's fixed capture
// arena, returning both the task handle and that slice.
func (k *Kernel) TaskSpawnCaptured(region Handle, poll PollFunc, captureBytes int, userData any) (Handle, []byte, error) {
	r, err := k.regionAt(region)
	if err != nil {
		return NilHandle, nil, tryErr(k, "Kernel.TaskSpawnCaptured", err)
	}
	if err := r.checkAdmission("Task.SpawnCaptured"); err != nil {
		return NilHandle, nil, tryErr(k, "Kernel.TaskSpawnCaptured", err)
	}
	captured, err := r.allocCapture(captureBytes)
	if err != nil {
		return NilHandle, nil, tryErr(k, "Kernel.TaskSpawnCaptured", err)
	}
	k.taskEpoch++
	h, _, err := k.tasks.Alloc(newTaskEntity(region, poll, userData, k.taskEpoch))
	if err != nil {
		return NilHandle, nil, tryErr(k, "Kernel.TaskSpawnCaptured", err)
	}
	r.addTask(h)
	k.traceLog.Emit("task-spawn-captured", uint64(h), uint64(region), int32(StatusOK))
	return h, captured, nil
}

// TaskGetState returns task's current lifecycle state.
func (k *Kernel) TaskGetState(task Handle) (TaskState, error) {
	t, err := k.taskAt(task)
	if err != nil {
		return try(k, "Kernel.TaskGetState", TaskState(0), err)
	}
	return t.getState(), nil
}

// TaskGetOutcome returns task's outcome, once Completed.
func (k *Kernel) TaskGetOutcome(task Handle) (Outcome, error) {
	t, err := k.taskAt(task)
	if err != nil {
		return try(k, "Kernel.TaskGetOutcome", Outcome{}, err)
	}
	outcome, ok := t.getOutcome()
	if !ok {
		return try(k, "Kernel.TaskGetOutcome", Outcome{}, NewFault(StatusTaskNotCompleted, "Task.GetOutcome", "task has not completed"))
	}
	return outcome, nil
}

// TaskCancel installs a cancel witness on task with the given reason,
// at phase Requested (spec §4.3).
func (k *Kernel) TaskCancel(task Handle, reason CancelReason) error {
	t, err := k.taskAt(task)
	if err != nil {
		return tryErr(k, "Kernel.TaskCancel", err)
	}
	return tryErr(k, "Kernel.TaskCancel", t.installWitness(task, t.region, PhaseRequested, reason))
}

// TaskFinalize drives a cooperatively-cancelled task to Completed with
// outcome Cancelled (spec: task.finalize).
func (k *Kernel) TaskFinalize(task Handle) error {
	t, err := k.taskAt(task)
	if err != nil {
		return tryErr(k, "Kernel.TaskFinalize", err)
	}
	return tryErr(k, "Kernel.TaskFinalize", t.finalize())
}

// TaskCheckpoint reports task's current cancellation state (spec:
// task.checkpoint).
func (k *Kernel) TaskCheckpoint(task Handle) (Checkpoint, error) {
	t, err := k.taskAt(task)
	if err != nil {
		return try(k, "Kernel.TaskCheckpoint", Checkpoint{}, err)
	}
	return t.checkpoint(), nil
}

// --- Obligation operations (spec §6) ---

// ObligationReserve reserves an obligation against region.
func (k *Kernel) ObligationReserve(region Handle) (Handle, error) {
	r, err := k.regionAt(region)
	if err != nil {
		return try(k, "Kernel.ObligationReserve", NilHandle, err)
	}
	if err := r.checkAdmission("Obligation.Reserve"); err != nil {
		return try(k, "Kernel.ObligationReserve", NilHandle, err)
	}
	h, _, err := k.obligations.Alloc(newObligationEntity(region))
	if err != nil {
		return try(k, "Kernel.ObligationReserve", NilHandle, err)
	}
	r.addObligation(h)
	k.traceLog.Emit("obligation-reserve", uint64(h), uint64(region), int32(StatusOK))
	return h, nil
}

// ObligationCommit resolves obligation as Committed.
func (k *Kernel) ObligationCommit(obligation Handle) error {
	o, err := k.obligationAt(obligation)
	if err != nil {
		return tryErr(k, "Kernel.ObligationCommit", err)
	}
	if err := o.commit(); err != nil {
		return tryErr(k, "Kernel.ObligationCommit", err)
	}
	k.traceLog.Emit("obligation-commit", uint64(obligation), 0, int32(StatusOK))
	return nil
}

// ObligationAbort resolves obligation as Aborted.
func (k *Kernel) ObligationAbort(obligation Handle) error {
	o, err := k.obligationAt(obligation)
	if err != nil {
		return tryErr(k, "Kernel.ObligationAbort", err)
	}
	if err := o.abort(); err != nil {
		return tryErr(k, "Kernel.ObligationAbort", err)
	}
	k.traceLog.Emit("obligation-abort", uint64(obligation), 0, int32(StatusOK))
	return nil
}

// --- Channel operations (spec §6) ---

// ChannelCreate creates a bounded channel of the given fixed capacity,
// owned by region.
func (k *Kernel) ChannelCreate(region Handle, capacity int) (Handle, error) {
	r, err := k.regionAt(region)
	if err != nil {
		return try(k, "Kernel.ChannelCreate", NilHandle, err)
	}
	if err := r.checkAdmission("Channel.Create"); err != nil {
		return try(k, "Kernel.ChannelCreate", NilHandle, err)
	}
	if capacity <= 0 {
		return try(k, "Kernel.ChannelCreate", NilHandle, NewFault(StatusInvalidArgument, "Channel.Create", "capacity must be positive"))
	}
	entity := newChannelEntity(region, capacity)
	h, v, err := k.channels.Alloc(entity)
	if err != nil {
		return try(k, "Kernel.ChannelCreate", NilHandle, err)
	}
	(*v).self = h
	k.traceLog.Emit("channel-create", uint64(h), uint64(region), int32(StatusOK))
	return h, nil
}

// ChannelCloseSender closes the sending half of channel.
func (k *Kernel) ChannelCloseSender(channel Handle) error {
	c, err := k.channelAt(channel)
	if err != nil {
		return tryErr(k, "Kernel.ChannelCloseSender", err)
	}
	return tryErr(k, "Kernel.ChannelCloseSender", c.closeSender())
}

// ChannelCloseReceiver closes the receiving half of channel.
func (k *Kernel) ChannelCloseReceiver(channel Handle) error {
	c, err := k.channelAt(channel)
	if err != nil {
		return tryErr(k, "Kernel.ChannelCloseReceiver", err)
	}
	return tryErr(k, "Kernel.ChannelCloseReceiver", c.closeReceiver())
}

// ChannelTryReserve reserves one slot on channel, returning a permit.
func (k *Kernel) ChannelTryReserve(channel Handle) (Permit, error) {
	c, err := k.channelAt(channel)
	if err != nil {
		return try(k, "Kernel.ChannelTryReserve", Permit{}, err)
	}
	permit, err := c.tryReserve()
	return try(k, "Kernel.ChannelTryReserve", permit, err)
}

// ChannelPermitSend consumes permit, enqueuing value at the tail.
func (k *Kernel) ChannelPermitSend(permit Permit, value any) error {
	c, err := k.channelAt(permit.Channel)
	if err != nil {
		return tryErr(k, "Kernel.ChannelPermitSend", err)
	}
	return tryErr(k, "Kernel.ChannelPermitSend", c.permitSend(permit, value))
}

// ChannelPermitAbort consumes permit without enqueueing.
func (k *Kernel) ChannelPermitAbort(permit Permit) error {
	c, err := k.channelAt(permit.Channel)
	if err != nil {
		return tryErr(k, "Kernel.ChannelPermitAbort", err)
	}
	return tryErr(k, "Kernel.ChannelPermitAbort", c.permitAbort(permit))
}

// ChannelTryRecv dequeues the head value from channel.
func (k *Kernel) ChannelTryRecv(channel Handle) (any, error) {
	c, err := k.channelAt(channel)
	if err != nil {
		return try[any](k, "Kernel.ChannelTryRecv", nil, err)
	}
	value, err := c.tryRecv()
	return try(k, "Kernel.ChannelTryRecv", value, err)
}

// ChannelGetState returns channel's current lifecycle state.
func (k *Kernel) ChannelGetState(channel Handle) (ChannelState, error) {
	c, err := k.channelAt(channel)
	if err != nil {
		return try(k, "Kernel.ChannelGetState", ChannelState(0), err)
	}
	return c.getState(), nil
}

// ChannelQueueLen returns the number of committed values queued on
// channel.
func (k *Kernel) ChannelQueueLen(channel Handle) (int, error) {
	c, err := k.channelAt(channel)
	if err != nil {
		return try(k, "Kernel.ChannelQueueLen", 0, err)
	}
	return c.queueLength(), nil
}

// ChannelReservedCount returns the number of outstanding permits on
// channel.
func (k *Kernel) ChannelReservedCount(channel Handle) (int, error) {
	c, err := k.channelAt(channel)
	if err != nil {
		return try(k, "Kernel.ChannelReservedCount", 0, err)
	}
	return c.reservedCount(), nil
}

// --- Timer wheel operations (spec §6) ---

// TimerRegister schedules a timer for entityID/aux to fire at
// deadline.
func (k *Kernel) TimerRegister(deadline time.Time, entityID, aux uint64) (Handle, error) {
	h, err := k.timers.Register(deadline, entityID, aux)
	return try(k, "Kernel.TimerRegister", h, err)
}

// TimerCancel cancels a registered timer.
func (k *Kernel) TimerCancel(timer Handle) error {
	return tryErr(k, "Kernel.TimerCancel", k.timers.Cancel(timer))
}

// TimerUpdate reschedules timer to a new deadline.
func (k *Kernel) TimerUpdate(timer Handle, newDeadline time.Time) (Handle, error) {
	h, err := k.timers.Update(timer, newDeadline)
	return try(k, "Kernel.TimerUpdate", h, err)
}

// TimerCollectExpired collects up to max expired timers at now.
func (k *Kernel) TimerCollectExpired(now time.Time, max int) []TimerFire {
	return k.timers.CollectExpired(now, max)
}

// TimerAdvance moves the timer wheel's now forward.
func (k *Kernel) TimerAdvance(now time.Time) {
	k.timers.Advance(now)
}

// TimerSetMaxDuration updates the timer wheel's duration ceiling.
func (k *Kernel) TimerSetMaxDuration(d time.Duration) {
	k.timers.SetMaxDuration(d)
}

// --- Trace operations (spec §6) ---

// TraceReset resets the trace log (the only way its hash chain
// restarts).
func (k *Kernel) TraceReset() { k.traceLog.Reset() }

// TraceEmit appends a trace event.
func (k *Kernel) TraceEmit(kind string, entity, aux uint64) trace.Event {
	return k.traceLog.Emit(kind, entity, aux, int32(StatusOK))
}

// TraceEventCount returns the number of retained trace events.
func (k *Kernel) TraceEventCount() int { return k.traceLog.EventCount() }

// TraceEventGet returns the i-th retained trace event.
func (k *Kernel) TraceEventGet(i int) (trace.Event, bool) { return k.traceLog.EventGet(i) }

// TraceDigest returns the trace log's current hash-chain digest.
func (k *Kernel) TraceDigest() uint64 { return k.traceLog.Digest() }

// TraceLoadReference stores an expected event sequence for later
// ReplayVerify.
func (k *Kernel) TraceLoadReference(events []trace.Event) { k.traceLog.LoadReference(events) }

// TraceReplayVerify compares the live trace against the loaded
// reference.
func (k *Kernel) TraceReplayVerify() trace.ReplayResult { return k.traceLog.ReplayVerify() }

// --- Hindsight operations (spec §6) ---

// HindsightReset clears the hindsight ring.
func (k *Kernel) HindsightReset() { k.hindsightRing.Reset() }

// HindsightLog records one nondeterminism-boundary crossing.
func (k *Kernel) HindsightLog(kind hindsight.BoundaryKind, entityID, value uint64) hindsight.Entry {
	return k.hindsightRing.Log(kind, entityID, value, k.traceLog.Sequence())
}

// HindsightFlushJSON serialises the hindsight ring's retained window.
func (k *Kernel) HindsightFlushJSON() ([]byte, error) { return k.hindsightRing.FlushJSON() }

// HindsightDigest returns the hindsight ring's independent digest.
func (k *Kernel) HindsightDigest() uint64 { return k.hindsightRing.Digest() }

// HindsightCheckDivergence compares expected against the hindsight
// ring's live digest.
func (k *Kernel) HindsightCheckDivergence(expected uint64) (match, shouldFlush bool) {
	return k.hindsightRing.CheckDivergence(expected)
}

// HindsightSetPolicy replaces the hindsight ring's auto-flush policy.
func (k *Kernel) HindsightSetPolicy(flags hindsight.PolicyFlags) { k.hindsightRing.SetPolicy(flags) }

// --- Adaptive decision operations (spec §6) ---

// AdaptiveSetPolicy replaces the adaptive engine's confidence
// threshold and decision budget.
func (k *Kernel) AdaptiveSetPolicy(threshold adaptive.Q0_32, budget int64) {
	k.adaptiveE.SetPolicy(adaptive.Policy{Threshold: threshold, DecisionBudget: budget})
}

// AdaptiveDecide evaluates surface against posterior/confidence and
// records the decision to the evidence ledger.
func (k *Kernel) AdaptiveDecide(surface adaptive.Surface, posterior []adaptive.Q0_32, confidence adaptive.Q0_32, evidence []uint64) adaptive.Decision {
	return k.adaptiveE.Decide(surface, posterior, confidence, evidence)
}

// AdaptiveLedgerGet returns the i-th retained adaptive ledger entry.
func (k *Kernel) AdaptiveLedgerGet(i int) (adaptive.LedgerEntry, bool) {
	return k.adaptiveE.LedgerGet(i)
}

// AdaptiveLedgerDigest returns the adaptive ledger's digest.
func (k *Kernel) AdaptiveLedgerDigest() uint64 { return k.adaptiveE.LedgerDigest() }

// ErrorLedgerEntries returns the retained diagnostic ledger entries
// for task.
func (k *Kernel) ErrorLedgerEntries(task Handle) []LedgerEntry { return k.ledger.Entries(task) }
