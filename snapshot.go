package detkernel

// RegionSnapshot is a plain-struct, pointer-free capture of one
// region's lifecycle state at the moment Snapshot was called (spec
// §4.11).
type RegionSnapshot struct {
	Region           Handle
	State            RegionState
	Poisoned         bool
	TaskCount        int
	ObligationCount  int
	CleanupDepth     int
	CleanupDrained   bool
}

// TaskSnapshot is a plain-struct capture of one task's state.
type TaskSnapshot struct {
	Task       Handle
	Region     Handle
	State      TaskState
	Epoch      uint64
	HasOutcome bool
	Outcome    Outcome
	Cancelled  bool
	Reason     CancelReason
}

// ObligationSnapshot is a plain-struct capture of one obligation's
// state.
type ObligationSnapshot struct {
	Obligation Handle
	Region     Handle
	State      ObligationState
}

// ChannelSnapshot is a plain-struct capture of one channel's state.
type ChannelSnapshot struct {
	Channel  Handle
	Region   Handle
	State    ChannelState
	Capacity int
	QueueLen int
	Reserved int
}

// TimerSnapshot reports the wheel's live count at snapshot time; the
// wheel itself carries no region affiliation, so it is a kernel-wide
// rather than per-region figure.
type TimerSnapshot struct {
	Pending int
}

// Snapshot is an aggregate, pointer-free point-in-time capture of a
// region and everything it owns, safe to retain and diff after the
// live arenas have moved on (spec §4.11). It mirrors the teacher's
// PerformanceEntry snapshot-of-state pattern.
type Snapshot struct {
	Region      RegionSnapshot
	Tasks       []TaskSnapshot
	Obligations []ObligationSnapshot
	Channels    []ChannelSnapshot
	Timers      TimerSnapshot
	TraceDigest uint64
}

// Snapshot captures region and everything it owns: its tasks,
// obligations, and the channels it owns, plus the kernel-wide timer
// count and the current trace digest (spec: snapshot).
func (k *Kernel) Snapshot(region Handle) (Snapshot, error) {
	r, err := k.regionAt(region)
	if err != nil {
		return try(k, "Kernel.Snapshot", Snapshot{}, err)
	}

	snap := Snapshot{
		Region: RegionSnapshot{
			Region:          region,
			State:           r.state,
			Poisoned:        r.poisoned,
			TaskCount:       r.taskCount(),
			ObligationCount: r.obligationCount(),
			CleanupDepth:    r.cleanup.top,
			CleanupDrained:  r.cleanup.Drained(),
		},
		Timers:      TimerSnapshot{Pending: k.timers.Pending()},
		TraceDigest: k.traceLog.Digest(),
	}

	for _, h := range k.regionTaskHandles(region) {
		t, err := k.taskAt(h)
		if err != nil {
			continue
		}
		outcome, hasOutcome := t.getOutcome()
		cp := t.checkpoint()
		snap.Tasks = append(snap.Tasks, TaskSnapshot{
			Task:       h,
			Region:     region,
			State:      t.state,
			Epoch:      t.epoch,
			HasOutcome: hasOutcome,
			Outcome:    outcome,
			Cancelled:  cp.Cancelled,
			Reason:     cp.Reason,
		})
	}

	for _, h := range k.regionObligationHandles(region) {
		o, err := k.obligationAt(h)
		if err != nil {
			continue
		}
		snap.Obligations = append(snap.Obligations, ObligationSnapshot{
			Obligation: h,
			Region:     region,
			State:      o.getState(),
		})
	}

	k.channels.Range(func(h Handle, cp **channelEntity) bool {
		c := *cp
		if c.region != region {
			return true
		}
		snap.Channels = append(snap.Channels, ChannelSnapshot{
			Channel:  h,
			Region:   region,
			State:    c.getState(),
			Capacity: c.capacity,
			QueueLen: c.queueLength(),
			Reserved: c.reservedCount(),
		})
		return true
	})

	return snap, nil
}
