package detkernel

import "time"

// maxWakersPerRound bounds how many expired timers are delivered per
// scheduler round, keeping CollectExpired itself bounded (spec §4.5).
const maxWakersPerRound = 16

// regionTaskHandles returns every task handle owned by region, in
// ascending slot-index order — the scheduler's deterministic ready-
// queue ordering (spec §4.2 "Ordering").
func (k *Kernel) regionTaskHandles(region Handle) []Handle {
	var out []Handle
	k.tasks.Range(func(h Handle, tp **taskEntity) bool {
		if (*tp).region == region {
			out = append(out, h)
		}
		return true
	})
	return out
}

// regionObligationHandles returns every obligation handle owned by
// region, in ascending slot-index order — the same deterministic
// ordering regionTaskHandles gives tasks, so obligation-affecting
// events replay identically across runs (spec §3 "Replay identity").
func (k *Kernel) regionObligationHandles(region Handle) []Handle {
	var out []Handle
	k.obligations.Range(func(h Handle, op **obligationEntity) bool {
		if (*op).region == region {
			out = append(out, h)
		}
		return true
	})
	return out
}

// regionHasNonTerminalTasks reports whether any task owned by region
// has not yet reached Completed.
func (k *Kernel) regionHasNonTerminalTasks(region Handle) bool {
	found := false
	k.tasks.Range(func(h Handle, tp **taskEntity) bool {
		if (*tp).region == region && !(*tp).isTerminal() {
			found = true
			return false
		}
		return true
	})
	return found
}

// QuiescenceCheck reports whether region has reached quiescence: every
// owned task is terminal (spec: scheduler.quiescence_check).
func (k *Kernel) QuiescenceCheck(region Handle) (bool, error) {
	if _, err := k.regionAt(region); err != nil {
		return try(k, "Kernel.QuiescenceCheck", false, err)
	}
	return !k.regionHasNonTerminalTasks(region), nil
}

// SchedulerRun polls region's ready tasks in deterministic order until
// all are terminal (quiescent), the budget's poll quota is exhausted,
// or now is at/after the budget's deadline (spec §4.2). now is an
// explicit, externally-driven clock value — the core performs no
// wall-clock reads of its own (spec §5 Non-goals).
func (k *Kernel) SchedulerRun(region Handle, budget Budget, now time.Time) (Status, error) {
	r, err := k.regionAt(region)
	if err != nil {
		return try(k, "Kernel.SchedulerRun", StatusOK, err)
	}

	for {
		if !k.regionHasNonTerminalTasks(region) {
			k.traceLog.Emit("quiescent", uint64(region), 0, int32(StatusQuiescent))
			return StatusQuiescent, nil
		}
		if budget.IsPastDeadline(now) {
			k.traceLog.Emit("poll-budget-exhausted", uint64(region), 0, int32(StatusPollBudgetExhausted))
			return StatusPollBudgetExhausted, nil
		}

		for _, f := range k.timers.CollectExpired(now, maxWakersPerRound) {
			k.traceLog.Emit("timer-fire", f.EntityID, f.Aux, int32(StatusOK))
		}

		handles := k.regionTaskHandles(region)
		for _, h := range handles {
			t, err := k.taskAt(h)
			if err != nil || t.isTerminal() {
				continue
			}
			if !budget.Consume() {
				k.traceLog.Emit("poll-budget-exhausted", uint64(region), 0, int32(StatusPollBudgetExhausted))
				return StatusPollBudgetExhausted, nil
			}

			wasCancelRequested := t.state == TaskCancelRequested
			k.ledger.BindCurrent(h)
			k.traceLog.Emit("sched-poll", uint64(h), 0, int32(StatusOK))

			if t.state == TaskCreated {
				if err := validateTaskTransition(t.state, TaskRunning); err == nil {
					t.state = TaskRunning
				}
			}

			outcome := k.pollTask(t, h)

			switch outcome.Status {
			case PollOk:
				_ = t.complete(OutcomeOk(nil))
				k.traceLog.Emit("sched-complete", uint64(h), 0, int32(StatusOK))
				r.cleanup.Drain()
			case PollPending:
				// leave in its current state; the next round re-visits it.
			default:
				_ = t.complete(OutcomeErr(outcome.Err))
				k.traceLog.Emit("sched-complete", uint64(h), 0, int32(StatusOf(outcome.Err)))
				_ = tryErr(k, "Kernel.SchedulerRun.pollTask", outcome.Err)
			}

			if wasCancelRequested && !t.isTerminal() {
				_ = t.advanceCancelPhase(h, region)
			}

			if t.state == TaskCancelling {
				t.cleanupAge++
				if t.cleanupAge > k.cleanupAllowance {
					t.forceComplete()
					k.traceLog.Emit("sched-force-complete", uint64(h), 0, int32(StatusOK))
				}
			}
		}
	}
}

// pollTask invokes t's poll function with panic recovery, converting a
// recovered panic into a Panicked-severity completion (spec §2 outcome
// lattice; idiom grounded on the teacher's safeExecute).
func (k *Kernel) pollTask(t *taskEntity, h Handle) (outcome PollOutcome) {
	defer func() {
		if rec := recover(); rec != nil {
			_ = t.complete(OutcomePanicked(rec))
			outcome = PollOutcome{Status: PollOk}
		}
	}()
	return t.poll(t.checkpoint())
}

// CancelPropagate issues a cancel request with the given reason to
// every non-terminal task in region, returning the count affected
// (spec: cancel_propagate). Chain breadth is bounded by the kernel's
// configured cancel-chain limit; exceeding it fails closed rather than
// partially propagating.
func (k *Kernel) CancelPropagate(region Handle, reason CancelReason) (int, error) {
	handles := k.regionTaskHandles(region)
	if len(handles) > k.cancelChainLimit {
		return try(k, "Kernel.CancelPropagate", 0, NewFault(StatusCancelChainLimitExceeded, "Kernel.CancelPropagate", "propagation breadth exceeds chain limit"))
	}
	count := 0
	for _, h := range handles {
		t, err := k.taskAt(h)
		if err != nil || t.isTerminal() {
			continue
		}
		if err := t.installWitness(h, region, PhaseRequested, reason); err != nil {
			continue
		}
		count++
	}
	return count, nil
}

// RegionDrain runs the scheduler, requests close, then drives region
// through Closing→[Draining]→Finalizing→Closed, until Closed or the
// budget is exhausted (spec §4.2 "Drain"). Obligations still Reserved
// at Finalizing are recorded Leaked; the region still reaches Closed.
func (k *Kernel) RegionDrain(region Handle, budget Budget, now time.Time) (Status, error) {
	r, err := k.regionAt(region)
	if err != nil {
		return try(k, "Kernel.RegionDrain", StatusOK, err)
	}

	status, err := k.SchedulerRun(region, budget, now)
	if err != nil {
		return status, err
	}

	if r.state == RegionOpen {
		if err := r.transitionTo(RegionClosing); err != nil {
			return try(k, "Kernel.RegionDrain", StatusOK, err)
		}
		k.traceLog.Emit("region-close", uint64(region), 0, int32(StatusOK))
	}

	for r.state != RegionClosed {
		if budget.IsPastDeadline(now) || budget.IsExhausted() {
			return StatusPollBudgetExhausted, nil
		}
		switch r.state {
		case RegionClosing:
			to := RegionFinalizing
			if k.regionHasNonTerminalTasks(region) {
				to = RegionDraining
			}
			if err := r.transitionTo(to); err != nil {
				return try(k, "Kernel.RegionDrain", StatusOK, err)
			}
		case RegionDraining:
			st, err := k.SchedulerRun(region, budget, now)
			if err != nil {
				return st, err
			}
			if st != StatusQuiescent {
				return StatusPollBudgetExhausted, nil
			}
			if err := r.transitionTo(RegionFinalizing); err != nil {
				return try(k, "Kernel.RegionDrain", StatusOK, err)
			}
		case RegionFinalizing:
			k.finalizeObligations(region)
			if err := r.transitionTo(RegionClosed); err != nil {
				return try(k, "Kernel.RegionDrain", StatusOK, err)
			}
			k.traceLog.Emit("region-closed", uint64(region), 0, int32(StatusOK))
		}
	}
	return StatusOK, nil
}

// finalizeObligations marks every still-Reserved obligation owned by
// region as Leaked, emitting a trace event for each — the hook an
// external ghost-monitor would consume (spec §1, §4.2). Obligations
// are walked in arena slot order, not region-map order, so the emitted
// trace events replay identically across runs (spec §3 "Replay
// identity"; region.go's tasks/obligations maps exist for O(1)
// membership only, never for iteration order).
func (k *Kernel) finalizeObligations(region Handle) {
	if _, err := k.regionAt(region); err != nil {
		return
	}
	for _, h := range k.regionObligationHandles(region) {
		o, err := k.obligationAt(h)
		if err != nil {
			continue
		}
		if o.getState() == ObligationReserved {
			_ = o.leak()
			k.traceLog.Emit("obligation-leaked", uint64(h), 0, int32(StatusObligationLeaked))
		}
	}
}
