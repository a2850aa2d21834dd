package detkernel

// PollStatus is the three-way result a task's poll function reports
// to the scheduler each round (spec §4.2, §5).
type PollStatus int

const (
	PollOk PollStatus = iota
	PollPending
	PollErr
)

// PollOutcome is what a PollFunc returns each time it is invoked.
type PollOutcome struct {
	Status PollStatus
	Err    error
}

// PollFunc is a cooperatively scheduled unit of work. It must not
// block; it reports PollPending to suspend until the next round, and
// the kernel grants no implicit suspension inside any other call
// (spec §5). checkpoint reflects this task's cancel state at the time
// of the call, so a cooperative task can observe cancellation and
// call Finalize.
type PollFunc func(checkpoint Checkpoint) PollOutcome

// taskEntity is a cooperatively polled unit of work within a region
// (spec §3).
type taskEntity struct {
	region       Handle
	state        TaskState
	poll         PollFunc
	userData     any
	outcome      Outcome
	hasOutcome   bool
	witness      CancelWitness
	hasWitness   bool
	epoch        uint64
	cleanupAge   int // consecutive Cancelling-phase polls still pending, for forced completion
}

// newTaskEntity constructs a task spawned inside region, in state
// Created (spec: task.spawn).
func newTaskEntity(region Handle, poll PollFunc, userData any, epoch uint64) *taskEntity {
	return &taskEntity{
		region:   region,
		state:    TaskCreated,
		poll:     poll,
		userData: userData,
		epoch:    epoch,
	}
}

// checkpoint reports this task's current cancellation state (spec:
// task.checkpoint).
func (t *taskEntity) checkpoint() Checkpoint {
	if !t.hasWitness {
		return Checkpoint{}
	}
	return Checkpoint{Cancelled: true, Reason: t.witness.Reason}
}

// installWitness validates and installs a new cancel witness over the
// task's current one, driving the state transition it licenses (spec
// §4.3). taskHandle/regionHandle identify this task/region for the
// monotonicity check.
func (t *taskEntity) installWitness(taskHandle, regionHandle Handle, phase CancelPhase, reason CancelReason) error {
	next := CancelWitness{Phase: phase, Reason: reason, Task: taskHandle, Region: regionHandle, Epoch: t.epoch}
	if err := checkWitnessMonotonic(t.witness, next, t.hasWitness); err != nil {
		return err
	}
	var to TaskState
	switch phase {
	case PhaseRequested:
		to = TaskCancelRequested
	case PhaseCancelling:
		to = TaskCancelling
	case PhaseFinalizing:
		to = TaskFinalizing
	default:
		return NewFault(StatusInvalidTransition, "Task.Cancel", "unknown cancel phase")
	}
	if err := validateTaskTransition(t.state, to); err != nil {
		return err
	}
	t.state = to
	t.witness = next
	t.hasWitness = true
	return nil
}

// advanceCancelPhase moves a CancelRequested task into Cancelling
// after the scheduler has observed it was cancel-requested at round
// entry (spec §4.2 step 6).
func (t *taskEntity) advanceCancelPhase(taskHandle, regionHandle Handle) error {
	if t.state != TaskCancelRequested {
		return nil
	}
	return t.installWitness(taskHandle, regionHandle, PhaseCancelling, t.witness.Reason)
}

// finalize drives a cooperatively-cancelled task from Cancelling to
// Finalizing to Completed with outcome Cancelled (spec: task.finalize).
func (t *taskEntity) finalize() error {
	if t.state == TaskCancelRequested {
		// a task may call finalize having only observed the request;
		// treat it as if it had progressed through Cancelling first.
		t.state = TaskCancelling
	}
	if t.state != TaskCancelling && t.state != TaskFinalizing {
		return NewFault(StatusInvalidTransition, "Task.Finalize", t.state.String()+"->Finalizing")
	}
	if t.state == TaskCancelling {
		if err := validateTaskTransition(t.state, TaskFinalizing); err != nil {
			return err
		}
		t.state = TaskFinalizing
	}
	if err := validateTaskTransition(t.state, TaskCompleted); err != nil {
		return err
	}
	t.state = TaskCompleted
	t.setOutcome(OutcomeCancelled(t.witness.Reason))
	return nil
}

// complete transitions the task to Completed with the given outcome,
// validating the transition from its current state.
func (t *taskEntity) complete(outcome Outcome) error {
	if err := validateTaskTransition(t.state, TaskCompleted); err != nil {
		return err
	}
	t.state = TaskCompleted
	t.setOutcome(outcome)
	return nil
}

// forceComplete sets the task Completed with outcome Cancelled without
// consulting the transition table. The scheduler calls it for a task
// still in Cancelling past its cleanup allowance, regardless of what
// its poll function last returned (spec §4.2 "Forced completion").
func (t *taskEntity) forceComplete() {
	t.state = TaskCompleted
	t.setOutcome(OutcomeCancelled(t.witness.Reason))
}

func (t *taskEntity) setOutcome(outcome Outcome) {
	if t.hasOutcome {
		outcome = Join(t.outcome, outcome)
	}
	t.outcome = outcome
	t.hasOutcome = true
}

// getState returns the task's current lifecycle state.
func (t *taskEntity) getState() TaskState { return t.state }

// getOutcome returns the task's outcome and whether it has one yet
// (spec: task.get_outcome — only meaningful once state is Completed).
func (t *taskEntity) getOutcome() (Outcome, bool) { return t.outcome, t.hasOutcome }

// isTerminal reports whether the task has reached Completed.
func (t *taskEntity) isTerminal() bool { return t.state == TaskCompleted }
