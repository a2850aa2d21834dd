package detkernel

// CancelReason forms a total order of severity: None < Cooperative <
// Deadline < Shutdown (spec §4.3).
type CancelReason int8

const (
	CancelNone CancelReason = iota
	CancelCooperative
	CancelDeadline
	CancelShutdown
)

// String returns a human-readable name for the reason.
func (r CancelReason) String() string {
	switch r {
	case CancelNone:
		return "None"
	case CancelCooperative:
		return "Cooperative"
	case CancelDeadline:
		return "Deadline"
	case CancelShutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// CancelPhase tracks how far a cancellation has progressed through a
// task's lifecycle, mirroring the Cancelling/Finalizing steps of the
// task transition table (spec §4.1, §4.3).
type CancelPhase int8

const (
	PhaseRequested CancelPhase = iota
	PhaseCancelling
	PhaseFinalizing
)

// String returns a human-readable name for the phase.
func (p CancelPhase) String() string {
	switch p {
	case PhaseRequested:
		return "Requested"
	case PhaseCancelling:
		return "Cancelling"
	case PhaseFinalizing:
		return "Finalizing"
	default:
		return "Unknown"
	}
}

// CancelWitness certifies a cancellation request: (phase, reason,
// task, region, epoch). It is strictly monotonic per task — neither
// phase nor reason may regress (spec §4.3, GLOSSARY).
type CancelWitness struct {
	Phase  CancelPhase
	Reason CancelReason
	Task   Handle
	Region Handle
	Epoch  uint64
}

// Checkpoint is what a cooperative task observes when it polls its
// cancellation state (spec §4.3, §6).
type Checkpoint struct {
	Cancelled bool
	Reason    CancelReason
}

// checkWitnessMonotonic validates that next does not regress against
// current, and that identity fields match. Returns nil if next may be
// installed over current.
func checkWitnessMonotonic(current, next CancelWitness, hasCurrent bool) error {
	if !hasCurrent {
		return nil
	}
	if current.Task != next.Task {
		return NewFault(StatusWitnessTaskMismatch, "cancel", "task identity mismatch")
	}
	if current.Region != next.Region {
		return NewFault(StatusWitnessRegionMismatch, "cancel", "region identity mismatch")
	}
	if current.Epoch != next.Epoch {
		return NewFault(StatusWitnessEpochMismatch, "cancel", "epoch mismatch")
	}
	if next.Phase < current.Phase {
		return NewFault(StatusWitnessPhaseRegression, "cancel", "phase regression")
	}
	if next.Reason < current.Reason {
		return NewFault(StatusWitnessReasonWeakened, "cancel", "reason weakened")
	}
	return nil
}
