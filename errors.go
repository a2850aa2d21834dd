package detkernel

import (
	"errors"
	"fmt"
)

// Status is a stable status code, grouped into families as specified
// by the runtime's error taxonomy. Codes never silently change meaning.
type Status int

// Status families. Each family reserves a block of 100 codes so new
// codes can be added within a family without renumbering existing ones.
const (
	// StatusOK indicates success.
	StatusOK Status = 0
)

const (
	// 1xx — general / programmer contract.
	StatusInvalidArgument Status = 100 + iota
	StatusInvalidState
	StatusNotFound
	StatusAlreadyExists
	StatusBufferTooSmall
	StatusHookMissing
	StatusHookInvalid
)

const (
	// 2xx — transitions.
	StatusInvalidTransition Status = 200 + iota
)

const (
	// 3xx — region lifecycle.
	StatusRegionClosed Status = 300 + iota
	StatusRegionPoisoned
	StatusRegionNotOpen
	StatusRegionAtCapacity
	StatusTasksStillActive
	StatusObligationsUnresolved
	StatusIncompleteChildren
	StatusRegionsNotClosed
)

const (
	// 4xx — task lifecycle.
	StatusTaskNotCompleted Status = 400 + iota
	StatusTaskNotFound
)

const (
	// 5xx — obligation lifecycle.
	StatusObligationAlreadyResolved Status = 500 + iota
	StatusObligationLeaked
)

const (
	// 6xx — cancellation witness.
	StatusWitnessPhaseRegression Status = 600 + iota
	StatusWitnessReasonWeakened
	StatusWitnessTaskMismatch
	StatusWitnessRegionMismatch
	StatusWitnessEpochMismatch
	StatusCancelChainLimitExceeded
)

const (
	// 7xx — channel / concurrency.
	StatusChannelFull Status = 700 + iota
	StatusDisconnected
	StatusWouldBlock
	StatusChannelNotDrained
)

const (
	// 8xx — timer.
	StatusTimerDurationExceeded Status = 800 + iota
	StatusTimersPending
)

const (
	// 9xx — quiescence / budget.
	StatusQuiescenceNotReached Status = 900 + iota
	StatusPollBudgetExhausted
	StatusQuiescent
)

const (
	// 10xx — resource / capacity.
	StatusResourceExhausted Status = 1000 + iota
	StatusAdmissionClosed
)

const (
	// 11xx — stale handle.
	StatusStaleHandle Status = 1100 + iota
)

const (
	// 12xx — hook.
	StatusHookPanic Status = 1200 + iota
)

const (
	// 13xx — affinity.
	StatusAffinityViolation Status = 1300 + iota
	StatusAffinityNotBound
	StatusAffinityAlreadyBound
	StatusAffinityTransferRequired
	StatusAffinityTableFull
)

const (
	// 14xx — codec equivalence (external collaborator interface only).
	StatusCodecEquivalenceMismatch Status = 1400 + iota
)

const (
	// 15xx — replay.
	StatusReplayMismatch Status = 1500 + iota
	StatusDeterminismViolation
	StatusAllocatorSealed
)

// String returns a short, stable mnemonic for the status. Unknown
// values fall back to a numeric rendering.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

var statusNames = map[Status]string{
	StatusOK:                       "ok",
	StatusInvalidArgument:          "invalid-argument",
	StatusInvalidState:             "invalid-state",
	StatusNotFound:                 "not-found",
	StatusAlreadyExists:            "already-exists",
	StatusBufferTooSmall:           "buffer-too-small",
	StatusHookMissing:              "hook-missing",
	StatusHookInvalid:              "hook-invalid",
	StatusInvalidTransition:        "invalid-transition",
	StatusRegionClosed:             "region-closed",
	StatusRegionPoisoned:           "region-poisoned",
	StatusRegionNotOpen:            "region-not-open",
	StatusRegionAtCapacity:         "region-at-capacity",
	StatusTasksStillActive:         "tasks-still-active",
	StatusObligationsUnresolved:    "obligations-unresolved",
	StatusIncompleteChildren:       "incomplete-children",
	StatusRegionsNotClosed:         "regions-not-closed",
	StatusTaskNotCompleted:         "task-not-completed",
	StatusTaskNotFound:             "task-not-found",
	StatusObligationAlreadyResolved: "obligation-already-resolved",
	StatusObligationLeaked:         "obligation-leaked",
	StatusWitnessPhaseRegression:   "witness-phase-regression",
	StatusWitnessReasonWeakened:    "witness-reason-weakened",
	StatusWitnessTaskMismatch:      "witness-task-mismatch",
	StatusWitnessRegionMismatch:    "witness-region-mismatch",
	StatusWitnessEpochMismatch:     "witness-epoch-mismatch",
	StatusCancelChainLimitExceeded: "cancel-chain-limit-exceeded",
	StatusChannelFull:              "channel-full",
	StatusDisconnected:             "disconnected",
	StatusWouldBlock:               "would-block",
	StatusChannelNotDrained:        "channel-not-drained",
	StatusTimerDurationExceeded:    "timer-duration-exceeded",
	StatusTimersPending:            "timers-pending",
	StatusQuiescenceNotReached:     "quiescence-not-reached",
	StatusPollBudgetExhausted:      "poll-budget-exhausted",
	StatusQuiescent:                "quiescent",
	StatusResourceExhausted:        "resource-exhausted",
	StatusAdmissionClosed:          "admission-closed",
	StatusStaleHandle:              "stale-handle",
	StatusHookPanic:                "hook-panic",
	StatusAffinityViolation:        "affinity-violation",
	StatusAffinityNotBound:         "affinity-not-bound",
	StatusAffinityAlreadyBound:     "affinity-already-bound",
	StatusAffinityTransferRequired: "affinity-transfer-required",
	StatusAffinityTableFull:        "affinity-table-full",
	StatusCodecEquivalenceMismatch: "codec-equivalence-mismatch",
	StatusReplayMismatch:           "replay-mismatch",
	StatusDeterminismViolation:     "determinism-violation",
	StatusAllocatorSealed:          "allocator-sealed",
}

// Fault is the kernel's error type: a [Status] plus an optional cause
// and free-form operation context. It supports [errors.Is] and
// [errors.As] via Unwrap, matching the teacher's TypeError/RangeError
// cause-chain shape.
type Fault struct {
	Status  Status
	Op      string
	Message string
	Cause   error
}

// Error implements the error interface.
func (f *Fault) Error() string {
	msg := f.Message
	if msg == "" {
		msg = f.Status.String()
	}
	if f.Op != "" {
		msg = f.Op + ": " + msg
	}
	if f.Cause != nil {
		return msg + ": " + f.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause, for use with errors.Is/errors.As.
func (f *Fault) Unwrap() error {
	return f.Cause
}

// Is reports whether target is a *Fault with the same Status.
func (f *Fault) Is(target error) bool {
	var other *Fault
	if errors.As(target, &other) {
		return other.Status == f.Status
	}
	return false
}

// NewFault constructs a Fault with the given status and operation name.
func NewFault(status Status, op, message string) *Fault {
	return &Fault{Status: status, Op: op, Message: message}
}

// WrapFault wraps cause as a Fault with the given status and operation.
func WrapFault(status Status, op string, cause error) *Fault {
	return &Fault{Status: status, Op: op, Cause: cause}
}

// StatusOf extracts the Status from err, defaulting to StatusInvalidState
// if err is not a *Fault.
func StatusOf(err error) Status {
	var f *Fault
	if errors.As(err, &f) {
		return f.Status
	}
	if err == nil {
		return StatusOK
	}
	return StatusInvalidState
}
