// Package overload implements the kernel's CORE fallback admission
// policy and the isomorphism sweep that any accelerated admission path
// must satisfy against it (spec §4.9, §8 invariant 8).
//
// The CORE policy is deliberately simple and total: it is the
// reference an accelerated (e.g. lookup-table or SIMD-batched)
// admission path is checked against, never a competitor to one.
package overload

// CoreRejectThresholdPercent is the load percentage at or above which
// CORE rejects admission (spec §4.9).
const CoreRejectThresholdPercent = 90

// Decision is the result of an admission evaluation.
type Decision struct {
	Admit       bool
	LoadPercent int
	Triggered   bool // true if the reject threshold is what decided this
}

// CoreEvaluate is the reference admission policy: reject if capacity is
// zero, or if load% = used*100/capacity is at or above
// CoreRejectThresholdPercent; admit otherwise.
func CoreEvaluate(used, capacity int) Decision {
	if capacity == 0 {
		return Decision{Admit: false, LoadPercent: 100, Triggered: true}
	}
	loadPercent := used * 100 / capacity
	if loadPercent >= CoreRejectThresholdPercent {
		return Decision{Admit: false, LoadPercent: loadPercent, Triggered: true}
	}
	return Decision{Admit: true, LoadPercent: loadPercent}
}

// Accelerated is an alternative admission function being checked for
// isomorphism against CoreEvaluate.
type Accelerated func(used, capacity int) Decision

// IsomorphismSweep exhaustively checks, for used ranging over
// [0, capacity], that accelerated never admits a case CoreEvaluate
// rejects (spec §8 invariant 8: acceleration may only be stricter or
// equal, never looser). It reports the first used value at which the
// two diverge in that direction, if any.
func IsomorphismSweep(capacity int, accelerated Accelerated) (ok bool, failingUsed int) {
	for used := 0; used <= capacity; used++ {
		core := CoreEvaluate(used, capacity)
		fast := accelerated(used, capacity)
		if fast.Admit && !core.Admit {
			return false, used
		}
	}
	return true, -1
}
