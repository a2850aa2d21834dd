// Package adaptive implements the kernel's expected-loss decision
// engine: fixed-point loss surfaces, a confidence/budget-gated
// argmin evaluator with deterministic fallback, and a ring-buffered
// evidence ledger with an exposed digest (spec §4.9, §8 invariant 9).
//
// All arithmetic here is fixed-point. Fixed-point, not floating
// point, is what makes a decision reproducible bit-for-bit across
// replays (spec §2, GLOSSARY).
package adaptive

import (
	"hash/fnv"
	"sync"
)

// Q16_16 is a signed 16.16 fixed-point number (spec: fp16.16), used
// for loss values.
type Q16_16 int32

// FromInt converts a small integer into Q16_16.
func FromInt(v int32) Q16_16 { return Q16_16(v) << 16 }

// Mul multiplies two Q16_16 values.
func (q Q16_16) Mul(other Q16_16) Q16_16 {
	return Q16_16((int64(q) * int64(other)) >> 16)
}

// MulQ0_32 multiplies a Q16_16 loss by a Q0_32 probability, returning
// a Q16_16 expected-loss contribution.
func (q Q16_16) MulQ0_32(p Q0_32) Q16_16 {
	return Q16_16((int64(q) * int64(p)) >> 32)
}

// Add adds two Q16_16 values.
func (q Q16_16) Add(other Q16_16) Q16_16 { return q + other }

// Q0_32 is an unsigned 0.32 fixed-point number in [0,1) (spec:
// fp0.32), used for posterior probabilities and confidence values.
type Q0_32 uint32

// FromFraction constructs a Q0_32 from numerator/denominator (denom
// must be nonzero); primarily a test/fixture helper.
func FromFraction(num, denom uint32) Q0_32 {
	return Q0_32((uint64(num) << 32) / uint64(denom))
}

// BudgetUnlimited is the sentinel DecisionBudget value meaning "no
// budget ceiling" — 0 unambiguously means "no decisions remain"
// (deviation from a literal reading of the spec text, recorded in
// DESIGN.md Open Question 2).
const BudgetUnlimited int64 = -1

// Surface declares one decision surface: its action/state counts, its
// loss function, and its deterministic fallback action.
type Surface struct {
	Name        string
	ActionCount int
	StateCount  int
	Loss        func(action, state int) Q16_16
	Fallback    int
}

// Policy gates decisions on posterior confidence and a decision
// budget.
type Policy struct {
	Threshold Q0_32
	// DecisionBudget is the number of decisions evaluated before every
	// later one uses the fallback: 0 means none remain, BudgetUnlimited
	// means no ceiling.
	DecisionBudget int64
}

// Decision is the outcome of one Decide call.
type Decision struct {
	Action           int
	ExpectedLoss     Q16_16
	SecondBestAction int
	SecondBestLoss   Q16_16
	HasSecondBest    bool
	UsedFallback     bool
}

// LedgerEntry is one ring-buffered evidence record (spec §4.9):
// (sequence, surface, decision, evidence[<=8]).
type LedgerEntry struct {
	Sequence    uint64
	Surface     string
	Decision    Decision
	Evidence    [8]uint64
	EvidenceLen int
}

const maxEvidence = 8

// Engine evaluates decisions against a Policy and records them to a
// fixed-capacity ledger.
type Engine struct {
	mu       sync.Mutex
	policy   Policy
	decSeq   int64
	ledger   []LedgerEntry
	capacity int
	writeIdx int
	count    int
	digest   uint64
}

// NewEngine constructs an Engine with the given policy and fixed
// ledger capacity.
func NewEngine(policy Policy, ledgerCapacity int) *Engine {
	return &Engine{
		policy:   policy,
		ledger:   make([]LedgerEntry, ledgerCapacity),
		capacity: ledgerCapacity,
	}
}

// SetPolicy replaces the active policy. It does not reset the
// decision sequence or ledger.
func (e *Engine) SetPolicy(policy Policy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.policy = policy
}

// Decide evaluates the surface against posterior (one Q0_32 per
// state, len must equal surface.StateCount) and confidence, falling
// back to surface.Fallback if confidence is below threshold or the
// decision budget is exhausted (spec §4.9).
func (e *Engine) Decide(surface Surface, posterior []Q0_32, confidence Q0_32, evidence []uint64) Decision {
	e.mu.Lock()
	defer e.mu.Unlock()

	budgetExhausted := e.policy.DecisionBudget != BudgetUnlimited && e.decSeq >= e.policy.DecisionBudget
	var decision Decision
	if confidence < e.policy.Threshold || budgetExhausted {
		decision = Decision{Action: surface.Fallback, UsedFallback: true}
	} else {
		decision = evaluateArgmin(surface, posterior)
	}

	entry := LedgerEntry{Sequence: uint64(e.decSeq), Surface: surface.Name, Decision: decision}
	n := len(evidence)
	if n > maxEvidence {
		n = maxEvidence
	}
	copy(entry.Evidence[:n], evidence[:n])
	entry.EvidenceLen = n

	e.decSeq++
	if e.count == e.capacity {
		// overflow: oldest entry overwritten
	} else {
		e.count++
	}
	e.ledger[e.writeIdx] = entry
	e.writeIdx = (e.writeIdx + 1) % e.capacity
	e.digest = foldEntry(e.digest, entry)

	return decision
}

// evaluateArgmin computes E[L(a)] = Σ_s L(a,s)·P(s) for every action,
// returning the argmin action along with the second-best as
// counterfactual.
func evaluateArgmin(surface Surface, posterior []Q0_32) Decision {
	bestAction, secondAction := -1, -1
	var bestLoss, secondLoss Q16_16
	hasSecond := false
	for a := 0; a < surface.ActionCount; a++ {
		var expected Q16_16
		for s := 0; s < surface.StateCount; s++ {
			expected = expected.Add(surface.Loss(a, s).MulQ0_32(posterior[s]))
		}
		if bestAction == -1 || expected < bestLoss {
			secondAction, secondLoss, hasSecond = bestAction, bestLoss, bestAction != -1
			bestAction, bestLoss = a, expected
		} else if secondAction == -1 || expected < secondLoss {
			secondAction, secondLoss, hasSecond = a, expected, true
		}
	}
	return Decision{
		Action:           bestAction,
		ExpectedLoss:     bestLoss,
		SecondBestAction: secondAction,
		SecondBestLoss:   secondLoss,
		HasSecondBest:    hasSecond,
	}
}

// LedgerGet returns the i-th retained ledger entry (0 = oldest
// currently retained), and false if i is out of range.
func (e *Engine) LedgerGet(i int) (LedgerEntry, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= e.count {
		return LedgerEntry{}, false
	}
	var start int
	if e.count < e.capacity {
		start = 0
	} else {
		start = e.writeIdx
	}
	idx := (start + i) % e.capacity
	return e.ledger[idx], true
}

// LedgerLen returns the number of entries currently retained.
func (e *Engine) LedgerLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count
}

// LedgerDigest returns the FNV-1a digest over all logged ledger
// entries' field tuples.
func (e *Engine) LedgerDigest() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.digest
}

func foldEntry(prev uint64, entry LedgerEntry) uint64 {
	h := fnv.New64a()
	var b [8]byte
	if prev == 0 {
		h.Write(adaptiveSeed)
	} else {
		putU64(b[:], prev)
		h.Write(b[:])
	}
	putU64(b[:], entry.Sequence)
	h.Write(b[:])
	h.Write([]byte(entry.Surface))
	putU64(b[:], uint64(int64(entry.Decision.Action)))
	h.Write(b[:])
	putU64(b[:], uint64(entry.Decision.ExpectedLoss))
	h.Write(b[:])
	for i := 0; i < entry.EvidenceLen; i++ {
		putU64(b[:], entry.Evidence[i])
		h.Write(b[:])
	}
	return h.Sum64()
}

var adaptiveSeed = []byte("adaptive-chain-seed")

func putU64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
