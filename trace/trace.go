// Package trace implements the kernel's deterministic event log: a
// fixed-capacity ring of lifecycle events, an FNV-1a hash-chain digest
// over them, and a reference-replay divergence comparator (spec §4.6,
// §8 invariant 6).
//
// The ring never grows. On overflow it wraps and sets Overflowed; the
// hash chain continues uninterrupted (see DESIGN.md, Open Question 1) —
// overflow is a diagnostic signal, not a correctness failure.
package trace

import (
	"hash/fnv"
	"sync"
)

// Event is one emitted lifecycle event: (sequence, kind, entity_id,
// aux, status). Sequence is globally monotonic and reset only by
// Log.Reset.
type Event struct {
	Sequence uint64
	Kind     string
	EntityID uint64
	Aux      uint64
	Status   int32
}

// Encode writes the little-endian wire representation of e into buf,
// which must be at least 36+len(e.Kind) bytes (spec §6: the trace
// stream is little-endian). It returns the number of bytes written.
func (e Event) Encode(buf []byte) int {
	putU64(buf[0:8], e.Sequence)
	putU64(buf[8:16], uint64(len(e.Kind)))
	n := 16
	n += copy(buf[n:], e.Kind)
	putU64(buf[n:n+8], e.EntityID)
	n += 8
	putU64(buf[n:n+8], e.Aux)
	n += 8
	putU32(buf[n:n+4], uint32(e.Status))
	n += 4
	return n
}

func putU64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func putU32(b []byte, v uint32) {
	for i := 0; i < 4; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

// Log is the fixed-capacity event ring plus its hash-chain digest.
type Log struct {
	mu         sync.Mutex
	ring       []Event
	capacity   int
	writeIdx   int
	count      int
	overflowed bool
	sequence   uint64
	digest     uint64

	reference []Event
}

// NewLog constructs a Log with the given fixed ring capacity (spec
// default: 1024).
func NewLog(capacity int) *Log {
	return &Log{
		ring:     make([]Event, capacity),
		capacity: capacity,
	}
}

// Reset clears the ring, sequence counter, and digest. This is the only
// way the hash chain restarts (DESIGN.md Open Question 1).
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.ring {
		l.ring[i] = Event{}
	}
	l.writeIdx = 0
	l.count = 0
	l.overflowed = false
	l.sequence = 0
	l.digest = 0
	l.reference = nil
}

// Emit appends a new event with the next monotonic sequence number,
// folds it into the hash-chain digest, and returns it. On ring overflow
// the oldest event is overwritten and Overflowed is set; the digest
// chain is unaffected by overflow.
func (l *Log) Emit(kind string, entityID uint64, aux uint64, status int32) Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	ev := Event{Sequence: l.sequence, Kind: kind, EntityID: entityID, Aux: aux, Status: status}
	l.sequence++
	if l.count == l.capacity {
		l.overflowed = true
	} else {
		l.count++
	}
	l.ring[l.writeIdx] = ev
	l.writeIdx = (l.writeIdx + 1) % l.capacity
	l.digest = foldFNV1a(l.digest, ev)
	return ev
}

// foldFNV1a accumulates FNV-1a 64-bit over (sequence, kind, entity_id,
// aux) per spec §4.6.
func foldFNV1a(prev uint64, ev Event) uint64 {
	h := fnv.New64a()
	if prev == 0 {
		h.Write(fnvOffsetBytes)
	} else {
		var b [8]byte
		putU64(b[:], prev)
		h.Write(b[:])
	}
	var b [8]byte
	putU64(b[:], ev.Sequence)
	h.Write(b[:])
	h.Write([]byte(ev.Kind))
	putU64(b[:], ev.EntityID)
	h.Write(b[:])
	putU64(b[:], ev.Aux)
	h.Write(b[:])
	return h.Sum64()
}

var fnvOffsetBytes = []byte("trace-chain-seed")

// EventCount returns the number of events currently retained in the
// ring (capped at capacity).
func (l *Log) EventCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// EventGet returns the i-th retained event (0 = oldest currently
// retained), and false if i is out of range.
func (l *Log) EventGet(i int) (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i < 0 || i >= l.count {
		return Event{}, false
	}
	var start int
	if l.count < l.capacity {
		start = 0
	} else {
		start = l.writeIdx
	}
	idx := (start + i) % l.capacity
	return l.ring[idx], true
}

// Overflowed reports whether the ring has wrapped since the last Reset.
func (l *Log) Overflowed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.overflowed
}

// Digest returns the current FNV-1a hash-chain digest: the canonical
// replay-identity value (spec §4.6, §8 invariant 6).
func (l *Log) Digest() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.digest
}

// Sequence returns the next sequence number that will be assigned.
func (l *Log) Sequence() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sequence
}

// LoadReference stores the expected event sequence for a subsequent
// ReplayVerify call.
func (l *Log) LoadReference(events []Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reference = append([]Event(nil), events...)
}

// ReplayOutcome classifies the result of a ReplayVerify call.
type ReplayOutcome int

const (
	ReplayMatch ReplayOutcome = iota
	ReplayLengthMismatch
	ReplayKindMismatch
	ReplayEntityMismatch
	ReplayAuxMismatch
	ReplayDigestMismatch
)

// String returns a human-readable name for the outcome.
func (o ReplayOutcome) String() string {
	switch o {
	case ReplayMatch:
		return "match"
	case ReplayLengthMismatch:
		return "length-mismatch"
	case ReplayKindMismatch:
		return "kind-mismatch"
	case ReplayEntityMismatch:
		return "entity-mismatch"
	case ReplayAuxMismatch:
		return "aux-mismatch"
	case ReplayDigestMismatch:
		return "digest-mismatch"
	default:
		return "unknown"
	}
}

// ReplayResult is the outcome of a ReplayVerify call: the first
// divergence found, and its index in the retained ring (or -1 if none).
type ReplayResult struct {
	Outcome ReplayOutcome
	Index   int
}

// ReplayVerify walks the loaded reference sequence and the live ring in
// lockstep, returning the first divergence (spec §4.6).
func (l *Log) ReplayVerify() ReplayResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.reference) != l.count {
		return ReplayResult{Outcome: ReplayLengthMismatch, Index: min(len(l.reference), l.count)}
	}
	var start int
	if l.count < l.capacity {
		start = 0
	} else {
		start = l.writeIdx
	}
	for i := 0; i < l.count; i++ {
		idx := (start + i) % l.capacity
		live := l.ring[idx]
		ref := l.reference[i]
		if live.Kind != ref.Kind {
			return ReplayResult{Outcome: ReplayKindMismatch, Index: i}
		}
		if live.EntityID != ref.EntityID {
			return ReplayResult{Outcome: ReplayEntityMismatch, Index: i}
		}
		if live.Aux != ref.Aux {
			return ReplayResult{Outcome: ReplayAuxMismatch, Index: i}
		}
	}
	var refDigest uint64
	for _, ev := range l.reference {
		refDigest = foldFNV1a(refDigest, ev)
	}
	if refDigest != l.digest {
		return ReplayResult{Outcome: ReplayDigestMismatch, Index: l.count - 1}
	}
	return ReplayResult{Outcome: ReplayMatch, Index: -1}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
