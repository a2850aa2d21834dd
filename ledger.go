package detkernel

import "runtime"

// LedgerEntry is one diagnostic record in a task's error ledger (spec
// §7): `(task, status, operation, file, line, sequence)`. The ledger
// is purely diagnostic; it never influences control flow.
type LedgerEntry struct {
	Task      Handle
	Status    Status
	Operation string
	File      string
	Line      int
	Sequence  uint64
}

// ledgerTaskRing is one task's fixed-depth ring of LedgerEntry.
type ledgerTaskRing struct {
	bound    Handle
	inUse    bool
	entries  []LedgerEntry
	writeIdx int
	count    int
	sequence uint64
}

// ErrorLedger is the fixed (taskSlots x depth) ring-buffered error
// ledger (spec §7, default 64 task slots x depth 16). Recording never
// allocates: every task slot's ring is pre-sized at construction.
type ErrorLedger struct {
	slots   []ledgerTaskRing
	depth   int
	current Handle
}

// NewErrorLedger constructs a ledger with the given fixed task-slot
// count and per-task ring depth.
func NewErrorLedger(taskSlots, depth int) *ErrorLedger {
	l := &ErrorLedger{
		slots: make([]ledgerTaskRing, taskSlots),
		depth: depth,
	}
	for i := range l.slots {
		l.slots[i].entries = make([]LedgerEntry, depth)
	}
	return l
}

// BindCurrent sets the task the next Record calls are attributed to
// (spec §4.2 step 2: "bind the error-ledger context to this task").
// Exactly one cooperative poll is ever in flight, so this single
// current-task slot is never contended.
func (l *ErrorLedger) BindCurrent(task Handle) {
	l.current = task
	l.ringFor(task)
}

// ringFor finds the slot already bound to task, or claims the first
// free slot, or — if every slot is bound to another task — evicts
// slot 0 deterministically rather than growing.
func (l *ErrorLedger) ringFor(task Handle) *ledgerTaskRing {
	for i := range l.slots {
		if l.slots[i].inUse && l.slots[i].bound == task {
			return &l.slots[i]
		}
	}
	for i := range l.slots {
		if !l.slots[i].inUse {
			l.slots[i].bound = task
			l.slots[i].inUse = true
			return &l.slots[i]
		}
	}
	evicted := &l.slots[0]
	evicted.bound = task
	evicted.inUse = true
	evicted.writeIdx = 0
	evicted.count = 0
	evicted.sequence = 0
	return evicted
}

// Record writes a ledger entry for the currently bound task, capturing
// the caller's file/line via runtime.Caller (skip frames to land on
// the caller of Record, not Record itself).
func (l *ErrorLedger) Record(status Status, operation string) LedgerEntry {
	_, file, line, _ := runtime.Caller(1)
	ring := l.ringFor(l.current)
	entry := LedgerEntry{
		Task:      l.current,
		Status:    status,
		Operation: operation,
		File:      file,
		Line:      line,
		Sequence:  ring.sequence,
	}
	ring.sequence++
	ring.entries[ring.writeIdx] = entry
	ring.writeIdx = (ring.writeIdx + 1) % len(ring.entries)
	if ring.count < len(ring.entries) {
		ring.count++
	}
	return entry
}

// Entries returns the currently retained ledger entries for task,
// oldest first.
func (l *ErrorLedger) Entries(task Handle) []LedgerEntry {
	for i := range l.slots {
		if l.slots[i].inUse && l.slots[i].bound == task {
			return snapshotRing(&l.slots[i])
		}
	}
	return nil
}

func snapshotRing(ring *ledgerTaskRing) []LedgerEntry {
	out := make([]LedgerEntry, ring.count)
	var start int
	if ring.count < len(ring.entries) {
		start = 0
	} else {
		start = ring.writeIdx
	}
	for i := 0; i < ring.count; i++ {
		out[i] = ring.entries[(start+i)%len(ring.entries)]
	}
	return out
}
