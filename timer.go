package detkernel

import (
	"container/heap"
	"time"
)

// timerPayload is the waker data associated with a registered timer.
type timerPayload struct {
	entityID uint64
	aux      uint64
}

// timerHeapEntry is one min-heap entry: a snapshot of a live timer's
// ordering key plus the handle needed to validate it is still live.
type timerHeapEntry struct {
	deadline     time.Time
	insertionSeq uint64
	handle       Handle
}

// timerMinHeap orders entries by (deadline ASC, insertion_seq ASC),
// the deterministic tie-break required by spec §4.5.
type timerMinHeap []timerHeapEntry

func (h timerMinHeap) Len() int { return len(h) }
func (h timerMinHeap) Less(i, j int) bool {
	if !h[i].deadline.Equal(h[j].deadline) {
		return h[i].deadline.Before(h[j].deadline)
	}
	return h[i].insertionSeq < h[j].insertionSeq
}
func (h timerMinHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerMinHeap) Push(x any) {
	*h = append(*h, x.(timerHeapEntry))
}

func (h *timerMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// TimerWheel is the kernel's timer subsystem (spec §4.5, §8 invariant
// 8): a fixed-capacity arena of live timer slots plus a min-heap
// ordering them for deterministic expiry collection. Cancel is O(1)
// against the arena; the heap discards stale entries lazily, on the
// next CollectExpired that reaches them.
type TimerWheel struct {
	arena       *Arena[timerPayload]
	heap        timerMinHeap
	nextSeq     uint64
	maxDuration time.Duration
	now         time.Time
}

// DefaultTimerMaxDuration is the default duration ceiling (24h, spec
// §4.5).
const DefaultTimerMaxDuration = 24 * time.Hour

// NewTimerWheel constructs a TimerWheel with the given fixed slot
// capacity and duration ceiling. The wheel's now starts at the Unix
// epoch until Advance or CollectExpired moves it forward.
func NewTimerWheel(capacity int, maxDuration time.Duration) *TimerWheel {
	return &TimerWheel{
		arena:       NewArena[timerPayload](KindTimer, capacity),
		maxDuration: maxDuration,
		now:         time.Unix(0, 0),
	}
}

// SetMaxDuration updates the duration ceiling (spec: set_max_duration).
func (w *TimerWheel) SetMaxDuration(d time.Duration) { w.maxDuration = d }

// Now returns the wheel's current notion of now.
func (w *TimerWheel) Now() time.Time { return w.now }

// Register schedules a timer for entityID/aux to fire at deadline,
// returning its handle. Returns StatusTimerDurationExceeded if
// deadline is further out than the configured ceiling, or
// StatusResourceExhausted if the timer arena is full.
func (w *TimerWheel) Register(deadline time.Time, entityID, aux uint64) (Handle, error) {
	if deadline.Sub(w.now) > w.maxDuration {
		return NilHandle, NewFault(StatusTimerDurationExceeded, "TimerWheel.Register", "deadline exceeds max duration")
	}
	h, _, err := w.arena.Alloc(timerPayload{entityID: entityID, aux: aux})
	if err != nil {
		return NilHandle, err
	}
	seq := w.nextSeq
	w.nextSeq++
	heap.Push(&w.heap, timerHeapEntry{deadline: deadline, insertionSeq: seq, handle: h})
	return h, nil
}

// Cancel marks h dead in O(1) against the arena. Returns
// StatusStaleHandle / StatusNotFound if h is no longer live.
func (w *TimerWheel) Cancel(h Handle) error {
	if _, err := w.arena.Get(h); err != nil {
		return err
	}
	return w.arena.Free(h)
}

// Update cancels old and registers a new timer with the same payload
// at newDeadline, returning the new handle (spec: timer.update).
func (w *TimerWheel) Update(old Handle, newDeadline time.Time) (Handle, error) {
	v, err := w.arena.Get(old)
	if err != nil {
		return NilHandle, err
	}
	payload := *v
	if err := w.arena.Free(old); err != nil {
		return NilHandle, err
	}
	return w.Register(newDeadline, payload.entityID, payload.aux)
}

// TimerFire is one expired timer's waker payload, delivered by
// CollectExpired.
type TimerFire struct {
	Handle   Handle
	EntityID uint64
	Aux      uint64
}

// Advance moves the wheel's now forward; backward calls are no-ops
// (now only advances, spec §4.5).
func (w *TimerWheel) Advance(now time.Time) {
	if now.After(w.now) {
		w.now = now
	}
}

// CollectExpired advances now, then pops alive timers with
// deadline<=now in (deadline ASC, insertion_seq ASC) order, marking
// each dead and returning up to maxWakers payloads. Stale heap
// entries (already cancelled, or already fired) are discarded without
// counting against maxWakers.
func (w *TimerWheel) CollectExpired(now time.Time, maxWakers int) []TimerFire {
	w.Advance(now)
	var fired []TimerFire
	for len(fired) < maxWakers && w.heap.Len() > 0 {
		top := w.heap[0]
		if top.deadline.After(w.now) {
			break
		}
		heap.Pop(&w.heap)
		v, err := w.arena.Get(top.handle)
		if err != nil {
			continue
		}
		payload := *v
		_ = w.arena.Free(top.handle)
		fired = append(fired, TimerFire{Handle: top.handle, EntityID: payload.entityID, Aux: payload.aux})
	}
	return fired
}

// Pending returns the number of still-alive timer slots.
func (w *TimerWheel) Pending() int { return w.arena.Len() }
