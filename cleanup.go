package detkernel

// cleanupSlot is one entry in a CleanupStack's fixed backing array.
type cleanupSlot struct {
	fn         func()
	generation uint32
	occupied   bool
}

// CleanupStack is a LIFO deterministic unwind stack (spec §2, L4). Push
// returns a handle identifying the slot; Pop clears it and shrinks the
// high-water mark while the top is empty. Drain walks from top to
// bottom, invoking each still-registered callback exactly once, in LIFO
// order, and marks the stack drained. A push after a full drain is
// allowed and resets drained.
type CleanupStack struct {
	slots   []cleanupSlot
	top     int // one past the highest occupied index
	drained bool
}

// NewCleanupStack constructs a CleanupStack with the given fixed
// capacity.
func NewCleanupStack(capacity int) *CleanupStack {
	return &CleanupStack{slots: make([]cleanupSlot, capacity)}
}

// CleanupHandle identifies one pushed callback.
type CleanupHandle struct {
	slot       int
	generation uint32
}

// Push registers fn to run on the next Drain, returning a handle that
// can be used to Pop it early. Returns StatusResourceExhausted if the
// stack is at capacity.
func (c *CleanupStack) Push(fn func()) (CleanupHandle, error) {
	idx := c.top
	if idx >= len(c.slots) {
		return CleanupHandle{}, NewFault(StatusResourceExhausted, "CleanupStack.Push", "cleanup stack exhausted")
	}
	c.slots[idx].fn = fn
	c.slots[idx].occupied = true
	c.top = idx + 1
	c.drained = false
	return CleanupHandle{slot: idx, generation: c.slots[idx].generation}, nil
}

// Pop removes the callback identified by h without invoking it. Returns
// StatusStaleHandle if h's generation no longer matches (including a
// slot already popped or drained), or StatusNotFound if the slot is
// unoccupied.
func (c *CleanupStack) Pop(h CleanupHandle) error {
	if h.slot < 0 || h.slot >= len(c.slots) {
		return NewFault(StatusNotFound, "CleanupStack.Pop", "slot out of range")
	}
	slot := &c.slots[h.slot]
	if slot.generation != h.generation {
		return NewFault(StatusStaleHandle, "CleanupStack.Pop", "stale handle")
	}
	if !slot.occupied {
		return NewFault(StatusNotFound, "CleanupStack.Pop", "slot not occupied")
	}
	slot.occupied = false
	slot.fn = nil
	slot.generation++
	for c.top > 0 && !c.slots[c.top-1].occupied {
		c.top--
	}
	return nil
}

// Drain invokes every still-registered callback exactly once, from the
// top of the stack to the bottom, clearing each slot as it goes, and
// marks the stack drained.
func (c *CleanupStack) Drain() {
	for i := c.top - 1; i >= 0; i-- {
		slot := &c.slots[i]
		if !slot.occupied {
			continue
		}
		fn := slot.fn
		slot.occupied = false
		slot.fn = nil
		slot.generation++
		if fn != nil {
			fn()
		}
	}
	c.top = 0
	c.drained = true
}

// Drained reports whether the stack has been drained since its last
// push.
func (c *CleanupStack) Drained() bool { return c.drained }
