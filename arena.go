package detkernel

// arenaSlot holds one entity value plus its generation and occupancy.
type arenaSlot[T any] struct {
	value      T
	generation uint32
	occupied   bool
}

// Arena is a fixed-capacity generic slot array with generation-validated
// handles (spec §2, L2). It never grows: Alloc reports
// StatusResourceExhausted once every slot is occupied, and allocation
// never allocates memory beyond the fixed backing array (the zero value
// of T is reused in place on Free).
type Arena[T any] struct {
	kind     EntityKind
	slots    []arenaSlot[T]
	free     []uint32
	occupied int
}

// NewArena constructs an Arena of the given entity kind and fixed
// capacity.
func NewArena[T any](kind EntityKind, capacity int) *Arena[T] {
	a := &Arena[T]{
		kind:  kind,
		slots: make([]arenaSlot[T], capacity),
		free:  make([]uint32, capacity),
	}
	for i := range a.free {
		a.free[i] = uint32(capacity - 1 - i)
	}
	return a
}

// Cap returns the arena's fixed capacity.
func (a *Arena[T]) Cap() int { return len(a.slots) }

// Len returns the number of currently occupied slots.
func (a *Arena[T]) Len() int { return a.occupied }

// Alloc reserves a free slot, assigns it the supplied initial value,
// and returns its Handle. Returns StatusResourceExhausted if the arena
// is at capacity.
func (a *Arena[T]) Alloc(initial T) (Handle, *T, error) {
	if len(a.free) == 0 {
		return NilHandle, nil, NewFault(StatusResourceExhausted, "Arena.Alloc", a.kind.String()+" arena exhausted")
	}
	idx := a.free[len(a.free)-1]
	a.free = a.free[:len(a.free)-1]
	slot := &a.slots[idx]
	slot.value = initial
	slot.occupied = true
	a.occupied++
	return NewHandle(a.kind, slot.generation, idx), &slot.value, nil
}

// Get resolves h to its value pointer. Returns StatusStaleHandle if the
// slot's current generation differs from h's (including a slot freed
// since h was issued), or StatusNotFound if the slot is unoccupied or
// out of range.
func (a *Arena[T]) Get(h Handle) (*T, error) {
	if h.Kind() != a.kind {
		return nil, NewFault(StatusNotFound, "Arena.Get", "handle kind mismatch")
	}
	idx := h.Slot()
	if int(idx) >= len(a.slots) {
		return nil, NewFault(StatusNotFound, "Arena.Get", "slot out of range")
	}
	slot := &a.slots[idx]
	if slot.generation != h.Generation() {
		return nil, NewFault(StatusStaleHandle, "Arena.Get", "stale handle")
	}
	if !slot.occupied {
		return nil, NewFault(StatusNotFound, "Arena.Get", "slot not occupied")
	}
	return &slot.value, nil
}

// Free releases h's slot, bumping its generation so existing handles
// become stale, and returns the slot to the free list.
func (a *Arena[T]) Free(h Handle) error {
	v, err := a.Get(h)
	if err != nil {
		return err
	}
	idx := h.Slot()
	slot := &a.slots[idx]
	var zero T
	*v = zero
	slot.occupied = false
	slot.generation = (slot.generation + 1) & handleGenMask
	a.free = append(a.free, idx)
	a.occupied--
	return nil
}

// Range calls fn for every occupied slot's handle and value, in
// ascending slot-index order (the deterministic iteration order the
// scheduler relies on). fn must not call Alloc/Free on the same Arena.
func (a *Arena[T]) Range(fn func(h Handle, v *T) bool) {
	for idx := range a.slots {
		slot := &a.slots[idx]
		if !slot.occupied {
			continue
		}
		h := NewHandle(a.kind, slot.generation, uint32(idx))
		if !fn(h, &slot.value) {
			return
		}
	}
}
