package detkernel

// regionEntity is a structured-concurrency scope owning tasks and
// obligations, with explicit lifecycle (spec §3). Channels record their
// owning region; timers carry no region affiliation. Poisoning is a
// one-way flag independent of state: once set, further spawn/reserve
// calls fail with region-poisoned without
// altering state.
type regionEntity struct {
	state       RegionState
	poisoned    bool
	tasks       map[Handle]struct{}
	obligations map[Handle]struct{}
	cleanup     *CleanupStack

	// captureBuf is a fixed, bump-allocated byte pool backing
	// spawn_captured's per-task user-data capture (spec §3 "capture
	// arena"). It never grows and bytes handed out are never reclaimed;
	// the region entity, buffer included, stays in the region arena
	// after it reaches Closed.
	captureBuf    []byte
	captureOffset int
}

// newRegionEntity constructs an Open region with the given fixed
// cleanup-stack and capture-arena capacities.
func newRegionEntity(cleanupCapacity, captureBytes int) *regionEntity {
	return &regionEntity{
		state:       RegionOpen,
		tasks:       make(map[Handle]struct{}),
		obligations: make(map[Handle]struct{}),
		cleanup:     NewCleanupStack(cleanupCapacity),
		captureBuf:  make([]byte, captureBytes),
	}
}

// poison sets the one-way poisoned flag (spec: region.poison).
func (r *regionEntity) poison() { r.poisoned = true }

// checkAdmission returns an error if spawn/reserve should be refused:
// region-poisoned if poisoned, region-not-open if not Open.
func (r *regionEntity) checkAdmission(op string) error {
	if r.poisoned {
		return NewFault(StatusRegionPoisoned, op, "region is poisoned")
	}
	if r.state != RegionOpen {
		return NewFault(StatusRegionNotOpen, op, "region is not open")
	}
	return nil
}

func (r *regionEntity) addTask(h Handle)       { r.tasks[h] = struct{}{} }
func (r *regionEntity) removeTask(h Handle)    { delete(r.tasks, h) }
func (r *regionEntity) taskCount() int         { return len(r.tasks) }
func (r *regionEntity) addObligation(h Handle) { r.obligations[h] = struct{}{} }
func (r *regionEntity) removeObligation(h Handle) {
	delete(r.obligations, h)
}
func (r *regionEntity) obligationCount() int { return len(r.obligations) }

// transitionTo validates and applies a region state change (spec
// §4.1).
func (r *regionEntity) transitionTo(to RegionState) error {
	if err := validateRegionTransition(r.state, to); err != nil {
		return err
	}
	r.state = to
	return nil
}

// getState returns the region's current lifecycle state.
func (r *regionEntity) getState() RegionState { return r.state }

// allocCapture bump-allocates n bytes from the region's fixed capture
// arena for spawn_captured (spec §3, §6).
func (r *regionEntity) allocCapture(n int) ([]byte, error) {
	if n < 0 || r.captureOffset+n > len(r.captureBuf) {
		return nil, NewFault(StatusResourceExhausted, "Region.SpawnCaptured", "capture arena exhausted")
	}
	b := r.captureBuf[r.captureOffset : r.captureOffset+n]
	r.captureOffset += n
	return b, nil
}
