// Package detkernel provides a deterministic structured-concurrency
// runtime kernel: regions, cooperatively polled tasks, linearity
// obligations, bounded two-phase channels, and a timer wheel, all built
// on fixed-capacity arenas so that scheduling is reproducible from a
// seed and a fixture.
//
// # Architecture
//
// A [Kernel] owns every arena (regions, tasks, obligations, channels)
// and the timer wheel. User code calls [Kernel.RegionOpen], spawns
// tasks into it with [Kernel.TaskSpawn], optionally reserves obligations or
// creates channels, then calls [Kernel.SchedulerRun] with a [Budget]. The
// scheduler drains ready tasks in ascending slot-index order, collects
// expired timers, propagates cancellation, and returns on quiescence or
// budget exhaustion.
//
// Every lifecycle event is emitted onto the [trace] package's event
// log, which accumulates an FNV-1a hash-chain digest; identical
// fixture inputs and seeds reproduce byte-equal digests across runs.
// Nondeterminism boundaries (clock reads, tie-breaks, entropy draws)
// can be recorded onto the [hindsight] ring with [Kernel.HindsightLog]
// for offline divergence diagnostics; the scheduler itself does not
// write to that ring.
//
// # Determinism
//
// The kernel is single-threaded and cooperative: exactly one task polls
// at a time, the ready queue is iterated by ascending slot index, and
// timers fire in (deadline, insertion_seq) order. There is no
// preemption, and every arena is fixed-capacity and reports exhaustion
// rather than growing. The poll loop does allocate small per-round
// slices (the region's task-handle list and the expired-timer batch).
//
// # Admission and adaptive decisions
//
// The [overload] package implements the domain-agnostic CORE
// REJECT@90% admission policy, plus the isomorphism sweep that proves a
// domain-accelerated admission policy never admits what CORE would
// reject. The [adaptive] package implements expected-loss decision
// surfaces with a deterministic fallback action and a replayable
// evidence ledger.
package detkernel
