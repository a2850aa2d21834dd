package detkernel

import "time"

// kernelOptions holds configuration for Kernel construction.
type kernelOptions struct {
	logger              Logger
	regionCapacity      int
	taskCapacity        int
	obligationCapacity  int
	channelCapacity     int
	timerCapacity       int
	traceRingCapacity   int
	hindsightCapacity   int
	cleanupCapacity     int
	ledgerTaskSlots     int
	ledgerDepth         int
	cancelChainLimit    int
	cleanupAllowance    int
	timerMaxDuration    time.Duration
}

// KernelOption configures a Kernel instance.
type KernelOption interface {
	applyKernel(*kernelOptions) error
}

type kernelOptionImpl struct {
	applyKernelFunc func(*kernelOptions) error
}

func (k *kernelOptionImpl) applyKernel(opts *kernelOptions) error {
	return k.applyKernelFunc(opts)
}

// WithLogger configures the Kernel's Logger. If unset, the process-wide
// default (SetStructuredLogger) is used, falling back to a no-op.
func WithLogger(logger Logger) KernelOption {
	return &kernelOptionImpl{func(opts *kernelOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithArenaCapacities configures the fixed capacities of the region,
// task, obligation, channel, and timer arenas.
func WithArenaCapacities(regions, tasks, obligations, channels, timers int) KernelOption {
	return &kernelOptionImpl{func(opts *kernelOptions) error {
		if regions <= 0 || tasks <= 0 || obligations <= 0 || channels <= 0 || timers <= 0 {
			return NewFault(StatusInvalidArgument, "WithArenaCapacities", "capacities must be positive")
		}
		opts.regionCapacity = regions
		opts.taskCapacity = tasks
		opts.obligationCapacity = obligations
		opts.channelCapacity = channels
		opts.timerCapacity = timers
		return nil
	}}
}

// WithTraceRingCapacity configures the trace event ring's fixed
// capacity (default 1024, per spec).
func WithTraceRingCapacity(capacity int) KernelOption {
	return &kernelOptionImpl{func(opts *kernelOptions) error {
		if capacity <= 0 {
			return NewFault(StatusInvalidArgument, "WithTraceRingCapacity", "capacity must be positive")
		}
		opts.traceRingCapacity = capacity
		return nil
	}}
}

// WithHindsightCapacity configures the hindsight ring's fixed capacity
// (default 256, per spec).
func WithHindsightCapacity(capacity int) KernelOption {
	return &kernelOptionImpl{func(opts *kernelOptions) error {
		if capacity <= 0 {
			return NewFault(StatusInvalidArgument, "WithHindsightCapacity", "capacity must be positive")
		}
		opts.hindsightCapacity = capacity
		return nil
	}}
}

// WithCancelChainLimit configures the cancel-propagation breadth limit
// (default 16): CancelPropagate fails with
// StatusCancelChainLimitExceeded, cancelling nothing, when the region
// owns more tasks than this.
func WithCancelChainLimit(limit int) KernelOption {
	return &kernelOptionImpl{func(opts *kernelOptions) error {
		if limit <= 0 {
			return NewFault(StatusInvalidArgument, "WithCancelChainLimit", "limit must be positive")
		}
		opts.cancelChainLimit = limit
		return nil
	}}
}

// WithCleanupAllowance configures the bounded number of extra polls
// granted to a Cancelling task before it is force-completed (default 50,
// per spec).
func WithCleanupAllowance(polls int) KernelOption {
	return &kernelOptionImpl{func(opts *kernelOptions) error {
		if polls < 0 {
			return NewFault(StatusInvalidArgument, "WithCleanupAllowance", "polls must be non-negative")
		}
		opts.cleanupAllowance = polls
		return nil
	}}
}

// WithTimerMaxDuration configures the timer wheel's duration ceiling
// (default 24h, per spec).
func WithTimerMaxDuration(d time.Duration) KernelOption {
	return &kernelOptionImpl{func(opts *kernelOptions) error {
		if d <= 0 {
			return NewFault(StatusInvalidArgument, "WithTimerMaxDuration", "duration must be positive")
		}
		opts.timerMaxDuration = d
		return nil
	}}
}

// WithLedgerCapacity configures the per-task error ledger's depth and
// the number of task slots tracked (default depth 16, slots 64, per
// spec §7).
func WithLedgerCapacity(taskSlots, depth int) KernelOption {
	return &kernelOptionImpl{func(opts *kernelOptions) error {
		if taskSlots <= 0 || depth <= 0 {
			return NewFault(StatusInvalidArgument, "WithLedgerCapacity", "slots and depth must be positive")
		}
		opts.ledgerTaskSlots = taskSlots
		opts.ledgerDepth = depth
		return nil
	}}
}

// resolveKernelOptions applies opts over defaults.
func resolveKernelOptions(opts []KernelOption) (*kernelOptions, error) {
	cfg := &kernelOptions{
		regionCapacity:     256,
		taskCapacity:       4096,
		obligationCapacity: 4096,
		channelCapacity:    1024,
		timerCapacity:      4096,
		traceRingCapacity:  1024,
		hindsightCapacity:  256,
		cleanupCapacity:    4096,
		ledgerTaskSlots:    64,
		ledgerDepth:        16,
		cancelChainLimit:   16,
		cleanupAllowance:   50,
		timerMaxDuration:   24 * time.Hour,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyKernel(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.logger == nil {
		cfg.logger = getGlobalLogger()
	}
	return cfg, nil
}
