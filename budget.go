package detkernel

import "time"

// PollQuotaUnlimited marks a Budget as having no poll-count limit.
const PollQuotaUnlimited int64 = -1

// CostQuotaUnlimited marks a Budget as having no cost limit.
const CostQuotaUnlimited int64 = -1

// Budget is the scheduler's resource algebra: a deadline, a poll quota,
// a cost quota, and a priority (spec §2, L3).
type Budget struct {
	Deadline    time.Time
	HasDeadline bool
	PollQuota   int64
	CostQuota   int64
	Priority    int32
}

// NewBudget returns a Budget with the given poll quota and no deadline,
// cost quota, or priority constraints.
func NewBudget(pollQuota int64) Budget {
	return Budget{PollQuota: pollQuota, CostQuota: CostQuotaUnlimited}
}

// WithDeadline returns a copy of b with the given deadline set.
func (b Budget) WithDeadline(deadline time.Time) Budget {
	b.Deadline = deadline
	b.HasDeadline = true
	return b
}

// Meet returns the pointwise-minimum (most constrained) of b and other:
// the earlier deadline, the smaller of each quota, and the higher of
// the two priority values.
func (b Budget) Meet(other Budget) Budget {
	out := b
	if other.HasDeadline && (!out.HasDeadline || other.Deadline.Before(out.Deadline)) {
		out.Deadline = other.Deadline
		out.HasDeadline = true
	}
	out.PollQuota = meetQuota(out.PollQuota, other.PollQuota)
	out.CostQuota = meetQuota(out.CostQuota, other.CostQuota)
	if other.Priority > out.Priority {
		out.Priority = other.Priority
	}
	return out
}

func meetQuota(a, b int64) int64 {
	if a == PollQuotaUnlimited {
		return b
	}
	if b == PollQuotaUnlimited {
		return a
	}
	if a < b {
		return a
	}
	return b
}

// Consume decrements the poll quota by one, reporting whether a poll
// could be taken (false if the quota was already exhausted).
func (b *Budget) Consume() bool {
	if b.PollQuota == PollQuotaUnlimited {
		return true
	}
	if b.PollQuota <= 0 {
		return false
	}
	b.PollQuota--
	return true
}

// ConsumeCost decrements the cost quota by cost, reporting whether
// enough cost budget remained.
func (b *Budget) ConsumeCost(cost int64) bool {
	if b.CostQuota == CostQuotaUnlimited {
		return true
	}
	if b.CostQuota < cost {
		return false
	}
	b.CostQuota -= cost
	return true
}

// IsExhausted reports whether the poll or cost quota has reached zero.
func (b Budget) IsExhausted() bool {
	return b.PollQuota == 0 || b.CostQuota == 0
}

// IsPastDeadline reports whether now is at or after the budget's
// deadline, if one is set.
func (b Budget) IsPastDeadline(now time.Time) bool {
	return b.HasDeadline && !now.Before(b.Deadline)
}
