package detkernel

// Permit is a single-use token proving reserved capacity on a channel
// (spec §4.4, GLOSSARY). Token 0 is never issued and is rejected as
// invalid; a permit slot's occupied flag marks whether it is free.
type Permit struct {
	Channel Handle
	Slot    uint32
	Token   uint64
}

// permitSlot is one entry in a channel's fixed permit table.
type permitSlot struct {
	token    uint64
	occupied bool
}

// channelEntity is a bounded MPSC channel with a two-phase
// reserve/commit-or-abort send protocol (spec §4.4). The FIFO ring
// idiom is grounded on the teacher's lock-free ingress ring, adapted
// here to single-threaded cooperative access behind the kernel's
// one-poll-at-a-time invariant.
type channelEntity struct {
	self      Handle
	region    Handle
	state     ChannelState
	capacity  int
	queue     []any
	queueHead int
	queueLen  int
	reserved  int
	permits   []permitSlot
	freeSlots []uint32
	nextToken uint64
}

// newChannelEntity constructs a channel of the given fixed capacity,
// owned by region. self must be set by the caller once the entity's
// own handle is known (spec: channel.create).
func newChannelEntity(region Handle, capacity int) *channelEntity {
	c := &channelEntity{
		region:    region,
		state:     ChannelOpen,
		capacity:  capacity,
		queue:     make([]any, capacity),
		permits:   make([]permitSlot, capacity),
		freeSlots: make([]uint32, capacity),
		nextToken: 1,
	}
	for i := range c.freeSlots {
		c.freeSlots[i] = uint32(capacity - 1 - i)
	}
	return c
}

// tryReserve allocates a unique monotonic permit token and increments
// reserved, or fails with channel-full / disconnected / invalid-state
// (spec: try_reserve).
func (c *channelEntity) tryReserve() (Permit, error) {
	switch c.state {
	case ChannelSenderClosed, ChannelFullyClosed:
		return Permit{}, NewFault(StatusDisconnected, "Channel.TryReserve", "sender closed")
	case ChannelReceiverClosed:
		return Permit{}, NewFault(StatusInvalidState, "Channel.TryReserve", "receiver closed")
	case ChannelOpen:
	default:
		return Permit{}, NewFault(StatusInvalidState, "Channel.TryReserve", "channel not open")
	}
	if c.queueLen+c.reserved >= c.capacity {
		return Permit{}, NewFault(StatusChannelFull, "Channel.TryReserve", "channel at capacity")
	}
	idx := c.freeSlots[len(c.freeSlots)-1]
	c.freeSlots = c.freeSlots[:len(c.freeSlots)-1]
	token := c.nextToken
	c.nextToken++
	c.permits[idx] = permitSlot{token: token, occupied: true}
	c.reserved++
	return Permit{Channel: c.self, Slot: idx, Token: token}, nil
}

// validatePermit checks p against the permit table, returning
// invalid-state if it is stale, already consumed, or unknown.
func (c *channelEntity) validatePermit(p Permit) (*permitSlot, error) {
	if p.Token == 0 || int(p.Slot) >= len(c.permits) {
		return nil, NewFault(StatusInvalidState, "Channel.Permit", "invalid permit")
	}
	slot := &c.permits[p.Slot]
	if !slot.occupied || slot.token != p.Token {
		return nil, NewFault(StatusInvalidState, "Channel.Permit", "permit already consumed or unknown")
	}
	return slot, nil
}

// permitSend consumes p, decrements reserved, and enqueues value at
// the tail (spec: permit_send). Commit order, not reservation order,
// determines queue order (DESIGN.md Open Question 3).
func (c *channelEntity) permitSend(p Permit, value any) error {
	slot, err := c.validatePermit(p)
	if err != nil {
		return err
	}
	c.consumePermit(p.Slot, slot)
	tail := (c.queueHead + c.queueLen) % c.capacity
	c.queue[tail] = value
	c.queueLen++
	return nil
}

// permitAbort consumes p and decrements reserved without enqueueing
// (spec: permit_abort).
func (c *channelEntity) permitAbort(p Permit) error {
	slot, err := c.validatePermit(p)
	if err != nil {
		return err
	}
	c.consumePermit(p.Slot, slot)
	return nil
}

func (c *channelEntity) consumePermit(idx uint32, slot *permitSlot) {
	slot.occupied = false
	c.freeSlots = append(c.freeSlots, idx)
	c.reserved--
}

// tryRecv returns the head of the queue, or would-block if the sender
// is still open, or disconnected if it is closed and the queue is
// empty (spec: try_recv).
func (c *channelEntity) tryRecv() (any, error) {
	if c.queueLen == 0 {
		if c.state == ChannelOpen || c.state == ChannelReceiverClosed {
			return nil, NewFault(StatusWouldBlock, "Channel.TryRecv", "queue empty")
		}
		return nil, NewFault(StatusDisconnected, "Channel.TryRecv", "sender closed, queue drained")
	}
	v := c.queue[c.queueHead]
	c.queue[c.queueHead] = nil
	c.queueHead = (c.queueHead + 1) % c.capacity
	c.queueLen--
	return v, nil
}

// closeSender transitions Open→SenderClosed or
// ReceiverClosed→FullyClosed, preserving the queue for drain (spec
// §4.4).
func (c *channelEntity) closeSender() error {
	var to ChannelState
	switch c.state {
	case ChannelOpen:
		to = ChannelSenderClosed
	case ChannelReceiverClosed:
		to = ChannelFullyClosed
	default:
		return NewFault(StatusInvalidTransition, "Channel.CloseSender", c.state.String()+"->closed")
	}
	if err := validateChannelTransition(c.state, to); err != nil {
		return err
	}
	c.state = to
	return nil
}

// closeReceiver transitions Open→ReceiverClosed or
// SenderClosed→FullyClosed, discarding the queue (spec §4.4).
func (c *channelEntity) closeReceiver() error {
	var to ChannelState
	switch c.state {
	case ChannelOpen:
		to = ChannelReceiverClosed
	case ChannelSenderClosed:
		to = ChannelFullyClosed
	default:
		return NewFault(StatusInvalidTransition, "Channel.CloseReceiver", c.state.String()+"->closed")
	}
	if err := validateChannelTransition(c.state, to); err != nil {
		return err
	}
	c.state = to
	for i := range c.queue {
		c.queue[i] = nil
	}
	c.queueHead = 0
	c.queueLen = 0
	return nil
}

// getState returns the channel's current lifecycle state.
func (c *channelEntity) getState() ChannelState { return c.state }

// queueLength returns the number of committed values currently queued.
func (c *channelEntity) queueLength() int { return c.queueLen }

// reservedCount returns the number of outstanding (unresolved) permits.
func (c *channelEntity) reservedCount() int { return c.reserved }
