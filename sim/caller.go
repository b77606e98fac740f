package sim

import (
	"github.com/callsimlab/callsim/model"
	"github.com/callsimlab/callsim/stats"
)

// A Caller is one customer currently in the system. At any simulated
// instant it is in exactly one of four places: being processed inside a
// handler, queued on the phone queue of its current group, waiting
// externally between retries, or assigned to an agent.
//
// The call bucket follows the caller's current group across retries and
// forwards; the client bucket stays with the group the customer journey
// started under.
type Caller struct {
	Group *model.CallerGroup

	CallBucket   *stats.Bucket
	ClientBucket *stats.Bucket

	StartWaitingTime Time
	FirstCallTime    Time
	ServiceStartTime Time
	RetryCount       int

	// CallContinued marks a forwarded call; IsRecall marks a record
	// spawned by a recall after a completed service.
	CallContinued bool
	IsRecall      bool

	// Totals across all forwarding hops of the journey.
	CallerWaitingTime Time
	CallerStayingTime Time

	// Seed fields for callers handed over from the previous day, consumed
	// exactly once by the arrival handler. A negative start waiting time
	// means the caller was already waiting at midnight; a rest tolerance of
	// restToleranceRetry marks a scheduled retry whose tolerance is drawn
	// fresh.
	InitialStartWaitingTime     Time
	InitialRestWaitingTolerance Time

	// Back-references to pending events, for cancellation only.
	cancelEvent   *Event
	retryEvent    *Event
	serviceEvent  *Event
	recheckEvents []*Event

	assignedAgent *Agent
	inQueue       bool
	inExternal    bool

	nextFree *Caller
}

// restToleranceRetry marks a carried-over scheduled retry: the caller gets
// a freshly sampled waiting-time tolerance instead of a residual one.
const restToleranceRetry Time = -1

type callerPool struct {
	free *Caller
}

func (p *callerPool) acquire() *Caller {
	c := p.free
	if c == nil {
		return &Caller{}
	}
	p.free = c.nextFree
	*c = Caller{recheckEvents: c.recheckEvents[:0]}
	return c
}

func (p *callerPool) release(c *Caller) {
	c.Group = nil
	c.CallBucket = nil
	c.ClientBucket = nil
	c.nextFree = p.free
	p.free = c
}
