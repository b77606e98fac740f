package sim

import (
	"github.com/callsimlab/callsim/stats"
)

// handleCallCancel fires when a waiting caller's patience runs out. The
// caller leaves the system or schedules a retry.
func (ctx *RunContext) handleCallCancel(e *Event) {
	c := e.Caller
	c.cancelEvent = nil

	if a := c.assignedAgent; a != nil {
		// the caller was tentatively assigned and hung up during the
		// technical free time: unwind the assignment
		ctx.cancelEvent(c.serviceEvent)
		c.serviceEvent = nil
		c.assignedAgent = nil
		a.caller = nil
		ctx.markAgentAsFree(a)
	} else {
		ctx.dequeueCaller(c)
		ctx.dropRecheckEvents(c)
	}

	// call-level abandonment is charged to the interval the waiting
	// started in, customer-level to the interval of the first call
	i := stats.Interval(c.StartWaitingTime)
	waited := ctx.now - c.StartWaitingTime
	for _, b := range ctx.callStats(c) {
		b.CallsAbandoned++
		b.CallsAbandonedPerInterval[i]++
		b.CallsAbandon.Add(waited, i)
	}

	g := c.Group
	p, targets := g.RetryProbGiveUp, g.RetryTargetsGiveUp
	if c.RetryCount == 0 {
		p, targets = g.RetryProbGiveUpFirst, g.RetryTargetsGiveUpFirst
	}
	if ctx.Rand.Float64() < p {
		ctx.scheduleRetry(c, targets)
	} else {
		totalWait := c.CallerWaitingTime + waited
		fi := stats.Interval(c.FirstCallTime)
		for _, b := range ctx.clientStats(c) {
			b.ClientsAbandoned++
			b.ClientsAbandonedPerInterval[fi]++
			b.ClientsAbandon.Add(totalWait, fi)
			b.ClientsAbandonedToday++
		}
		ctx.callers.release(c)
	}

	ctx.runStopTest()
}

// handleReCheck re-attempts matching for a still-queued caller that just
// passed a minimum-waiting-time checkpoint and may have become visible to
// more callcenters. A no-op for a caller that already left the queue.
func (ctx *RunContext) handleReCheck(e *Event) {
	c := e.Caller
	for i, x := range c.recheckEvents {
		if x == e {
			c.recheckEvents = append(c.recheckEvents[:i], c.recheckEvents[i+1:]...)
			break
		}
	}

	if !c.inQueue {
		return
	}
	if a := ctx.findAgentForCaller(c); a != nil {
		ctx.matchCallerAgent(c, a)
	}
}
