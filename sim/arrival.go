package sim

import (
	"github.com/callsimlab/callsim/dist"
	"github.com/callsimlab/callsim/model"
	"github.com/callsimlab/callsim/stats"
)

// callStats returns the buckets that receive the call-level counters of
// this caller: the global bucket and the bucket of the current call type.
func (ctx *RunContext) callStats(c *Caller) [2]*stats.Bucket {
	return [2]*stats.Bucket{ctx.Stats.Global, c.CallBucket}
}

// clientStats returns the buckets that receive the customer-level counters:
// the global bucket and the bucket of the type the journey started under.
func (ctx *RunContext) clientStats(c *Caller) [2]*stats.Bucket {
	return [2]*stats.Bucket{ctx.Stats.Global, c.ClientBucket}
}

// handleCall processes a call entering the system: a fresh arrival, a
// retry, a forward re-entry or a carried-over caller.
func (ctx *RunContext) handleCall(e *Event) {
	c := e.Caller
	c.retryEvent = nil
	ctx.removeExternal(c)

	g := c.Group
	i := stats.Interval(ctx.now)

	for _, b := range ctx.callStats(c) {
		b.Calls++
		b.CallsPerInterval[i]++
	}
	if !c.CallContinued && c.RetryCount == 0 {
		for _, b := range ctx.clientStats(c) {
			b.Clients++
			b.ClientsPerInterval[i]++
		}
	}

	// retries are counted when the retry call arrives, on the customer
	// level only for the first one
	if c.RetryCount > 0 {
		for _, b := range ctx.callStats(c) {
			b.CallsRetried++
			b.CallsRetriedPerInterval[i]++
		}
		if c.RetryCount == 1 {
			for _, b := range ctx.clientStats(c) {
				b.ClientsRetried++
				b.ClientsRetriedPerInterval[i]++
			}
		}
	}

	if g.BlocksLine && ctx.Model.MaxQueueLength != nil {
		limit, err := ctx.Model.MaxQueueLength.Eval(map[string]any{
			"workingAgents": float64(ctx.workingAgents),
		})
		// a broken formula disables the limit, it never aborts the run
		if err == nil && float64(ctx.queueLen) >= limit {
			ctx.handleBlockedCall(c, i)
			ctx.runStopTest()
			return
		}
	}

	if c.InitialStartWaitingTime < 0 {
		c.StartWaitingTime = c.InitialStartWaitingTime
		c.InitialStartWaitingTime = 0
	} else {
		c.StartWaitingTime = ctx.now
	}

	// tol < 0 means infinite patience
	tol := Time(-1)
	if c.InitialRestWaitingTolerance > 0 {
		tol = c.InitialRestWaitingTolerance
	} else if g.ToleranceActive {
		tol = Time(dist.NonNegative(ctx.Rand, g.ToleranceDist) * 1000)
	}
	c.InitialRestWaitingTolerance = 0

	if a := ctx.findAgentForCaller(c); a != nil {
		cc := a.Seat.Callcenter
		// abandoning during the setup delay is only possible when the
		// delay counts as waiting time and strictly outlasts the patience
		if tol >= 0 && cc.TechnicalFreeTimeIsWaitingTime && cc.TechnicalFreeTime > tol {
			c.cancelEvent = ctx.scheduleCallerEvent(EventCallCancel, ctx.now+tol, c)
		}
		ctx.matchCallerAgent(c, a)
		ctx.runStopTest()
		return
	}

	ctx.enqueueCaller(c)
	if tol >= 0 {
		c.cancelEvent = ctx.scheduleCallerEvent(EventCallCancel, ctx.now+tol, c)
	}

	if ctx.Model.MinWaitingTimeUsed {
		for _, rt := range g.RecheckTimes {
			at := c.StartWaitingTime + rt
			if at <= ctx.now {
				continue
			}
			if c.cancelEvent != nil && at >= c.cancelEvent.Time {
				continue
			}
			c.recheckEvents = append(c.recheckEvents,
				ctx.scheduleCallerEvent(EventReCheck, at, c))
		}
	}

	ctx.runStopTest()
}

func (ctx *RunContext) handleBlockedCall(c *Caller, i int) {
	for _, b := range ctx.callStats(c) {
		b.CallsBlocked++
		b.CallsBlockedPerInterval[i]++
	}

	g := c.Group
	p, targets := g.RetryProbBlocked, g.RetryTargetsBlocked
	if c.RetryCount == 0 {
		p, targets = g.RetryProbBlockedFirst, g.RetryTargetsBlockedFirst
	}
	if ctx.Rand.Float64() < p {
		ctx.scheduleRetry(c, targets)
		return
	}

	// a blocked customer who gives up for good counts against the
	// interval of its first call and against the day's lost customers
	fi := stats.Interval(c.FirstCallTime)
	for _, b := range ctx.clientStats(c) {
		b.ClientsBlocked++
		b.ClientsBlockedPerInterval[fi]++
		b.ClientsAbandonedToday++
	}
	ctx.callers.release(c)
}

// scheduleRetry turns the current call into a scheduled retry: the caller
// may change its type, waits externally and re-enters with a new call event
// after the sampled delay. The retry counters are charged on arrival, so a
// scheduled retry flushed into the next day counts as carried over only.
func (ctx *RunContext) scheduleRetry(c *Caller, targets model.TargetDist) {
	if t := targets.Pick(ctx.Rand); t != nil {
		c.Group = t
		c.CallBucket = ctx.Stats.PerGroup[t.Index]
	}
	c.RetryCount++
	c.CallContinued = false

	delay := Time(dist.NonNegative(ctx.Rand, c.Group.RetryDelayDist) * 1000)
	c.retryEvent = ctx.scheduleCallerEvent(EventCall, ctx.now+delay, c)
	ctx.addExternal(c)
}
