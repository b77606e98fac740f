package sim

// runStopTest checks, once the simulated day is over, which caller groups
// can still be served by the agents that have not quit. Waiting callers of
// a group that has become unservable are handed over to the next day; this
// is the only place day-end callers turn into next-day seed data.
//
// Invoked after every arrival, cancellation and agent quit, and once by the
// scheduled stop-test event right after midnight. A no-op before then.
func (ctx *RunContext) runStopTest() {
	if ctx.now <= DayMS {
		return
	}

	servable := make([]bool, len(ctx.Model.Groups))
	for _, a := range ctx.agents {
		if a.Status == AgentAfterShift {
			continue
		}
		for _, g := range ctx.Model.Groups {
			if a.Seat.Skill.CanServe(g) {
				servable[g.Index] = true
			}
		}
	}

	for _, g := range ctx.Model.Groups {
		if servable[g.Index] {
			continue
		}
		for len(ctx.phoneQueues[g.Index]) > 0 {
			ctx.carryOverQueued(ctx.phoneQueues[g.Index][0])
		}
		for len(ctx.external[g.Index]) > 0 {
			ctx.carryOverExternal(ctx.external[g.Index][0])
		}
	}
}

// carryOverQueued flushes a queued caller into the next day, preserving the
// time it has already waited and the rest of its patience.
func (ctx *RunContext) carryOverQueued(c *Caller) {
	waited := ctx.now - c.StartWaitingTime
	restTol := Time(0)
	if c.cancelEvent != nil {
		restTol = c.cancelEvent.Time - ctx.now
		ctx.cancelEvent(c.cancelEvent)
		c.cancelEvent = nil
	}

	ctx.dequeueCaller(c)
	ctx.dropRecheckEvents(c)

	gi := c.Group.Index
	ctx.carryWait[gi] = append(ctx.carryWait[gi], waited)
	ctx.carryTol[gi] = append(ctx.carryTol[gi], restTol)

	c.CallBucket.NextDayWaitingTimes = append(c.CallBucket.NextDayWaitingTimes, waited)
	c.CallBucket.NextDayWaitingTolerances = append(c.CallBucket.NextDayWaitingTolerances, restTol)

	ctx.finalizeCarriedOver(c)
}

// carryOverExternal flushes a caller waiting between retries: its planned
// retry time is recorded in the next day's frame.
func (ctx *RunContext) carryOverExternal(c *Caller) {
	retryAt := Time(0)
	if c.retryEvent != nil {
		retryAt = c.retryEvent.Time - DayMS
		ctx.cancelEvent(c.retryEvent)
		c.retryEvent = nil
	}

	ctx.removeExternal(c)

	gi := c.Group.Index
	ctx.carryRetry[gi] = append(ctx.carryRetry[gi], retryAt)
	c.CallBucket.NextDayRetryTimes = append(c.CallBucket.NextDayRetryTimes, retryAt)

	ctx.finalizeCarriedOver(c)
}

func (ctx *RunContext) finalizeCarriedOver(c *Caller) {
	for _, b := range ctx.callStats(c) {
		b.CallsCarriedOver++
	}
	for _, b := range ctx.clientStats(c) {
		b.ClientsCarriedOver++
	}

	ctx.callers.release(c)
}
