package sim

import (
	"math"

	"github.com/callsimlab/callsim/dist"
	"github.com/callsimlab/callsim/model"
)

// setupDay creates the day's agents and schedules everything the day
// starts with: fresh arrivals, carried-over retries and carried-over
// waiting callers, one ready event per agent at shift start, and the
// stop-test event right after midnight.
func (ctx *RunContext) setupDay(day int) {
	ctx.day = day
	ctx.now = 0
	ctx.queueLen = 0
	ctx.queueLenSince = 0
	ctx.workingAgents = 0
	ctx.freeAgents = ctx.freeAgents[:0]

	ctx.agents = ctx.agents[:0]
	for _, cc := range ctx.Model.Callcenters {
		for _, seat := range cc.Agents {
			a := &Agent{Seat: seat, Status: AgentBeforeShift}
			ctx.agents = append(ctx.agents, a)
			ctx.scheduleAgentEvent(EventAgentReady, seat.ShiftStart, a)
			for _, b := range ctx.agentBuckets(a) {
				b.NumAgents++
			}
		}
	}

	for _, g := range ctx.Model.Groups {
		n := g.FreshCallsMean
		if g.FreshCallsSD > 0 {
			n += int(math.Round(ctx.Rand.NormFloat64() * g.FreshCallsSD))
		}
		if day < len(g.FreshCallsByDay) {
			n += g.FreshCallsByDay[day]
		}
		if n < 0 {
			n = 0
		}
		for j := 0; j < n; j++ {
			at := Time(dist.NonNegative(ctx.Rand, g.ArrivalDist) * 1000)
			c := ctx.newCaller(g)
			c.FirstCallTime = at
			c.retryEvent = ctx.scheduleCallerEvent(EventCall, at, c)
		}
	}

	ctx.seedCarriedOver(day)

	e := ctx.events.acquire(EventStopTest, DayMS+1000)
	ctx.schedule(e)
}

// seedCarriedOver creates the caller records handed over from the previous
// simulated day (or configured as initial seed data for this day).
func (ctx *RunContext) seedCarriedOver(day int) {
	for gi, g := range ctx.Model.Groups {
		retries := ctx.carryRetry[gi]
		ctx.carryRetry[gi] = nil
		if day < len(g.ScheduledRetryByDay) {
			retries = append(retries, g.ScheduledRetryByDay[day]...)
		}
		for _, at := range retries {
			if at < 0 {
				at = 0
			}
			// a carried-over retry arrives as a normal first call of the
			// new day, the marker only flags the prior-day history
			c := ctx.newCaller(g)
			c.FirstCallTime = at
			c.InitialRestWaitingTolerance = restToleranceRetry
			c.retryEvent = ctx.scheduleCallerEvent(EventCall, at, c)
			ctx.addExternal(c)
		}

		waits := ctx.carryWait[gi]
		tols := ctx.carryTol[gi]
		ctx.carryWait[gi], ctx.carryTol[gi] = nil, nil
		if day < len(g.InitialWaitingByDay) {
			waits = append(waits, g.InitialWaitingByDay[day]...)
			tols = append(tols, g.InitialToleranceByDay[day]...)
		}
		for k, w := range waits {
			c := ctx.newCaller(g)
			c.InitialStartWaitingTime = -w
			c.FirstCallTime = -w
			if k < len(tols) {
				c.InitialRestWaitingTolerance = tols[k]
			}
			c.retryEvent = ctx.scheduleCallerEvent(EventCall, 0, c)
		}
	}
}

func (ctx *RunContext) newCaller(g *model.CallerGroup) *Caller {
	c := ctx.callers.acquire()
	c.Group = g
	c.CallBucket = ctx.Stats.PerGroup[g.Index]
	c.ClientBucket = ctx.Stats.PerGroup[g.Index]
	return c
}

// finishDay closes the day out once the event queue has drained: final
// queue-length flush, close of the agents' last status stretch, office-time
// costs for open-end agents, and the roll-over of the per-day aggregates.
func (ctx *RunContext) finishDay() {
	if ctx.now < DayMS {
		ctx.now = DayMS
	}
	ctx.flushQueueLen()

	for _, a := range ctx.agents {
		if a.Status == AgentAfterShift || a.Status == AgentBeforeShift {
			continue
		}
		ctx.recordAgentStretch(a, ctx.now)
		a.statusSince = ctx.now
		if a.Seat.CostPerHour > 0 {
			hours := float64(ctx.now-a.Seat.ShiftStart) / 3_600_000
			for _, b := range ctx.agentBuckets(a) {
				b.CostOfficeTime += hours * a.Seat.CostPerHour
			}
		}
	}

	ctx.Stats.Global.CloseDay()
	for _, b := range ctx.Stats.PerGroup {
		b.CloseDay()
	}
	ctx.Stats.SimDays++
}
