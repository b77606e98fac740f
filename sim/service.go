package sim

import (
	"github.com/callsimlab/callsim/dist"
	"github.com/callsimlab/callsim/model"
	"github.com/callsimlab/callsim/stats"
)

// handleService1Start begins service once the technical free time has
// passed. The waiting phase of this call ends here; waiting-time and
// service-level statistics are charged to the interval the waiting started
// in.
func (ctx *RunContext) handleService1Start(e *Event) {
	c, a := e.Caller, e.Agent
	c.serviceEvent = nil

	if c.cancelEvent != nil {
		ctx.cancelEvent(c.cancelEvent)
		c.cancelEvent = nil
	}

	g := c.Group
	waited := ctx.now - c.StartWaitingTime
	i := stats.Interval(c.StartWaitingTime)

	for _, b := range ctx.callStats(c) {
		b.CallsSuccess++
		b.CallsSuccessPerInterval[i]++
		b.CallsWait.Add(waited, i)
		// the inter-day aggregates need this sum live at every day boundary
		b.CallsWait.Sum += float64(waited) / 1000
	}
	// the service-level comparison works on whole seconds
	if waited/1000 <= Time(g.ServiceLevelSeconds) {
		for _, b := range ctx.callStats(c) {
			b.CallsServiceLevel++
			b.CallsServiceLevelPerInterval[i]++
		}
	}
	c.CallerWaitingTime += waited

	skill := a.Seat.Skill
	sub := skill.SubIndex(g)
	ni := stats.Interval(ctx.now)

	secs := dist.NonNegative(ctx.Rand, skill.ServiceTime[sub][ni])
	if f := skill.ServiceTimeAddOn[sub][ni]; f != nil {
		// a broken add-on formula disables the add-on, nothing more
		if add, err := f.Eval(map[string]any{
			"waitingTime": float64(waited) / 1000,
		}); err == nil {
			secs += add
		}
	}
	dur := Time(secs * 1000)
	if dur < 0 {
		dur = 0
	}

	ctx.setAgentStatus(a, AgentService)
	for _, b := range ctx.agentBuckets(a) {
		b.AddAnswered(g.Index, ni)
	}
	if a.Seat.CostPerCall != nil {
		for _, b := range ctx.agentBuckets(a) {
			b.CostCalls += a.Seat.CostPerCall[g.Index]
		}
	}

	c.ServiceStartTime = ctx.now
	next := ctx.scheduleCallerEvent(EventService2Start, ctx.now+dur, c)
	next.Agent = a
}

// handleService2Start ends service and begins the agent's post-processing.
// The caller's journey resolves into exactly one of forward, recall or
// plain completion.
func (ctx *RunContext) handleService2Start(e *Event) {
	c, a := e.Caller, e.Agent

	g := c.Group
	skill := a.Seat.Skill
	sub := skill.SubIndex(g)
	ni := stats.Interval(ctx.now)

	serviceDur := ctx.now - c.ServiceStartTime
	if a.Seat.CostPerMinute != nil {
		for _, b := range ctx.agentBuckets(a) {
			b.CostProcess += float64(serviceDur) / 60_000 * a.Seat.CostPerMinute[g.Index]
		}
	}

	post := Time(dist.NonNegative(ctx.Rand, skill.PostTime[sub][ni]) * 1000)
	ctx.setAgentStatus(a, AgentPost)
	ctx.scheduleAgentEvent(EventAgentReady, ctx.now+post, a)

	a.caller = nil
	c.assignedAgent = nil

	// staying time of this hop, from queue entry to service end
	i := stats.Interval(c.StartWaitingTime)
	stay := ctx.now - c.StartWaitingTime
	for _, b := range ctx.callStats(c) {
		b.CallsStay.Add(stay, i)
	}
	c.CallerStayingTime += stay

	if ctx.maybeForward(c, skill, g) {
		return
	}
	ctx.maybeRecall(c, skill, g)
	ctx.completeClient(c)
}

// maybeForward re-enqueues the caller as a continuing call under a possibly
// new type. The customer journey does not end yet.
func (ctx *RunContext) maybeForward(c *Caller, skill *model.SkillLevel, g *model.CallerGroup) bool {
	p, targets := g.ForwardProb, g.ForwardTargets
	if r := model.FindSkillRule(g.ForwardBySkill, skill); r != nil {
		p, targets = r.Prob, r.Targets
	}
	if p <= 0 || ctx.Rand.Float64() >= p {
		return false
	}

	// forwarded calls are charged to the interval the waiting started in;
	// the customer counts as forwarded once, on the first forward
	i := stats.Interval(c.StartWaitingTime)
	for _, b := range ctx.callStats(c) {
		b.CallsForwarded++
		b.CallsForwardedPerInterval[i]++
	}
	if !c.CallContinued {
		fi := stats.Interval(c.FirstCallTime)
		for _, b := range ctx.clientStats(c) {
			b.ClientsForwarded++
			b.ClientsForwardedPerInterval[fi]++
		}
	}

	if t := targets.Pick(ctx.Rand); t != nil {
		c.Group = t
		c.CallBucket = ctx.Stats.PerGroup[t.Index]
	}
	c.CallContinued = true
	c.retryEvent = ctx.scheduleCallerEvent(EventCall, ctx.now, c)
	return true
}

// maybeRecall spawns a brand-new caller record for a future call under a
// sampled type. The current caller is unaffected and completes normally.
func (ctx *RunContext) maybeRecall(c *Caller, skill *model.SkillLevel, g *model.CallerGroup) {
	p, targets := g.RecallProb, g.RecallTargets
	if r := model.FindSkillRule(g.RecallBySkill, skill); r != nil {
		p, targets = r.Prob, r.Targets
	}
	if p <= 0 || ctx.Rand.Float64() >= p {
		return
	}

	ng := g
	if t := targets.Pick(ctx.Rand); t != nil {
		ng = t
	}
	delay := Time(dist.NonNegative(ctx.Rand, g.RecallDelayDist) * 1000)
	at := ctx.now + delay

	nc := ctx.newCaller(ng)
	nc.FirstCallTime = at
	nc.IsRecall = true

	ri := stats.Interval(at)
	for _, b := range ctx.clientStats(nc) {
		b.ClientsRecall++
		b.ClientsRecallPerInterval[ri]++
	}

	nc.retryEvent = ctx.scheduleCallerEvent(EventCall, at, nc)
	ctx.addExternal(nc)
}

// completeClient finalizes a fully served customer. The customer-level
// statistics are charged to the interval of the journey's first call and
// use the waiting and staying times accumulated across all hops. The
// service-level threshold is the one of the type the journey ended under.
func (ctx *RunContext) completeClient(c *Caller) {
	i := stats.Interval(c.FirstCallTime)

	for _, b := range ctx.clientStats(c) {
		b.ClientsSuccess++
		b.ClientsSuccessPerInterval[i]++
		b.ClientsWait.Add(c.CallerWaitingTime, i)
		b.ClientsStay.Add(c.CallerStayingTime, i)
	}
	if c.CallerWaitingTime/1000 <= Time(c.Group.ServiceLevelSeconds) {
		for _, b := range ctx.clientStats(c) {
			b.ClientsServiceLevel++
			b.ClientsServiceLevelPerInterval[i]++
		}
	}

	ctx.callers.release(c)
}
