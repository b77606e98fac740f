package sim

// The matching engine. Both directions pick the partner with the highest
// score; ties keep the first one found. A caller that has not yet reached a
// callcenter's minimum waiting time is invisible to that callcenter's
// agents, in both directions.

func (ctx *RunContext) agentScore(a *Agent, c *Caller) float64 {
	cc := a.Seat.Callcenter
	sub := a.Seat.Skill.SubIndex(c.Group)
	return cc.Score +
		a.Seat.Skill.GroupScore[sub] +
		cc.AgentScoreFreeTimePart*a.idleFraction(ctx.now) +
		cc.AgentScoreFreeTimeSinceLastCall*float64(a.freeSinceLastCall(ctx.now))
}

func (ctx *RunContext) callerScore(c *Caller) float64 {
	g := c.Group
	s := g.ScoreBase
	if c.CallContinued {
		s += g.ScoreForwarded
	}
	s += g.ScorePerWaitingSecond * float64(ctx.now-c.StartWaitingTime) / 1000
	return s
}

func (ctx *RunContext) callerVisibleTo(c *Caller, a *Agent) bool {
	if !ctx.Model.MinWaitingTimeUsed {
		return true
	}
	min := a.Seat.Callcenter.MinWaitingTime[c.Group.Index]
	return ctx.now-c.StartWaitingTime >= min
}

// findAgentForCaller returns the best free agent whose skill level serves
// the caller's group, or nil. The returned agent is removed from the
// free-agent list, so a successful match can never leave the agent visible
// to a second caller.
func (ctx *RunContext) findAgentForCaller(c *Caller) *Agent {
	var best *Agent
	bestIdx := -1
	bestScore := 0.0

	for i, a := range ctx.freeAgents {
		if !a.Seat.Skill.CanServe(c.Group) {
			continue
		}
		if !ctx.callerVisibleTo(c, a) {
			continue
		}
		score := ctx.agentScore(a, c)
		if best == nil || score > bestScore {
			best, bestIdx, bestScore = a, i, score
		}
	}

	if best != nil {
		last := len(ctx.freeAgents) - 1
		ctx.freeAgents[bestIdx] = ctx.freeAgents[last]
		ctx.freeAgents[last] = nil
		ctx.freeAgents = ctx.freeAgents[:last]
	}
	return best
}

// findCallerForAgent returns the best waiting caller the agent can serve,
// or nil. The caller stays queued; matchCallerAgent removes it.
func (ctx *RunContext) findCallerForAgent(a *Agent) *Caller {
	var best *Caller
	bestScore := 0.0

	for _, g := range ctx.Model.Groups {
		if !a.Seat.Skill.CanServe(g) {
			continue
		}
		for _, c := range ctx.phoneQueues[g.Index] {
			if !ctx.callerVisibleTo(c, a) {
				continue
			}
			score := ctx.callerScore(c)
			if best == nil || score > bestScore {
				best, bestScore = c, score
			}
		}
	}
	return best
}

// matchCallerAgent binds a caller to an agent: the caller leaves its queue,
// its recheck events die, the agent enters technical idle and service is
// scheduled after the callcenter's technical free time. The agent must
// already have left the free-agent list.
func (ctx *RunContext) matchCallerAgent(c *Caller, a *Agent) {
	ctx.dequeueCaller(c)
	ctx.dropRecheckEvents(c)

	cc := a.Seat.Callcenter

	a.caller = c
	a.lastGroup = c.Group.Index
	c.assignedAgent = a
	ctx.setAgentStatus(a, AgentTechIdle)

	// When the setup delay does not count as waiting time, the assignment
	// can no longer be abandoned.
	if c.cancelEvent != nil && !cc.TechnicalFreeTimeIsWaitingTime {
		ctx.cancelEvent(c.cancelEvent)
		c.cancelEvent = nil
	}

	e := ctx.scheduleCallerEvent(EventService1Start, ctx.now+cc.TechnicalFreeTime, c)
	e.Agent = a
	c.serviceEvent = e
}

func (ctx *RunContext) dropRecheckEvents(c *Caller) {
	for _, e := range c.recheckEvents {
		ctx.cancelEvent(e)
	}
	c.recheckEvents = c.recheckEvents[:0]
}
