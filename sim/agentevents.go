package sim

// handleAgentReady fires at an agent's shift start and whenever a
// post-processing phase ends. Either way the agent is put back into
// circulation.
func (ctx *RunContext) handleAgentReady(e *Event) {
	a := e.Agent

	if a.Status == AgentBeforeShift {
		ctx.workingAgents++
		a.statusSince = ctx.now
		if !a.Seat.OpenEnd {
			ctx.scheduleAgentEvent(EventAgentQuit, a.Seat.ShiftEnd, a)
		}
	} else {
		// post-processing finished
		a.lastCallEnd = ctx.now
	}

	ctx.markAgentAsFree(a)
}

// handleAgentQuit fires at shift end. It only takes effect for an idle
// agent; an agent that is mid-call keeps working, and markAgentAsFree
// re-checks the shift end when the call is done.
func (ctx *RunContext) handleAgentQuit(e *Event) {
	a := e.Agent
	if a.Status != AgentIdle {
		return
	}
	ctx.removeFreeAgent(a)
	ctx.agentQuits(a)
}
