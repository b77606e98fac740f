package sim

import (
	"github.com/callsimlab/callsim/model"
)

// AgentStatus is the lifecycle state of one agent seat.
type AgentStatus int

const (
	AgentBeforeShift AgentStatus = iota
	AgentIdle
	AgentTechIdle
	AgentService
	AgentPost
	AgentAfterShift
)

var agentStatusNames = [...]string{
	"BeforeShift",
	"Idle",
	"TechIdle",
	"Service",
	"PostProcessing",
	"AfterShift",
}

func (s AgentStatus) String() string {
	if s < 0 || int(s) >= len(agentStatusNames) {
		return "Unknown"
	}
	return agentStatusNames[s]
}

// An Agent is the live record of one agent seat for one simulated day.
// Agents that are not idle are never members of the free-agent list, and an
// agent is assigned to at most one caller at a time.
type Agent struct {
	Seat   *model.Agent
	Status AgentStatus

	// statusSince is the time of the last status change; the elapsed
	// stretch is attributed to the old status when the status changes
	// again.
	statusSince Time

	// lastCallEnd and idleTotal feed the free-time parts of the agent
	// matching score.
	lastCallEnd Time
	idleTotal   Time

	caller *Caller

	// lastGroup is the group index of the last caller this agent served.
	// Status stretches are attributed to it, which matters for the
	// post-processing phase after the caller record is gone.
	lastGroup int
}

// idleFraction is the share of the agent's on-shift time spent idle so far.
func (a *Agent) idleFraction(now Time) float64 {
	onShift := now - a.Seat.ShiftStart
	if onShift <= 0 {
		return 1
	}
	return float64(a.idleTotal) / float64(onShift)
}

// freeSinceLastCall is the time (ms) since the agent last finished a call,
// or since shift start if it has not served yet.
func (a *Agent) freeSinceLastCall(now Time) Time {
	since := a.lastCallEnd
	if since < a.Seat.ShiftStart {
		since = a.Seat.ShiftStart
	}
	return now - since
}
