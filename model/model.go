// Package model defines the immutable per-run configuration of a call
// center: caller groups, skill levels, call centers and agents. A Model is
// built once (usually from a YAML file) and then shared read-only by all
// simulation runs.
package model

import (
	"math/rand"

	"github.com/callsimlab/callsim/dist"
	"github.com/callsimlab/callsim/stats"
)

// A TargetDist selects a caller group from a rate table. The rates do not
// need to sum to one; the residual probability mass means "keep the current
// group", in which case Pick returns nil.
type TargetDist struct {
	Groups []*CallerGroup
	Rates  []float64
}

// Pick draws a target group, or nil if the draw lands in the residual mass.
func (t TargetDist) Pick(rng *rand.Rand) *CallerGroup {
	if len(t.Groups) == 0 {
		return nil
	}
	p := rng.Float64()
	sum := 0.0
	for i, r := range t.Rates {
		sum += r
		if sum > p {
			return t.Groups[i]
		}
	}
	return nil
}

// A SkillRule overrides a group's forwarding or recall behavior when the
// serving agent has a specific skill level.
type SkillRule struct {
	Skill   *SkillLevel
	Prob    float64
	Targets TargetDist
}

// A CallerGroup describes one customer type: arrival volume, patience,
// retry/forward/recall behavior and queueing policy.
type CallerGroup struct {
	Name  string
	Index int

	// Fresh-call volume per day: mean, optional day-to-day standard
	// deviation, optional fixed per-day additions.
	FreshCallsMean  int
	FreshCallsSD    float64
	FreshCallsByDay []int

	// ArrivalDist draws the arrival time of a fresh call in seconds since
	// day start.
	ArrivalDist dist.Distribution

	// ToleranceActive is false for callers with infinite patience; then
	// ToleranceDist is nil and no cancel events are created.
	ToleranceActive bool
	ToleranceDist   dist.Distribution

	// BlocksLine marks groups whose queued callers occupy a phone line and
	// count against the queue-length limit.
	BlocksLine bool

	ServiceLevelSeconds int

	// Matching scores for the caller side.
	ScoreBase             float64
	ScoreForwarded        float64
	ScorePerWaitingSecond float64

	// RecheckTimes are minimum-wait checkpoints (ms after queue entry) at
	// which a still-queued caller re-attempts matching.
	RecheckTimes []int64

	// Retry behavior, split by first attempt vs. later attempts and by
	// blocked vs. abandoned.
	RetryProbBlockedFirst    float64
	RetryProbBlocked         float64
	RetryProbGiveUpFirst     float64
	RetryProbGiveUp          float64
	RetryTargetsBlockedFirst TargetDist
	RetryTargetsBlocked      TargetDist
	RetryTargetsGiveUpFirst  TargetDist
	RetryTargetsGiveUp       TargetDist
	RetryDelayDist           dist.Distribution // seconds

	ForwardProb    float64
	ForwardTargets TargetDist
	ForwardBySkill []SkillRule

	RecallProb      float64
	RecallTargets   TargetDist
	RecallBySkill   []SkillRule
	RecallDelayDist dist.Distribution // seconds

	// Seed data from a previous simulated day, indexed by global day
	// number. Times in ms.
	ScheduledRetryByDay   [][]int64
	InitialWaitingByDay   [][]int64
	InitialToleranceByDay [][]int64
}

// FindSkillRule returns the rule for the given skill level, or nil.
func FindSkillRule(rules []SkillRule, skill *SkillLevel) *SkillRule {
	for i := range rules {
		if rules[i].Skill == skill {
			return &rules[i]
		}
	}
	return nil
}

// A SkillLevel describes which caller groups an agent can serve and with
// what service-time behavior, per half-hour interval.
type SkillLevel struct {
	Name  string
	Index int

	// groupSub maps a caller-group index to this skill's sub-index, or -1
	// if the group cannot be served.
	groupSub []int

	// Indexed [sub][interval].
	ServiceTime      [][stats.NumIntervals]dist.Distribution
	PostTime         [][stats.NumIntervals]dist.Distribution
	ServiceTimeAddOn [][stats.NumIntervals]*Formula

	// GroupScore is the matching score contribution per sub-index.
	GroupScore []float64
}

// SubIndex returns this skill's sub-index for a caller group, or -1 if the
// group cannot be served.
func (s *SkillLevel) SubIndex(g *CallerGroup) int {
	return s.groupSub[g.Index]
}

// CanServe reports whether agents with this skill level serve the group.
func (s *SkillLevel) CanServe(g *CallerGroup) bool {
	return s.groupSub[g.Index] >= 0
}

// A Callcenter groups agents that share a technical-free-time policy,
// minimum waiting times and a base matching score.
type Callcenter struct {
	Name  string
	Index int

	Score float64

	// TechnicalFreeTime is the setup delay (ms) between matching and
	// service start. TechnicalFreeTimeIsWaitingTime controls whether a
	// caller can still hang up during the delay.
	TechnicalFreeTime              int64
	TechnicalFreeTimeIsWaitingTime bool

	AgentScoreFreeTimePart          float64
	AgentScoreFreeTimeSinceLastCall float64

	// MinWaitingTime (ms) per caller-group index; 0 means no minimum.
	MinWaitingTime []int64

	Agents []*Agent
}

// An Agent is one seat with a shift window and a skill level.
type Agent struct {
	ShiftStart int64 // ms since day start
	ShiftEnd   int64 // ms; ignored when OpenEnd
	OpenEnd    bool

	Skill      *SkillLevel
	Callcenter *Callcenter

	CostPerHour   float64
	CostPerCall   []float64 // per caller-group index
	CostPerMinute []float64 // per caller-group index, per service minute
}

// A Model is the full immutable configuration of one simulation.
type Model struct {
	Days int

	Groups      []*CallerGroup
	Skills      []*SkillLevel
	Callcenters []*Callcenter

	// MaxQueueLength limits the phone queue; evaluated over the variable
	// "workingAgents". Nil means unlimited.
	MaxQueueLength *Formula

	// MinWaitingTimeUsed is true when any callcenter configures a minimum
	// waiting time; it gates the recheck-event machinery.
	MinWaitingTimeUsed bool

	AgentCostsUsed bool
}

// TotalAgents returns the number of agent seats across all callcenters.
func (m *Model) TotalAgents() int {
	n := 0
	for _, cc := range m.Callcenters {
		n += len(cc.Agents)
	}
	return n
}

// GroupByName returns the caller group with the given name, or nil.
func (m *Model) GroupByName(name string) *CallerGroup {
	for _, g := range m.Groups {
		if g.Name == name {
			return g
		}
	}
	return nil
}
