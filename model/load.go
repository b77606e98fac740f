package model

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/callsimlab/callsim/dist"
	"github.com/callsimlab/callsim/stats"
)

// File is the YAML representation of a model. It is an editable description
// with names instead of indices; Build resolves it into a run Model.
type File struct {
	Days           int              `yaml:"days"`
	MaxQueueLength string           `yaml:"maxQueueLength,omitempty"`
	Groups         []GroupSpec      `yaml:"groups"`
	Skills         []SkillSpec      `yaml:"skills"`
	Callcenters    []CallcenterSpec `yaml:"callcenters"`
}

// GroupSpec describes one caller group in a model file.
type GroupSpec struct {
	Name       string `yaml:"name"`
	FreshCalls struct {
		Mean  int     `yaml:"mean"`
		SD    float64 `yaml:"sd,omitempty"`
		ByDay []int   `yaml:"byDay,omitempty"`
	} `yaml:"freshCalls"`
	Arrival             dist.Spec  `yaml:"arrival"`
	Tolerance           *dist.Spec `yaml:"tolerance,omitempty"`
	BlocksLine          bool       `yaml:"blocksLine,omitempty"`
	ServiceLevelSeconds int        `yaml:"serviceLevelSeconds,omitempty"`
	Score               struct {
		Base             float64 `yaml:"base,omitempty"`
		Forwarded        float64 `yaml:"forwarded,omitempty"`
		PerWaitingSecond float64 `yaml:"perWaitingSecond,omitempty"`
	} `yaml:"score,omitempty"`
	RecheckSeconds []int64 `yaml:"recheckSeconds,omitempty"`
	Retry          struct {
		BlockedFirst RetryCaseSpec `yaml:"blockedFirst,omitempty"`
		Blocked      RetryCaseSpec `yaml:"blocked,omitempty"`
		GiveUpFirst  RetryCaseSpec `yaml:"giveUpFirst,omitempty"`
		GiveUp       RetryCaseSpec `yaml:"giveUp,omitempty"`
		Delay        *dist.Spec    `yaml:"delay,omitempty"`
	} `yaml:"retry,omitempty"`
	Forward struct {
		Probability float64            `yaml:"probability,omitempty"`
		Targets     map[string]float64 `yaml:"targets,omitempty"`
		BySkill     []SkillRuleSpec    `yaml:"bySkill,omitempty"`
	} `yaml:"forward,omitempty"`
	Recall struct {
		Probability float64            `yaml:"probability,omitempty"`
		Targets     map[string]float64 `yaml:"targets,omitempty"`
		BySkill     []SkillRuleSpec    `yaml:"bySkill,omitempty"`
		Delay       *dist.Spec         `yaml:"delay,omitempty"`
	} `yaml:"recall,omitempty"`
	CarryOver struct {
		ScheduledRetryByDay   [][]int64 `yaml:"scheduledRetryByDay,omitempty"`
		InitialWaitingByDay   [][]int64 `yaml:"initialWaitingByDay,omitempty"`
		InitialToleranceByDay [][]int64 `yaml:"initialToleranceByDay,omitempty"`
	} `yaml:"carryOver,omitempty"`
}

// RetryCaseSpec is one retry case: probability plus target-type rates.
type RetryCaseSpec struct {
	Probability float64            `yaml:"probability,omitempty"`
	Targets     map[string]float64 `yaml:"targets,omitempty"`
}

// SkillRuleSpec is a per-skill forwarding/recall override.
type SkillRuleSpec struct {
	Skill       string             `yaml:"skill"`
	Probability float64            `yaml:"probability"`
	Targets     map[string]float64 `yaml:"targets,omitempty"`
}

// SkillSpec describes one skill level in a model file.
type SkillSpec struct {
	Name   string           `yaml:"name"`
	Groups []SkillGroupSpec `yaml:"groups"`
}

// SkillGroupSpec describes how one skill level serves one caller group.
// Per-interval overrides are keyed by the interval index ("0" to "47").
type SkillGroupSpec struct {
	Group                  string               `yaml:"group"`
	Score                  float64              `yaml:"score,omitempty"`
	ServiceTime            dist.Spec            `yaml:"serviceTime"`
	ServiceTimePerInterval map[string]dist.Spec `yaml:"serviceTimePerInterval,omitempty"`
	ServiceTimeAddOn       string               `yaml:"serviceTimeAddOn,omitempty"`
	PostTime               dist.Spec            `yaml:"postTime"`
	PostTimePerInterval    map[string]dist.Spec `yaml:"postTimePerInterval,omitempty"`
}

// CallcenterSpec describes one callcenter in a model file.
type CallcenterSpec struct {
	Name                           string  `yaml:"name"`
	Score                          float64 `yaml:"score,omitempty"`
	TechnicalFreeTimeSeconds       int64   `yaml:"technicalFreeTimeSeconds,omitempty"`
	TechnicalFreeTimeIsWaitingTime bool    `yaml:"technicalFreeTimeIsWaitingTime,omitempty"`
	AgentScore                     struct {
		FreeTimePart          float64 `yaml:"freeTimePart,omitempty"`
		FreeTimeSinceLastCall float64 `yaml:"freeTimeSinceLastCall,omitempty"`
	} `yaml:"agentScore,omitempty"`
	MinWaitingTimeSeconds map[string]int64 `yaml:"minWaitingTimeSeconds,omitempty"`
	Agents                []AgentSpec      `yaml:"agents"`
}

// AgentSpec describes a batch of identical agent seats.
type AgentSpec struct {
	Count         int                `yaml:"count,omitempty"`
	ShiftStart    int64              `yaml:"shiftStart"` // seconds since day start
	ShiftEnd      int64              `yaml:"shiftEnd,omitempty"`
	OpenEnd       bool               `yaml:"openEnd,omitempty"`
	Skill         string             `yaml:"skill"`
	CostPerHour   float64            `yaml:"costPerHour,omitempty"`
	CostPerCall   map[string]float64 `yaml:"costPerCall,omitempty"`
	CostPerMinute map[string]float64 `yaml:"costPerMinute,omitempty"`
}

// LoadFile reads and builds a model from a YAML file.
func LoadFile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}

	m, err := f.Build()
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}
	return m, nil
}

// Build resolves all names, compiles formulas and produces the immutable
// run model.
func (f *File) Build() (*Model, error) {
	if len(f.Groups) == 0 {
		return nil, fmt.Errorf("at least one caller group is required")
	}

	m := &Model{Days: f.Days}
	if m.Days <= 0 {
		m.Days = 1
	}

	groupByName := map[string]*CallerGroup{}
	for i, gs := range f.Groups {
		if groupByName[gs.Name] != nil {
			return nil, fmt.Errorf("group %q: duplicate name", gs.Name)
		}
		g := &CallerGroup{Name: gs.Name, Index: i}
		m.Groups = append(m.Groups, g)
		groupByName[gs.Name] = g
	}

	skillByName := map[string]*SkillLevel{}
	for i, ss := range f.Skills {
		if skillByName[ss.Name] != nil {
			return nil, fmt.Errorf("skill %q: duplicate name", ss.Name)
		}
		s := &SkillLevel{Name: ss.Name, Index: i}
		m.Skills = append(m.Skills, s)
		skillByName[ss.Name] = s
	}

	for i, gs := range f.Groups {
		if err := buildGroup(m.Groups[i], &gs, groupByName, skillByName); err != nil {
			return nil, fmt.Errorf("group %q: %w", gs.Name, err)
		}
	}

	for i, ss := range f.Skills {
		if err := buildSkill(m.Skills[i], &ss, groupByName, len(m.Groups)); err != nil {
			return nil, fmt.Errorf("skill %q: %w", ss.Name, err)
		}
	}

	for i, cs := range f.Callcenters {
		cc, err := buildCallcenter(&cs, i, groupByName, skillByName, len(m.Groups))
		if err != nil {
			return nil, fmt.Errorf("callcenter %q: %w", cs.Name, err)
		}
		m.Callcenters = append(m.Callcenters, cc)
		for _, g := range cc.MinWaitingTime {
			if g > 0 {
				m.MinWaitingTimeUsed = true
			}
		}
		for _, a := range cc.Agents {
			if a.CostPerHour > 0 || a.CostPerCall != nil || a.CostPerMinute != nil {
				m.AgentCostsUsed = true
			}
		}
	}

	// Queued callers become visible to a callcenter only once they pass its
	// minimum waiting time, so every distinct minimum is a re-matching
	// checkpoint for the group.
	for _, g := range m.Groups {
		for _, cc := range m.Callcenters {
			if t := cc.MinWaitingTime[g.Index]; t > 0 && !containsInt64(g.RecheckTimes, t) {
				g.RecheckTimes = append(g.RecheckTimes, t)
			}
		}
		sort.Slice(g.RecheckTimes, func(i, j int) bool {
			return g.RecheckTimes[i] < g.RecheckTimes[j]
		})
	}

	if f.MaxQueueLength != "" {
		formula, err := CompileFormula(f.MaxQueueLength, "workingAgents")
		if err != nil {
			return nil, err
		}
		m.MaxQueueLength = formula
	}

	return m, nil
}

func containsInt64(s []int64, v int64) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func buildTargets(rates map[string]float64, groups map[string]*CallerGroup) (TargetDist, error) {
	var t TargetDist
	for name, rate := range rates {
		g := groups[name]
		if g == nil {
			return t, fmt.Errorf("unknown target group %q", name)
		}
		t.Groups = append(t.Groups, g)
		t.Rates = append(t.Rates, rate)
	}
	return t, nil
}

func buildDist(s *dist.Spec) (dist.Distribution, error) {
	if s == nil {
		return nil, nil
	}
	return s.Build()
}

func buildGroup(
	g *CallerGroup,
	gs *GroupSpec,
	groups map[string]*CallerGroup,
	skills map[string]*SkillLevel,
) error {
	g.FreshCallsMean = gs.FreshCalls.Mean
	g.FreshCallsSD = gs.FreshCalls.SD
	g.FreshCallsByDay = gs.FreshCalls.ByDay

	arrival, err := gs.Arrival.Build()
	if err != nil {
		return fmt.Errorf("arrival: %w", err)
	}
	g.ArrivalDist = arrival

	if gs.Tolerance != nil {
		g.ToleranceActive = true
		if g.ToleranceDist, err = gs.Tolerance.Build(); err != nil {
			return fmt.Errorf("tolerance: %w", err)
		}
	}

	g.BlocksLine = gs.BlocksLine
	g.ServiceLevelSeconds = gs.ServiceLevelSeconds
	g.ScoreBase = gs.Score.Base
	g.ScoreForwarded = gs.Score.Forwarded
	g.ScorePerWaitingSecond = gs.Score.PerWaitingSecond

	for _, s := range gs.RecheckSeconds {
		g.RecheckTimes = append(g.RecheckTimes, s*1000)
	}

	g.RetryProbBlockedFirst = gs.Retry.BlockedFirst.Probability
	g.RetryProbBlocked = gs.Retry.Blocked.Probability
	g.RetryProbGiveUpFirst = gs.Retry.GiveUpFirst.Probability
	g.RetryProbGiveUp = gs.Retry.GiveUp.Probability
	if g.RetryTargetsBlockedFirst, err = buildTargets(gs.Retry.BlockedFirst.Targets, groups); err != nil {
		return err
	}
	if g.RetryTargetsBlocked, err = buildTargets(gs.Retry.Blocked.Targets, groups); err != nil {
		return err
	}
	if g.RetryTargetsGiveUpFirst, err = buildTargets(gs.Retry.GiveUpFirst.Targets, groups); err != nil {
		return err
	}
	if g.RetryTargetsGiveUp, err = buildTargets(gs.Retry.GiveUp.Targets, groups); err != nil {
		return err
	}
	if g.RetryDelayDist, err = buildDist(gs.Retry.Delay); err != nil {
		return fmt.Errorf("retry delay: %w", err)
	}
	if g.RetryDelayDist == nil {
		g.RetryDelayDist = dist.Deterministic{Value: 0}
	}

	g.ForwardProb = gs.Forward.Probability
	if g.ForwardTargets, err = buildTargets(gs.Forward.Targets, groups); err != nil {
		return err
	}
	if g.ForwardBySkill, err = buildSkillRules(gs.Forward.BySkill, groups, skills); err != nil {
		return err
	}

	g.RecallProb = gs.Recall.Probability
	if g.RecallTargets, err = buildTargets(gs.Recall.Targets, groups); err != nil {
		return err
	}
	if g.RecallBySkill, err = buildSkillRules(gs.Recall.BySkill, groups, skills); err != nil {
		return err
	}
	if g.RecallDelayDist, err = buildDist(gs.Recall.Delay); err != nil {
		return fmt.Errorf("recall delay: %w", err)
	}
	if g.RecallDelayDist == nil {
		g.RecallDelayDist = dist.Deterministic{Value: 0}
	}

	g.ScheduledRetryByDay = gs.CarryOver.ScheduledRetryByDay
	g.InitialWaitingByDay = gs.CarryOver.InitialWaitingByDay
	g.InitialToleranceByDay = gs.CarryOver.InitialToleranceByDay
	if len(g.InitialWaitingByDay) != len(g.InitialToleranceByDay) {
		return fmt.Errorf("carryOver: initialWaitingByDay and initialToleranceByDay must have the same shape")
	}

	return nil
}

func buildSkillRules(
	specs []SkillRuleSpec,
	groups map[string]*CallerGroup,
	skills map[string]*SkillLevel,
) ([]SkillRule, error) {
	var rules []SkillRule
	for _, rs := range specs {
		skill := skills[rs.Skill]
		if skill == nil {
			return nil, fmt.Errorf("unknown skill %q", rs.Skill)
		}
		targets, err := buildTargets(rs.Targets, groups)
		if err != nil {
			return nil, err
		}
		rules = append(rules, SkillRule{Skill: skill, Prob: rs.Probability, Targets: targets})
	}
	return rules, nil
}

func buildSkill(
	s *SkillLevel,
	ss *SkillSpec,
	groups map[string]*CallerGroup,
	numGroups int,
) error {
	s.groupSub = make([]int, numGroups)
	for i := range s.groupSub {
		s.groupSub[i] = -1
	}

	for _, sg := range ss.Groups {
		g := groups[sg.Group]
		if g == nil {
			return fmt.Errorf("unknown group %q", sg.Group)
		}
		if s.groupSub[g.Index] >= 0 {
			return fmt.Errorf("group %q listed twice", sg.Group)
		}

		sub := len(s.GroupScore)
		s.groupSub[g.Index] = sub
		s.GroupScore = append(s.GroupScore, sg.Score)

		service, err := buildIntervalDists(sg.ServiceTime, sg.ServiceTimePerInterval)
		if err != nil {
			return fmt.Errorf("group %q service time: %w", sg.Group, err)
		}
		s.ServiceTime = append(s.ServiceTime, service)

		post, err := buildIntervalDists(sg.PostTime, sg.PostTimePerInterval)
		if err != nil {
			return fmt.Errorf("group %q post-processing time: %w", sg.Group, err)
		}
		s.PostTime = append(s.PostTime, post)

		var addOns [stats.NumIntervals]*Formula
		if sg.ServiceTimeAddOn != "" {
			formula, err := CompileFormula(sg.ServiceTimeAddOn, "waitingTime")
			if err != nil {
				return fmt.Errorf("group %q: %w", sg.Group, err)
			}
			for i := range addOns {
				addOns[i] = formula
			}
		}
		s.ServiceTimeAddOn = append(s.ServiceTimeAddOn, addOns)
	}

	return nil
}

func buildIntervalDists(
	base dist.Spec,
	overrides map[string]dist.Spec,
) ([stats.NumIntervals]dist.Distribution, error) {
	var out [stats.NumIntervals]dist.Distribution

	d, err := base.Build()
	if err != nil {
		return out, err
	}
	for i := range out {
		out[i] = d
	}

	for key, spec := range overrides {
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= stats.NumIntervals {
			return out, fmt.Errorf("bad interval index %q", key)
		}
		if out[i], err = spec.Build(); err != nil {
			return out, fmt.Errorf("interval %d: %w", i, err)
		}
	}

	return out, nil
}

func buildCallcenter(
	cs *CallcenterSpec,
	index int,
	groups map[string]*CallerGroup,
	skills map[string]*SkillLevel,
	numGroups int,
) (*Callcenter, error) {
	cc := &Callcenter{
		Name:                            cs.Name,
		Index:                           index,
		Score:                           cs.Score,
		TechnicalFreeTime:               cs.TechnicalFreeTimeSeconds * 1000,
		TechnicalFreeTimeIsWaitingTime:  cs.TechnicalFreeTimeIsWaitingTime,
		AgentScoreFreeTimePart:          cs.AgentScore.FreeTimePart,
		AgentScoreFreeTimeSinceLastCall: cs.AgentScore.FreeTimeSinceLastCall,
		MinWaitingTime:                  make([]int64, numGroups),
	}

	for name, seconds := range cs.MinWaitingTimeSeconds {
		g := groups[name]
		if g == nil {
			return nil, fmt.Errorf("minWaitingTimeSeconds: unknown group %q", name)
		}
		cc.MinWaitingTime[g.Index] = seconds * 1000
	}

	for _, as := range cs.Agents {
		skill := skills[as.Skill]
		if skill == nil {
			return nil, fmt.Errorf("unknown skill %q", as.Skill)
		}

		costPerCall, err := buildGroupCosts(as.CostPerCall, groups, numGroups)
		if err != nil {
			return nil, fmt.Errorf("costPerCall: %w", err)
		}
		costPerMinute, err := buildGroupCosts(as.CostPerMinute, groups, numGroups)
		if err != nil {
			return nil, fmt.Errorf("costPerMinute: %w", err)
		}

		count := as.Count
		if count <= 0 {
			count = 1
		}
		for i := 0; i < count; i++ {
			cc.Agents = append(cc.Agents, &Agent{
				ShiftStart:    as.ShiftStart * 1000,
				ShiftEnd:      as.ShiftEnd * 1000,
				OpenEnd:       as.OpenEnd,
				Skill:         skill,
				Callcenter:    cc,
				CostPerHour:   as.CostPerHour,
				CostPerCall:   costPerCall,
				CostPerMinute: costPerMinute,
			})
		}
	}

	return cc, nil
}

func buildGroupCosts(
	costs map[string]float64,
	groups map[string]*CallerGroup,
	numGroups int,
) ([]float64, error) {
	if len(costs) == 0 {
		return nil, nil
	}
	out := make([]float64, numGroups)
	for name, cost := range costs {
		g := groups[name]
		if g == nil {
			return nil, fmt.Errorf("unknown group %q", name)
		}
		out[g.Index] = cost
	}
	return out, nil
}
