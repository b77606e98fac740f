package datarecording

import (
	"github.com/callsimlab/callsim/model"
	"github.com/callsimlab/callsim/stats"
)

// Row types for the recorded result tables. Field names become column
// names, so they stay flat and scalar.

// RunInfoEntry describes one finished simulation run.
type RunInfoEntry struct {
	RunID          string
	Days           int64
	Events         int64
	MaxQueueLength int64
	MeanQueueLen   float64
}

// GroupTotalsEntry holds the whole-run counters of one caller group (or of
// the global bucket, recorded under the name "all").
type GroupTotalsEntry struct {
	GroupName string

	Calls             int64
	CallsSuccess      int64
	CallsBlocked      int64
	CallsAbandoned    int64
	CallsCarriedOver  int64
	CallsRetried      int64
	CallsForwarded    int64
	CallsServiceLevel int64
	CallsWaitSum      float64
	CallsStaySum      float64
	CallsAbandonSum   float64

	Clients             int64
	ClientsSuccess      int64
	ClientsBlocked      int64
	ClientsAbandoned    int64
	ClientsCarriedOver  int64
	ClientsRecall       int64
	ClientsRetried      int64
	ClientsForwarded    int64
	ClientsServiceLevel int64
	ClientsWaitSum      float64
	ClientsStaySum      float64
	ClientsAbandonSum   float64
}

// GroupIntervalEntry holds the per-half-hour counters of one caller group.
type GroupIntervalEntry struct {
	GroupName string
	Interval  int64

	Calls             float64
	CallsSuccess      float64
	CallsBlocked      float64
	CallsAbandoned    float64
	CallsRetried      float64
	CallsForwarded    float64
	CallsServiceLevel float64
	CallsWaitSum      float64

	Clients        float64
	ClientsSuccess float64
	MeanQueueLen   float64
}

// AgentTotalsEntry holds the working-time totals of one agent grouping.
type AgentTotalsEntry struct {
	Scope string
	Name  string

	NumAgents     int64
	IdleTotal     int64
	TechIdleTotal int64
	ServiceTotal  int64
	PostTotal     int64
	CallsAnswered int64

	CostOfficeTime float64
	CostCalls      float64
	CostProcess    float64
}

// NextDayEntry is one carried-over seed value for the day after the last
// simulated one.
type NextDayEntry struct {
	GroupName string
	Kind      string
	ValueMS   int64
}

// RecordStatistics writes a finalized statistics tree into the recorder.
func RecordStatistics(
	r DataRecorder,
	runID string,
	m *model.Model,
	st *stats.Statistics,
) {
	r.CreateTable("run_info", RunInfoEntry{})
	r.InsertData("run_info", RunInfoEntry{
		RunID:          runID,
		Days:           st.SimDays,
		Events:         st.Events,
		MaxQueueLength: int64(st.MaxQueueLength),
		MeanQueueLen:   st.MeanQueueLength,
	})

	r.CreateTable("group_totals", GroupTotalsEntry{})
	r.CreateTable("group_intervals", GroupIntervalEntry{})

	recordBucket(r, "all", st.Global, &st.MeanQueueLenPerInterval)
	for i, b := range st.PerGroup {
		recordBucket(r, m.Groups[i].Name, b, nil)
	}

	r.CreateTable("agent_totals", AgentTotalsEntry{})
	recordAgentBucket(r, "global", "all", st.AgentsGlobal)
	for i, b := range st.PerCallcenter {
		recordAgentBucket(r, "callcenter", m.Callcenters[i].Name, b)
	}
	for i, b := range st.PerSkill {
		recordAgentBucket(r, "skill", m.Skills[i].Name, b)
	}

	r.CreateTable("next_day", NextDayEntry{})
	for i, b := range st.PerGroup {
		name := m.Groups[i].Name
		for _, v := range b.NextDayRetryTimes {
			r.InsertData("next_day", NextDayEntry{name, "retryTime", v})
		}
		for _, v := range b.NextDayWaitingTimes {
			r.InsertData("next_day", NextDayEntry{name, "waitingTime", v})
		}
		for _, v := range b.NextDayWaitingTolerances {
			r.InsertData("next_day", NextDayEntry{name, "waitingTolerance", v})
		}
	}

	r.Flush()
}

func recordBucket(
	r DataRecorder,
	name string,
	b *stats.Bucket,
	queueLen *[stats.NumIntervals]float64,
) {
	r.InsertData("group_totals", GroupTotalsEntry{
		GroupName: name,

		Calls:             b.Calls,
		CallsSuccess:      b.CallsSuccess,
		CallsBlocked:      b.CallsBlocked,
		CallsAbandoned:    b.CallsAbandoned,
		CallsCarriedOver:  b.CallsCarriedOver,
		CallsRetried:      b.CallsRetried,
		CallsForwarded:    b.CallsForwarded,
		CallsServiceLevel: b.CallsServiceLevel,
		CallsWaitSum:      b.CallsWait.Sum,
		CallsStaySum:      b.CallsStay.Sum,
		CallsAbandonSum:   b.CallsAbandon.Sum,

		Clients:             b.Clients,
		ClientsSuccess:      b.ClientsSuccess,
		ClientsBlocked:      b.ClientsBlocked,
		ClientsAbandoned:    b.ClientsAbandoned,
		ClientsCarriedOver:  b.ClientsCarriedOver,
		ClientsRecall:       b.ClientsRecall,
		ClientsRetried:      b.ClientsRetried,
		ClientsForwarded:    b.ClientsForwarded,
		ClientsServiceLevel: b.ClientsServiceLevel,
		ClientsWaitSum:      b.ClientsWait.Sum,
		ClientsStaySum:      b.ClientsStay.Sum,
		ClientsAbandonSum:   b.ClientsAbandon.Sum,
	})

	for i := 0; i < stats.NumIntervals; i++ {
		entry := GroupIntervalEntry{
			GroupName: name,
			Interval:  int64(i),

			Calls:             b.CallsPerInterval[i],
			CallsSuccess:      b.CallsSuccessPerInterval[i],
			CallsBlocked:      b.CallsBlockedPerInterval[i],
			CallsAbandoned:    b.CallsAbandonedPerInterval[i],
			CallsRetried:      b.CallsRetriedPerInterval[i],
			CallsForwarded:    b.CallsForwardedPerInterval[i],
			CallsServiceLevel: b.CallsServiceLevelPerInterval[i],
			CallsWaitSum:      b.CallsWait.PerInterval[i],

			Clients:        b.ClientsPerInterval[i],
			ClientsSuccess: b.ClientsSuccessPerInterval[i],
		}
		if queueLen != nil {
			entry.MeanQueueLen = queueLen[i]
		}
		r.InsertData("group_intervals", entry)
	}
}

func recordAgentBucket(r DataRecorder, scope, name string, b *stats.AgentBucket) {
	r.InsertData("agent_totals", AgentTotalsEntry{
		Scope: scope,
		Name:  name,

		NumAgents:     b.NumAgents,
		IdleTotal:     b.IdleTotal,
		TechIdleTotal: b.TechIdleTotal,
		ServiceTotal:  b.ServiceTotal,
		PostTotal:     b.PostTotal,
		CallsAnswered: b.CallsAnswered,

		CostOfficeTime: b.CostOfficeTime,
		CostCalls:      b.CostCalls,
		CostProcess:    b.CostProcess,
	})
}
