package stats

// An AgentBucket accumulates agent working-time statistics for one grouping
// (globally, per callcenter, or per skill level). All durations are in
// milliseconds.
type AgentBucket struct {
	NumAgents int64

	IdleTotal     int64
	TechIdleTotal int64
	ServiceTotal  int64
	PostTotal     int64

	IdlePerInterval     [NumIntervals]float64
	TechIdlePerInterval [NumIntervals]float64
	ServicePerInterval  [NumIntervals]float64
	PostPerInterval     [NumIntervals]float64

	CallsAnswered            int64
	CallsAnsweredPerInterval [NumIntervals]float64

	// Per caller-group breakdowns, indexed by group index.
	TechIdleByGroup                 [][]float64
	ServiceByGroup                  [][]float64
	PostByGroup                     [][]float64
	TechIdleTotalByGroup            []int64
	ServiceTotalByGroup             []int64
	PostTotalByGroup                []int64
	CallsAnsweredByGroup            []int64
	CallsAnsweredByGroupPerInterval [][]float64

	CostOfficeTime float64
	CostCalls      float64
	CostProcess    float64
}

// NewAgentBucket creates an agent bucket for a model with the given number
// of caller groups.
func NewAgentBucket(numGroups int) *AgentBucket {
	b := &AgentBucket{
		TechIdleTotalByGroup: make([]int64, numGroups),
		ServiceTotalByGroup:  make([]int64, numGroups),
		PostTotalByGroup:     make([]int64, numGroups),
		CallsAnsweredByGroup: make([]int64, numGroups),
	}
	b.TechIdleByGroup = makeGroupIntervals(numGroups)
	b.ServiceByGroup = makeGroupIntervals(numGroups)
	b.PostByGroup = makeGroupIntervals(numGroups)
	b.CallsAnsweredByGroupPerInterval = makeGroupIntervals(numGroups)
	return b
}

func makeGroupIntervals(numGroups int) [][]float64 {
	rows := make([][]float64, numGroups)
	for i := range rows {
		rows[i] = make([]float64, NumIntervals)
	}
	return rows
}

// addSpread adds the duration between from and to (ms) to the interval
// array, split across the touched half-hour intervals. Times outside the day
// land in the first and last interval.
func addSpread(arr *[NumIntervals]float64, from, to int64) {
	for from < to {
		i := Interval(from)
		end := int64(i+1) * intervalMS
		if i == NumIntervals-1 || end > to {
			end = to
		}
		arr[i] += float64(end - from)
		from = end
	}
}

func addSpreadSlice(arr []float64, from, to int64) {
	for from < to {
		i := Interval(from)
		end := int64(i+1) * intervalMS
		if i == NumIntervals-1 || end > to {
			end = to
		}
		arr[i] += float64(end - from)
		from = end
	}
}

// AddIdle attributes an idle stretch of one agent.
func (b *AgentBucket) AddIdle(from, to int64) {
	if to <= from {
		return
	}
	b.IdleTotal += to - from
	addSpread(&b.IdlePerInterval, from, to)
}

// AddTechIdle attributes a technical-idle (setup) stretch spent on a caller
// of the given group.
func (b *AgentBucket) AddTechIdle(group int, from, to int64) {
	if to <= from {
		return
	}
	b.TechIdleTotal += to - from
	b.TechIdleTotalByGroup[group] += to - from
	addSpread(&b.TechIdlePerInterval, from, to)
	addSpreadSlice(b.TechIdleByGroup[group], from, to)
}

// AddService attributes a service stretch spent on a caller of the given
// group.
func (b *AgentBucket) AddService(group int, from, to int64) {
	if to <= from {
		return
	}
	b.ServiceTotal += to - from
	b.ServiceTotalByGroup[group] += to - from
	addSpread(&b.ServicePerInterval, from, to)
	addSpreadSlice(b.ServiceByGroup[group], from, to)
}

// AddPost attributes a post-processing stretch spent on a caller of the
// given group.
func (b *AgentBucket) AddPost(group int, from, to int64) {
	if to <= from {
		return
	}
	b.PostTotal += to - from
	b.PostTotalByGroup[group] += to - from
	addSpread(&b.PostPerInterval, from, to)
	addSpreadSlice(b.PostByGroup[group], from, to)
}

// AddAnswered counts an answered call in the given interval.
func (b *AgentBucket) AddAnswered(group, interval int) {
	b.CallsAnswered++
	b.CallsAnsweredPerInterval[interval]++
	b.CallsAnsweredByGroup[group]++
	b.CallsAnsweredByGroupPerInterval[group][interval]++
}

// Merge adds another agent bucket of the same shape.
func (b *AgentBucket) Merge(o *AgentBucket) {
	b.NumAgents += o.NumAgents
	b.IdleTotal += o.IdleTotal
	b.TechIdleTotal += o.TechIdleTotal
	b.ServiceTotal += o.ServiceTotal
	b.PostTotal += o.PostTotal
	b.CallsAnswered += o.CallsAnswered
	b.CostOfficeTime += o.CostOfficeTime
	b.CostCalls += o.CostCalls
	b.CostProcess += o.CostProcess

	addIntervals(&b.IdlePerInterval, &o.IdlePerInterval)
	addIntervals(&b.TechIdlePerInterval, &o.TechIdlePerInterval)
	addIntervals(&b.ServicePerInterval, &o.ServicePerInterval)
	addIntervals(&b.PostPerInterval, &o.PostPerInterval)
	addIntervals(&b.CallsAnsweredPerInterval, &o.CallsAnsweredPerInterval)

	for g := range b.TechIdleTotalByGroup {
		b.TechIdleTotalByGroup[g] += o.TechIdleTotalByGroup[g]
		b.ServiceTotalByGroup[g] += o.ServiceTotalByGroup[g]
		b.PostTotalByGroup[g] += o.PostTotalByGroup[g]
		b.CallsAnsweredByGroup[g] += o.CallsAnsweredByGroup[g]
		for i := 0; i < NumIntervals; i++ {
			b.TechIdleByGroup[g][i] += o.TechIdleByGroup[g][i]
			b.ServiceByGroup[g][i] += o.ServiceByGroup[g][i]
			b.PostByGroup[g][i] += o.PostByGroup[g][i]
			b.CallsAnsweredByGroupPerInterval[g][i] += o.CallsAnsweredByGroupPerInterval[g][i]
		}
	}
}
