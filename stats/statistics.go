package stats

// Statistics is the full result tree of one simulation run: a global bucket,
// one bucket per caller group, agent buckets per grouping, and queue-length
// tracking. Trees of parallel runs are combined with Merge once the runs
// have finished; Finalize is called exactly once, after any merging.
type Statistics struct {
	Global   *Bucket
	PerGroup []*Bucket

	AgentsGlobal  *AgentBucket
	PerCallcenter []*AgentBucket
	PerSkill      []*AgentBucket

	MaxQueueLength          int
	MeanQueueLength         float64
	MeanQueueLenPerInterval [NumIntervals]float64

	SimDays int64
	Events  int64
}

// New creates an empty statistics tree for a model with the given shape.
func New(numGroups, numCallcenters, numSkills int) *Statistics {
	s := &Statistics{
		Global:       NewBucket(),
		AgentsGlobal: NewAgentBucket(numGroups),
	}
	for i := 0; i < numGroups; i++ {
		s.PerGroup = append(s.PerGroup, NewBucket())
	}
	for i := 0; i < numCallcenters; i++ {
		s.PerCallcenter = append(s.PerCallcenter, NewAgentBucket(numGroups))
	}
	for i := 0; i < numSkills; i++ {
		s.PerSkill = append(s.PerSkill, NewAgentBucket(numGroups))
	}
	return s
}

// Merge adds another tree of the same shape.
func (s *Statistics) Merge(o *Statistics) {
	s.Global.Merge(o.Global)
	for i, b := range o.PerGroup {
		s.PerGroup[i].Merge(b)
	}
	s.AgentsGlobal.Merge(o.AgentsGlobal)
	for i, b := range o.PerCallcenter {
		s.PerCallcenter[i].Merge(b)
	}
	for i, b := range o.PerSkill {
		s.PerSkill[i].Merge(b)
	}

	if o.MaxQueueLength > s.MaxQueueLength {
		s.MaxQueueLength = o.MaxQueueLength
	}
	s.MeanQueueLength += o.MeanQueueLength
	addIntervals(&s.MeanQueueLenPerInterval, &o.MeanQueueLenPerInterval)

	s.SimDays += o.SimDays
	s.Events += o.Events
}

// Finalize computes the derived sums and normalizes the queue-length means
// by the number of simulated days.
func (s *Statistics) Finalize() {
	s.Global.Finalize()
	for _, b := range s.PerGroup {
		b.Finalize()
	}

	if s.SimDays > 0 {
		s.MeanQueueLength /= float64(s.SimDays)
		for i := range s.MeanQueueLenPerInterval {
			s.MeanQueueLenPerInterval[i] /= float64(s.SimDays)
		}
	}
}
