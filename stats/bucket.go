package stats

// A Bucket holds the call-level and customer-level counters for one caller
// group (or for the whole system, in the case of the global bucket).
//
// Call-level counters count individual call attempts; customer-level
// counters count customer journeys, incremented once per journey step
// (arrival, final success, final loss). A caller's call bucket and customer
// bucket diverge once the caller has been forwarded or retried under a
// different group.
type Bucket struct {
	// Call-level counts.
	Calls             int64
	CallsSuccess      int64
	CallsBlocked      int64
	CallsAbandoned    int64
	CallsCarriedOver  int64
	CallsRetried      int64
	CallsForwarded    int64
	CallsServiceLevel int64

	CallsPerInterval             [NumIntervals]float64
	CallsSuccessPerInterval      [NumIntervals]float64
	CallsBlockedPerInterval      [NumIntervals]float64
	CallsAbandonedPerInterval    [NumIntervals]float64
	CallsRetriedPerInterval      [NumIntervals]float64
	CallsForwardedPerInterval    [NumIntervals]float64
	CallsServiceLevelPerInterval [NumIntervals]float64

	CallsWait    TimeStats
	CallsStay    TimeStats
	CallsAbandon TimeStats

	// Customer-level counts.
	Clients             int64
	ClientsSuccess      int64
	ClientsBlocked      int64
	ClientsAbandoned    int64
	ClientsCarriedOver  int64
	ClientsRecall       int64
	ClientsRetried      int64
	ClientsForwarded    int64
	ClientsServiceLevel int64

	ClientsPerInterval             [NumIntervals]float64
	ClientsSuccessPerInterval      [NumIntervals]float64
	ClientsBlockedPerInterval      [NumIntervals]float64
	ClientsAbandonedPerInterval    [NumIntervals]float64
	ClientsRecallPerInterval       [NumIntervals]float64
	ClientsRetriedPerInterval      [NumIntervals]float64
	ClientsForwardedPerInterval    [NumIntervals]float64
	ClientsServiceLevelPerInterval [NumIntervals]float64

	ClientsWait    TimeStats
	ClientsStay    TimeStats
	ClientsAbandon TimeStats

	// ClientsAbandonedToday is reset at every day boundary; the per-day
	// values land in InterDay.AbandonedClientsPerDay.
	ClientsAbandonedToday int64

	// Seed data for the next simulated day, collected by the day-end stop
	// test. Times in milliseconds.
	NextDayRetryTimes        []int64
	NextDayWaitingTimes      []int64
	NextDayWaitingTolerances []int64

	InterDay InterDay

	// Snapshot of the running totals at the previous day boundary, used to
	// compute this-day deltas for the inter-day aggregates.
	lastDayCalls, lastDayCallsSuccess     int64
	lastDayClients, lastDayClientsSuccess int64
	lastDayCallsWaitSum                   float64
	lastDayCallsSL, lastDayClientsSL      int64
}

// NewBucket creates a bucket with its histograms allocated.
func NewBucket() *Bucket {
	b := &Bucket{}
	b.CallsWait = newTimeStats()
	b.CallsStay = newTimeStats()
	b.CallsAbandon = newTimeStats()
	b.ClientsWait = newTimeStats()
	b.ClientsStay = newTimeStats()
	b.ClientsAbandon = newTimeStats()
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// CloseDay rolls the day's deltas into the inter-day aggregates. Called once
// per bucket at every simulated day boundary.
func (b *Bucket) CloseDay() {
	d := &b.InterDay

	successCalls := b.CallsSuccess - b.lastDayCallsSuccess
	wait := (b.CallsWait.Sum - b.lastDayCallsWaitSum) / float64(max64(1, successCalls))
	d.add(&d.WaitSum, &d.WaitSumSq, wait)

	calls := (b.Calls - b.CallsCarriedOver) - b.lastDayCalls
	d.add(&d.SuccessCallsSum, &d.SuccessCallsSumSq,
		float64(successCalls)/float64(max64(1, calls)))

	successClients := b.ClientsSuccess - b.lastDayClientsSuccess
	clients := (b.Clients - b.ClientsCarriedOver) - b.lastDayClients
	d.add(&d.SuccessClientsSum, &d.SuccessClientsSumSq,
		float64(successClients)/float64(max64(1, clients)))

	slCalls := b.CallsServiceLevel - b.lastDayCallsSL
	d.add(&d.SLCallsSuccessSum, &d.SLCallsSuccessSumSq,
		float64(slCalls)/float64(max64(1, successCalls)))
	d.add(&d.SLCallsAllSum, &d.SLCallsAllSumSq,
		float64(slCalls)/float64(max64(1, b.Calls-b.lastDayCalls)))

	slClients := b.ClientsServiceLevel - b.lastDayClientsSL
	d.add(&d.SLClientsSuccessSum, &d.SLClientsSuccessSumSq,
		float64(slClients)/float64(max64(1, successClients)))
	d.add(&d.SLClientsAllSum, &d.SLClientsAllSumSq,
		float64(slClients)/float64(max64(1, b.Clients-b.lastDayClients)))

	d.AbandonedClientsPerDay = append(d.AbandonedClientsPerDay, b.ClientsAbandonedToday)
	b.ClientsAbandonedToday = 0

	b.lastDayCalls = b.Calls - b.CallsCarriedOver
	b.lastDayCallsSuccess = b.CallsSuccess
	b.lastDayClients = b.Clients - b.ClientsCarriedOver
	b.lastDayClientsSuccess = b.ClientsSuccess
	b.lastDayCallsWaitSum = b.CallsWait.Sum
	b.lastDayCallsSL = b.CallsServiceLevel
	b.lastDayClientsSL = b.ClientsServiceLevel
}

// Merge adds another bucket's counters into b. Used for the cross-run
// reduction; the inter-day day-boundary snapshots are not merged because
// merged trees are never advanced further.
func (b *Bucket) Merge(o *Bucket) {
	b.Calls += o.Calls
	b.CallsSuccess += o.CallsSuccess
	b.CallsBlocked += o.CallsBlocked
	b.CallsAbandoned += o.CallsAbandoned
	b.CallsCarriedOver += o.CallsCarriedOver
	b.CallsRetried += o.CallsRetried
	b.CallsForwarded += o.CallsForwarded
	b.CallsServiceLevel += o.CallsServiceLevel

	b.Clients += o.Clients
	b.ClientsSuccess += o.ClientsSuccess
	b.ClientsBlocked += o.ClientsBlocked
	b.ClientsAbandoned += o.ClientsAbandoned
	b.ClientsCarriedOver += o.ClientsCarriedOver
	b.ClientsRecall += o.ClientsRecall
	b.ClientsRetried += o.ClientsRetried
	b.ClientsForwarded += o.ClientsForwarded
	b.ClientsServiceLevel += o.ClientsServiceLevel
	b.ClientsAbandonedToday += o.ClientsAbandonedToday

	addIntervals(&b.CallsPerInterval, &o.CallsPerInterval)
	addIntervals(&b.CallsSuccessPerInterval, &o.CallsSuccessPerInterval)
	addIntervals(&b.CallsBlockedPerInterval, &o.CallsBlockedPerInterval)
	addIntervals(&b.CallsAbandonedPerInterval, &o.CallsAbandonedPerInterval)
	addIntervals(&b.CallsRetriedPerInterval, &o.CallsRetriedPerInterval)
	addIntervals(&b.CallsForwardedPerInterval, &o.CallsForwardedPerInterval)
	addIntervals(&b.CallsServiceLevelPerInterval, &o.CallsServiceLevelPerInterval)
	addIntervals(&b.ClientsPerInterval, &o.ClientsPerInterval)
	addIntervals(&b.ClientsSuccessPerInterval, &o.ClientsSuccessPerInterval)
	addIntervals(&b.ClientsBlockedPerInterval, &o.ClientsBlockedPerInterval)
	addIntervals(&b.ClientsAbandonedPerInterval, &o.ClientsAbandonedPerInterval)
	addIntervals(&b.ClientsRecallPerInterval, &o.ClientsRecallPerInterval)
	addIntervals(&b.ClientsRetriedPerInterval, &o.ClientsRetriedPerInterval)
	addIntervals(&b.ClientsForwardedPerInterval, &o.ClientsForwardedPerInterval)
	addIntervals(&b.ClientsServiceLevelPerInterval, &o.ClientsServiceLevelPerInterval)

	b.CallsWait.Merge(&o.CallsWait)
	b.CallsStay.Merge(&o.CallsStay)
	b.CallsAbandon.Merge(&o.CallsAbandon)
	b.ClientsWait.Merge(&o.ClientsWait)
	b.ClientsStay.Merge(&o.ClientsStay)
	b.ClientsAbandon.Merge(&o.ClientsAbandon)

	b.NextDayRetryTimes = append(b.NextDayRetryTimes, o.NextDayRetryTimes...)
	b.NextDayWaitingTimes = append(b.NextDayWaitingTimes, o.NextDayWaitingTimes...)
	b.NextDayWaitingTolerances = append(b.NextDayWaitingTolerances, o.NextDayWaitingTolerances...)

	b.InterDay.Merge(&o.InterDay)
}

func addIntervals(dst, src *[NumIntervals]float64) {
	for i := range src {
		dst[i] += src[i]
	}
}

// Finalize computes the sums that are derived from the per-interval arrays.
// CallsWait.Sum is maintained incrementally during the run (the inter-day
// aggregates need it live) and is left untouched.
func (b *Bucket) Finalize() {
	b.CallsStay.finalize()
	b.CallsAbandon.finalize()
	b.ClientsWait.finalize()
	b.ClientsStay.finalize()
	b.ClientsAbandon.finalize()
}
