// Package stats holds the statistics buckets that the simulation event
// handlers update as a side effect. Buckets are plain counter containers;
// they never schedule events or read the clock. One Statistics tree belongs
// to exactly one run, and trees from parallel runs are combined with Merge
// after all runs complete.
package stats

import "math"

// NumIntervals is the number of half-hour intervals in a simulated day.
const NumIntervals = 48

// intervalMS is the length of one statistics interval in milliseconds.
const intervalMS = 30 * 60 * 1000

// DayMS is the length of a simulated day in milliseconds.
const DayMS int64 = 24 * 60 * 60 * 1000

// Interval maps an absolute simulation time in milliseconds to a half-hour
// interval index, clamping to [0, NumIntervals-1]. Times carried over from a
// previous day (negative) charge interval 0; times past midnight charge the
// last interval.
func Interval(timeMS int64) int {
	i := timeMS / intervalMS
	if i < 0 {
		return 0
	}
	if i > NumIntervals-1 {
		return NumIntervals - 1
	}
	return int(i)
}

// Histogram counts values in fixed-width slots. Values beyond the last slot
// are charged to the last slot rather than dropped.
type Histogram struct {
	SlotWidth int64
	Counts    []int64
}

// NewHistogram creates a histogram with the given slot width (in seconds)
// and slot count.
func NewHistogram(slotWidth int64, slots int) Histogram {
	return Histogram{SlotWidth: slotWidth, Counts: make([]int64, slots)}
}

// Add counts one value (in seconds).
func (h *Histogram) Add(seconds int64) {
	i := seconds / h.SlotWidth
	if i >= int64(len(h.Counts)) {
		i = int64(len(h.Counts)) - 1
	}
	if i < 0 {
		i = 0
	}
	h.Counts[i]++
}

// Merge adds another histogram of the same shape.
func (h *Histogram) Merge(o *Histogram) {
	for i, v := range o.Counts {
		h.Counts[i] += v
	}
}

// Slots and widths of the per-second and coarse histograms kept for each
// duration metric.
const (
	histSeconds      = 1800
	histCoarseWidth  = 1800
	histCoarseSlots  = 96
	histSecondsWidth = 1
)

// TimeStats accumulates a duration metric: sum, sum of squares, per-interval
// sums, and two capped histograms (whole seconds, half-hour buckets).
//
// Sum is not maintained incrementally for most metrics; Finalize derives it
// from PerInterval once at the end of the run. Callers that need a live sum
// (call waiting time feeds the inter-day aggregates) bump Sum themselves.
type TimeStats struct {
	Sum         float64
	SumSq       float64
	PerInterval [NumIntervals]float64
	Hist        Histogram
	HistCoarse  Histogram
}

func newTimeStats() TimeStats {
	return TimeStats{
		Hist:       NewHistogram(histSecondsWidth, histSeconds),
		HistCoarse: NewHistogram(histCoarseWidth, histCoarseSlots),
	}
}

// Add records one duration. seconds1000 is the duration in milliseconds; the
// histograms and squares use whole seconds, the per-interval sum keeps
// millisecond resolution.
func (t *TimeStats) Add(seconds1000 int64, interval int) {
	sec := seconds1000 / 1000
	t.SumSq += float64(sec * sec)
	t.PerInterval[interval] += float64(seconds1000) / 1000
	t.Hist.Add(sec)
	t.HistCoarse.Add(sec)
}

// Merge adds another TimeStats of the same shape.
func (t *TimeStats) Merge(o *TimeStats) {
	t.Sum += o.Sum
	t.SumSq += o.SumSq
	for i := range o.PerInterval {
		t.PerInterval[i] += o.PerInterval[i]
	}
	t.Hist.Merge(&o.Hist)
	t.HistCoarse.Merge(&o.HistCoarse)
}

func (t *TimeStats) finalize() {
	var sum float64
	for _, v := range t.PerInterval {
		sum += v
	}
	t.Sum = math.Round(sum)
}

// InterDay accumulates one day-level sample per simulated day, for
// confidence intervals across days.
type InterDay struct {
	WaitSum, WaitSumSq                               float64
	SuccessCallsSum, SuccessCallsSumSq               float64
	SuccessClientsSum, SuccessClientsSumSq           float64
	SLCallsSuccessSum, SLCallsSuccessSumSq           float64
	SLCallsAllSum, SLCallsAllSumSq                   float64
	SLClientsSuccessSum, SLClientsSuccessSumSq       float64
	SLClientsAllSum, SLClientsAllSumSq               float64
	AbandonedClientsPerDay                           []int64
}

func (d *InterDay) add(sum *float64, sumSq *float64, v float64) {
	*sum += v
	*sumSq += v * v
}

// Merge adds another InterDay.
func (d *InterDay) Merge(o *InterDay) {
	d.WaitSum += o.WaitSum
	d.WaitSumSq += o.WaitSumSq
	d.SuccessCallsSum += o.SuccessCallsSum
	d.SuccessCallsSumSq += o.SuccessCallsSumSq
	d.SuccessClientsSum += o.SuccessClientsSum
	d.SuccessClientsSumSq += o.SuccessClientsSumSq
	d.SLCallsSuccessSum += o.SLCallsSuccessSum
	d.SLCallsSuccessSumSq += o.SLCallsSuccessSumSq
	d.SLCallsAllSum += o.SLCallsAllSum
	d.SLCallsAllSumSq += o.SLCallsAllSumSq
	d.SLClientsSuccessSum += o.SLClientsSuccessSum
	d.SLClientsSuccessSumSq += o.SLClientsSuccessSumSq
	d.SLClientsAllSum += o.SLClientsAllSum
	d.SLClientsAllSumSq += o.SLClientsAllSumSq
	d.AbandonedClientsPerDay = append(d.AbandonedClientsPerDay, o.AbandonedClientsPerDay...)
}
