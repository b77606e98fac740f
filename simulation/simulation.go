package simulation

import (
	"log"
	"math/rand"
	"os"
	"sync"

	"github.com/callsimlab/callsim/datarecording"
	"github.com/callsimlab/callsim/model"
	"github.com/callsimlab/callsim/monitoring"
	"github.com/callsimlab/callsim/sim"
	"github.com/callsimlab/callsim/stats"
)

// A Simulation owns everything needed to simulate a model: the worker run
// contexts, the data recorder and the monitor. Days are fanned out over
// workers; each worker simulates its share of days back to back in its own
// run context and the statistics trees are merged when all workers are done.
type Simulation struct {
	id string

	model   *model.Model
	workers int
	seed    int64

	dataRecorder datarecording.DataRecorder
	monitor      *monitoring.Monitor
	eventLogOn   bool

	stats *stats.Statistics
}

// ID returns the unique ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// Model returns the model being simulated.
func (s *Simulation) Model() *model.Model {
	return s.model
}

// DataRecorder returns the data recorder used in the simulation.
func (s *Simulation) DataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// Monitor returns the monitor used in the simulation. It is nil when the
// simulation was built without monitoring.
func (s *Simulation) Monitor() *monitoring.Monitor {
	return s.monitor
}

// Stats returns the merged statistics. It is nil before Run completes.
func (s *Simulation) Stats() *stats.Statistics {
	return s.stats
}

// Run simulates all configured days and returns the merged, finalized
// statistics. Worker i runs days [start_i, start_i+n_i) with its own
// random stream seeded with seed+i, so results are reproducible for a
// fixed seed and worker count.
func (s *Simulation) Run() *stats.Statistics {
	days := s.model.Days
	if days < 1 {
		log.Panic("cannot simulate a model with no days")
	}

	workers := s.workers
	if workers > days {
		workers = days
	}

	var bar *monitoring.ProgressBar
	if s.monitor != nil {
		bar = s.monitor.CreateProgressBar("simulated days", uint64(days))
	}

	trees := make([]*stats.Statistics, workers)
	var wg sync.WaitGroup

	base := days / workers
	rem := days % workers
	start := 0
	for i := 0; i < workers; i++ {
		n := base
		if i < rem {
			n++
		}

		st := stats.New(
			len(s.model.Groups),
			len(s.model.Callcenters),
			len(s.model.Skills),
		)
		trees[i] = st

		rng := rand.New(rand.NewSource(s.seed + int64(i)))
		ctx := sim.NewRunContext(s.model, st, rng)

		if s.eventLogOn {
			ctx.AcceptHook(sim.NewEventLogger(log.New(os.Stderr, "", 0)))
		}

		if bar != nil {
			bar.IncrementInProgress(uint64(n))
			ctx.AcceptHook(progressHook{bar: bar})
		}

		if s.monitor != nil {
			s.monitor.RegisterRun(ctx)
		}

		wg.Add(1)
		go func(ctx *sim.RunContext, first, n int) {
			defer wg.Done()

			for d := 0; d < n; d++ {
				ctx.RunDay(first + d)
			}
		}(ctx, start, n)

		start += n
	}

	wg.Wait()

	merged := trees[0]
	for _, t := range trees[1:] {
		merged.Merge(t)
	}
	merged.Finalize()
	s.stats = merged

	if bar != nil {
		s.monitor.CompleteProgressBar(bar)
	}

	return merged
}

// RecordResults writes the merged statistics into the data recorder.
func (s *Simulation) RecordResults() {
	if s.stats == nil {
		log.Panic("cannot record results before the simulation has run")
	}

	datarecording.RecordStatistics(s.dataRecorder, s.id, s.model, s.stats)
	s.dataRecorder.Flush()
}

// Terminate terminates the simulation.
func (s *Simulation) Terminate() {
	err := s.dataRecorder.Close()
	if err != nil {
		log.Panic(err)
	}
}

// progressHook advances the day progress bar as run contexts finish days.
type progressHook struct {
	bar *monitoring.ProgressBar
}

func (h progressHook) Func(ctx sim.HookCtx) {
	if ctx.Pos == sim.HookPosDayEnd {
		h.bar.MoveInProgressToFinished(1)
	}
}
