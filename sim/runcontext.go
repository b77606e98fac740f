package sim

import (
	"log"
	"math/rand"

	"github.com/callsimlab/callsim/model"
	"github.com/callsimlab/callsim/stats"
)

// A RunContext owns everything that is mutable during one simulation run:
// the event queue and pools, the caller and agent registries, the
// statistics tree and the random stream. One RunContext simulates its days
// strictly single threaded; parallel runs each own their RunContext and
// their statistics trees are merged afterwards.
type RunContext struct {
	HookableBase

	Model *model.Model
	Stats *stats.Statistics
	Rand  *rand.Rand

	now   Time
	day   int
	queue EventQueue

	events  eventPool
	callers callerPool

	// phoneQueues and external hold waiting callers per group index:
	// queued on the phone queue, or between retries.
	phoneQueues [][]*Caller
	external    [][]*Caller

	agents     []*Agent
	freeAgents []*Agent

	// workingAgents counts agents currently on shift, busy or not. It is
	// the input of the queue-length-limit formula.
	workingAgents int

	queueLen      int
	queueLenSince Time

	// Carry-over seeds collected by the day-end stop test, consumed by the
	// next day's setup. Times in ms; retry times already shifted into the
	// next day's frame.
	carryRetry [][]Time
	carryWait  [][]Time
	carryTol   [][]Time
}

// NewRunContext creates a run context for the given model. The statistics
// tree must have been created for the same model shape.
func NewRunContext(m *model.Model, st *stats.Statistics, rng *rand.Rand) *RunContext {
	n := len(m.Groups)
	return &RunContext{
		Model:       m,
		Stats:       st,
		Rand:        rng,
		phoneQueues: make([][]*Caller, n),
		external:    make([][]*Caller, n),
		carryRetry:  make([][]Time, n),
		carryWait:   make([][]Time, n),
		carryTol:    make([][]Time, n),
	}
}

// Now returns the current simulated time.
func (ctx *RunContext) Now() Time {
	return ctx.now
}

// Day returns the index of the day currently being simulated.
func (ctx *RunContext) Day() int {
	return ctx.day
}

// Run simulates all configured days back to back, chaining the carry-over
// from each day into the next.
func (ctx *RunContext) Run() {
	for day := 0; day < ctx.Model.Days; day++ {
		ctx.RunDay(day)
	}
}

// RunDay simulates one day: set up the day's events, drain the queue, close
// the day out.
func (ctx *RunContext) RunDay(day int) {
	ctx.setupDay(day)

	for {
		e := ctx.queue.Pop()
		if e == nil {
			break
		}
		if e.Time < ctx.now {
			log.Panicf("cannot run event in the past, %s @ %d ms, now %d ms",
				e.Kind, e.Time, ctx.now)
		}
		ctx.now = e.Time

		hookCtx := HookCtx{
			Domain: ctx,
			Pos:    HookPosBeforeEvent,
			Item:   e,
		}
		ctx.InvokeHook(hookCtx)

		ctx.handle(e)
		ctx.Stats.Events++

		hookCtx.Pos = HookPosAfterEvent
		ctx.InvokeHook(hookCtx)

		ctx.events.release(e)
	}

	ctx.finishDay()

	ctx.InvokeHook(HookCtx{Domain: ctx, Pos: HookPosDayEnd, Item: day})
}

func (ctx *RunContext) handle(e *Event) {
	switch e.Kind {
	case EventCall:
		ctx.handleCall(e)
	case EventCallCancel:
		ctx.handleCallCancel(e)
	case EventReCheck:
		ctx.handleReCheck(e)
	case EventAgentReady:
		ctx.handleAgentReady(e)
	case EventAgentQuit:
		ctx.handleAgentQuit(e)
	case EventService1Start:
		ctx.handleService1Start(e)
	case EventService2Start:
		ctx.handleService2Start(e)
	case EventStopTest:
		ctx.runStopTest()
	default:
		log.Panicf("unknown event kind %d", e.Kind)
	}
}

func (ctx *RunContext) scheduleCallerEvent(kind EventKind, t Time, c *Caller) *Event {
	e := ctx.events.acquire(kind, t)
	e.Caller = c
	ctx.schedule(e)
	return e
}

func (ctx *RunContext) scheduleAgentEvent(kind EventKind, t Time, a *Agent) *Event {
	e := ctx.events.acquire(kind, t)
	e.Agent = a
	ctx.schedule(e)
	return e
}

func (ctx *RunContext) schedule(e *Event) {
	if e.Time < ctx.now {
		log.Panic("scheduling an event earlier than current time")
	}
	ctx.queue.Push(e)
}

// cancelEvent removes a pending event and recycles it. Safe to call with an
// event that already fired or was already cancelled, as long as the caller
// record has dropped its back-reference.
func (ctx *RunContext) cancelEvent(e *Event) {
	if e == nil {
		return
	}
	if ctx.queue.Remove(e) {
		ctx.events.release(e)
	}
}

// Phone queue and external waiting list.

func (ctx *RunContext) enqueueCaller(c *Caller) {
	g := c.Group.Index
	ctx.phoneQueues[g] = append(ctx.phoneQueues[g], c)
	c.inQueue = true
	if c.Group.BlocksLine {
		ctx.noteQueueLen(1)
	}
}

func (ctx *RunContext) dequeueCaller(c *Caller) {
	if !c.inQueue {
		return
	}
	removeCaller(&ctx.phoneQueues[c.Group.Index], c)
	c.inQueue = false
	if c.Group.BlocksLine {
		ctx.noteQueueLen(-1)
	}
}

func (ctx *RunContext) addExternal(c *Caller) {
	g := c.Group.Index
	ctx.external[g] = append(ctx.external[g], c)
	c.inExternal = true
}

func (ctx *RunContext) removeExternal(c *Caller) {
	if !c.inExternal {
		return
	}
	removeCaller(&ctx.external[c.Group.Index], c)
	c.inExternal = false
}

func removeCaller(list *[]*Caller, c *Caller) {
	l := *list
	for i, x := range l {
		if x == c {
			copy(l[i:], l[i+1:])
			l[len(l)-1] = nil
			*list = l[:len(l)-1]
			return
		}
	}
	log.Panic("caller not found in its waiting list")
}

// Queue-length tracking: the time-weighted mean per interval plus the
// observed maximum, counting only line-blocking callers.

func (ctx *RunContext) noteQueueLen(delta int) {
	ctx.flushQueueLen()
	ctx.queueLen += delta
	if ctx.queueLen > ctx.Stats.MaxQueueLength {
		ctx.Stats.MaxQueueLength = ctx.queueLen
	}
}

func (ctx *RunContext) flushQueueLen() {
	from, to := ctx.queueLenSince, ctx.now
	ctx.queueLenSince = to
	if ctx.queueLen == 0 || to <= from {
		return
	}

	n := float64(ctx.queueLen)
	ctx.Stats.MeanQueueLength += n * float64(to-from) / float64(DayMS)
	for from < to {
		i := stats.Interval(from)
		end := Time(i+1) * 1_800_000
		if i == stats.NumIntervals-1 || end > to {
			end = to
		}
		ctx.Stats.MeanQueueLenPerInterval[i] += n * float64(end-from) / 1_800_000
		from = end
	}
}

// Agent status accounting.

func (ctx *RunContext) agentBuckets(a *Agent) [3]*stats.AgentBucket {
	return [3]*stats.AgentBucket{
		ctx.Stats.AgentsGlobal,
		ctx.Stats.PerCallcenter[a.Seat.Callcenter.Index],
		ctx.Stats.PerSkill[a.Seat.Skill.Index],
	}
}

// setAgentStatus attributes the stretch since the last status change to the
// old status, then switches.
func (ctx *RunContext) setAgentStatus(a *Agent, s AgentStatus) {
	ctx.recordAgentStretch(a, ctx.now)
	a.Status = s
	a.statusSince = ctx.now
}

func (ctx *RunContext) recordAgentStretch(a *Agent, to Time) {
	from := a.statusSince
	if to <= from {
		return
	}
	for _, b := range ctx.agentBuckets(a) {
		switch a.Status {
		case AgentIdle:
			b.AddIdle(from, to)
		case AgentTechIdle:
			b.AddTechIdle(a.lastGroup, from, to)
		case AgentService:
			b.AddService(a.lastGroup, from, to)
		case AgentPost:
			b.AddPost(a.lastGroup, from, to)
		}
	}
	if a.Status == AgentIdle {
		a.idleTotal += to - from
	}
}

// markAgentAsFree puts an agent back into circulation after shift start or
// after post-processing: quit if the shift is over, otherwise serve the
// best waiting caller or join the free-agent list.
func (ctx *RunContext) markAgentAsFree(a *Agent) {
	if !a.Seat.OpenEnd && ctx.now >= a.Seat.ShiftEnd {
		ctx.agentQuits(a)
		return
	}

	ctx.setAgentStatus(a, AgentIdle)

	if c := ctx.findCallerForAgent(a); c != nil {
		ctx.matchCallerAgent(c, a)
		return
	}

	ctx.freeAgents = append(ctx.freeAgents, a)
}

func (ctx *RunContext) agentQuits(a *Agent) {
	ctx.setAgentStatus(a, AgentAfterShift)
	ctx.workingAgents--

	if a.Seat.CostPerHour > 0 {
		hours := float64(ctx.now-a.Seat.ShiftStart) / 3_600_000
		for _, b := range ctx.agentBuckets(a) {
			b.CostOfficeTime += hours * a.Seat.CostPerHour
		}
	}

	ctx.runStopTest()
}

func (ctx *RunContext) removeFreeAgent(a *Agent) {
	for i, x := range ctx.freeAgents {
		if x == a {
			last := len(ctx.freeAgents) - 1
			ctx.freeAgents[i] = ctx.freeAgents[last]
			ctx.freeAgents[last] = nil
			ctx.freeAgents = ctx.freeAgents[:last]
			return
		}
	}
	log.Panic("agent not found in the free-agent list")
}
