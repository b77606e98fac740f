package sim

// A Time is a point in simulated time, in milliseconds since the start of
// the simulated day.
type Time = int64

// DayMS is the length of one simulated day.
const DayMS Time = 86_400_000

// An EventKind identifies what an event does when it fires. The set of
// kinds is closed; the run loop dispatches with a single switch.
type EventKind int

const (
	// EventNone marks a recycled event that is not scheduled.
	EventNone EventKind = iota

	// EventCall processes a call entering the system: a fresh arrival, a
	// retry, a forward re-entry or a carried-over caller.
	EventCall

	// EventCallCancel fires when a queued caller's patience runs out.
	EventCallCancel

	// EventReCheck re-attempts matching for a still-queued caller at a
	// minimum-waiting-time checkpoint.
	EventReCheck

	// EventAgentReady marks an agent's shift start or the end of a
	// post-processing phase.
	EventAgentReady

	// EventAgentQuit fires at an agent's shift end.
	EventAgentQuit

	// EventService1Start begins service after the technical free time.
	EventService1Start

	// EventService2Start ends service and begins post-processing.
	EventService2Start

	// EventStopTest checks, once the day is over, whether any caller type
	// has become unservable and flushes those callers to the next day.
	EventStopTest
)

var eventKindNames = [...]string{
	"None",
	"Call",
	"CallCancel",
	"ReCheck",
	"AgentReady",
	"AgentQuit",
	"Service1Start",
	"Service2Start",
	"StopTest",
}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventKindNames) {
		return "Unknown"
	}
	return eventKindNames[k]
}

// An Event is something going to happen in the future. Events are owned by
// the run's event queue once scheduled; records hold back-references to
// pending events solely to support cancellation and must drop them when the
// event fires or is cancelled, because the instance is recycled.
type Event struct {
	Kind EventKind
	Time Time

	Caller *Caller
	Agent  *Agent

	// seq orders events scheduled for the same time, first in first out.
	seq uint64

	// heapIndex is the event's position in the queue, or -1 when the event
	// is not scheduled. Maintained by the queue.
	heapIndex int

	// nextFree links recycled events in the free list.
	nextFree *Event
}

// An eventPool is a free list of recycled events. Every kind uses the same
// struct, so one list serves all kinds. An event is released exactly once,
// when it fires or when it is cancelled.
type eventPool struct {
	free *Event
}

func (p *eventPool) acquire(kind EventKind, t Time) *Event {
	e := p.free
	if e == nil {
		e = &Event{}
	} else {
		p.free = e.nextFree
	}
	e.Kind = kind
	e.Time = t
	e.heapIndex = -1
	e.nextFree = nil
	return e
}

func (p *eventPool) release(e *Event) {
	e.Kind = EventNone
	e.Caller = nil
	e.Agent = nil
	e.nextFree = p.free
	p.free = e
}
