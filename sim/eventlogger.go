package sim

import (
	"log"
)

// EventLogger is a hook that prints one line per handled event. It is a
// pure observer and never touches simulation state.
type EventLogger struct {
	LogHookBase
}

// NewEventLogger returns a new EventLogger which will write into the logger
func NewEventLogger(logger *log.Logger) *EventLogger {
	h := new(EventLogger)
	h.Logger = logger
	return h
}

// Func writes the event information into the logger
func (h *EventLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	evt, ok := ctx.Item.(*Event)
	if !ok {
		return
	}

	switch {
	case evt.Caller != nil:
		h.Logger.Printf("%8d ms, %s, caller type %s",
			evt.Time, evt.Kind, evt.Caller.Group.Name)
	case evt.Agent != nil:
		h.Logger.Printf("%8d ms, %s, agent %s/%s",
			evt.Time, evt.Kind,
			evt.Agent.Seat.Callcenter.Name, evt.Agent.Seat.Skill.Name)
	default:
		h.Logger.Printf("%8d ms, %s", evt.Time, evt.Kind)
	}
}
