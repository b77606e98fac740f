package sim

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("EventQueue", func() {
	var (
		queue *EventQueue
	)

	BeforeEach(func() {
		queue = &EventQueue{}
	})

	It("should pop in time order", func() {
		rng := rand.New(rand.NewSource(1))
		numEvents := 100
		for i := 0; i < numEvents; i++ {
			queue.Push(&Event{Kind: EventCall, Time: rng.Int63n(DayMS)})
		}

		now := Time(-1)
		for i := 0; i < numEvents; i++ {
			event := queue.Pop()
			Expect(event.Time >= now).To(BeTrue())
			now = event.Time
		}

		Expect(queue.Len()).To(Equal(0))
	})

	It("should break time ties first in first out", func() {
		first := &Event{Kind: EventCall, Time: 500}
		second := &Event{Kind: EventAgentReady, Time: 500}
		third := &Event{Kind: EventStopTest, Time: 500}

		queue.Push(first)
		queue.Push(second)
		queue.Push(third)

		Expect(queue.Pop()).To(BeIdenticalTo(first))
		Expect(queue.Pop()).To(BeIdenticalTo(second))
		Expect(queue.Pop()).To(BeIdenticalTo(third))
	})

	It("should return nil when empty", func() {
		Expect(queue.Pop()).To(BeNil())
	})

	It("should remove a scheduled event", func() {
		kept := &Event{Kind: EventCall, Time: 100}
		removed := &Event{Kind: EventCallCancel, Time: 50}

		queue.Push(kept)
		queue.Push(removed)

		Expect(queue.Remove(removed)).To(BeTrue())
		Expect(queue.Len()).To(Equal(1))
		Expect(queue.Pop()).To(BeIdenticalTo(kept))
	})

	It("should ignore removing an event twice", func() {
		event := &Event{Kind: EventCallCancel, Time: 50}

		queue.Push(event)

		Expect(queue.Remove(event)).To(BeTrue())
		Expect(queue.Remove(event)).To(BeFalse())
	})

	It("should ignore removing an event that already fired", func() {
		event := &Event{Kind: EventCall, Time: 50}

		queue.Push(event)

		Expect(queue.Pop()).To(BeIdenticalTo(event))
		Expect(queue.Remove(event)).To(BeFalse())
	})

	It("should remove from the middle of a large queue", func() {
		rng := rand.New(rand.NewSource(2))
		events := make([]*Event, 0, 100)
		for i := 0; i < 100; i++ {
			e := &Event{Kind: EventCall, Time: rng.Int63n(DayMS)}
			events = append(events, e)
			queue.Push(e)
		}

		for i := 0; i < 100; i += 2 {
			Expect(queue.Remove(events[i])).To(BeTrue())
		}

		Expect(queue.Len()).To(Equal(50))

		now := Time(-1)
		for i := 0; i < 50; i++ {
			event := queue.Pop()
			Expect(event.Time >= now).To(BeTrue())
			now = event.Time
		}
	})
})

var _ = Describe("EventPool", func() {
	It("should recycle released events", func() {
		pool := &eventPool{}

		first := pool.acquire(EventCall, 100)
		pool.release(first)

		second := pool.acquire(EventAgentQuit, 200)

		Expect(second).To(BeIdenticalTo(first))
		Expect(second.Kind).To(Equal(EventAgentQuit))
		Expect(second.Time).To(Equal(Time(200)))
		Expect(second.Caller).To(BeNil())
		Expect(second.Agent).To(BeNil())
	})
})
