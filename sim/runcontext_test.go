package sim

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
	"gopkg.in/yaml.v3"

	"github.com/callsimlab/callsim/model"
	"github.com/callsimlab/callsim/stats"
)

func buildModel(src string) *model.Model {
	var f model.File
	Expect(yaml.Unmarshal([]byte(src), &f)).To(Succeed())

	m, err := f.Build()
	Expect(err).To(BeNil())
	return m
}

func newTestContext(m *model.Model, seed int64) *RunContext {
	st := stats.New(len(m.Groups), len(m.Callcenters), len(m.Skills))
	return NewRunContext(m, st, rand.New(rand.NewSource(seed)))
}

var _ = Describe("RunContext", func() {
	It("should serve a lone caller without waiting", func() {
		m := buildModel(`
days: 1
groups:
  - name: sales
    freshCalls: {mean: 1}
    arrival: {type: deterministic, value: 0}
skills:
  - name: basic
    groups:
      - group: sales
        serviceTime: {type: deterministic, value: 60}
        postTime: {type: deterministic, value: 0}
callcenters:
  - name: main
    agents:
      - shiftStart: 0
        openEnd: true
        skill: basic
`)
		ctx := newTestContext(m, 1)

		ctx.RunDay(0)

		g := ctx.Stats.Global
		Expect(g.Calls).To(Equal(int64(1)))
		Expect(g.Clients).To(Equal(int64(1)))
		Expect(g.CallsSuccess).To(Equal(int64(1)))
		Expect(g.ClientsSuccess).To(Equal(int64(1)))
		Expect(g.CallsWait.Sum).To(Equal(0.0))
		Expect(g.ClientsStay.PerInterval[0]).To(Equal(60.0))

		a := ctx.Stats.AgentsGlobal
		Expect(a.CallsAnswered).To(Equal(int64(1)))
		Expect(a.ServiceTotal).To(Equal(int64(60_000)))
	})

	It("should block every arrival when the queue limit is zero", func() {
		m := buildModel(`
days: 1
maxQueueLength: "0"
groups:
  - name: sales
    freshCalls: {mean: 1}
    arrival: {type: deterministic, value: 0}
    blocksLine: true
`)
		ctx := newTestContext(m, 1)

		ctx.RunDay(0)

		g := ctx.Stats.Global
		Expect(g.Calls).To(Equal(int64(1)))
		Expect(g.CallsBlocked).To(Equal(int64(1)))
		Expect(g.ClientsBlocked).To(Equal(int64(1)))
		Expect(g.CallsSuccess).To(Equal(int64(0)))
		Expect(g.ClientsAbandoned).To(Equal(int64(0)))
	})

	It("should retry an abandoned call after the retry delay", func() {
		m := buildModel(`
days: 1
groups:
  - name: sales
    freshCalls: {mean: 1}
    arrival: {type: deterministic, value: 0}
    tolerance: {type: deterministic, value: 10}
    retry:
      giveUpFirst: {probability: 1}
      delay: {type: deterministic, value: 30}
`)
		ctx := newTestContext(m, 1)

		ctx.RunDay(0)

		// first call abandons at 10s and retries at 40s; the retry
		// abandons at 50s and the customer is lost
		g := ctx.Stats.Global
		Expect(g.Calls).To(Equal(int64(2)))
		Expect(g.Clients).To(Equal(int64(1)))
		Expect(g.CallsAbandoned).To(Equal(int64(2)))
		Expect(g.CallsRetried).To(Equal(int64(1)))
		Expect(g.ClientsRetried).To(Equal(int64(1)))
		Expect(g.ClientsAbandoned).To(Equal(int64(1)))
		Expect(g.CallsAbandon.PerInterval[0]).To(Equal(20.0))
	})

	It("should carry over callers of a group nobody can serve anymore", func() {
		m := buildModel(`
days: 2
groups:
  - name: support
    freshCalls: {mean: 1, byDay: [0, -1]}
    arrival: {type: deterministic, value: 7200}
    tolerance: {type: deterministic, value: 200000}
skills:
  - name: basic
    groups:
      - group: support
        serviceTime: {type: deterministic, value: 60}
        postTime: {type: deterministic, value: 0}
callcenters:
  - name: main
    agents:
      - shiftStart: 0
        shiftEnd: 3600
        skill: basic
`)
		ctx := newTestContext(m, 1)

		ctx.RunDay(0)

		// the only agent quit at 3600s, the caller arrived at 7200s and
		// was flushed by the stop test at 86401s
		b := ctx.Stats.PerGroup[0]
		Expect(b.NextDayWaitingTimes).To(Equal([]int64{79_201_000}))
		Expect(b.NextDayWaitingTolerances).To(Equal([]int64{120_799_000}))

		g := ctx.Stats.Global
		Expect(g.CallsCarriedOver).To(Equal(int64(1)))
		Expect(g.ClientsCarriedOver).To(Equal(int64(1)))
		Expect(g.ClientsAbandoned).To(Equal(int64(0)))
		Expect(g.CallsAbandoned).To(Equal(int64(0)))

		ctx.RunDay(1)

		// the carried-over caller re-arrives at 0 with its waited time
		// intact and is served right away by the next day's agent; the
		// pre-midnight waiting charges the first interval
		Expect(g.Clients).To(Equal(int64(2)))
		Expect(g.CallsSuccess).To(Equal(int64(1)))
		Expect(g.ClientsSuccess).To(Equal(int64(1)))
		Expect(g.CallsCarriedOver).To(Equal(int64(1)))
		Expect(g.ClientsAbandoned).To(Equal(int64(0)))
		Expect(g.CallsWait.PerInterval[0]).To(Equal(79_201.0))
	})

	It("should unwind an assignment abandoned during the setup delay", func() {
		m := buildModel(`
days: 1
groups:
  - name: sales
    freshCalls: {mean: 1}
    arrival: {type: deterministic, value: 0}
    tolerance: {type: deterministic, value: 10}
skills:
  - name: basic
    groups:
      - group: sales
        serviceTime: {type: deterministic, value: 60}
        postTime: {type: deterministic, value: 0}
callcenters:
  - name: main
    technicalFreeTimeSeconds: 30
    technicalFreeTimeIsWaitingTime: true
    agents:
      - shiftStart: 0
        openEnd: true
        skill: basic
`)
		ctx := newTestContext(m, 1)

		ctx.RunDay(0)

		// matched at 0, hung up at 10s, 20s before service would start
		g := ctx.Stats.Global
		Expect(g.CallsSuccess).To(Equal(int64(0)))
		Expect(g.CallsAbandoned).To(Equal(int64(1)))
		Expect(g.ClientsAbandoned).To(Equal(int64(1)))

		a := ctx.Stats.AgentsGlobal
		Expect(a.CallsAnswered).To(Equal(int64(0)))
		Expect(a.TechIdleTotal).To(Equal(int64(10_000)))
		Expect(a.ServiceTotal).To(Equal(int64(0)))
	})

	It("should hide a queued caller until the minimum waiting time", func() {
		m := buildModel(`
days: 1
groups:
  - name: vip
    freshCalls: {mean: 1}
    arrival: {type: deterministic, value: 0}
skills:
  - name: basic
    groups:
      - group: vip
        serviceTime: {type: deterministic, value: 60}
        postTime: {type: deterministic, value: 0}
callcenters:
  - name: main
    minWaitingTimeSeconds: {vip: 60}
    agents:
      - shiftStart: 0
        openEnd: true
        skill: basic
`)
		ctx := newTestContext(m, 1)

		ctx.RunDay(0)

		// the free agent may not see the caller before 60s; the recheck
		// event matches them exactly at the threshold
		g := ctx.Stats.Global
		Expect(g.CallsSuccess).To(Equal(int64(1)))
		Expect(g.CallsWait.PerInterval[0]).To(Equal(60.0))
	})

	It("should lengthen service by the waiting-time add-on", func() {
		m := buildModel(`
days: 1
groups:
  - name: sales
    freshCalls: {mean: 2}
    arrival: {type: deterministic, value: 0}
skills:
  - name: basic
    groups:
      - group: sales
        serviceTime: {type: deterministic, value: 100}
        serviceTimeAddOn: "waitingTime / 2"
        postTime: {type: deterministic, value: 0}
callcenters:
  - name: main
    agents:
      - shiftStart: 0
        openEnd: true
        skill: basic
`)
		ctx := newTestContext(m, 1)

		ctx.RunDay(0)

		// the second caller waits 100s for the first service to end, so
		// its own service takes 100 + 100/2 seconds
		g := ctx.Stats.Global
		Expect(g.CallsSuccess).To(Equal(int64(2)))
		Expect(g.CallsWait.PerInterval[0]).To(Equal(100.0))
		Expect(ctx.Stats.AgentsGlobal.ServiceTotal).To(Equal(int64(250_000)))
	})

	It("should conserve customers across outcomes", func() {
		m := buildModel(`
days: 2
maxQueueLength: "2 * workingAgents + 4"
groups:
  - name: sales
    freshCalls: {mean: 40, sd: 5}
    arrival: {type: uniform, min: 0, max: 86400}
    tolerance: {type: exponential, mean: 180}
    blocksLine: true
    serviceLevelSeconds: 20
    retry:
      blockedFirst: {probability: 0.6}
      blocked: {probability: 0.3}
      giveUpFirst: {probability: 0.5, targets: {support: 0.5, sales: 0.5}}
      giveUp: {probability: 0.2}
      delay: {type: exponential, mean: 600}
    forward:
      probability: 0.2
      targets: {support: 1}
    recall:
      probability: 0.1
      delay: {type: exponential, mean: 1800}
  - name: support
    freshCalls: {mean: 20}
    arrival: {type: uniform, min: 0, max: 86400}
    tolerance: {type: exponential, mean: 300}
skills:
  - name: all
    groups:
      - group: sales
        serviceTime: {type: exponential, mean: 240}
        postTime: {type: deterministic, value: 30}
      - group: support
        serviceTime: {type: exponential, mean: 300}
        postTime: {type: deterministic, value: 20}
callcenters:
  - name: main
    technicalFreeTimeSeconds: 5
    agents:
      - count: 3
        shiftStart: 0
        shiftEnd: 43200
        skill: all
      - count: 3
        shiftStart: 43200
        shiftEnd: 86400
        skill: all
`)
		ctx := newTestContext(m, 42)

		ctx.Run()

		g := ctx.Stats.Global
		Expect(g.Clients).To(BeNumerically(">", 0))
		Expect(g.Clients).To(Equal(
			g.ClientsSuccess + g.ClientsAbandoned +
				g.ClientsBlocked + g.ClientsCarriedOver))

		Expect(g.CallsSuccess).To(Equal(ctx.Stats.AgentsGlobal.CallsAnswered))
		Expect(ctx.Stats.SimDays).To(Equal(int64(2)))
		Expect(ctx.Stats.Events).To(BeNumerically(">", 0))

		// per-group customer counters add up to the global ones
		var clients int64
		for _, b := range ctx.Stats.PerGroup {
			clients += b.Clients
		}
		Expect(clients).To(Equal(g.Clients))
	})

	It("should charge abandonment to the waiting start and the first call", func() {
		m := buildModel(`
days: 1
groups:
  - name: sales
    freshCalls: {mean: 1}
    arrival: {type: deterministic, value: 1700}
    tolerance: {type: deterministic, value: 10}
    retry:
      giveUpFirst: {probability: 1}
      delay: {type: deterministic, value: 200}
`)
		ctx := newTestContext(m, 1)

		ctx.RunDay(0)

		// the first call waits from 1700s, the retry from 1910s; only the
		// second one falls into the second half-hour interval. The lost
		// customer is charged to the interval of its first call.
		g := ctx.Stats.Global
		Expect(g.CallsAbandoned).To(Equal(int64(2)))
		Expect(g.CallsAbandonedPerInterval[0]).To(Equal(1.0))
		Expect(g.CallsAbandonedPerInterval[1]).To(Equal(1.0))
		Expect(g.ClientsAbandoned).To(Equal(int64(1)))
		Expect(g.ClientsAbandonedPerInterval[0]).To(Equal(1.0))
		Expect(g.ClientsAbandonedPerInterval[1]).To(Equal(0.0))
		Expect(g.CallsRetried).To(Equal(int64(1)))
		Expect(g.CallsRetriedPerInterval[1]).To(Equal(1.0))
	})

	It("should count a customer retrying over and over once", func() {
		m := buildModel(`
days: 1
groups:
  - name: sales
    freshCalls: {mean: 1}
    arrival: {type: deterministic, value: 0}
    tolerance: {type: deterministic, value: 10}
    retry:
      giveUpFirst: {probability: 1}
      giveUp: {probability: 1}
      delay: {type: deterministic, value: 30000}
`)
		ctx := newTestContext(m, 1)

		ctx.RunDay(0)

		// calls arrive at 0s, 30010s and 60020s; the retry planned for
		// 90030s never arrives and the customer is handed to the next day
		g := ctx.Stats.Global
		Expect(g.Calls).To(Equal(int64(3)))
		Expect(g.Clients).To(Equal(int64(1)))
		Expect(g.CallsRetried).To(Equal(int64(2)))
		Expect(g.ClientsRetried).To(Equal(int64(1)))
		Expect(g.CallsAbandoned).To(Equal(int64(3)))
		Expect(g.ClientsAbandoned).To(Equal(int64(0)))
		Expect(g.CallsCarriedOver).To(Equal(int64(1)))
		Expect(g.ClientsCarriedOver).To(Equal(int64(1)))
		Expect(ctx.Stats.PerGroup[0].NextDayRetryTimes).To(
			Equal([]int64{3_630_000}))
	})

	It("should charge a lost blocked customer to its first call", func() {
		m := buildModel(`
days: 1
maxQueueLength: "0"
groups:
  - name: sales
    freshCalls: {mean: 1}
    arrival: {type: deterministic, value: 1700}
    blocksLine: true
    retry:
      blockedFirst: {probability: 1}
      delay: {type: deterministic, value: 200}
`)
		ctx := newTestContext(m, 1)

		ctx.RunDay(0)

		// blocked at 1700s and again at 1900s; the customer is lost on
		// the second attempt but counts against the first call's interval
		// and against the day's lost customers
		g := ctx.Stats.Global
		Expect(g.CallsBlocked).To(Equal(int64(2)))
		Expect(g.CallsBlockedPerInterval[0]).To(Equal(1.0))
		Expect(g.CallsBlockedPerInterval[1]).To(Equal(1.0))
		Expect(g.ClientsBlocked).To(Equal(int64(1)))
		Expect(g.ClientsBlockedPerInterval[0]).To(Equal(1.0))
		Expect(g.ClientsBlockedPerInterval[1]).To(Equal(0.0))
		Expect(g.InterDay.AbandonedClientsPerDay).To(Equal([]int64{1}))
	})

	It("should treat a carried-over retry as a first attempt", func() {
		m := buildModel(`
days: 1
groups:
  - name: sales
    freshCalls: {mean: 0}
    arrival: {type: deterministic, value: 0}
    tolerance: {type: deterministic, value: 10}
    retry:
      giveUpFirst: {probability: 1}
      delay: {type: deterministic, value: 30}
    carryOver:
      scheduledRetryByDay: [[0]]
`)
		ctx := newTestContext(m, 1)

		ctx.RunDay(0)

		// the seeded caller abandons at 10s and draws the first-attempt
		// retry probability, so a second call follows at 40s
		g := ctx.Stats.Global
		Expect(g.Calls).To(Equal(int64(2)))
		Expect(g.Clients).To(Equal(int64(1)))
		Expect(g.CallsRetried).To(Equal(int64(1)))
		Expect(g.ClientsRetried).To(Equal(int64(1)))
		Expect(g.CallsAbandoned).To(Equal(int64(2)))
		Expect(g.ClientsAbandoned).To(Equal(int64(1)))
	})

	It("should count a twice-forwarded customer as forwarded once", func() {
		m := buildModel(`
days: 1
groups:
  - name: alpha
    freshCalls: {mean: 1}
    arrival: {type: deterministic, value: 100}
    forward:
      probability: 1
      targets: {beta: 1}
  - name: beta
    freshCalls: {mean: 0}
    arrival: {type: deterministic, value: 0}
    forward:
      probability: 1
      targets: {gamma: 1}
  - name: gamma
    freshCalls: {mean: 0}
    arrival: {type: deterministic, value: 0}
skills:
  - name: all
    groups:
      - group: alpha
        serviceTime: {type: deterministic, value: 2000}
        postTime: {type: deterministic, value: 0}
      - group: beta
        serviceTime: {type: deterministic, value: 2000}
        postTime: {type: deterministic, value: 0}
      - group: gamma
        serviceTime: {type: deterministic, value: 2000}
        postTime: {type: deterministic, value: 0}
callcenters:
  - name: main
    agents:
      - shiftStart: 0
        openEnd: true
        skill: all
`)
		ctx := newTestContext(m, 1)

		ctx.RunDay(0)

		// services end at 2100s and 4100s; call-level forwards key the
		// interval the waiting started in, the customer counts once
		g := ctx.Stats.Global
		Expect(g.CallsForwarded).To(Equal(int64(2)))
		Expect(g.CallsForwardedPerInterval[0]).To(Equal(1.0))
		Expect(g.CallsForwardedPerInterval[1]).To(Equal(1.0))
		Expect(g.ClientsForwarded).To(Equal(int64(1)))
		Expect(g.ClientsForwardedPerInterval[0]).To(Equal(1.0))
		Expect(g.ClientsForwardedPerInterval[1]).To(Equal(0.0))
		Expect(g.CallsSuccess).To(Equal(int64(3)))
		Expect(g.ClientsSuccess).To(Equal(int64(1)))
	})

	It("should serve a caller whose patience equals the setup delay", func() {
		m := buildModel(`
days: 1
groups:
  - name: sales
    freshCalls: {mean: 1}
    arrival: {type: deterministic, value: 0}
    tolerance: {type: deterministic, value: 10}
skills:
  - name: basic
    groups:
      - group: sales
        serviceTime: {type: deterministic, value: 60}
        postTime: {type: deterministic, value: 0}
callcenters:
  - name: main
    technicalFreeTimeSeconds: 10
    technicalFreeTimeIsWaitingTime: true
    agents:
      - shiftStart: 0
        openEnd: true
        skill: basic
`)
		ctx := newTestContext(m, 1)

		ctx.RunDay(0)

		// service starts exactly when the patience would run out
		g := ctx.Stats.Global
		Expect(g.CallsSuccess).To(Equal(int64(1)))
		Expect(g.CallsAbandoned).To(Equal(int64(0)))
		Expect(g.CallsWait.PerInterval[0]).To(Equal(10.0))
		Expect(ctx.Stats.AgentsGlobal.TechIdleTotal).To(Equal(int64(10_000)))
	})

	It("should classify the service level on whole seconds", func() {
		m := buildModel(`
days: 1
groups:
  - name: sales
    freshCalls: {mean: 2}
    arrival: {type: deterministic, value: 0}
    serviceLevelSeconds: 20
skills:
  - name: basic
    groups:
      - group: sales
        serviceTime: {type: deterministic, value: 20.5}
        postTime: {type: deterministic, value: 0}
callcenters:
  - name: main
    agents:
      - shiftStart: 0
        openEnd: true
        skill: basic
`)
		ctx := newTestContext(m, 1)

		ctx.RunDay(0)

		// the second caller waits 20.5s, truncated to 20s for the
		// comparison against the 20s threshold
		g := ctx.Stats.Global
		Expect(g.CallsSuccess).To(Equal(int64(2)))
		Expect(g.CallsServiceLevel).To(Equal(int64(2)))
		Expect(g.ClientsServiceLevel).To(Equal(int64(2)))
	})

	It("should judge the customer service level by the final type", func() {
		m := buildModel(`
days: 1
groups:
  - name: alpha
    freshCalls: {mean: 1}
    arrival: {type: deterministic, value: 0}
    serviceLevelSeconds: 5
    forward:
      probability: 1
      targets: {beta: 1}
  - name: beta
    freshCalls: {mean: 0}
    arrival: {type: deterministic, value: 0}
    serviceLevelSeconds: 1000
skills:
  - name: all
    groups:
      - group: alpha
        serviceTime: {type: deterministic, value: 60}
        postTime: {type: deterministic, value: 0}
      - group: beta
        serviceTime: {type: deterministic, value: 60}
        postTime: {type: deterministic, value: 0}
callcenters:
  - name: main
    agents:
      - shiftStart: 10
        openEnd: true
        skill: all
`)
		ctx := newTestContext(m, 1)

		ctx.RunDay(0)

		// the journey waited 10s in total: over alpha's threshold, well
		// under beta's, and the journey ended under beta
		g := ctx.Stats.Global
		Expect(g.ClientsSuccess).To(Equal(int64(1)))
		Expect(g.ClientsServiceLevel).To(Equal(int64(1)))
		Expect(g.CallsServiceLevel).To(Equal(int64(1)))
	})

	It("should invoke hooks around events and at day end", func() {
		mockCtrl := gomock.NewController(GinkgoT())
		defer mockCtrl.Finish()

		m := buildModel(`
days: 1
groups:
  - name: sales
    freshCalls: {mean: 0}
    arrival: {type: deterministic, value: 0}
`)
		ctx := newTestContext(m, 1)

		hook := NewMockHook(mockCtrl)
		ctx.AcceptHook(hook)

		// the stop-test event is the only one: before, after, day end
		hook.EXPECT().Func(gomock.Any()).Times(3)

		ctx.RunDay(0)
	})
})
