package simulation

import (
	"database/sql"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gopkg.in/yaml.v3"

	"github.com/callsimlab/callsim/datarecording"
	"github.com/callsimlab/callsim/model"
)

const testModelSrc = `
days: 4
maxQueueLength: "2 * workingAgents + 4"
groups:
  - name: sales
    freshCalls: {mean: 30, sd: 5}
    arrival: {type: uniform, min: 0, max: 86400}
    tolerance: {type: exponential, mean: 180}
    blocksLine: true
    serviceLevelSeconds: 20
    retry:
      giveUpFirst: {probability: 0.5}
      giveUp: {probability: 0.2}
      delay: {type: exponential, mean: 600}
  - name: support
    freshCalls: {mean: 15}
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
    agents:
      - count: 3
        shiftStart: 0
        shiftEnd: 43200
        skill: all
      - count: 3
        shiftStart: 43200
        shiftEnd: 86400
        skill: all
`

func buildModel(src string) *model.Model {
	var f model.File
	Expect(yaml.Unmarshal([]byte(src), &f)).To(Succeed())

	m, err := f.Build()
	Expect(err).To(BeNil())
	return m
}

func memoryRecorder() datarecording.DataRecorder {
	db, err := sql.Open("sqlite3", ":memory:")
	Expect(err).To(BeNil())
	return datarecording.NewWithDB(db)
}

var _ = Describe("Simulation", func() {
	var simulation *Simulation

	AfterEach(func() {
		if simulation != nil {
			simulation.Terminate()
			simulation = nil
		}
	})

	It("should run a model and conserve customers", func() {
		simulation = MakeBuilder().
			WithModel(buildModel(testModelSrc)).
			WithoutMonitoring().
			WithSeed(42).
			WithDataRecorder(memoryRecorder()).
			Build()

		st := simulation.Run()

		g := st.Global
		Expect(g.Clients).To(BeNumerically(">", 0))
		Expect(g.Clients).To(Equal(
			g.ClientsSuccess + g.ClientsAbandoned +
				g.ClientsBlocked + g.ClientsCarriedOver))
		Expect(st.SimDays).To(Equal(int64(4)))
		Expect(st.Events).To(BeNumerically(">", 0))
		Expect(simulation.Stats()).To(BeIdenticalTo(st))
	})

	It("should produce identical results for the same seed", func() {
		run := func() *Simulation {
			s := MakeBuilder().
				WithModel(buildModel(testModelSrc)).
				WithoutMonitoring().
				WithSeed(7).
				WithDataRecorder(memoryRecorder()).
				Build()
			s.Run()
			return s
		}

		first := run()
		defer first.Terminate()

		second := run()
		defer second.Terminate()

		g1 := first.Stats().Global
		g2 := second.Stats().Global
		Expect(g2.Calls).To(Equal(g1.Calls))
		Expect(g2.Clients).To(Equal(g1.Clients))
		Expect(g2.CallsSuccess).To(Equal(g1.CallsSuccess))
		Expect(g2.CallsAbandoned).To(Equal(g1.CallsAbandoned))
		Expect(g2.CallsBlocked).To(Equal(g1.CallsBlocked))
		Expect(g2.CallsWait.Sum).To(Equal(g1.CallsWait.Sum))
	})

	It("should fan the days out over multiple workers", func() {
		simulation = MakeBuilder().
			WithModel(buildModel(testModelSrc)).
			WithoutMonitoring().
			WithSeed(42).
			WithWorkers(3).
			WithDataRecorder(memoryRecorder()).
			Build()

		st := simulation.Run()

		g := st.Global
		Expect(st.SimDays).To(Equal(int64(4)))
		Expect(g.Clients).To(Equal(
			g.ClientsSuccess + g.ClientsAbandoned +
				g.ClientsBlocked + g.ClientsCarriedOver))
		Expect(g.CallsSuccess).To(Equal(st.AgentsGlobal.CallsAnswered))
	})

	It("should override the model day count", func() {
		simulation = MakeBuilder().
			WithModel(buildModel(testModelSrc)).
			WithoutMonitoring().
			WithDays(2).
			WithDataRecorder(memoryRecorder()).
			Build()

		st := simulation.Run()

		Expect(st.SimDays).To(Equal(int64(2)))
	})

	It("should record results into the data recorder", func() {
		simulation = MakeBuilder().
			WithModel(buildModel(testModelSrc)).
			WithoutMonitoring().
			WithSeed(42).
			WithDataRecorder(memoryRecorder()).
			Build()

		simulation.Run()
		simulation.RecordResults()

		tables := simulation.DataRecorder().ListTables()
		Expect(tables).To(ContainElement("run_info"))
		Expect(tables).To(ContainElement("group_totals"))
		Expect(tables).To(ContainElement("group_intervals"))
		Expect(tables).To(ContainElement("agent_totals"))
	})

	It("should panic when recording before the run", func() {
		simulation = MakeBuilder().
			WithModel(buildModel(testModelSrc)).
			WithoutMonitoring().
			WithDataRecorder(memoryRecorder()).
			Build()

		Expect(func() { simulation.RecordResults() }).To(Panic())
	})

	Context("Builder validation", func() {
		It("should require a model", func() {
			Expect(func() {
				MakeBuilder().WithoutMonitoring().Build()
			}).To(Panic())
		})

		It("should reject a monitor port without monitoring", func() {
			Expect(func() {
				MakeBuilder().
					WithModel(buildModel(testModelSrc)).
					WithoutMonitoring().
					WithMonitorPort(8080).
					Build()
			}).To(Panic())
		})

		It("should reject an output file name with a custom recorder", func() {
			Expect(func() {
				MakeBuilder().
					WithModel(buildModel(testModelSrc)).
					WithoutMonitoring().
					WithOutputFileName("out").
					WithDataRecorder(memoryRecorder()).
					Build()
			}).To(Panic())
		})
	})

	Context("Builder with custom output file", func() {
		var customSim *Simulation

		AfterEach(func() {
			if customSim != nil {
				customSim.Terminate()
				os.Remove("test_custom_output.sqlite3")
				customSim = nil
			}
		})

		It("should allow a custom output file to be set", func() {
			customSim = MakeBuilder().
				WithModel(buildModel(testModelSrc)).
				WithoutMonitoring().
				WithOutputFileName("test_custom_output").
				Build()

			Expect(customSim).ToNot(BeNil())
			Expect(customSim.DataRecorder()).ToNot(BeNil())
		})
	})
})
