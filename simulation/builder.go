package simulation

import (
	"github.com/callsimlab/callsim/datarecording"
	"github.com/callsimlab/callsim/model"
	"github.com/callsimlab/callsim/monitoring"
	"github.com/rs/xid"
)

// Builder can be used to build a simulation.
type Builder struct {
	model          *model.Model
	days           int
	workers        int
	seed           int64
	monitorOn      bool
	monitorPort    int
	eventLogOn     bool
	outputFileName string
	dataRecorder   datarecording.DataRecorder
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		workers:   1,
		monitorOn: true,
	}
}

// WithModel sets the model to simulate.
func (b Builder) WithModel(m *model.Model) Builder {
	b.model = m
	return b
}

// WithDays overrides the number of days configured in the model.
func (b Builder) WithDays(days int) Builder {
	b.days = days
	return b
}

// WithWorkers sets the number of worker goroutines the days are fanned
// out over.
func (b Builder) WithWorkers(workers int) Builder {
	b.workers = workers
	return b
}

// WithSeed sets the base seed of the random streams. Worker i draws from
// seed+i, so a run with a fixed seed and worker count is reproducible.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	return b
}

// WithoutMonitoring sets the simulation to not use monitoring.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithEventLogging makes every run log each handled event to stderr.
func (b Builder) WithEventLogging() Builder {
	b.eventLogOn = true
	return b
}

// WithOutputFileName sets the custom output file name for the data recorder.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

// WithDataRecorder sets a custom data recorder, for example a ClickHouse
// backed one. It overrides WithOutputFileName.
func (b Builder) WithDataRecorder(r datarecording.DataRecorder) Builder {
	b.dataRecorder = r
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.model == nil {
		panic("a model is required to build a simulation")
	}

	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if b.dataRecorder != nil && b.outputFileName != "" {
		panic("output file name cannot be set with a custom data recorder")
	}
}

// Build builds the simulation.
func (b Builder) Build() *Simulation {
	b.parametersMustBeValid()

	s := &Simulation{
		model:      b.model,
		workers:    b.workers,
		seed:       b.seed,
		eventLogOn: b.eventLogOn,
	}

	s.id = xid.New().String()

	if b.days > 0 {
		s.model.Days = b.days
	}

	if s.workers < 1 {
		s.workers = 1
	}

	s.dataRecorder = b.dataRecorder
	if s.dataRecorder == nil {
		outputPath := b.outputFileName
		if outputPath == "" {
			outputPath = "callsim_results_" + s.id
		}
		s.dataRecorder = datarecording.New(outputPath)
	}

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor()
		if b.monitorPort > 0 {
			s.monitor.WithPortNumber(b.monitorPort)
		}
		s.monitor.StartServer()
	}

	return s
}
