package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/callsimlab/callsim/datarecording"
	"github.com/callsimlab/callsim/model"
	"github.com/callsimlab/callsim/simulation"
)

var runFlags struct {
	modelFile string
	days      int
	workers   int
	seed      int64
	output    string
	noMonitor bool
	port      int
	logEvents bool

	clickHouse         bool
	clickHouseHost     string
	clickHousePort     int
	clickHouseDatabase string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate a model and record the statistics",
	Args:  cobra.NoArgs,
	RunE:  runSimulation,
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runFlags.modelFile, "model", "m", "",
		"YAML model file to simulate")
	f.IntVar(&runFlags.days, "days", 0,
		"number of days to simulate, overriding the model")
	f.IntVarP(&runFlags.workers, "workers", "w", 1,
		"number of parallel workers the days are fanned out over")
	f.Int64Var(&runFlags.seed, "seed", 1,
		"base seed of the random streams")
	f.StringVarP(&runFlags.output, "output", "o", "",
		"output SQLite file name, without the .sqlite3 suffix")
	f.BoolVar(&runFlags.noMonitor, "no-monitor", false,
		"disable the monitoring server")
	f.IntVar(&runFlags.port, "monitor-port", 0,
		"port of the monitoring server, 0 picks a random port")
	f.BoolVar(&runFlags.logEvents, "log-events", false,
		"log every handled event to stderr")
	f.BoolVar(&runFlags.clickHouse, "clickhouse", false,
		"record into ClickHouse instead of SQLite")
	f.StringVar(&runFlags.clickHouseHost, "clickhouse-host", "",
		"ClickHouse host, defaults to $CALLSIM_CLICKHOUSE_HOST")
	f.IntVar(&runFlags.clickHousePort, "clickhouse-port", 0,
		"ClickHouse native port, defaults to $CALLSIM_CLICKHOUSE_PORT")
	f.StringVar(&runFlags.clickHouseDatabase, "clickhouse-database", "",
		"ClickHouse database, defaults to $CALLSIM_CLICKHOUSE_DATABASE")

	if err := runCmd.MarkFlagRequired("model"); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(runCmd)
}

func runSimulation(_ *cobra.Command, _ []string) error {
	m, err := model.LoadFile(runFlags.modelFile)
	if err != nil {
		return err
	}

	b := simulation.MakeBuilder().
		WithModel(m).
		WithWorkers(runFlags.workers).
		WithSeed(runFlags.seed)

	if runFlags.days > 0 {
		b = b.WithDays(runFlags.days)
	}

	if runFlags.output != "" {
		b = b.WithOutputFileName(runFlags.output)
	}

	if runFlags.noMonitor {
		b = b.WithoutMonitoring()
	} else if runFlags.port > 0 {
		b = b.WithMonitorPort(runFlags.port)
	}

	if runFlags.logEvents {
		b = b.WithEventLogging()
	}

	if runFlags.clickHouse {
		recorder, err := clickHouseRecorder()
		if err != nil {
			return err
		}
		b = b.WithDataRecorder(recorder)
	}

	s := b.Build()
	defer s.Terminate()

	execRecorder := datarecording.NewExecRecorder(s.DataRecorder())
	execRecorder.Start()

	st := s.Run()
	s.RecordResults()

	execRecorder.End()

	fmt.Printf("simulated %d days, %d events, run %s\n",
		st.SimDays, st.Events, s.ID())

	return nil
}

// clickHouseRecorder builds a ClickHouse recorder from the flags, falling
// back to the CALLSIM_CLICKHOUSE_* environment variables, which a .env file
// can provide.
func clickHouseRecorder() (datarecording.DataRecorder, error) {
	host := runFlags.clickHouseHost
	if host == "" {
		host = os.Getenv("CALLSIM_CLICKHOUSE_HOST")
	}
	if host == "" {
		return nil, fmt.Errorf("a ClickHouse host is required")
	}

	port := runFlags.clickHousePort
	if port == 0 {
		if v := os.Getenv("CALLSIM_CLICKHOUSE_PORT"); v != "" {
			p, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("CALLSIM_CLICKHOUSE_PORT: %w", err)
			}
			port = p
		} else {
			port = 9000
		}
	}

	database := runFlags.clickHouseDatabase
	if database == "" {
		database = os.Getenv("CALLSIM_CLICKHOUSE_DATABASE")
	}
	if database == "" {
		database = "callsim"
	}

	username := os.Getenv("CALLSIM_CLICKHOUSE_USERNAME")
	if username == "" {
		username = "default"
	}
	password := os.Getenv("CALLSIM_CLICKHOUSE_PASSWORD")

	return datarecording.NewClickHouse(
		host, port, database, username, password), nil
}
