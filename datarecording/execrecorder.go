package datarecording

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExecInfo is one property of the recorded program execution.
type ExecInfo struct {
	Property string
	Value    string
}

// An ExecRecorder stores metadata about one simulator invocation (start and
// end time, command line, working directory) next to the results.
type ExecRecorder struct {
	tablename string
	recorder  DataRecorder
	entries   []ExecInfo
}

// NewExecRecorder creates an ExecRecorder writing through the given
// DataRecorder.
func NewExecRecorder(recorder DataRecorder) *ExecRecorder {
	e := &ExecRecorder{
		tablename: "exec_info",
		recorder:  recorder,
	}

	e.recorder.CreateTable(e.tablename, ExecInfo{})

	return e
}

// Start logs the start of the current execution.
func (e *ExecRecorder) Start() {
	startTime := time.Now().Format("2006-01-02 15:04:05.000000000")
	e.entries = append(e.entries, ExecInfo{"Start Time", startTime})

	cmd := strings.Join(os.Args, " ")
	e.entries = append(e.entries, ExecInfo{"Command", cmd})

	ex, err := os.Executable()
	if err != nil {
		panic(err)
	}
	e.entries = append(e.entries, ExecInfo{"Working Directory", filepath.Dir(ex)})
}

// End writes the collected entries along with the program end time.
func (e *ExecRecorder) End() {
	for _, entry := range e.entries {
		e.recorder.InsertData(e.tablename, entry)
	}

	endTime := time.Now().Format("2006-01-02 15:04:05.000000000")
	e.recorder.InsertData(e.tablename, ExecInfo{"End Time", endTime})

	e.entries = nil

	e.recorder.Flush()
}
