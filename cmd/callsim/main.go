// Command callsim simulates call-center models and stores the resulting
// statistics in a database.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var rootCmd = &cobra.Command{
	Use:   "callsim",
	Short: "callsim simulates call-center models",
	Long: `callsim is a discrete-event call-center simulator. It reads a YAML
model describing caller groups, callcenters, skills and agent shifts,
simulates the configured number of days and records per-group and per-agent
statistics in a SQLite or ClickHouse database.`,
}

func main() {
	// A .env file can carry the ClickHouse credentials.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
