package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the callsim version",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		version := "unknown"
		if info, ok := debug.ReadBuildInfo(); ok {
			version = info.Main.Version
		}
		fmt.Println("callsim", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
