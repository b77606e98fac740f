package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/callsimlab/callsim/model"
)

var validateCmd = &cobra.Command{
	Use:   "validate <model.yaml>",
	Short: "Check that a model file loads and resolves",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		m, err := model.LoadFile(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("%s: %d days, %d caller groups, %d callcenters, "+
			"%d skills, %d agent seats\n",
			args[0], m.Days, len(m.Groups), len(m.Callcenters),
			len(m.Skills), m.TotalAgents())

		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
