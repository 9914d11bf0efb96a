package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var synthCmd = &cobra.Command{
	Use:   "synth <project>",
	Short: "Generates a starter content document from the layout and fragments",
	Long: `The synth command scans the fragments of every component in the project's
layout table and writes content_<timestamp>.json into the project directory.
Keys without a value are appended to global_variables.csv and
local_variables.csv for editors to fill in.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, rep, err := newRunner().Synthesize(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("wrote %s (%d components)\n", path, len(rep.Components))
		if len(rep.MissingGlobal) > 0 {
			fmt.Printf("global keys to fill in: %s\n", strings.Join(rep.MissingGlobal, ", "))
		}
		for c, gaps := range rep.Uncovered {
			fmt.Printf("%s: uncovered %s\n", c, strings.Join(gaps, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(synthCmd)
}
