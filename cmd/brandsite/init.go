package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initWorkbook bool

var initCmd = &cobra.Command{
	Use:   "init <name>",
	Short: "Creates a project from the _template project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dst, err := newRunner().InitProject(args[0], initWorkbook)
		if err != nil {
			return err
		}
		fmt.Printf("created %s\n", dst)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initWorkbook, "xlsx", false, "also write the layout table as layout.xlsx")
	rootCmd.AddCommand(initCmd)
}
