package main

import (
	"github.com/spf13/cobra"
)

var buildAll bool

var buildCmd = &cobra.Command{
	Use:   "build [project...]",
	Short: "Builds one page per project and style",
	Long: `The build command renders every configured style of the named projects
(or of every project with --all or no arguments) into the output directory as
<project>_<style>.html. Failing projects are logged and skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if buildAll {
			args = nil
		}
		sum, err := newRunner().Run(cmd.Context(), args...)
		return report(sum, err)
	},
}

func init() {
	buildCmd.Flags().BoolVar(&buildAll, "all", false, "build every project in the content directory")
	rootCmd.AddCommand(buildCmd)
}
