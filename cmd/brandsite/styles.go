package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var stylesCmd = &cobra.Command{
	Use:   "styles <project>",
	Short: "Derives the style variants of a project from its colours and layout",
	Long: `The styles command reads the project's colours, layout table and
layout_rules.json together with style_modulator.json from the components
directory. It writes interpreted_styles_<style>.json for every configured
style and interpreted_text_colors.json into the project directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := newRunner().InterpretStyles(args[0])
		for _, p := range paths {
			fmt.Printf("wrote %s\n", p)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(stylesCmd)
}
