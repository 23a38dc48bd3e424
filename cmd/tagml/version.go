package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/tagml"
	"github.com/aretw0/tagml/internal/presentation/tui"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of tagml",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if isTerminal(out) {
			tui.PrintBanner(out, termenv.ColorProfile())
		}
		fmt.Fprintf(out, "tagml version %s\n", strings.TrimSpace(tagml.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
