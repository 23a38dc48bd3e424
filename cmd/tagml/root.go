package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// errNotWellFormed makes the process exit non-zero after the diagnostics were printed.
var errNotWellFormed = errors.New("document is not well-formed")

var rootCmd = &cobra.Command{
	Use:   "tagml",
	Short: "tagml imports TAGML text into a layered markup graph",
	Long: `tagml reads TAGML (Text As Graph Markup Language) and builds its document graph:
markup, layers, text nodes and the associations between them. Every
well-formedness problem is reported with its line and column.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errNotWellFormed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("dir", ".", "Directory containing TAGML sources (Markdown with frontmatter)")
	rootCmd.PersistentFlags().String("config", "", "Path to the config file (default ./tagml.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("branches", "", "Branch consistency policy: strict or delta")
}
