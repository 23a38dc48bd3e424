package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file|id|->...",
	Short: "Check TAGML sources for well-formedness",
	Long:  `Imports each source and prints its diagnostics. Exits with status 1 if any source has diagnostics.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		failed := 0
		for _, arg := range args {
			_, name, res, err := a.importArg(cmd.Context(), arg)
			if isImportFailure(err) {
				return fmt.Errorf("%s: %w", arg, err)
			}
			if res.OK() {
				fmt.Fprintf(out, "%s: ok\n", name)
				continue
			}
			failed++
			fmt.Fprintf(out, "%s: %d diagnostic(s)\n", name, len(res.Diagnostics))
			printDiagnostics(out, res.Diagnostics)
		}
		if failed > 0 {
			return errNotWellFormed
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
