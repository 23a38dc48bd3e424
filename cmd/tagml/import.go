package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/aretw0/tagml"
	"github.com/aretw0/tagml/internal/presentation/tui"
	"github.com/aretw0/tagml/pkg/domain"
	"github.com/aretw0/tagml/pkg/observability"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <file|id|->",
	Short: "Import a TAGML source and report its graph",
	Long: `Imports a TAGML source: a file path, "-" for stdin, or the id of a source
in --dir. Prints a summary of the document graph and every diagnostic.
With --save the document is stored in the configured library under --id.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")
		save, _ := cmd.Flags().GetBool("save")
		id, _ := cmd.Flags().GetString("id")

		hooks := tagml.WithLifecycleHooks(observability.LoggingHooks(a.logger))
		_, name, res, err := a.importArg(cmd.Context(), args[0], hooks)
		if isImportFailure(err) {
			return err
		}
		if id == "" {
			id = name
		}

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(res); encErr != nil {
				return encErr
			}
		} else if printErr := printReport(out, name, res); printErr != nil {
			return printErr
		}

		if err != nil {
			return errNotWellFormed
		}
		if save {
			lib, closeLib, libErr := a.library(cmd.Context())
			if libErr != nil {
				return libErr
			}
			defer closeLib()
			if saveErr := lib.Save(cmd.Context(), id, res.Document); saveErr != nil {
				return saveErr
			}
			a.logger.Info("document saved", "id", id, "backend", a.cfg.Store.Backend)
		}
		return nil
	},
}

// printReport renders the report with glamour on a terminal and as plain markdown otherwise.
func printReport(w io.Writer, name string, res *tagml.Result) error {
	report := tui.Report(name, res.Document, res.Diagnostics)
	if !isTerminal(w) {
		_, err := io.WriteString(w, report)
		return err
	}
	render, err := tui.NewRenderer(0)
	if err != nil {
		return err
	}
	rendered, err := render(report)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, rendered)
	return err
}

// printDiagnostics writes one line per diagnostic, coloured on a terminal.
func printDiagnostics(w io.Writer, diags domain.Diagnostics) {
	profile := termenv.Ascii
	if isTerminal(w) {
		profile = termenv.ColorProfile()
	}
	for _, d := range diags {
		fmt.Fprintln(w, tui.FormatDiagnostic(profile, d))
	}
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().Bool("json", false, "Print the result as JSON")
	importCmd.Flags().Bool("save", false, "Store the document in the configured library")
	importCmd.Flags().String("id", "", "Document id used with --save (default: the source name)")
}
