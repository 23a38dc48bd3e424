package main

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/tagml/internal/presentation/graph"
	"github.com/spf13/cobra"
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "Manage the stored document library",
	Long:    `Lists, shows and deletes documents stored with "import --save" in the configured backend (file or redis).`,
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored document ids",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		lib, closeLib, err := a.library(cmd.Context())
		if err != nil {
			return err
		}
		defer closeLib()

		ids, err := lib.List(cmd.Context())
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

var documentsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a stored document as JSON or Mermaid",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		lib, closeLib, err := a.library(cmd.Context())
		if err != nil {
			return err
		}
		defer closeLib()

		doc, err := lib.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		switch format {
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		case "mermaid":
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(doc, nil))
			return nil
		case "text":
			fmt.Fprintln(cmd.OutOrStdout(), doc.Text())
			return nil
		default:
			return fmt.Errorf("unknown format %q (want json, mermaid or text)", format)
		}
	},
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete stored documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		lib, closeLib, err := a.library(cmd.Context())
		if err != nil {
			return err
		}
		defer closeLib()

		for _, id := range args {
			if err := lib.Delete(cmd.Context(), id); err != nil {
				return fmt.Errorf("delete %s: %w", id, err)
			}
			a.logger.Info("document deleted", "id", id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(documentsCmd)
	documentsCmd.AddCommand(documentsListCmd, documentsShowCmd, documentsDeleteCmd)
	documentsShowCmd.Flags().String("format", "json", "Output format: json, mermaid or text")
}
