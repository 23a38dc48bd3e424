package main

import (
	"fmt"
	"slices"

	"github.com/aretw0/tagml/internal/presentation/graph"
	"github.com/aretw0/tagml/pkg/domain"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <file|id|->",
	Short: "Export the document graph as a Mermaid flowchart",
	Long: `Imports a source and outputs a Mermaid diagram (graph TD) of its markup, layers and text nodes.
With --layer the markup of that layer is highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		layer, _ := cmd.Flags().GetString("layer")

		_, _, res, err := a.importArg(cmd.Context(), args[0])
		if isImportFailure(err) {
			return err
		}
		if res.Document == nil {
			printDiagnostics(cmd.ErrOrStderr(), res.Diagnostics)
			return errNotWellFormed
		}
		if err != nil {
			// the partial graph is still worth drawing
			printDiagnostics(cmd.ErrOrStderr(), res.Diagnostics)
		}

		var overlay *graph.GraphOverlay
		if layer != "" {
			if _, ok := res.Document.Layer(layer); !ok {
				return fmt.Errorf("unknown layer %q", layer)
			}
			overlay = &graph.GraphOverlay{}
			for _, m := range res.Document.Markups {
				if slices.Contains(domain.NonDefaultLayers(m.Layers), layer) {
					overlay.Highlight = append(overlay.Highlight, m.ID)
				}
			}
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(res.Document, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("layer", "", "Highlight the markup of this layer")
}
