package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/tagml/pkg/domain"
	"github.com/muesli/termenv"
)

// Report builds a markdown summary of an import: counts, layers and diagnostics.
// doc may be nil when the source could not be tokenized.
func Report(name string, doc *domain.Document, diags domain.Diagnostics) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", name)

	if diags.HasErrors() {
		fmt.Fprintf(&sb, "**%d diagnostic(s)**\n\n", len(diags))
	} else {
		sb.WriteString("**Well-formed**\n\n")
	}

	if doc != nil {
		markups := 0
		for _, m := range doc.Markups {
			if !m.IsBranchMarker() {
				markups++
			}
		}
		sb.WriteString("| Markup | Layers | Text nodes |\n|---|---|---|\n")
		fmt.Fprintf(&sb, "| %d | %d | %d |\n\n", markups, len(doc.Layers), len(doc.TextNodes))

		if len(doc.Layers) > 1 {
			sb.WriteString("## Layers\n\n")
			for _, l := range doc.Layers {
				if l.IsDefault() {
					continue
				}
				root := ""
				if m := doc.Markup(l.RootMarkup); m != nil {
					root = m.StartTag()
				}
				parent := l.Parent
				if parent == domain.DefaultLayer {
					parent = "default"
				}
				fmt.Fprintf(&sb, "- `%s` (parent `%s`, root `%s`)\n", l.Name, parent, root)
			}
			sb.WriteString("\n")
		}
	}

	if diags.HasErrors() {
		sb.WriteString("## Diagnostics\n\n")
		for _, d := range diags {
			marker := ""
			if d.Breaking {
				marker = " **(breaking)**"
			}
			fmt.Fprintf(&sb, "- `%s` %s: %s%s\n", d.Range.Start, d.Kind, d.Message, marker)
		}
	}
	return sb.String()
}

// FormatDiagnostic renders a diagnostic as one line, coloured for the terminal:
// breaking errors red, others yellow. An Ascii profile yields plain text.
func FormatDiagnostic(p termenv.Profile, d domain.Diagnostic) string {
	color := "#facc15"
	if d.Breaking {
		color = "#f87171"
	}
	pos := p.String(d.Range.Start.String()).Foreground(p.Color(color)).Bold()
	kind := p.String("[" + string(d.Kind) + "]").Faint()
	return fmt.Sprintf("%s %s %s", pos, kind, d.Message)
}
