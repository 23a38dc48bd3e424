package graph

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/aretw0/tagml/pkg/domain"
)

// maxTextLabel is the number of runes of a text node shown in its label.
const maxTextLabel = 24

// GraphOverlay marks markup to highlight on the graph, e.g. the markup of one layer.
type GraphOverlay struct {
	Highlight []domain.MarkupID
}

// GenerateMermaid produces a Mermaid flowchart of an imported document.
// Markup is grouped in one subgraph per layer (by its first non-default layer) and
// linked to its text nodes; edges in non-default layers are labelled with the layer.
// Shapes:
// - Root: ((Circle))
// - Milestone: {{Hexagon}}
// - Text: [/Parallelogram/]
// - Default: [Rectangle]
func GenerateMermaid(doc *domain.Document, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	groups := make(map[string][]*domain.Markup)
	for _, m := range doc.Markups {
		if m.IsBranchMarker() {
			continue
		}
		layer := domain.DefaultLayer
		if nd := domain.NonDefaultLayers(m.Layers); len(nd) > 0 {
			layer = nd[0]
		}
		groups[layer] = append(groups[layer], m)
	}

	var discontinuous []string
	for _, layer := range layerOrder(doc, groups) {
		title := "default"
		if layer != domain.DefaultLayer {
			title = "layer " + layer
		}
		fmt.Fprintf(&sb, "    subgraph %s[\"%s\"]\n", layerID(layer), title)
		for _, m := range groups[layer] {
			opener, closer := "[", "]"
			switch {
			case m.ID == doc.Root:
				opener, closer = "((", "))"
			case m.Milestone:
				opener, closer = "{{", "}}"
			}
			fmt.Fprintf(&sb, "        %s%s\"%s\"%s\n", markupID(m.ID), opener, escape(m.StartTag()), closer)
			if m.Discontinuous {
				discontinuous = append(discontinuous, markupID(m.ID))
			}
		}
		sb.WriteString("    end\n")
	}

	for _, tn := range doc.TextNodes {
		fmt.Fprintf(&sb, "    %s[/\"%s\"/]\n", textID(tn.ID), escape(truncate(tn.Content)))
	}

	type edge struct {
		text   domain.TextID
		markup domain.MarkupID
	}
	labels := make(map[edge][]string)
	var edges []edge
	for _, a := range doc.Associations {
		if m := doc.Markup(a.Markup); m == nil || m.IsBranchMarker() {
			continue
		}
		e := edge{a.Text, a.Markup}
		if _, seen := labels[e]; !seen {
			edges = append(edges, e)
			labels[e] = nil
		}
		if a.Layer != domain.DefaultLayer {
			labels[e] = append(labels[e], a.Layer)
		}
	}
	for _, e := range edges {
		arrow := "-->"
		if l := labels[e]; len(l) > 0 {
			arrow = fmt.Sprintf("-- \"%s\" -->", strings.Join(l, ","))
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", markupID(e.markup), arrow, textID(e.text))
	}

	if len(discontinuous) > 0 {
		sb.WriteString("    classDef discontinuous stroke-dasharray: 5 5;\n")
		fmt.Fprintf(&sb, "    class %s discontinuous;\n", strings.Join(discontinuous, ","))
	}

	if overlay != nil && len(overlay.Highlight) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		// black text stays readable on light and dark themes
		sb.WriteString("    classDef highlight fill:#ffeb3b,stroke:#fbc02d,stroke-width:3px,color:#000;\n")
		seen := make(map[domain.MarkupID]bool)
		for _, id := range overlay.Highlight {
			if !seen[id] && doc.Markup(id) != nil {
				seen[id] = true
				fmt.Fprintf(&sb, "    class %s highlight;\n", markupID(id))
			}
		}
	}

	return sb.String()
}

// layerOrder lists the default layer first, then the document's layers in creation
// order, then any other layer used by markup, sorted.
func layerOrder(doc *domain.Document, groups map[string][]*domain.Markup) []string {
	var order []string
	if len(groups[domain.DefaultLayer]) > 0 {
		order = append(order, domain.DefaultLayer)
	}
	for _, l := range doc.Layers {
		if l.Name != domain.DefaultLayer && len(groups[l.Name]) > 0 {
			order = append(order, l.Name)
		}
	}
	var rest []string
	for name := range groups {
		if !slices.Contains(order, name) {
			rest = append(rest, name)
		}
	}
	slices.Sort(rest)
	return append(order, rest...)
}

func markupID(id domain.MarkupID) string { return fmt.Sprintf("m%d", id) }

func textID(id domain.TextID) string { return fmt.Sprintf("t%d", id) }

func layerID(name string) string {
	if name == domain.DefaultLayer {
		return "layer_default"
	}
	return "layer_" + sanitizeMermaidID(name)
}

func truncate(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= maxTextLabel {
		return s
	}
	r := []rune(s)
	return string(r[:maxTextLabel]) + "…"
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "#quot;")
}

func sanitizeMermaidID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", ":", "_", "+", "_")
	return r.Replace(id)
}
