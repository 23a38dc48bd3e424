package domain

import (
	"maps"
	"slices"
	"strings"
	"time"
)

// TextNode is a run of text in the document graph.
type TextNode struct {
	ID      TextID `json:"id"`
	Content string `json:"content"`
}

// TextAssociation links a text node to markup in one layer.
type TextAssociation struct {
	Text   TextID   `json:"text"`
	Markup MarkupID `json:"markup"`
	Layer  string   `json:"layer"`
}

// Document is the materialized graph of markup and text produced by an import.
type Document struct {
	ID           string            `json:"id"`
	Name         string            `json:"name,omitempty"`
	Root         MarkupID          `json:"root,omitempty"`
	Markups      []*Markup         `json:"markups"`
	Layers       []Layer           `json:"layers"`
	TextNodes    []TextNode        `json:"text_nodes"`
	Associations []TextAssociation `json:"associations"`
	Namespaces   map[string]string `json:"namespaces,omitempty"`
	ImportedAt   time.Time         `json:"imported_at,omitzero"`
}

// Markup returns the markup with the given id, or nil.
func (d *Document) Markup(id MarkupID) *Markup {
	for _, m := range d.Markups {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// MarkupsByTag returns all user markup with the given qualified tag, in creation order.
func (d *Document) MarkupsByTag(tag string) []*Markup {
	var out []*Markup
	for _, m := range d.Markups {
		if m.QualifiedTag() == tag {
			out = append(out, m)
		}
	}
	return out
}

// Layer returns the named layer.
func (d *Document) Layer(name string) (Layer, bool) {
	for _, l := range d.Layers {
		if l.Name == name {
			return l, true
		}
	}
	return Layer{}, false
}

// TextsOf returns the content of the text nodes linked to the markup, in document order.
func (d *Document) TextsOf(id MarkupID) []string {
	seen := make(map[TextID]bool)
	var ids []TextID
	for _, a := range d.Associations {
		if a.Markup == id && !seen[a.Text] {
			seen[a.Text] = true
			ids = append(ids, a.Text)
		}
	}
	slices.Sort(ids)
	out := make([]string, 0, len(ids))
	for _, tid := range ids {
		out = append(out, d.textContent(tid))
	}
	return out
}

// MarkupsOf returns the markup linked to a text node, in the given layer or in any
// layer when layer is nil.
func (d *Document) MarkupsOf(text TextID, layer *string) []MarkupID {
	var out []MarkupID
	for _, a := range d.Associations {
		if a.Text != text || (layer != nil && a.Layer != *layer) {
			continue
		}
		if !slices.Contains(out, a.Markup) {
			out = append(out, a.Markup)
		}
	}
	return out
}

// TextNodeByContent returns the first text node with the given content.
func (d *Document) TextNodeByContent(content string) (TextNode, bool) {
	for _, tn := range d.TextNodes {
		if tn.Content == content {
			return tn, true
		}
	}
	return TextNode{}, false
}

// Text returns the concatenated content of all text nodes.
func (d *Document) Text() string {
	var sb strings.Builder
	for _, tn := range d.TextNodes {
		sb.WriteString(tn.Content)
	}
	return sb.String()
}

// Clone returns a copy that shares no slices or maps with d.
// Annotation values are shared; they are immutable once attached.
func (d *Document) Clone() *Document {
	c := *d
	c.Markups = make([]*Markup, len(d.Markups))
	for i, m := range d.Markups {
		cm := *m
		cm.Layers = slices.Clone(m.Layers)
		cm.Annotations = slices.Clone(m.Annotations)
		c.Markups[i] = &cm
	}
	c.Layers = slices.Clone(d.Layers)
	c.TextNodes = slices.Clone(d.TextNodes)
	c.Associations = slices.Clone(d.Associations)
	c.Namespaces = maps.Clone(d.Namespaces)
	return &c
}

func (d *Document) textContent(id TextID) string {
	for _, tn := range d.TextNodes {
		if tn.ID == id {
			return tn.Content
		}
	}
	return ""
}
