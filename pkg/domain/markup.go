package domain

import (
	"slices"
	"strings"
)

// MarkupID identifies a markup node inside a document model. Zero means "none".
type MarkupID int64

// TextID identifies a text node inside a document model. Zero means "none".
type TextID int64

// DefaultLayer is the implicit layer every document has.
// It is opened by the root markup.
const DefaultLayer = ""

const (
	// BranchesTag is the synthetic markup grouping all branches of a text variation.
	BranchesTag = ":branches"
	// BranchTag is the synthetic markup wrapping a single branch.
	BranchTag = ":branch"
)

// Markup represents a tagged span of text.
type Markup struct {
	ID            MarkupID     `json:"id"`
	Tag           string       `json:"tag"`
	Namespace     string       `json:"namespace,omitempty"`
	SuffixID      string       `json:"suffix_id,omitempty"`
	ExplicitID    string       `json:"explicit_id,omitempty"`
	Layers        []string     `json:"layers"`
	Optional      bool         `json:"optional,omitempty"`
	Discontinuous bool         `json:"discontinuous,omitempty"`
	Milestone     bool         `json:"milestone,omitempty"`
	Annotations   []Annotation `json:"annotations,omitempty"`
	Span          Range        `json:"span"`
}

// QualifiedTag returns the tag including its namespace prefix, if any.
func (m *Markup) QualifiedTag() string {
	if m.Namespace == "" {
		return m.Tag
	}
	return m.Namespace + ":" + m.Tag
}

// HasLayer reports whether the markup is part of the given layer.
func (m *Markup) HasLayer(layer string) bool {
	_, found := slices.BinarySearch(m.Layers, layer)
	return found
}

// AddLayer adds a layer to the markup, keeping Layers sorted and unique.
func (m *Markup) AddLayer(layer string) {
	i, found := slices.BinarySearch(m.Layers, layer)
	if found {
		return
	}
	m.Layers = slices.Insert(m.Layers, i, layer)
}

// IsBranchMarker reports whether the markup was synthesized for a text variation.
func (m *Markup) IsBranchMarker() bool {
	return m.Tag == BranchesTag || m.Tag == BranchTag
}

// ExtendedTag is the matching key between open and close events:
// the qualified tag, the suffix and the sorted list of non-default layers.
func (m *Markup) ExtendedTag() string {
	return ExtendedTag(m.QualifiedTag(), m.SuffixID, m.Layers)
}

// StartTag renders the markup as a TAGML start tag, e.g. "[l~1|a,b>".
func (m *Markup) StartTag() string {
	prefix := ""
	if m.Optional {
		prefix = "?"
	}
	if m.Milestone {
		return "[" + prefix + m.ExtendedTag() + "]"
	}
	return "[" + prefix + m.ExtendedTag() + ">"
}

// EndTag renders the markup as a TAGML end tag, e.g. "<l~1|a,b]".
func (m *Markup) EndTag() string {
	prefix := ""
	if m.Optional {
		prefix = "?"
	}
	return "<" + prefix + m.ExtendedTag() + "]"
}

// ExtendedTag builds the canonical extended tag for a tag, suffix and layer set.
// The default layer never appears in the result.
func ExtendedTag(tag, suffix string, layers []string) string {
	var sb strings.Builder
	sb.WriteString(tag)
	if suffix != "" {
		sb.WriteString("~")
		sb.WriteString(suffix)
	}
	named := NonDefaultLayers(layers)
	if len(named) > 0 {
		sb.WriteString("|")
		sb.WriteString(strings.Join(named, ","))
	}
	return sb.String()
}

// NonDefaultLayers returns the sorted layer names without the default layer.
func NonDefaultLayers(layers []string) []string {
	named := make([]string, 0, len(layers))
	for _, l := range layers {
		if l != DefaultLayer {
			named = append(named, l)
		}
	}
	slices.Sort(named)
	return slices.Compact(named)
}

// Layer is a name identifying an independent nesting discipline.
type Layer struct {
	Name       string   `json:"name"`
	Parent     string   `json:"parent"`
	RootMarkup MarkupID `json:"root_markup,omitempty"`
}

// IsDefault reports whether this is the document's implicit layer.
func (l Layer) IsDefault() bool {
	return l.Name == DefaultLayer
}
