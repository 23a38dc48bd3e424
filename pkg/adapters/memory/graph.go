package memory

import (
	"iter"
	"slices"

	"github.com/aretw0/tagml/pkg/domain"
	"github.com/aretw0/tagml/pkg/ports"
)

// Graph implements ports.DocumentModel in memory.
// It is owned by a single import and is not safe for concurrent use.
type Graph struct {
	markups      []*domain.Markup
	layers       []domain.Layer
	texts        []domain.TextNode
	associations []domain.TextAssociation
	linked       map[domain.TextAssociation]struct{}
	byText       map[domain.TextID][]domain.MarkupID
}

var _ ports.DocumentModel = (*Graph)(nil)

// NewGraph creates an empty document graph.
func NewGraph() *Graph {
	return &Graph{
		linked: make(map[domain.TextAssociation]struct{}),
		byText: make(map[domain.TextID][]domain.MarkupID),
	}
}

// NewModel is a ports.ModelFactory producing in-memory graphs.
func NewModel() ports.DocumentModel {
	return NewGraph()
}

// CreateMarkup stores a copy of m and assigns its id.
func (g *Graph) CreateMarkup(m domain.Markup) domain.MarkupID {
	m.ID = domain.MarkupID(len(g.markups) + 1)
	m.Layers = slices.Clone(m.Layers)
	g.markups = append(g.markups, &m)
	return m.ID
}

// Markup returns the stored markup, or nil.
func (g *Graph) Markup(id domain.MarkupID) *domain.Markup {
	if id <= 0 || int(id) > len(g.markups) {
		return nil
	}
	return g.markups[id-1]
}

// AddLayer registers a layer. A layer is only registered once.
func (g *Graph) AddLayer(layer string, root domain.MarkupID, parent string) {
	if slices.ContainsFunc(g.layers, func(l domain.Layer) bool { return l.Name == layer }) {
		return
	}
	g.layers = append(g.layers, domain.Layer{Name: layer, Parent: parent, RootMarkup: root})
}

// OpenMarkupInLayer records the layer membership of the markup.
func (g *Graph) OpenMarkupInLayer(id domain.MarkupID, layer string) {
	if m := g.Markup(id); m != nil {
		m.AddLayer(layer)
	}
}

// CloseMarkupInLayer is a no-op; the graph keeps no per-layer open state.
func (g *Graph) CloseMarkupInLayer(domain.MarkupID, string) {}

// CreateTextNode stores a text node and returns its id.
func (g *Graph) CreateTextNode(content string) domain.TextID {
	id := domain.TextID(len(g.texts) + 1)
	g.texts = append(g.texts, domain.TextNode{ID: id, Content: content})
	return id
}

// AssociateTextWithMarkup links a text node to markup in one layer.
func (g *Graph) AssociateTextWithMarkup(text domain.TextID, markup domain.MarkupID, layer string) {
	a := domain.TextAssociation{Text: text, Markup: markup, Layer: layer}
	if _, ok := g.linked[a]; ok {
		return
	}
	g.linked[a] = struct{}{}
	g.associations = append(g.associations, a)
	if !slices.Contains(g.byText[text], markup) {
		g.byText[text] = append(g.byText[text], markup)
	}
}

// LastTextNode returns the most recent text node, or 0.
func (g *Graph) LastTextNode() domain.TextID {
	return domain.TextID(len(g.texts))
}

// MarkupsForTextNode iterates over the markup linked to a text node.
func (g *Graph) MarkupsForTextNode(text domain.TextID) iter.Seq[domain.MarkupID] {
	return slices.Values(g.byText[text])
}

// Document returns an independent snapshot of the graph.
func (g *Graph) Document() *domain.Document {
	doc := &domain.Document{
		Markups:      g.markups,
		Layers:       g.layers,
		TextNodes:    g.texts,
		Associations: g.associations,
	}
	if len(g.markups) > 0 {
		doc.Root = g.markups[0].ID
	}
	doc = doc.Clone()
	if doc.Markups == nil {
		doc.Markups = []*domain.Markup{}
	}
	return doc
}
