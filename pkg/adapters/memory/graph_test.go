package memory_test

import (
	"slices"
	"testing"
	"time"

	"github.com/aretw0/tagml/pkg/adapters/memory"
	"github.com/aretw0/tagml/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph(t *testing.T) {
	g := memory.NewGraph()
	assert.Equal(t, domain.TextID(0), g.LastTextNode())

	root := g.CreateMarkup(domain.Markup{Tag: "a", Layers: []string{"la"}})
	g.AddLayer("", root, "")
	g.AddLayer("la", root, "")
	g.AddLayer("la", root, "ignored")
	g.OpenMarkupInLayer(root, "")

	text := g.CreateTextNode("hello")
	g.AssociateTextWithMarkup(text, root, "")
	g.AssociateTextWithMarkup(text, root, "la")
	g.AssociateTextWithMarkup(text, root, "la")

	assert.Equal(t, text, g.LastTextNode())
	assert.Equal(t, []domain.MarkupID{root}, slices.Collect(g.MarkupsForTextNode(text)))
	assert.Equal(t, []string{"", "la"}, g.Markup(root).Layers)
	assert.Nil(t, g.Markup(42))

	doc := g.Document()
	require.Len(t, doc.Layers, 2)
	assert.Len(t, doc.Associations, 2)
	assert.Equal(t, root, doc.Root)
	assert.Equal(t, []string{"hello"}, doc.TextsOf(root))

	// snapshots are independent
	g.Markup(root).Discontinuous = true
	assert.False(t, doc.Markup(root).Discontinuous)
}

func TestGraph_ManyAssociations(t *testing.T) {
	const n = 200000
	g := memory.NewGraph()
	root := g.CreateMarkup(domain.Markup{Tag: "r"})
	g.AddLayer("", root, "")

	start := time.Now()
	for i := 0; i < n; i++ {
		text := g.CreateTextNode("a")
		g.AssociateTextWithMarkup(text, root, "")
		g.AssociateTextWithMarkup(text, root, "")
	}
	// a linear scan per association would take minutes here
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Len(t, g.Document().Associations, n)
}

func BenchmarkGraph_AssociateTextWithMarkup(b *testing.B) {
	g := memory.NewGraph()
	root := g.CreateMarkup(domain.Markup{Tag: "r"})
	for b.Loop() {
		text := g.CreateTextNode("a")
		g.AssociateTextWithMarkup(text, root, "")
	}
}
