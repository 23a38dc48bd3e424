package graph_test

import (
	"context"
	"strings"
	"testing"

	"github.com/aretw0/tagml"
	"github.com/aretw0/tagml/internal/presentation/graph"
	"github.com/aretw0/tagml/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func importDoc(t *testing.T, src string) *domain.Document {
	t.Helper()
	eng, err := tagml.New("")
	require.NoError(t, err)
	res, err := eng.Import(context.Background(), "g", []byte(src))
	require.NoError(t, err)
	return res.Document
}

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		contains []string
		excludes []string
	}{
		{
			name: "Root and Text Shapes",
			src:  "[line>text<line]",
			contains: []string{
				"graph TD",
				"subgraph layer_default[\"default\"]",
				"m1((\"[line>\"))",
				"t1[/\"text\"/]",
				"m1 --> t1",
			},
		},
		{
			name: "Layers Become Subgraphs",
			src:  "[a|+la,+lb>[b|la>x<b|la][c|lb>y<c|lb]<a|la,lb]",
			contains: []string{
				"subgraph layer_la[\"layer la\"]",
				"subgraph layer_lb[\"layer lb\"]",
				"[b|la>",
				"-- \"la\" -->",
			},
		},
		{
			name: "Milestone Shape",
			src:  "[t>a[pb n=1]b<t]",
			contains: []string{
				"{{\"[pb]\"}}",
			},
		},
		{
			name: "Discontinuous Markup",
			src:  "[x>[q>A<-q]B[+q>C<q]<x]",
			contains: []string{
				"classDef discontinuous",
				"class m2 discontinuous;",
			},
		},
		{
			name:     "Branch Markers Are Hidden",
			src:      "[t>a<|b|c|>d<t]",
			excludes: []string{":branch"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := graph.GenerateMermaid(importDoc(t, tt.src), nil)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, out, unwanted)
			}
		})
	}
}

func TestGenerateMermaid_Escaping(t *testing.T) {
	doc := &domain.Document{
		Root:      1,
		Markups:   []*domain.Markup{{ID: 1, Tag: "q", Layers: []string{domain.DefaultLayer}}},
		TextNodes: []domain.TextNode{{ID: 1, Content: "He said \"hi\"\nand a very long sentence follows"}},
	}
	out := graph.GenerateMermaid(doc, nil)
	assert.Contains(t, out, "#quot;hi#quot;")
	assert.NotContains(t, out, "\nand")
	assert.Contains(t, out, "…")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	doc := importDoc(t, "[a>[b>x<b]<a]")

	out := graph.GenerateMermaid(doc, &graph.GraphOverlay{Highlight: []domain.MarkupID{2, 2, 99}})
	assert.Contains(t, out, "classDef highlight")
	assert.Equal(t, 1, strings.Count(out, "class m2 highlight;"))
	assert.NotContains(t, out, "m99")
}
