package importer_test

import (
	"context"
	"testing"

	"github.com/aretw0/tagml/internal/importer"
	"github.com/aretw0/tagml/pkg/adapters/memory"
	"github.com/aretw0/tagml/pkg/domain"
	"github.com/aretw0/tagml/pkg/tokenizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func importString(t *testing.T, src string, opts ...importer.Option) (*domain.Document, domain.Diagnostics) {
	t.Helper()
	events, err := tokenizer.Tokenize("test.tagml", src)
	require.NoError(t, err)
	doc, diags, err := importer.Run(context.Background(), memory.NewModel, events, opts...)
	require.NoError(t, err)
	return doc, diags
}

func markupByTag(t *testing.T, doc *domain.Document, tag string) *domain.Markup {
	t.Helper()
	found := doc.MarkupsByTag(tag)
	require.Len(t, found, 1, "markup %s", tag)
	return found[0]
}

func textID(t *testing.T, doc *domain.Document, content string) domain.TextID {
	t.Helper()
	tn, ok := doc.TextNodeByContent(content)
	require.True(t, ok, "text %q", content)
	return tn.ID
}

func TestImport_Minimal(t *testing.T) {
	doc, diags := importString(t, "[line>text<line]")
	require.Empty(t, diags)

	require.Len(t, doc.Markups, 1)
	line := doc.Markups[0]
	assert.Equal(t, "line", line.Tag)
	assert.Equal(t, []string{domain.DefaultLayer}, line.Layers)
	assert.Equal(t, line.ID, doc.Root)

	require.Len(t, doc.TextNodes, 1)
	assert.Equal(t, "text", doc.TextNodes[0].Content)
	assert.Equal(t, []string{"text"}, doc.TextsOf(line.ID))

	require.Len(t, doc.Layers, 1)
	assert.True(t, doc.Layers[0].IsDefault())
}

func TestImport_UnclosedMarkup(t *testing.T) {
	_, diags := importString(t, "[line>text")
	require.Len(t, diags, 1)
	assert.Equal(t, domain.KindStructural, diags[0].Kind)
	assert.Equal(t, "line 1:10 : Missing close tag(s) for: [line>", diags[0].String())
}

func TestImport_OverlapWithoutLayers(t *testing.T) {
	_, diags := importString(t, "[a>a [b>b<a]<b]")
	require.Len(t, diags, 1)
	assert.Equal(t, domain.KindStructural, diags[0].Kind)
	assert.False(t, diags[0].Breaking)
	assert.Equal(t,
		"line 1:10 : Close tag <a] found, expected <b]. Use separate layers to allow for overlap.",
		diags[0].String())
}

func TestImport_OverlapWithLayers(t *testing.T) {
	doc, diags := importString(t, "[a|la>a [b|lb>b<a|la]<b|lb]")
	require.Empty(t, diags)

	a := markupByTag(t, doc, "a")
	b := markupByTag(t, doc, "b")
	text := textID(t, doc, "b")

	assert.ElementsMatch(t, []domain.MarkupID{a.ID, b.ID}, doc.MarkupsOf(text, nil))
	la, lb := "la", "lb"
	assert.Equal(t, []domain.MarkupID{a.ID}, doc.MarkupsOf(text, &la))
	assert.Equal(t, []domain.MarkupID{b.ID}, doc.MarkupsOf(text, &lb))

	layer, ok := doc.Layer("lb")
	require.True(t, ok)
	assert.Equal(t, domain.DefaultLayer, layer.Parent)
	assert.Equal(t, b.ID, layer.RootMarkup)
}

func TestImport_Discontinuity(t *testing.T) {
	doc, diags := importString(t, "[x>[t>A<-t]B[+t>C<t]<x]")
	require.Empty(t, diags)

	tm := markupByTag(t, doc, "t")
	assert.True(t, tm.Discontinuous)
	assert.Equal(t, []string{"A", "C"}, doc.TextsOf(tm.ID))
	assert.Equal(t, []string{"B"}, doc.TextsOf(markupByTag(t, doc, "x").ID))
}

func TestImport_Discontinuity_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		kind     domain.ErrorKind
		message  string
		breaking bool
	}{
		{
			name:     "no text between suspend and resume",
			input:    "[r>[m>A<-m][+m>B<m]<r]",
			kind:     domain.KindDiscontinuity,
			message:  "There is no text between this resume tag: [+m> and its corresponding suspend tag: <-m]. This is not allowed.",
			breaking: true,
		},
		{
			name:     "root suspension without text",
			input:    "[m>A<-m][+m>B<m]",
			kind:     domain.KindDiscontinuity,
			message:  "The root markup [m> cannot be suspended.",
			breaking: true,
		},
		{
			name:     "root suspension",
			input:    "[m>foo<-m] fie [+m>bar<m]",
			kind:     domain.KindDiscontinuity,
			message:  "The root markup [m> cannot be suspended.",
			breaking: true,
		},
		{
			name:    "resume without suspend",
			input:   "[a>x[+b>y<a]",
			kind:    domain.KindDiscontinuity,
			message: "Resume tag [+b> found, which has no corresponding earlier suspend tag <-b].",
		},
		{
			name:    "suspended markup never resumed",
			input:   "[x>[t>A<-t]B<x]",
			kind:    domain.KindDiscontinuity,
			message: "Some suspended markup was not resumed: <-t]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, diags := importString(t, tt.input)
			require.Len(t, diags, 1, diags.Messages())
			assert.Equal(t, tt.kind, diags[0].Kind)
			assert.Equal(t, tt.message, diags[0].Message)
			assert.Equal(t, tt.breaking, diags[0].Breaking)
		})
	}
}

func TestImport_AmbiguousClose(t *testing.T) {
	t.Run("without layer info", func(t *testing.T) {
		_, diags := importString(t, "[r|+A,+B>[a|A>x [a|B>y<a] z<a]<r]")
		require.Len(t, diags, 1)
		assert.Equal(t, domain.KindAmbiguous, diags[0].Kind)
		assert.True(t, diags[0].Breaking)
		assert.Contains(t, diags[0].Message, "add layer information to the end-tag to solve this ambiguity.")
	})

	t.Run("with layer info", func(t *testing.T) {
		doc, diags := importString(t, "[r|+A,+B>[a|A>x [a|B>y<a|B] z<a|A]<r]")
		require.Empty(t, diags)
		assert.Len(t, doc.MarkupsByTag("a"), 2)
	})

	t.Run("same layers", func(t *testing.T) {
		_, diags := importString(t, "[r>[a>x [a>y<a] z<a]<r]")
		assert.Empty(t, diags)
	})
}

func TestImport_BranchConsistency(t *testing.T) {
	t.Run("asymmetric branches", func(t *testing.T) {
		_, diags := importString(t, "[r><|[x>a<x]|b|><r]")
		require.Len(t, diags, 1)
		assert.Equal(t, domain.KindBranch, diags[0].Kind)
		assert.True(t, diags[0].Breaking)
		assert.Equal(t,
			"Markup operations differ between the branches of this text variation: branch 1: close x, open x; branch 2: (none).",
			diags[0].Message)
	})

	t.Run("symmetric branches", func(t *testing.T) {
		doc, diags := importString(t, "[r><|[x>a<x]|[x>b<x]|><r]")
		require.Empty(t, diags)
		assert.Len(t, doc.MarkupsByTag("x"), 2)
		assert.Len(t, doc.MarkupsByTag(domain.BranchTag), 2)
		assert.Len(t, doc.MarkupsByTag(domain.BranchesTag), 1)
	})

	t.Run("delta policy ignores balanced markup", func(t *testing.T) {
		_, diags := importString(t, "[r><|[x>a<x]|b|><r]", importer.WithBranchConsistency(importer.BranchDelta))
		assert.Empty(t, diags)
	})

	t.Run("nested variations", func(t *testing.T) {
		_, diags := importString(t, "[r><|a<|[x>b<x]|[x>c<x]|>|[x>d<x]|><r]")
		assert.Empty(t, diags)
	})

	t.Run("markup closed inside a branch", func(t *testing.T) {
		_, diags := importString(t, "[r>[x>a<|b<x]|c<x]|><r]")
		require.Len(t, diags, 2, diags.Messages())
		for _, d := range diags {
			assert.Equal(t, domain.KindBranch, d.Kind)
			assert.False(t, d.Breaking)
		}
		assert.Equal(t, "Markup [x> opened before branch 1, should not be closed in a branch.", diags[0].Message)
		assert.Equal(t, "Markup [x> opened before branch 2, should not be closed in a branch.", diags[1].Message)
	})

	t.Run("markup left open in a branch", func(t *testing.T) {
		_, diags := importString(t, "[r><|[x>a|[x>b|><r]")
		require.NotEmpty(t, diags)
		assert.Equal(t, "Markup [x> opened in branch 1 must be closed before starting a new branch.", diags[0].Message)
		assert.Equal(t, "Markup [x> opened in branch 2 must be closed before the end of the text variation.", diags[1].Message)
	})
}

func TestImport_EOF(t *testing.T) {
	doc, diags := importString(t, "[a>x<a]y[b>z<b]")
	require.Len(t, diags, 4, diags.Messages())
	for _, d := range diags {
		assert.Equal(t, domain.KindEOF, d.Kind)
	}
	assert.Equal(t, "No text allowed after the root markup [a> has been closed.", diags[0].Message)
	assert.Len(t, doc.Markups, 1)
	assert.Len(t, doc.TextNodes, 1)

	_, diags = importString(t, "[a>x<a]\n")
	assert.Empty(t, diags)
}

func TestImport_StructuralErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		kind     domain.ErrorKind
		messages []string
	}{
		{
			name:     "close without open",
			input:    "[a>x<b]<a]",
			kind:     domain.KindStructural,
			messages: []string{"Close tag <b] found without corresponding open tag."},
		},
		{
			name:     "text before root",
			input:    "hello[a>x<a]",
			kind:     domain.KindStructural,
			messages: []string{"No text allowed here, the root markup must be started first."},
		},
		{
			name:  "unknown layer in end tag",
			input: "[a>x<a|zz]",
			kind:  domain.KindLayer,
			messages: []string{
				"Layer zz has not been added at this point, use +zz to add a layer.",
				"Missing close tag(s) for: [a>",
			},
		},
		{
			name:     "unknown parent layer",
			input:    "[a>[b|X+Y>x<b]<a]",
			kind:     domain.KindLayer,
			messages: []string{"Layer X has not been added at this point, use +X to add a layer.", "Close tag <b] found without corresponding open tag."},
		},
		{
			name:     "layer added twice",
			input:    "[a|+A>[b|+A>x<b]<a]",
			kind:     domain.KindLayer,
			messages: []string{"Layer A has already been added."},
		},
		{
			name:     "undeclared namespace",
			input:    "[tei:p>x<tei:p]",
			kind:     domain.KindIdentity,
			messages: []string{"Namespace tei has not been defined."},
		},
		{
			name:     "duplicate id",
			input:    "[r>[a :id=x>a<a][b :id=x>b<b]<r]",
			kind:     domain.KindIdentity,
			messages: []string{"Id x was already used in markup [a>."},
		},
		{
			name:     "nameless markup",
			input:    "[r>[>x<r]",
			kind:     domain.KindIdentity,
			messages: []string{"Nameless markup is not allowed here."},
		},
		{
			name:     "empty document",
			input:    "  ",
			kind:     domain.KindStructural,
			messages: []string{"No markup found, a document needs a root markup."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, diags := importString(t, tt.input)
			require.Len(t, diags, len(tt.messages), diags.Messages())
			assert.Equal(t, tt.kind, diags[0].Kind)
			for i, msg := range tt.messages {
				assert.Equal(t, msg, diags[i].Message)
			}
		})
	}
}

func TestImport_Namespace(t *testing.T) {
	doc, diags := importString(t, "[!ns tei http://www.tei-c.org/ns/1.0][tei:p>x<tei:p]")
	require.Empty(t, diags)
	p := markupByTag(t, doc, "tei:p")
	assert.Equal(t, "tei", p.Namespace)
	assert.Equal(t, "http://www.tei-c.org/ns/1.0", doc.Namespaces["tei"])
}

func TestImport_ChildLayers(t *testing.T) {
	doc, diags := importString(t, "[r|+A>[p|A+B>x<p|B]<r]")
	require.Empty(t, diags)

	p := markupByTag(t, doc, "p")
	assert.Equal(t, []domain.MarkupID{p.ID}, doc.MarkupsOf(textID(t, doc, "x"), nil))

	layer, ok := doc.Layer("B")
	require.True(t, ok)
	assert.Equal(t, "A", layer.Parent)
}

func TestImport_MilestoneAndOptional(t *testing.T) {
	doc, diags := importString(t, "[x>a[br]b[?o>c<?o]<x]")
	require.Empty(t, diags)

	x := markupByTag(t, doc, "x")
	br := markupByTag(t, doc, "br")
	o := markupByTag(t, doc, "o")

	assert.True(t, br.Milestone)
	assert.Equal(t, []string{""}, doc.TextsOf(br.ID))
	assert.Equal(t, []string{"a", "", "b"}, doc.TextsOf(x.ID))
	assert.True(t, o.Optional)
	assert.Equal(t, []string{"c"}, doc.TextsOf(o.ID))
}

func TestImport_ExplicitID(t *testing.T) {
	doc, diags := importString(t, `[r>[a :id=a1 n=1>x<a]<r]`)
	require.Empty(t, diags)

	a := markupByTag(t, doc, "a")
	assert.Equal(t, "a1", a.ExplicitID)
	assert.Equal(t, []domain.Annotation{{Name: "n", Value: domain.NumberValue(1)}}, a.Annotations)
}

func TestImport_RichText(t *testing.T) {
	t.Run("nested document", func(t *testing.T) {
		doc, diags := importString(t, "[note text=[>[p>hi<p]<]>x<note]")
		require.Empty(t, diags)

		note := markupByTag(t, doc, "note")
		require.Len(t, note.Annotations, 1)
		rt, ok := note.Annotations[0].Value.(*domain.RichTextValue)
		require.True(t, ok)
		require.NotNil(t, rt.Document)
		assert.Equal(t, "hi", rt.Document.Text())
		assert.Len(t, rt.Document.Markups, 1)
	})

	t.Run("errors stay inside the value", func(t *testing.T) {
		doc, diags := importString(t, "[note text=[>[p>hi<]>x<note]")
		require.Len(t, diags, 1)
		assert.Equal(t, "Missing close tag(s) for: [p>", diags[0].Message)
		assert.Equal(t, []string{"x"}, doc.TextsOf(markupByTag(t, doc, "note").ID))
	})

	t.Run("breaking errors stay inside the value", func(t *testing.T) {
		doc, diags := importString(t, "[note text=[>[m>a<-m]b[+m>c<m]<]>x<note]")
		require.Len(t, diags, 1)
		assert.True(t, diags[0].Breaking)
		assert.Equal(t, "x", doc.Text())
	})
}

func TestImport_MultiLayerEndTag(t *testing.T) {
	t.Run("all layers named", func(t *testing.T) {
		doc, diags := importString(t, "[r>[x|+A,+B>a<x|B,A]b<r]")
		require.Empty(t, diags)
		x := markupByTag(t, doc, "x")
		assert.Equal(t, []string{"a"}, doc.TextsOf(x.ID))
	})

	t.Run("subset of the layers", func(t *testing.T) {
		doc, diags := importString(t, "[r>[x|+A,+B>a<x|A]b<x|B]<r]")
		var msgs []string
		for _, d := range diags {
			msgs = append(msgs, d.Message)
		}
		assert.Contains(t, msgs, "Close tag <x|A] found without corresponding open tag.")
		assert.Contains(t, msgs, "Close tag <x|B] found without corresponding open tag.")
		require.NotEmpty(t, diags)
		assert.Contains(t, diags[len(diags)-1].Message, "Missing close tag(s) for: [x|A,B>")

		// x never closed, so it still covers both text nodes
		x := markupByTag(t, doc, "x")
		assert.Equal(t, []string{"a", "b"}, doc.TextsOf(x.ID))
	})
}

func TestImport_EOFAfterVariation(t *testing.T) {
	doc, diags := importString(t, "[r>a<|b<r]|c<r]|>d")

	eof := diags.OfKind(domain.KindEOF)
	require.Len(t, eof, 1)
	assert.Equal(t, "No text allowed after the root markup [r> has been closed.", eof[0].Message)

	_, ok := doc.TextNodeByContent("d")
	assert.False(t, ok, "text after the end of the document is not applied")
}

func TestImport_ResumeDisambiguation(t *testing.T) {
	t.Run("without layer info", func(t *testing.T) {
		_, diags := importString(t, "[r|+A,+B>[x|A>a<-x|A][x|B>b<-x|B]c[+x>d<x]<r]")
		require.Len(t, diags, 1)
		assert.Equal(t, domain.KindAmbiguous, diags[0].Kind)
		assert.True(t, diags[0].Breaking)
		assert.Contains(t, diags[0].Message, "add layer information to the resume-tag to solve this ambiguity.")
	})

	t.Run("with layer info", func(t *testing.T) {
		doc, diags := importString(t, "[r|+A,+B>[x|A>a<-x|A][x|B>b<-x|B]c[+x|A>d<x|A][+x|B>e<x|B]<r]")
		require.Empty(t, diags)
		for _, x := range doc.MarkupsByTag("x") {
			assert.True(t, x.Discontinuous, x.StartTag())
		}
	})
}
