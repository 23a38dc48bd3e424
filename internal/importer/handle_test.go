package importer_test

import (
	"context"
	"testing"

	"github.com/aretw0/tagml/internal/importer"
	"github.com/aretw0/tagml/pkg/adapters/memory"
	"github.com/aretw0/tagml/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(col int) domain.EventBase {
	p := domain.Position{Line: 1, Column: col}
	return domain.EventBase{Span: domain.Span(p, p)}
}

func TestImporter_HandleReturnsAborted(t *testing.T) {
	ctx := context.Background()
	imp := importer.New(memory.NewModel)

	require.NoError(t, imp.Handle(ctx, domain.StartTag{EventBase: at(1), Tag: "m"}))
	require.NoError(t, imp.Handle(ctx, domain.Text{EventBase: at(4), Content: "A"}))
	err := imp.Handle(ctx, domain.EndTag{EventBase: at(5), Tag: "-m"})
	assert.ErrorIs(t, err, domain.ErrAborted)

	// later events are refused
	err = imp.Handle(ctx, domain.Text{EventBase: at(10), Content: "B"})
	assert.ErrorIs(t, err, domain.ErrAborted)

	doc, diags := imp.Finish(ctx)
	require.Len(t, diags, 1)
	assert.Equal(t, "line 1:5 : The root markup [m> cannot be suspended.", diags[0].String())
	assert.Equal(t, "A", doc.Text())

	assert.ErrorIs(t, imp.Handle(ctx, domain.Text{Content: "C"}), importer.ErrFinished)
}

func TestImporter_Hooks(t *testing.T) {
	ctx := context.Background()
	var opened, closed, texts, diagnostics []string

	imp := importer.New(memory.NewModel, importer.WithLifecycleHooks(domain.LifecycleHooks{
		OnMarkupOpen: func(_ context.Context, ev *domain.MarkupEvent) {
			opened = append(opened, ev.Action+" "+ev.Markup.Tag)
		},
		OnMarkupClose: func(_ context.Context, ev *domain.MarkupEvent) {
			closed = append(closed, ev.Action+" "+ev.Markup.Tag)
		},
		OnText: func(_ context.Context, ev *domain.TextEvent) {
			texts = append(texts, ev.Content)
		},
		OnDiagnostic: func(_ context.Context, d *domain.Diagnostic) {
			diagnostics = append(diagnostics, d.Message)
		},
	}))

	events := []domain.Event{
		domain.StartTag{EventBase: at(1), Tag: "x"},
		domain.StartTag{EventBase: at(4), Tag: "t"},
		domain.Text{EventBase: at(7), Content: "A"},
		domain.EndTag{EventBase: at(8), Tag: "-t"},
		domain.Text{EventBase: at(12), Content: "B"},
		domain.StartTag{EventBase: at(13), Tag: "+t"},
		domain.Text{EventBase: at(17), Content: "C"},
		domain.EndTag{EventBase: at(18), Tag: "t"},
		domain.EndTag{EventBase: at(21), Tag: "y"},
	}
	for _, ev := range events {
		require.NoError(t, imp.Handle(ctx, ev))
	}
	_, diags := imp.Finish(ctx)

	assert.Equal(t, []string{"open x", "open t", "resume t"}, opened)
	assert.Equal(t, []string{"suspend t", "close t"}, closed)
	assert.Equal(t, []string{"A", "B", "C"}, texts)
	assert.Equal(t, diags.Messages()[0], "line 1:21 : "+diagnostics[0])
	assert.Equal(t, []string{
		"Close tag <y] found without corresponding open tag.",
		"Missing close tag(s) for: [x>",
	}, diagnostics)
}

func TestImporter_RichTextEvents(t *testing.T) {
	ctx := context.Background()
	imp := importer.New(memory.NewModel)

	events := []domain.Event{
		domain.StartTag{EventBase: at(1), Tag: "note"},
		domain.EnterRichTextValue{EventBase: at(5), Annotation: "text"},
		domain.StartTag{EventBase: at(6), Tag: "p"},
		domain.Text{EventBase: at(9), Content: "nested"},
		domain.EndTag{EventBase: at(15), Tag: "p"},
		domain.ExitRichTextValue{EventBase: at(18)},
		domain.Text{EventBase: at(20), Content: "outer"},
		domain.EndTag{EventBase: at(25), Tag: "note"},
	}
	for _, ev := range events {
		require.NoError(t, imp.Handle(ctx, ev))
	}
	doc, diags := imp.Finish(ctx)
	require.Empty(t, diags)

	assert.Equal(t, "outer", doc.Text())
	note := doc.MarkupsByTag("note")[0]
	require.Len(t, note.Annotations, 1)
	rt := note.Annotations[0].Value.(*domain.RichTextValue)
	require.NotNil(t, rt.Document)
	assert.Equal(t, "nested", rt.Document.Text())
}

func TestImporter_UnbalancedRichText(t *testing.T) {
	ctx := context.Background()
	imp := importer.New(memory.NewModel)

	require.NoError(t, imp.Handle(ctx, domain.StartTag{EventBase: at(1), Tag: "a"}))
	require.NoError(t, imp.Handle(ctx, domain.ExitRichTextValue{EventBase: at(4)}))
	require.NoError(t, imp.Handle(ctx, domain.EnterRichTextValue{EventBase: at(6), Annotation: "v"}))
	require.NoError(t, imp.Handle(ctx, domain.StartTag{EventBase: at(7), Tag: "p"}))

	_, diags := imp.Finish(ctx)
	assert.Equal(t, []string{
		"End of rich text value found outside of a rich text value.",
		"Missing end of rich text value.",
		"Missing close tag(s) for: [p>",
		"Missing close tag(s) for: [a>",
	}, messages(diags))
}

func TestParseBranchConsistency(t *testing.T) {
	p, err := importer.ParseBranchConsistency("")
	require.NoError(t, err)
	assert.Equal(t, importer.BranchStrict, p)

	p, err = importer.ParseBranchConsistency("DELTA")
	require.NoError(t, err)
	assert.Equal(t, importer.BranchDelta, p)

	_, err = importer.ParseBranchConsistency("loose")
	assert.Error(t, err)
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := importer.Run(ctx, memory.NewModel, []domain.Event{domain.Text{Content: "x"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func messages(diags domain.Diagnostics) []string {
	out := make([]string, len(diags))
	for i, d := range diags {
		out[i] = d.Message
	}
	return out
}
