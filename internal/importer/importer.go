// Package importer implements the TAGML markup-import state machine.
//
// An Importer consumes structural events one at a time, in document order, and
// writes markup, layers and text into a ports.DocumentModel. Every well-formedness
// violation becomes a position-tagged diagnostic. A breaking diagnostic stops the
// import of the current document (or of the current nested rich-text value);
// the diagnostics gathered so far stay available.
package importer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/aretw0/tagml/pkg/domain"
	"github.com/aretw0/tagml/pkg/ports"
)

// ErrFinished is returned when events are handled after Finish.
var ErrFinished = errors.New("importer already finished")

// Importer drives one document import.
type Importer struct {
	factory      ports.ModelFactory
	logger       *slog.Logger
	hooks        domain.LifecycleHooks
	branchPolicy BranchConsistency

	diags    domain.Diagnostics
	notified int
	sessions []*session
	finished bool
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(imp *Importer) {
		imp.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(imp *Importer) {
		imp.hooks = hooks
	}
}

// WithBranchConsistency selects the cross-branch comparison policy (default BranchStrict).
func WithBranchConsistency(policy BranchConsistency) Option {
	return func(imp *Importer) {
		imp.branchPolicy = policy
	}
}

// New creates an Importer writing into a fresh model from factory.
// Nested rich-text values get their own models from the same factory.
func New(factory ports.ModelFactory, opts ...Option) *Importer {
	imp := &Importer{
		factory:      factory,
		branchPolicy: BranchStrict,
	}
	for _, opt := range opts {
		opt(imp)
	}
	if imp.logger == nil {
		imp.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	imp.sessions = []*session{newSession(imp, factory())}
	return imp
}

// Handle processes one structural event.
// It returns domain.ErrAborted once the document hit a breaking error; the event
// loop should stop then. Breaking errors inside a nested rich-text value only stop
// that value.
func (imp *Importer) Handle(ctx context.Context, ev domain.Event) error {
	if imp.finished {
		return ErrFinished
	}
	if imp.sessions[0].aborted {
		return domain.ErrAborted
	}

	s := imp.current()
	if s.aborted {
		imp.skip(ev)
	} else {
		s.lastPos = ev.Pos().End
		imp.dispatch(ctx, s, ev)
	}
	imp.notify(ctx)

	if imp.sessions[0].aborted {
		return domain.ErrAborted
	}
	return nil
}

func (imp *Importer) dispatch(ctx context.Context, s *session, ev domain.Event) {
	switch e := ev.(type) {
	case domain.Namespace:
		s.handleNamespace(e)
	case domain.StartTag:
		s.handleStartTag(ctx, e)
	case domain.EndTag:
		s.handleEndTag(ctx, e)
	case domain.Milestone:
		s.handleMilestone(ctx, e)
	case domain.Text:
		s.handleText(ctx, e)
	case domain.EnterVariation:
		s.enterVariation(ctx, e.Span)
	case domain.BranchSeparator:
		s.nextBranch(ctx, e.Span)
	case domain.ExitVariation:
		s.exitVariation(ctx, e.Span)
	case domain.EnterRichTextValue:
		imp.enterRichText(s, e)
	case domain.ExitRichTextValue:
		imp.exitRichText(ctx, e.Span)
	}
}

// skip keeps nested rich-text values balanced while a session is aborted.
func (imp *Importer) skip(ev domain.Event) {
	switch ev.(type) {
	case domain.EnterRichTextValue:
		nested := newSession(imp, imp.factory())
		nested.aborted = true
		imp.sessions = append(imp.sessions, nested)
	case domain.ExitRichTextValue:
		if len(imp.sessions) > 1 {
			imp.sessions = imp.sessions[:len(imp.sessions)-1]
		}
	}
}

// Finish reports unclosed and unresumed markup and returns the imported document
// with all diagnostics.
func (imp *Importer) Finish(ctx context.Context) (*domain.Document, domain.Diagnostics) {
	if !imp.finished {
		for len(imp.sessions) > 1 {
			s := imp.current()
			s.AddError(domain.KindStructural, pointRange(s.lastPos), "Missing end of rich text value.")
			imp.exitRichText(ctx, pointRange(s.lastPos))
		}
		root := imp.sessions[0]
		if !root.aborted {
			root.finish()
		}
		imp.notify(ctx)
		imp.finished = true
	}
	return imp.sessions[0].document(), imp.diags
}

// Run feeds all events to a new Importer and finishes it.
// It stops early on a breaking error or when ctx is done.
func Run(ctx context.Context, factory ports.ModelFactory, events []domain.Event, opts ...Option) (*domain.Document, domain.Diagnostics, error) {
	imp := New(factory, opts...)
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if err := imp.Handle(ctx, ev); errors.Is(err, domain.ErrAborted) {
			break
		}
	}
	doc, diags := imp.Finish(ctx)
	return doc, diags, nil
}

func (imp *Importer) current() *session {
	return imp.sessions[len(imp.sessions)-1]
}

func (imp *Importer) record(d domain.Diagnostic) {
	imp.diags = append(imp.diags, d)
}

// notify passes diagnostics recorded since the last call to the hook.
func (imp *Importer) notify(ctx context.Context) {
	if imp.hooks.OnDiagnostic != nil {
		for i := imp.notified; i < len(imp.diags); i++ {
			imp.hooks.OnDiagnostic(ctx, &imp.diags[i])
		}
	}
	imp.notified = len(imp.diags)
}

func (imp *Importer) fireMarkup(ctx context.Context, hook func(context.Context, *domain.MarkupEvent), m *domain.Markup, action string) {
	if hook == nil || m.IsBranchMarker() {
		return
	}
	hook(ctx, &domain.MarkupEvent{
		Markup: m,
		Layers: domain.NonDefaultLayers(m.Layers),
		Action: action,
	})
}

// enterRichText starts a nested document for an annotation of the last created markup.
func (imp *Importer) enterRichText(s *session, ev domain.EnterRichTextValue) {
	target := &domain.RichTextValue{}
	if m := s.markup(s.lastMarkup); m == nil {
		s.AddError(domain.KindStructural, ev.Span, "Rich text value %s found outside of a markup annotation.", ev.Annotation)
	} else if i := slices.IndexFunc(m.Annotations, func(a domain.Annotation) bool { return a.Name == ev.Annotation }); i >= 0 {
		if rt, ok := m.Annotations[i].Value.(*domain.RichTextValue); ok {
			target = rt
		} else {
			m.Annotations[i].Value = target
		}
	} else {
		m.Annotations = append(m.Annotations, domain.Annotation{Name: ev.Annotation, Value: target})
	}
	nested := newSession(imp, imp.factory())
	nested.target = target
	nested.lastPos = ev.Span.End
	imp.sessions = append(imp.sessions, nested)
}

// exitRichText finishes the innermost nested document and stores it in its annotation.
func (imp *Importer) exitRichText(ctx context.Context, span domain.Range) {
	if len(imp.sessions) == 1 {
		imp.current().AddError(domain.KindStructural, span, "End of rich text value found outside of a rich text value.")
		return
	}
	nested := imp.current()
	if !nested.aborted {
		nested.finish()
	}
	imp.sessions = imp.sessions[:len(imp.sessions)-1]
	if nested.target != nil {
		nested.target.Document = nested.document()
	}
	imp.notify(ctx)
}

// importRichText imports the events of an annotation value in a nested session.
func (imp *Importer) importRichText(ctx context.Context, rt *domain.RichTextValue, span domain.Range) {
	nested := newSession(imp, imp.factory())
	nested.target = rt
	nested.lastPos = span.End
	imp.sessions = append(imp.sessions, nested)
	depth := len(imp.sessions)
	for _, ev := range rt.Events {
		s := imp.current()
		if _, exit := ev.(domain.ExitRichTextValue); exit && len(imp.sessions) == depth {
			s.AddError(domain.KindStructural, ev.Pos(), "End of rich text value found outside of a rich text value.")
			continue
		}
		if s.aborted {
			imp.skip(ev)
			continue
		}
		s.lastPos = ev.Pos().End
		imp.dispatch(ctx, s, ev)
	}
	for len(imp.sessions) >= depth {
		imp.exitRichText(ctx, span)
	}
}

// finish reports markup that is still open or suspended at the end of the input.
func (s *session) finish() {
	end := pointRange(s.lastPos)
	if len(s.branches) > 0 {
		s.AddError(domain.KindBranch, pointRange(s.currentBranch().span.Start), "Text variation was not closed, missing |>.")
	}
	if !s.started() {
		s.AddError(domain.KindStructural, end, "No markup found, a document needs a root markup.")
		return
	}

	var unclosed []string
	for _, id := range slices.Backward(s.state.AllOpen.Slice()) {
		if m := s.markup(id); !m.IsBranchMarker() {
			unclosed = append(unclosed, m.StartTag())
		}
	}
	if len(unclosed) > 0 {
		s.AddError(domain.KindStructural, end, "Missing close tag(s) for: %s", strings.Join(unclosed, ", "))
	}

	seen := make(map[domain.MarkupID]bool)
	var suspended []string
	for _, layer := range slices.Sorted(maps.Keys(s.state.Suspended)) {
		for id := range s.state.Suspended[layer].All() {
			if !seen[id] {
				seen[id] = true
				suspended = append(suspended, "<-"+s.markup(id).ExtendedTag()+"]")
			}
		}
	}
	if len(suspended) > 0 {
		s.AddError(domain.KindDiscontinuity, end, "Some suspended markup was not resumed: %s", strings.Join(suspended, ", "))
	}
}

func (s *session) document() *domain.Document {
	doc := s.model.Document()
	if len(s.namespaces) > 0 {
		doc.Namespaces = maps.Clone(s.namespaces)
	}
	doc.Root = s.state.RootMarkup
	return doc
}
