package importer

import (
	"fmt"

	"github.com/aretw0/tagml/pkg/domain"
	"github.com/aretw0/tagml/pkg/ports"
)

// session owns all mutable state of one document parse, or of one nested
// rich-text value. Nothing in a session is shared with another session.
type session struct {
	imp   *Importer
	model ports.DocumentModel
	state *domain.ParserState

	branches []*branchContext

	// ids maps explicit markup ids to the markup that declared them.
	ids map[string]domain.MarkupID
	// namespaces maps declared prefixes to their URI.
	namespaces map[string]string
	// layers maps every known layer to its parent layer.
	layers map[string]string
	// suspendMarks holds the last text node seen when markup was suspended.
	suspendMarks map[domain.MarkupID]domain.TextID

	aborted    bool
	lastMarkup domain.MarkupID
	lastPos    domain.Position

	// target receives the imported document of a nested rich-text value.
	target *domain.RichTextValue
}

var _ ports.ErrorListener = (*session)(nil)

func newSession(imp *Importer, model ports.DocumentModel) *session {
	return &session{
		imp:          imp,
		model:        model,
		state:        domain.NewParserState(),
		ids:          make(map[string]domain.MarkupID),
		namespaces:   make(map[string]string),
		layers:       map[string]string{domain.DefaultLayer: domain.DefaultLayer},
		suspendMarks: make(map[domain.MarkupID]domain.TextID),
	}
}

// AddError records a diagnostic; processing continues.
func (s *session) AddError(kind domain.ErrorKind, span domain.Range, format string, args ...any) {
	s.imp.record(domain.Diagnostic{
		Range:   span,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	})
}

// AddBreakingError records a diagnostic and stops the session.
func (s *session) AddBreakingError(kind domain.ErrorKind, span domain.Range, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.imp.record(domain.Diagnostic{
		Range:    span,
		Kind:     kind,
		Message:  msg,
		Breaking: true,
	})
	s.aborted = true
	s.imp.logger.Warn("breaking error, remaining events are skipped", "err", msg, "pos", span.Start.String())
}

func (s *session) markup(id domain.MarkupID) *domain.Markup {
	return s.model.Markup(id)
}

func (s *session) started() bool {
	return s.state.RootMarkup != 0
}

func (s *session) knownLayer(name string) bool {
	_, ok := s.layers[name]
	return ok
}

// describe names markup for diffs and branch signatures. Branch markers are skipped.
func (s *session) describe(id domain.MarkupID) string {
	m := s.markup(id)
	if m == nil || m.IsBranchMarker() {
		return ""
	}
	return m.ExtendedTag()
}

// closedAfterEOF reports the end-of-document error if the root markup has been closed.
func (s *session) closedAfterEOF(span domain.Range, what string) bool {
	if !s.state.EOF {
		return false
	}
	root := s.markup(s.state.RootMarkup)
	s.AddError(domain.KindEOF, span, "No %s allowed after the root markup %s has been closed.", what, root.StartTag())
	return true
}

func pointRange(p domain.Position) domain.Range {
	return domain.Range{Start: p, End: p}
}
