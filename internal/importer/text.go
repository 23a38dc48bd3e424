package importer

import (
	"context"
	"slices"
	"strings"

	"github.com/aretw0/tagml/pkg/domain"
)

func (s *session) handleText(ctx context.Context, ev domain.Text) {
	blank := strings.TrimSpace(ev.Content) == ""
	if s.state.EOF {
		if !blank {
			s.closedAfterEOF(ev.Span, "text")
		}
		return
	}
	if !s.started() {
		if !blank {
			s.AddError(domain.KindStructural, ev.Span, "No text allowed here, the root markup must be started first.")
		}
		return
	}
	id := s.model.CreateTextNode(ev.Content)
	s.attach(ctx, id, ev.Content)
}

// attach links a text node to the relevant open markup, once per layer of each.
func (s *session) attach(ctx context.Context, text domain.TextID, content string) {
	relevant := s.relevantMarkup()
	for _, id := range relevant {
		for _, layer := range s.markup(id).Layers {
			s.model.AssociateTextWithMarkup(text, id, layer)
		}
	}
	if s.imp.hooks.OnText != nil {
		s.imp.hooks.OnText(ctx, &domain.TextEvent{TextID: text, Content: content, Markups: relevant})
	}
}

// relevantMarkup walks the open markup from innermost to outermost and keeps one
// markup per independent layer lineage. Taking a markup claims its layers and their
// ancestors, except the default layer, so outer markup in those layers is skipped.
func (s *session) relevantMarkup() []domain.MarkupID {
	handled := make(map[string]bool)
	var out []domain.MarkupID
	for id := range s.state.AllOpen.All() {
		m := s.markup(id)
		if slices.ContainsFunc(m.Layers, func(l string) bool { return handled[l] }) {
			continue
		}
		out = append(out, id)
		for _, layer := range m.Layers {
			handled[layer] = true
			for p := s.layers[layer]; p != domain.DefaultLayer && !handled[p]; p = s.layers[p] {
				handled[p] = true
			}
		}
	}
	return out
}
