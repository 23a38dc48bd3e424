package importer

import (
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/aretw0/tagml/pkg/domain"
	"github.com/aretw0/tagml/pkg/exttag"
)

// openMarkup pushes markup on the open stack of each of its layers.
// The first user markup of a document becomes the root and opens the default layer.
func (s *session) openMarkup(ctx context.Context, id domain.MarkupID) {
	m := s.markup(id)
	if !s.started() && !m.IsBranchMarker() {
		m.AddLayer(domain.DefaultLayer)
		s.model.AddLayer(domain.DefaultLayer, id, "")
		s.state.RootMarkup = id
	}
	for _, layer := range m.Layers {
		s.state.PushOpen(layer, id)
		s.model.OpenMarkupInLayer(id, layer)
	}
	s.state.AllOpen = s.state.AllOpen.Push(id)
	s.recordOp(domain.OpOpen, id)
	s.imp.logger.Debug("markup opened", "markup", m.StartTag(), "id", id)
	s.imp.fireMarkup(ctx, s.imp.hooks.OnMarkupOpen, m, domain.OpOpen)
}

// closeMarkup handles an end tag.
func (s *session) closeMarkup(ctx context.Context, tag *exttag.Tag, found string, span domain.Range) {
	id, ok := s.resolveClose(tag, found, span)
	if !ok {
		return
	}
	m := s.markup(id)
	s.popMarkup(id, found, span)
	for _, layer := range m.Layers {
		s.model.CloseMarkupInLayer(id, layer)
	}
	s.recordOp(domain.OpClose, id)
	s.imp.logger.Debug("markup closed", "markup", m.EndTag(), "id", id)
	s.imp.fireMarkup(ctx, s.imp.hooks.OnMarkupClose, m, domain.OpClose)

	s.reachEOF()
}

// reachEOF ends the document once the root is closed and no markup is open in any layer.
// The root stays in AllOpen until its end tag, so an empty AllOpen after the start means it closed.
func (s *session) reachEOF() {
	if s.started() && s.state.AllOpen.IsEmpty() {
		s.state.EOF = true
	}
}

// closeMarker closes synthetic branch markup by id.
func (s *session) closeMarker(id domain.MarkupID) {
	m := s.markup(id)
	for _, layer := range m.Layers {
		s.state.Open[layer], _ = s.state.Open[layer].Remove(id)
		s.model.CloseMarkupInLayer(id, layer)
	}
	s.state.AllOpen, _ = s.state.AllOpen.Remove(id)
}

// suspendMarkup handles an end tag with the suspend prefix.
func (s *session) suspendMarkup(ctx context.Context, tag *exttag.Tag, found string, span domain.Range) {
	id, ok := s.resolveClose(tag, found, span)
	if !ok {
		return
	}
	m := s.markup(id)
	if id == s.state.RootMarkup {
		s.AddBreakingError(domain.KindDiscontinuity, span, "The root markup %s cannot be suspended.", m.StartTag())
		return
	}
	s.popMarkup(id, found, span)
	for _, layer := range m.Layers {
		s.state.PushSuspended(layer, id)
		s.model.CloseMarkupInLayer(id, layer)
	}
	s.suspendMarks[id] = s.model.LastTextNode()
	s.recordOp(domain.OpSuspend, id)
	s.imp.logger.Debug("markup suspended", "markup", m.StartTag(), "id", id)
	s.imp.fireMarkup(ctx, s.imp.hooks.OnMarkupClose, m, domain.OpSuspend)
}

// resumeMarkup handles a start tag with the resume prefix.
func (s *session) resumeMarkup(ctx context.Context, tag *exttag.Tag, found string, span domain.Range) {
	if !s.checkLayerRefs(tag, span) {
		return
	}
	matches := s.suspendedMatches(tag)
	if len(matches) == 0 {
		s.AddError(domain.KindDiscontinuity, span,
			"Resume tag %s found, which has no corresponding earlier suspend tag <-%s].",
			found, strings.TrimPrefix(tag.String(), "+"))
		return
	}
	if !s.layersAgree(matches) {
		s.AddBreakingError(domain.KindAmbiguous, span,
			"There are multiple suspended markups that can correspond with resume-tag %s; add layer information to the resume-tag to solve this ambiguity.",
			found)
		return
	}
	id := matches[0]
	m := s.markup(id)
	if !s.textSinceSuspend(id) {
		s.AddBreakingError(domain.KindDiscontinuity, span,
			"There is no text between this resume tag: %s and its corresponding suspend tag: <-%s]. This is not allowed.",
			found, m.ExtendedTag())
		return
	}

	for _, layer := range m.Layers {
		s.state.Suspended[layer], _ = s.state.Suspended[layer].Remove(id)
		if s.state.Suspended[layer].IsEmpty() {
			delete(s.state.Suspended, layer)
		}
		s.state.PushOpen(layer, id)
		s.model.OpenMarkupInLayer(id, layer)
	}
	s.state.AllOpen = s.state.AllOpen.Push(id)
	m.Discontinuous = true
	delete(s.suspendMarks, id)
	s.recordOp(domain.OpResume, id)
	s.imp.logger.Debug("markup resumed", "markup", m.StartTag(), "id", id)
	s.imp.fireMarkup(ctx, s.imp.hooks.OnMarkupOpen, m, domain.OpResume)
}

// textSinceSuspend reports whether a text node outside the markup was created after it was suspended.
func (s *session) textSinceSuspend(id domain.MarkupID) bool {
	last := s.model.LastTextNode()
	if last == 0 || last == s.suspendMarks[id] {
		return false
	}
	for linked := range s.model.MarkupsForTextNode(last) {
		if linked == id {
			return false
		}
	}
	return true
}

// suspendedMatches lists the suspended markup a tag can refer to, each once,
// layers in sorted order and innermost first within a layer.
// With layer information only markup in exactly those layers matches.
func (s *session) suspendedMatches(tag *exttag.Tag) []domain.MarkupID {
	key := tagKey(tag.QualifiedName(), tag.Suffix)
	var matches []domain.MarkupID
	for _, layer := range slices.Sorted(maps.Keys(s.state.Suspended)) {
		for id := range s.state.Suspended[layer].All() {
			m := s.markup(id)
			if markupKey(m) != key || slices.Contains(matches, id) {
				continue
			}
			if tag.HasLayerInfo() && !sameLayers(m, tag.LayerNames()) {
				continue
			}
			matches = append(matches, id)
		}
	}
	return matches
}

// layersAgree reports whether all markup carries the same non-default layers.
func (s *session) layersAgree(ids []domain.MarkupID) bool {
	first := domain.NonDefaultLayers(s.markup(ids[0]).Layers)
	for _, id := range ids[1:] {
		if !slices.Equal(first, domain.NonDefaultLayers(s.markup(id).Layers)) {
			return false
		}
	}
	return true
}

// resolveClose finds the open markup an end tag refers to.
// An end tag with layer information must name exactly the markup's non-default layers.
// Without layer information, the layers are taken from the open markup with the same
// tag; if several of those disagree on their layers, the end tag is ambiguous.
func (s *session) resolveClose(tag *exttag.Tag, found string, span domain.Range) (domain.MarkupID, bool) {
	if !s.checkLayerRefs(tag, span) {
		return 0, false
	}
	key := tagKey(tag.QualifiedName(), tag.Suffix)

	if tag.HasLayerInfo() {
		names := tag.LayerNames()
		for id := range s.state.AllOpen.All() {
			m := s.markup(id)
			if !m.IsBranchMarker() && markupKey(m) == key && sameLayers(m, names) {
				return id, true
			}
		}
		s.reportUnmatched(tag, found, span)
		return 0, false
	}

	var matches []domain.MarkupID
	for id := range s.state.AllOpen.All() {
		m := s.markup(id)
		if !m.IsBranchMarker() && markupKey(m) == key {
			matches = append(matches, id)
		}
	}
	if len(matches) == 0 {
		s.reportUnmatched(tag, found, span)
		return 0, false
	}
	if !s.layersAgree(matches) {
		s.AddBreakingError(domain.KindAmbiguous, span,
			"There are multiple start-tags that can correspond with end-tag %s; add layer information to the end-tag to solve this ambiguity.",
			found)
		return 0, false
	}
	return matches[0], true
}

func (s *session) reportUnmatched(tag *exttag.Tag, found string, span domain.Range) {
	if matches := s.suspendedMatches(tag); len(matches) > 0 && tag.Prefix != exttag.PrefixSuspend {
		s.AddError(domain.KindStructural, span,
			"Close tag %s found, but markup %s is suspended; resume it first.", found, s.markup(matches[0]).StartTag())
		return
	}
	s.AddError(domain.KindStructural, span, "Close tag %s found without corresponding open tag.", found)
}

// checkLayerRefs verifies that every layer named in an end or resume tag exists.
func (s *session) checkLayerRefs(tag *exttag.Tag, span domain.Range) bool {
	for _, ref := range tag.Layers {
		if !s.knownLayer(ref.Name) {
			s.AddError(domain.KindLayer, span,
				"Layer %s has not been added at this point, use +%s to add a layer.", ref.Name, ref.Name)
			return false
		}
	}
	return true
}

// popMarkup removes markup from the open stack of all of its layers.
// When other markup sits on top of it, the order error is reported once
// and the markup is removed anyway, so later end tags still match.
func (s *session) popMarkup(id domain.MarkupID, found string, span domain.Range) {
	m := s.markup(id)
	reported := false
	for _, layer := range m.Layers {
		stack := s.state.Open[layer]
		if top, ok := stack.Peek(); ok && top == id {
			stack, _, _ = stack.Pop()
		} else {
			if !reported && !s.onlyMarkersAbove(stack, id) {
				hint := ""
				if layer == domain.DefaultLayer {
					hint = " Use separate layers to allow for overlap."
				}
				s.AddError(domain.KindStructural, span, "Close tag %s found, expected %s.%s",
					found, s.markup(top).EndTag(), hint)
				reported = true
			}
			stack, _ = stack.Remove(id)
		}
		s.state.Open[layer] = stack
	}
	s.state.AllOpen, _ = s.state.AllOpen.Remove(id)
}

// onlyMarkersAbove reports whether every entry above id is a branch marker.
// Those cases are reported by the branch checks instead.
func (s *session) onlyMarkersAbove(stack domain.Stack, id domain.MarkupID) bool {
	for above := range stack.All() {
		if above == id {
			return true
		}
		if !s.markup(above).IsBranchMarker() {
			return false
		}
	}
	return true
}

func tagKey(qualifiedName, suffix string) string {
	if suffix == "" {
		return qualifiedName
	}
	return qualifiedName + "~" + suffix
}

func markupKey(m *domain.Markup) string {
	return tagKey(m.QualifiedTag(), m.SuffixID)
}

// sameLayers reports whether names lists exactly the non-default layers of m, in any order.
func sameLayers(m *domain.Markup, names []string) bool {
	want := slices.Compact(slices.Sorted(slices.Values(names)))
	return slices.Equal(domain.NonDefaultLayers(m.Layers), want)
}
