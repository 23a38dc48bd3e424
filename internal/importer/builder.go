package importer

import (
	"context"
	"slices"

	"github.com/aretw0/tagml/pkg/domain"
	"github.com/aretw0/tagml/pkg/exttag"
)

// newLayer is a layer declared by a start tag; it is registered once the markup exists.
type newLayer struct {
	name   string
	parent string
}

func (s *session) parseTag(raw string, span domain.Range) (*exttag.Tag, bool) {
	tag, err := exttag.Parse(raw)
	if err != nil {
		s.AddError(domain.KindSyntax, span, "%v", err)
		return nil, false
	}
	return tag, true
}

func (s *session) handleStartTag(ctx context.Context, ev domain.StartTag) {
	found := "[" + ev.Tag + ">"
	if s.closedAfterEOF(ev.Span, "markup") {
		return
	}
	tag, ok := s.parseTag(ev.Tag, ev.Span)
	if !ok {
		return
	}
	switch tag.Prefix {
	case exttag.PrefixResume:
		s.resumeMarkup(ctx, tag, found, ev.Span)
		return
	case exttag.PrefixSuspend:
		s.AddError(domain.KindSyntax, ev.Span, "The suspend prefix is only allowed in end tags: %s.", found)
		return
	}

	id, ok := s.buildMarkup(ctx, tag, ev.Annotations, ev.Span, false)
	if !ok {
		return
	}
	s.openMarkup(ctx, id)
}

func (s *session) handleEndTag(ctx context.Context, ev domain.EndTag) {
	found := "<" + ev.Tag + "]"
	if s.closedAfterEOF(ev.Span, "markup") {
		return
	}
	tag, ok := s.parseTag(ev.Tag, ev.Span)
	if !ok {
		return
	}
	if tag.Name == "" {
		s.AddError(domain.KindIdentity, ev.Span, "Nameless markup is not allowed here: %s.", found)
		return
	}
	for _, ref := range tag.Layers {
		if ref.Add {
			s.AddError(domain.KindLayer, ev.Span, "Layers can only be added in start tags: %s.", found)
			return
		}
	}
	switch tag.Prefix {
	case exttag.PrefixSuspend:
		s.suspendMarkup(ctx, tag, found, ev.Span)
	case exttag.PrefixResume:
		s.AddError(domain.KindSyntax, ev.Span, "The resume prefix is only allowed in start tags: %s.", found)
	default:
		s.closeMarkup(ctx, tag, found, ev.Span)
	}
}

func (s *session) handleMilestone(ctx context.Context, ev domain.Milestone) {
	found := "[" + ev.Tag + "]"
	if s.closedAfterEOF(ev.Span, "milestone") {
		return
	}
	if !s.started() {
		s.AddError(domain.KindStructural, ev.Span, "No milestone allowed here, the root markup must be started first.")
		return
	}
	tag, ok := s.parseTag(ev.Tag, ev.Span)
	if !ok {
		return
	}
	if tag.Prefix != exttag.PrefixNone {
		s.AddError(domain.KindSyntax, ev.Span, "Milestones cannot have a prefix: %s.", found)
		return
	}
	id, ok := s.buildMarkup(ctx, tag, ev.Annotations, ev.Span, true)
	if !ok {
		return
	}
	m := s.markup(id)
	// zero width: the milestone covers an empty text node
	text := s.model.CreateTextNode("")
	for _, layer := range m.Layers {
		s.model.OpenMarkupInLayer(id, layer)
		s.model.AssociateTextWithMarkup(text, id, layer)
		s.model.CloseMarkupInLayer(id, layer)
	}
	s.imp.fireMarkup(ctx, s.imp.hooks.OnMarkupOpen, m, "milestone")
	s.attach(ctx, text, "")
}

func (s *session) handleNamespace(ev domain.Namespace) {
	if s.closedAfterEOF(ev.Span, "namespace declaration") {
		return
	}
	if uri, ok := s.namespaces[ev.Prefix]; ok && uri != ev.URI {
		s.AddError(domain.KindIdentity, ev.Span, "Namespace %s has already been defined as %s.", ev.Prefix, uri)
		return
	}
	s.namespaces[ev.Prefix] = ev.URI
}

// buildMarkup validates a parsed start or milestone tag and stores the markup in the model.
func (s *session) buildMarkup(ctx context.Context, tag *exttag.Tag, annotations []domain.Annotation, span domain.Range, milestone bool) (domain.MarkupID, bool) {
	if tag.Name == "" {
		s.AddError(domain.KindIdentity, span, "Nameless markup is not allowed here.")
		return 0, false
	}
	if tag.Namespace != "" {
		if _, ok := s.namespaces[tag.Namespace]; !ok {
			s.AddError(domain.KindIdentity, span, "Namespace %s has not been defined.", tag.Namespace)
		}
	}

	layers, added, ok := s.resolveStartLayers(tag, span)
	if !ok {
		return 0, false
	}

	m := domain.Markup{
		Tag:       tag.Name,
		Namespace: tag.Namespace,
		SuffixID:  tag.Suffix,
		Layers:    layers,
		Optional:  tag.Prefix == exttag.PrefixOptional,
		Milestone: milestone,
		Span:      span,
	}

	for _, a := range annotations {
		if a.Name != domain.IDAnnotation {
			m.Annotations = append(m.Annotations, a)
			continue
		}
		explicit := explicitID(a.Value)
		if prev, used := s.ids[explicit]; used {
			s.AddError(domain.KindIdentity, span, "Id %s was already used in markup %s.",
				explicit, s.markup(prev).StartTag())
			continue
		}
		m.ExplicitID = explicit
	}

	id := s.model.CreateMarkup(m)
	if m.ExplicitID != "" {
		s.ids[m.ExplicitID] = id
	}
	for _, l := range added {
		s.layers[l.name] = l.parent
		s.model.AddLayer(l.name, id, l.parent)
	}
	s.lastMarkup = id

	for _, a := range m.Annotations {
		if rt, ok := a.Value.(*domain.RichTextValue); ok && len(rt.Events) > 0 {
			s.imp.importRichText(ctx, rt, span)
		}
	}
	return id, true
}

// resolveStartLayers turns the layer list of a start tag into the markup's layer set.
// +x adds x under the default layer, p+c adds c under p, and a plain name that is
// not known yet is added under the default layer.
func (s *session) resolveStartLayers(tag *exttag.Tag, span domain.Range) ([]string, []newLayer, bool) {
	if !tag.HasLayerInfo() {
		return []string{domain.DefaultLayer}, nil, true
	}
	var (
		layers []string
		added  []newLayer
	)
	pending := func(name string) bool {
		return slices.ContainsFunc(added, func(l newLayer) bool { return l.name == name })
	}
	for _, ref := range tag.Layers {
		known := s.knownLayer(ref.Name) || pending(ref.Name)
		switch {
		case ref.Parent != "":
			if !s.knownLayer(ref.Parent) && !pending(ref.Parent) {
				s.AddError(domain.KindLayer, span,
					"Layer %s has not been added at this point, use +%s to add a layer.", ref.Parent, ref.Parent)
				return nil, nil, false
			}
			if known {
				s.AddError(domain.KindLayer, span, "Layer %s has already been added.", ref.Name)
			} else {
				added = append(added, newLayer{name: ref.Name, parent: ref.Parent})
			}
		case ref.Add:
			if known {
				s.AddError(domain.KindLayer, span, "Layer %s has already been added.", ref.Name)
			} else {
				added = append(added, newLayer{name: ref.Name, parent: domain.DefaultLayer})
			}
		case !known:
			added = append(added, newLayer{name: ref.Name, parent: domain.DefaultLayer})
		}
		layers = append(layers, ref.Name)
	}
	slices.Sort(layers)
	return slices.Compact(layers), added, true
}

func explicitID(v domain.AnnotationValue) string {
	switch val := v.(type) {
	case domain.StringValue:
		return string(val)
	case domain.ReferenceValue:
		return string(val)
	default:
		return domain.FormatValue(v)
	}
}
