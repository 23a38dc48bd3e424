// Package exttag parses the "extended tag" text of TAGML start, end and milestone
// tags: an optional prefix, an optionally namespaced name, a suffix and layer info.
//
//	?ns:name~suffix|+layer,parent+child
package exttag

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Prefix is the marker in front of a tag name.
type Prefix int

const (
	PrefixNone     Prefix = iota
	PrefixOptional        // ?name
	PrefixSuspend         // <-name]
	PrefixResume          // [+name>
)

func (p Prefix) String() string {
	switch p {
	case PrefixOptional:
		return "?"
	case PrefixSuspend:
		return "-"
	case PrefixResume:
		return "+"
	default:
		return ""
	}
}

// LayerRef is one entry of the layer list.
type LayerRef struct {
	Name   string
	Parent string // set for parent+child
	Add    bool   // true for +name and parent+child
}

func (l LayerRef) String() string {
	switch {
	case l.Parent != "":
		return l.Parent + "+" + l.Name
	case l.Add:
		return "+" + l.Name
	default:
		return l.Name
	}
}

// Tag is a parsed extended tag.
type Tag struct {
	Prefix    Prefix
	Namespace string
	Name      string
	Suffix    string
	Layers    []LayerRef
}

// QualifiedName returns ns:name, or name when no namespace is used.
func (t *Tag) QualifiedName() string {
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + ":" + t.Name
}

// LayerNames returns the names of the referenced layers, in order of appearance.
func (t *Tag) LayerNames() []string {
	names := make([]string, len(t.Layers))
	for i, l := range t.Layers {
		names[i] = l.Name
	}
	return names
}

// HasLayerInfo reports whether the tag carries an explicit layer list.
func (t *Tag) HasLayerInfo() bool {
	return len(t.Layers) > 0
}

func (t *Tag) String() string {
	var sb strings.Builder
	sb.WriteString(t.Prefix.String())
	sb.WriteString(t.QualifiedName())
	if t.Suffix != "" {
		sb.WriteString("~" + t.Suffix)
	}
	if len(t.Layers) > 0 {
		refs := make([]string, len(t.Layers))
		for i, l := range t.Layers {
			refs[i] = l.String()
		}
		sb.WriteString("|" + strings.Join(refs, ","))
	}
	return sb.String()
}

// tagGrammar is the participle grammar for extended tags.
//
//nolint:govet // participle grammar tags are not standard struct tags
type tagGrammar struct {
	Prefix string      `@("?" | "+" | "-")?`
	Name   string      `( @Ident ( @":" @Ident )? )?`
	Suffix string      `( "~" @Ident )?`
	Layers []*layerRef `( "|" @@ ( "," @@ )* )?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type layerRef struct {
	Spec string `@"+"? @Ident ( @"+" @Ident )?`
}

// tagLexer defines the lexer for extended tags.
var tagLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Ident", Pattern: `[\p{L}\p{N}_][\p{L}\p{N}_\-\.]*`},
	{Name: "Punct", Pattern: `[?+\-:~|,]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// tagParser is the participle parser for extended tags.
var tagParser = participle.MustBuild[tagGrammar](
	participle.Lexer(tagLexer),
	participle.Elide("Whitespace"),
)

// Parse parses the text between the tag delimiters, without annotations.
// An empty name is not an error here; callers decide whether nameless markup is allowed.
func Parse(s string) (*Tag, error) {
	parsed, err := tagParser.ParseString("", strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid tag %q: %w", s, err)
	}

	tag := &Tag{Suffix: parsed.Suffix}
	switch parsed.Prefix {
	case "?":
		tag.Prefix = PrefixOptional
	case "-":
		tag.Prefix = PrefixSuspend
	case "+":
		tag.Prefix = PrefixResume
	}

	if ns, name, found := strings.Cut(parsed.Name, ":"); found {
		tag.Namespace, tag.Name = ns, name
	} else {
		tag.Name = parsed.Name
	}

	for _, ref := range parsed.Layers {
		tag.Layers = append(tag.Layers, parseLayerRef(ref.Spec))
	}
	return tag, nil
}

func parseLayerRef(spec string) LayerRef {
	if rest, ok := strings.CutPrefix(spec, "+"); ok {
		return LayerRef{Name: rest, Add: true}
	}
	if parent, child, ok := strings.Cut(spec, "+"); ok {
		return LayerRef{Name: child, Parent: parent, Add: true}
	}
	return LayerRef{Name: spec}
}
