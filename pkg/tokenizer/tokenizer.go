// Package tokenizer turns TAGML source text into the structural events consumed
// by the importer.
//
// Lexing is done by a participle stateful lexer; the events are assembled from
// the token stream by a small recursive-descent pass.
package tokenizer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/aretw0/tagml/pkg/domain"
)

// SyntaxError is returned when the source is not lexically valid TAGML.
type SyntaxError struct {
	Pos     domain.Position
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s : %s", e.Pos, e.Message)
}

// Diagnostic converts the error into a breaking syntax diagnostic.
func (e *SyntaxError) Diagnostic() domain.Diagnostic {
	return domain.Diagnostic{
		Range:    domain.Range{Start: e.Pos, End: e.Pos},
		Kind:     domain.KindSyntax,
		Message:  e.Message,
		Breaking: true,
	}
}

var symbols = func() map[lexer.TokenType]string {
	names := make(map[lexer.TokenType]string)
	for name, typ := range tagmlLexer.Symbols() {
		names[typ] = name
	}
	return names
}()

// Tokenize lexes src and returns its structural events in document order.
func Tokenize(filename, src string) ([]domain.Event, error) {
	lex, err := tagmlLexer.LexString(filename, src)
	if err != nil {
		return nil, wrapLexError(err)
	}
	tokens, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, wrapLexError(err)
	}

	a := &assembler{tokens: tokens}
	events, err := a.body("")
	if err != nil {
		return nil, err
	}
	return events, nil
}

func wrapLexError(err error) error {
	var perr participle.Error
	if errors.As(err, &perr) {
		p := perr.Position()
		return &SyntaxError{Pos: domain.Position{Line: p.Line, Column: p.Column}, Message: perr.Message()}
	}
	return &SyntaxError{Pos: domain.Position{Line: 1, Column: 1}, Message: err.Error()}
}

type assembler struct {
	tokens []lexer.Token
	pos    int
}

func (a *assembler) peek() (lexer.Token, string) {
	tok := a.tokens[a.pos]
	if tok.EOF() {
		return tok, "EOF"
	}
	return tok, symbols[tok.Type]
}

func (a *assembler) next() (lexer.Token, string) {
	tok, kind := a.peek()
	if !tok.EOF() {
		a.pos++
	}
	return tok, kind
}

func (a *assembler) errorf(tok lexer.Token, format string, args ...any) error {
	return &SyntaxError{Pos: start(tok), Message: fmt.Sprintf(format, args...)}
}

// body assembles events until the terminator token kind ("" means end of input).
func (a *assembler) body(until string) ([]domain.Event, error) {
	var events []domain.Event
	for {
		tok, kind := a.next()
		span := spanOf(tok)
		switch kind {
		case "EOF":
			if until != "" {
				return nil, a.errorf(tok, "unexpected end of input, missing <]")
			}
			return events, nil
		case until:
			return events, nil
		case "Comment":
		case "Text", "VariationText":
			content := unescape(tok.Value)
			if prev, ok := lastText(events); ok {
				prev.Content += content
				prev.Span.End = span.End
				events[len(events)-1] = prev
				continue
			}
			events = append(events, domain.Text{EventBase: domain.EventBase{Span: span}, Content: content})
		case "NamespaceDecl":
			fields := strings.Fields(strings.TrimSuffix(strings.TrimPrefix(tok.Value, "[!ns"), "]"))
			events = append(events, domain.Namespace{EventBase: domain.EventBase{Span: span}, Prefix: fields[0], URI: fields[1]})
		case "EnterVariation":
			events = append(events, domain.EnterVariation{EventBase: domain.EventBase{Span: span}})
		case "BranchSeparator":
			events = append(events, domain.BranchSeparator{EventBase: domain.EventBase{Span: span}})
		case "ExitVariation":
			events = append(events, domain.ExitVariation{EventBase: domain.EventBase{Span: span}})
		case "EndTag":
			tag := strings.TrimSuffix(strings.TrimPrefix(tok.Value, "<"), "]")
			events = append(events, domain.EndTag{EventBase: domain.EventBase{Span: span}, Tag: tag})
		case "TagOpen":
			ev, err := a.tag(tok)
			if err != nil {
				return nil, err
			}
			events = append(events, ev)
		default:
			return nil, a.errorf(tok, "unexpected %q", tok.Value)
		}
	}
}

// lastText returns the trailing text event, so text split by comments is joined.
func lastText(events []domain.Event) (domain.Text, bool) {
	if len(events) == 0 {
		return domain.Text{}, false
	}
	t, ok := events[len(events)-1].(domain.Text)
	return t, ok
}

// tag assembles a start tag or milestone after its opening bracket.
func (a *assembler) tag(open lexer.Token) (domain.Event, error) {
	var (
		name        string
		annotations []domain.Annotation
	)
	a.skipSpace()
	if tok, kind := a.peek(); kind == "Name" {
		name = tok.Value
		a.next()
	}
	for {
		a.skipSpace()
		tok, kind := a.next()
		switch kind {
		case "TagClose":
			return domain.StartTag{
				EventBase:   domain.EventBase{Span: domain.Span(start(open), end(tok))},
				Tag:         name,
				Annotations: annotations,
			}, nil
		case "MilestoneClose":
			return domain.Milestone{
				EventBase:   domain.EventBase{Span: domain.Span(start(open), end(tok))},
				Tag:         name,
				Annotations: annotations,
			}, nil
		case "Name":
			ann, err := a.annotation(tok)
			if err != nil {
				return nil, err
			}
			annotations = append(annotations, ann)
		case "EOF":
			return nil, a.errorf(open, "unclosed tag [%s", name)
		default:
			return nil, a.errorf(tok, "unexpected %q in tag [%s", tok.Value, name)
		}
	}
}

// annotation assembles name=value or name->id.
func (a *assembler) annotation(name lexer.Token) (domain.Annotation, error) {
	a.skipSpace()
	tok, kind := a.next()
	switch kind {
	case "Eq":
		a.skipSpace()
		v, err := a.value()
		if err != nil {
			return domain.Annotation{}, err
		}
		return domain.Annotation{Name: name.Value, Value: v}, nil
	case "Arrow":
		a.skipSpace()
		ref, refKind := a.next()
		if refKind != "Name" {
			return domain.Annotation{}, a.errorf(ref, "expected reference after %s->", name.Value)
		}
		return domain.Annotation{Name: name.Value, Value: domain.ReferenceValue(ref.Value)}, nil
	default:
		return domain.Annotation{}, a.errorf(tok, "expected = or -> after annotation name %s", name.Value)
	}
}

func (a *assembler) value() (domain.AnnotationValue, error) {
	tok, kind := a.next()
	switch kind {
	case "String":
		s, err := unquote(tok.Value)
		if err != nil {
			return nil, a.errorf(tok, "invalid string %s", tok.Value)
		}
		return domain.StringValue(s), nil
	case "Number":
		f, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, a.errorf(tok, "invalid number %s", tok.Value)
		}
		return domain.NumberValue(f), nil
	case "Name":
		switch tok.Value {
		case "true":
			return domain.BooleanValue(true), nil
		case "false":
			return domain.BooleanValue(false), nil
		}
		return domain.StringValue(tok.Value), nil
	case "ListOpen":
		return a.list(tok)
	case "MapOpen":
		return a.mapValue(tok)
	case "RichTextOpen":
		events, err := a.body("RichTextClose")
		if err != nil {
			return nil, err
		}
		return &domain.RichTextValue{Events: events}, nil
	default:
		return nil, a.errorf(tok, "expected annotation value, found %q", tok.Value)
	}
}

func (a *assembler) list(open lexer.Token) (domain.ListValue, error) {
	list := domain.ListValue{}
	for {
		a.skipSpace()
		if _, kind := a.peek(); kind == "ListClose" {
			a.next()
			return list, nil
		}
		v, err := a.value()
		if err != nil {
			return nil, err
		}
		list = append(list, v)

		a.skipSpace()
		tok, kind := a.next()
		switch kind {
		case "ListSeparator":
		case "ListClose":
			return list, nil
		default:
			return nil, a.errorf(tok, "expected , or ] in list starting at %s", start(open))
		}
	}
}

func (a *assembler) mapValue(open lexer.Token) (domain.MapValue, error) {
	m := domain.MapValue{}
	for {
		a.skipSpace()
		tok, kind := a.next()
		switch kind {
		case "MapClose":
			return m, nil
		case "MapSeparator":
		case "Name":
			ann, err := a.annotation(tok)
			if err != nil {
				return nil, err
			}
			m = append(m, ann)
		default:
			return nil, a.errorf(tok, "expected annotation or } in map starting at %s", start(open))
		}
	}
}

func (a *assembler) skipSpace() {
	for {
		if _, kind := a.peek(); kind != "Whitespace" {
			return
		}
		a.next()
	}
}

func unquote(s string) (string, error) {
	if strings.HasPrefix(s, "'") {
		// single-quoted strings use the same escapes as double-quoted ones
		inner := strings.ReplaceAll(s[1:len(s)-1], `"`, `\"`)
		inner = strings.ReplaceAll(inner, `\'`, `'`)
		return strconv.Unquote(`"` + inner + `"`)
	}
	return strconv.Unquote(s)
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	escaped := false
	for _, r := range s {
		if !escaped && r == '\\' {
			escaped = true
			continue
		}
		escaped = false
		sb.WriteRune(r)
	}
	return sb.String()
}

func start(tok lexer.Token) domain.Position {
	return domain.Position{Line: tok.Pos.Line, Column: tok.Pos.Column}
}

// end returns the position of the last character of the token.
func end(tok lexer.Token) domain.Position {
	p := start(tok)
	if tok.Value == "" {
		return p
	}
	for i, r := range tok.Value {
		if i+utf8.RuneLen(r) == len(tok.Value) {
			break
		}
		if r == '\n' {
			p.Line++
			p.Column = 1
			continue
		}
		p.Column++
	}
	return p
}

func spanOf(tok lexer.Token) domain.Range {
	return domain.Span(start(tok), end(tok))
}
