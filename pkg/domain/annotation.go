package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// AnnotationKind names the type of an annotation value.
type AnnotationKind string

const (
	KindString    AnnotationKind = "string"
	KindBoolean   AnnotationKind = "boolean"
	KindNumber    AnnotationKind = "number"
	KindReference AnnotationKind = "reference"
	KindList      AnnotationKind = "list"
	KindMap       AnnotationKind = "map"
	KindRichText  AnnotationKind = "rich_text"
)

// IDAnnotation is the annotation name carrying a markup's explicit identifier.
const IDAnnotation = ":id"

// AnnotationValue is the sealed sum type of annotation values.
// Consumers switch over the concrete types; no other implementations exist.
type AnnotationValue interface {
	Kind() AnnotationKind
	isAnnotationValue()
}

type (
	// StringValue is a quoted string literal.
	StringValue string
	// BooleanValue is true or false.
	BooleanValue bool
	// NumberValue is a numeric literal.
	NumberValue float64
	// ReferenceValue points at the explicit id of another markup (name->id).
	ReferenceValue string
	// ListValue is an ordered list of values.
	ListValue []AnnotationValue
	// MapValue is a nested, ordered set of annotations.
	MapValue []Annotation
)

// RichTextValue is a nested TAGML document used as an annotation value.
// Events are the structural events of the nested text, as produced by a tokenizer;
// Document is filled in once the nested text has been imported.
type RichTextValue struct {
	Events   []Event
	Document *Document
}

func (StringValue) Kind() AnnotationKind    { return KindString }
func (BooleanValue) Kind() AnnotationKind   { return KindBoolean }
func (NumberValue) Kind() AnnotationKind    { return KindNumber }
func (ReferenceValue) Kind() AnnotationKind { return KindReference }
func (ListValue) Kind() AnnotationKind      { return KindList }
func (MapValue) Kind() AnnotationKind       { return KindMap }
func (*RichTextValue) Kind() AnnotationKind { return KindRichText }

func (StringValue) isAnnotationValue()    {}
func (BooleanValue) isAnnotationValue()   {}
func (NumberValue) isAnnotationValue()    {}
func (ReferenceValue) isAnnotationValue() {}
func (ListValue) isAnnotationValue()      {}
func (MapValue) isAnnotationValue()       {}
func (*RichTextValue) isAnnotationValue() {}

// Annotation is a named value attached to exactly one markup.
type Annotation struct {
	Name  string
	Value AnnotationValue
}

// FormatValue renders an annotation value in TAGML surface syntax.
func FormatValue(v AnnotationValue) string {
	switch val := v.(type) {
	case StringValue:
		return strconv.Quote(string(val))
	case BooleanValue:
		return strconv.FormatBool(bool(val))
	case NumberValue:
		return strconv.FormatFloat(float64(val), 'f', -1, 64)
	case ReferenceValue:
		return string(val)
	case ListValue:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = FormatValue(item)
		}
		return "[" + strings.Join(parts, ",") + "]"
	case MapValue:
		parts := make([]string, len(val))
		for i, a := range val {
			parts[i] = a.String()
		}
		return "{" + strings.Join(parts, " ") + "}"
	case *RichTextValue:
		if val.Document != nil {
			return "[>" + val.Document.Text() + "<]"
		}
		return "[><]"
	default:
		return ""
	}
}

func (a Annotation) String() string {
	if ref, ok := a.Value.(ReferenceValue); ok {
		return a.Name + "->" + string(ref)
	}
	return a.Name + "=" + FormatValue(a.Value)
}

type valueEnvelope struct {
	Kind  AnnotationKind  `json:"kind"`
	Value json.RawMessage `json:"value"`
}

type annotationEnvelope struct {
	Name  string          `json:"name"`
	Kind  AnnotationKind  `json:"kind"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes the annotation as a {name, kind, value} envelope.
func (a Annotation) MarshalJSON() ([]byte, error) {
	env, err := encodeValue(a.Value)
	if err != nil {
		return nil, fmt.Errorf("annotation %q: %w", a.Name, err)
	}
	return json.Marshal(annotationEnvelope{Name: a.Name, Kind: env.Kind, Value: env.Value})
}

// UnmarshalJSON decodes the {name, kind, value} envelope.
func (a *Annotation) UnmarshalJSON(data []byte) error {
	var env annotationEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	v, err := decodeValue(valueEnvelope{Kind: env.Kind, Value: env.Value})
	if err != nil {
		return fmt.Errorf("annotation %q: %w", env.Name, err)
	}
	a.Name = env.Name
	a.Value = v
	return nil
}

func encodeValue(v AnnotationValue) (valueEnvelope, error) {
	var (
		raw any
		env valueEnvelope
	)
	switch val := v.(type) {
	case StringValue:
		raw = string(val)
	case BooleanValue:
		raw = bool(val)
	case NumberValue:
		raw = float64(val)
	case ReferenceValue:
		raw = string(val)
	case ListValue:
		items := make([]valueEnvelope, 0, len(val))
		for _, item := range val {
			e, err := encodeValue(item)
			if err != nil {
				return env, err
			}
			items = append(items, e)
		}
		raw = items
	case MapValue:
		raw = []Annotation(val)
	case *RichTextValue:
		raw = val.Document
	case nil:
		return env, fmt.Errorf("missing annotation value")
	default:
		return env, fmt.Errorf("unsupported annotation value %T", v)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return env, err
	}
	return valueEnvelope{Kind: v.Kind(), Value: data}, nil
}

func decodeValue(env valueEnvelope) (AnnotationValue, error) {
	switch env.Kind {
	case KindString, KindReference:
		var s string
		if err := json.Unmarshal(env.Value, &s); err != nil {
			return nil, err
		}
		if env.Kind == KindReference {
			return ReferenceValue(s), nil
		}
		return StringValue(s), nil
	case KindBoolean:
		var b bool
		if err := json.Unmarshal(env.Value, &b); err != nil {
			return nil, err
		}
		return BooleanValue(b), nil
	case KindNumber:
		var f float64
		if err := json.Unmarshal(env.Value, &f); err != nil {
			return nil, err
		}
		return NumberValue(f), nil
	case KindList:
		var items []valueEnvelope
		if err := json.Unmarshal(env.Value, &items); err != nil {
			return nil, err
		}
		list := make(ListValue, 0, len(items))
		for _, item := range items {
			v, err := decodeValue(item)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	case KindMap:
		var anns []Annotation
		if err := json.Unmarshal(env.Value, &anns); err != nil {
			return nil, err
		}
		return MapValue(anns), nil
	case KindRichText:
		var doc *Document
		if err := json.Unmarshal(env.Value, &doc); err != nil {
			return nil, err
		}
		return &RichTextValue{Document: doc}, nil
	default:
		return nil, fmt.Errorf("unknown annotation kind %q", env.Kind)
	}
}
