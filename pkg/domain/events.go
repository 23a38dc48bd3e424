package domain

import "context"

// EventType defines the category of a structural event.
type EventType string

const (
	EventNamespace      EventType = "namespace"
	EventStartTag       EventType = "start_tag"
	EventEndTag         EventType = "end_tag"
	EventMilestone      EventType = "milestone"
	EventText           EventType = "text"
	EventEnterVariation EventType = "enter_variation"
	EventBranch         EventType = "branch_separator"
	EventExitVariation  EventType = "exit_variation"
	EventEnterRichText  EventType = "enter_rich_text"
	EventExitRichText   EventType = "exit_rich_text"
)

// Event is one structural event of a TAGML document, in document order.
// It is a sealed sum type: the concrete events below are the only implementations.
type Event interface {
	Type() EventType
	Pos() Range
	isEvent()
}

// EventBase carries the source range every event has.
type EventBase struct {
	Span Range
}

// Pos returns the source range of the event.
func (e EventBase) Pos() Range { return e.Span }

func (EventBase) isEvent() {}

// Namespace declares a namespace prefix: [!ns prefix uri].
type Namespace struct {
	EventBase
	Prefix string
	URI    string
}

// StartTag opens (or resumes) markup: [tag|layers annotations>.
type StartTag struct {
	EventBase
	Tag         string
	Annotations []Annotation
}

// EndTag closes (or suspends) markup: <tag|layers].
type EndTag struct {
	EventBase
	Tag string
}

// Milestone is zero-width markup: [tag annotations].
type Milestone struct {
	EventBase
	Tag         string
	Annotations []Annotation
}

// Text is a run of character data.
type Text struct {
	EventBase
	Content string
}

// EnterVariation starts non-linear text: <|.
type EnterVariation struct{ EventBase }

// BranchSeparator starts the next branch of a variation: |.
type BranchSeparator struct{ EventBase }

// ExitVariation converges non-linear text: |>.
type ExitVariation struct{ EventBase }

// EnterRichTextValue starts a nested document used as the value of an annotation.
type EnterRichTextValue struct {
	EventBase
	Annotation string
}

// ExitRichTextValue ends the innermost nested document.
type ExitRichTextValue struct{ EventBase }

func (Namespace) Type() EventType          { return EventNamespace }
func (StartTag) Type() EventType           { return EventStartTag }
func (EndTag) Type() EventType             { return EventEndTag }
func (Milestone) Type() EventType          { return EventMilestone }
func (Text) Type() EventType               { return EventText }
func (EnterVariation) Type() EventType     { return EventEnterVariation }
func (BranchSeparator) Type() EventType    { return EventBranch }
func (ExitVariation) Type() EventType      { return EventExitVariation }
func (EnterRichTextValue) Type() EventType { return EventEnterRichText }
func (ExitRichTextValue) Type() EventType  { return EventExitRichText }

// MarkupEvent is reported to hooks when markup changes state.
type MarkupEvent struct {
	Markup *Markup
	Layers []string
	// Action is one of "open", "close", "suspend", "resume" or "milestone".
	Action string
}

// TextEvent is reported to hooks when a text node is attached.
type TextEvent struct {
	TextID  TextID
	Content string
	Markups []MarkupID
}

// LifecycleHooks defines callbacks for import observability.
type LifecycleHooks struct {
	OnMarkupOpen  func(context.Context, *MarkupEvent)
	OnMarkupClose func(context.Context, *MarkupEvent)
	OnText        func(context.Context, *TextEvent)
	OnDiagnostic  func(context.Context, *Diagnostic)
}
