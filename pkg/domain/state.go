package domain

import (
	"encoding/json"
	"iter"
	"maps"
	"slices"
)

// Stack is an immutable LIFO stack of markup ids.
// Push and Pop return new stacks that share their tail with the receiver,
// so copying a Stack is O(1) and never aliases mutable data.
type Stack struct {
	head *stackNode
	size int
}

type stackNode struct {
	id   MarkupID
	next *stackNode
}

// Len returns the number of entries.
func (s Stack) Len() int { return s.size }

// IsEmpty reports whether the stack has no entries.
func (s Stack) IsEmpty() bool { return s.size == 0 }

// Push returns a stack with id on top.
func (s Stack) Push(id MarkupID) Stack {
	return Stack{head: &stackNode{id: id, next: s.head}, size: s.size + 1}
}

// Peek returns the top entry.
func (s Stack) Peek() (MarkupID, bool) {
	if s.head == nil {
		return 0, false
	}
	return s.head.id, true
}

// Pop returns the stack without its top entry, and that entry.
func (s Stack) Pop() (Stack, MarkupID, bool) {
	if s.head == nil {
		return s, 0, false
	}
	return Stack{head: s.head.next, size: s.size - 1}, s.head.id, true
}

// Contains reports whether id is anywhere in the stack.
func (s Stack) Contains(id MarkupID) bool {
	for n := s.head; n != nil; n = n.next {
		if n.id == id {
			return true
		}
	}
	return false
}

// Remove returns the stack without the topmost occurrence of id.
// Only the entries above id are copied; the part below it is shared.
func (s Stack) Remove(id MarkupID) (Stack, bool) {
	var above []MarkupID
	n := s.head
	for ; n != nil && n.id != id; n = n.next {
		above = append(above, n.id)
	}
	if n == nil {
		return s, false
	}
	out := Stack{head: n.next, size: s.size - len(above) - 1}
	for i := len(above) - 1; i >= 0; i-- {
		out = out.Push(above[i])
	}
	return out, true
}

// All iterates from the top (innermost) to the bottom (outermost).
func (s Stack) All() iter.Seq[MarkupID] {
	return func(yield func(MarkupID) bool) {
		for n := s.head; n != nil; n = n.next {
			if !yield(n.id) {
				return
			}
		}
	}
}

// Slice returns the entries top first.
func (s Stack) Slice() []MarkupID {
	return slices.Collect(s.All())
}

// MarshalJSON encodes the stack as an array, top first.
func (s Stack) MarshalJSON() ([]byte, error) {
	ids := s.Slice()
	if ids == nil {
		ids = []MarkupID{}
	}
	return json.Marshal(ids)
}

// ParserState tracks open and suspended markup per layer.
// It has value semantics through Clone: branch handling snapshots and restores it.
type ParserState struct {
	// Open holds the open-markup stack per layer.
	Open map[string]Stack `json:"open"`

	// Suspended holds the suspended-markup stack per layer.
	Suspended map[string]Stack `json:"suspended"`

	// AllOpen holds every open markup across all layers, innermost first.
	AllOpen Stack `json:"all_open"`

	// RootMarkup is the first markup of the document, once seen.
	RootMarkup MarkupID `json:"root_markup,omitempty"`

	// EOF is set when the root markup has been closed.
	EOF bool `json:"eof,omitempty"`
}

// NewParserState creates an empty state for a fresh document.
func NewParserState() *ParserState {
	return &ParserState{
		Open:      make(map[string]Stack),
		Suspended: make(map[string]Stack),
	}
}

// Clone returns an independent copy. Only the layer maps are copied;
// the stacks themselves are immutable and shared.
func (s *ParserState) Clone() *ParserState {
	c := *s
	c.Open = maps.Clone(s.Open)
	c.Suspended = maps.Clone(s.Suspended)
	if c.Open == nil {
		c.Open = make(map[string]Stack)
	}
	if c.Suspended == nil {
		c.Suspended = make(map[string]Stack)
	}
	return &c
}

// Layers returns the layers that have an open-markup stack, sorted.
func (s *ParserState) Layers() []string {
	return slices.Sorted(maps.Keys(s.Open))
}

// HasLayer reports whether markup has ever been opened in the layer.
func (s *ParserState) HasLayer(layer string) bool {
	_, ok := s.Open[layer]
	return ok
}

// PushOpen pushes id on the open stack of layer, creating the layer on first use.
func (s *ParserState) PushOpen(layer string, id MarkupID) {
	s.Open[layer] = s.Open[layer].Push(id)
}

// PushSuspended pushes id on the suspended stack of layer.
func (s *ParserState) PushSuspended(layer string, id MarkupID) {
	s.Suspended[layer] = s.Suspended[layer].Push(id)
}

// OpenIDs returns the set of markup open in any layer.
func (s *ParserState) OpenIDs() map[MarkupID]bool {
	set := make(map[MarkupID]bool)
	for _, st := range s.Open {
		for id := range st.All() {
			set[id] = true
		}
	}
	return set
}

// SuspendedIDs returns the set of markup suspended in any layer.
func (s *ParserState) SuspendedIDs() map[MarkupID]bool {
	set := make(map[MarkupID]bool)
	for _, st := range s.Suspended {
		for id := range st.All() {
			set[id] = true
		}
	}
	return set
}

// IsOpen reports whether id is open in any layer.
func (s *ParserState) IsOpen(id MarkupID) bool {
	return s.AllOpen.Contains(id)
}
