package domain

import "fmt"

// Position is a location in a TAGML source. Line and Column are 1-based.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

func (p Position) String() string {
	return fmt.Sprintf("line %d:%d", p.Line, p.Column)
}

// Range is the source span an event or diagnostic refers to.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Span returns a range starting and ending at the given positions.
func Span(start, end Position) Range {
	return Range{Start: start, End: end}
}
