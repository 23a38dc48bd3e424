package domain

import (
	"maps"
	"slices"
	"strings"
)

// Markup operation names used in diffs and branch signatures.
const (
	OpOpen    = "open"
	OpClose   = "close"
	OpSuspend = "suspend"
	OpResume  = "resume"
)

// StateDiff represents the markup operations that lead from one ParserState to another.
// Markup is identified by its extended tag, so diffs of different branches are comparable.
type StateDiff struct {
	Opened    []string `json:"opened,omitempty"`
	Closed    []string `json:"closed,omitempty"`
	Suspended []string `json:"suspended,omitempty"`
	Resumed   []string `json:"resumed,omitempty"`
}

// DiffStates calculates the difference between start and end.
// describe maps a markup id to its extended tag; returning "" skips the markup
// (used for synthetic branch markers).
func DiffStates(start, end *ParserState, describe func(MarkupID) string) *StateDiff {
	diff := &StateDiff{}
	startOpen, startSusp := start.OpenIDs(), start.SuspendedIDs()
	endOpen, endSusp := end.OpenIDs(), end.SuspendedIDs()

	add := func(list *[]string, id MarkupID) {
		if name := describe(id); name != "" {
			*list = append(*list, name)
		}
	}

	for _, id := range sortedIDs(endOpen) {
		switch {
		case startSusp[id]:
			add(&diff.Resumed, id)
		case !startOpen[id]:
			add(&diff.Opened, id)
		}
	}
	for _, id := range sortedIDs(startOpen) {
		if !endOpen[id] && !endSusp[id] {
			add(&diff.Closed, id)
		}
	}
	for _, id := range sortedIDs(endSusp) {
		if !startSusp[id] {
			add(&diff.Suspended, id)
		}
	}
	for _, id := range sortedIDs(startSusp) {
		if !endSusp[id] && !endOpen[id] {
			// resumed and closed again
			add(&diff.Resumed, id)
			add(&diff.Closed, id)
		}
	}
	return diff
}

// IsEmpty checks if the diff contains any operations.
func (d *StateDiff) IsEmpty() bool {
	return len(d.Opened) == 0 && len(d.Closed) == 0 &&
		len(d.Suspended) == 0 && len(d.Resumed) == 0
}

// Signature returns the multiset of operations, keyed as "op tag".
func (d *StateDiff) Signature() map[string]int {
	sig := make(map[string]int)
	count := func(op string, tags []string) {
		for _, t := range tags {
			sig[op+" "+t]++
		}
	}
	count(OpOpen, d.Opened)
	count(OpClose, d.Closed)
	count(OpSuspend, d.Suspended)
	count(OpResume, d.Resumed)
	return sig
}

// FormatSignature renders a signature as a stable, human readable list.
func FormatSignature(sig map[string]int) string {
	if len(sig) == 0 {
		return "(none)"
	}
	var parts []string
	for _, key := range slices.Sorted(maps.Keys(sig)) {
		for range sig[key] {
			parts = append(parts, key)
		}
	}
	return strings.Join(parts, ", ")
}

func sortedIDs(set map[MarkupID]bool) []MarkupID {
	return slices.Sorted(maps.Keys(set))
}
