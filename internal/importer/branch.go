package importer

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/aretw0/tagml/pkg/domain"
)

// BranchConsistency selects how the branches of a text variation are compared
// when they converge.
type BranchConsistency string

const (
	// BranchStrict compares every markup operation performed inside each branch.
	BranchStrict BranchConsistency = "strict"
	// BranchDelta compares only the net state change of each branch.
	BranchDelta BranchConsistency = "delta"
)

// ParseBranchConsistency parses a policy name; the empty string selects BranchStrict.
func ParseBranchConsistency(s string) (BranchConsistency, error) {
	switch BranchConsistency(strings.ToLower(s)) {
	case "", BranchStrict:
		return BranchStrict, nil
	case BranchDelta:
		return BranchDelta, nil
	default:
		return "", fmt.Errorf("unknown branch consistency %q (want %q or %q)", s, BranchStrict, BranchDelta)
	}
}

// branchContext is one level of non-linear text.
type branchContext struct {
	start   *domain.ParserState
	ends    []*domain.ParserState
	ops     []map[string]int
	current int

	branches domain.MarkupID
	branch   domain.MarkupID
	span     domain.Range
}

func (s *session) currentBranch() *branchContext {
	if len(s.branches) == 0 {
		return nil
	}
	return s.branches[len(s.branches)-1]
}

// recordOp adds a markup operation to the signature of the current branch.
func (s *session) recordOp(op string, id domain.MarkupID) {
	bc := s.currentBranch()
	if bc == nil {
		return
	}
	if name := s.describe(id); name != "" {
		bc.ops[bc.current][op+" "+name]++
	}
}

func (s *session) openMarker(ctx context.Context, tag string, span domain.Range) domain.MarkupID {
	id := s.model.CreateMarkup(domain.Markup{
		Tag:    tag,
		Layers: []string{domain.DefaultLayer},
		Span:   span,
	})
	s.openMarkup(ctx, id)
	return id
}

// enterVariation handles <| by opening the grouping markup, taking the start
// snapshot and opening the first branch.
func (s *session) enterVariation(ctx context.Context, span domain.Range) {
	if s.closedAfterEOF(span, "text variation") {
		return
	}
	if !s.started() {
		s.AddError(domain.KindStructural, span, "No text variation allowed here, the root markup must be started first.")
		return
	}
	groupID := s.openMarker(ctx, domain.BranchesTag, span)
	bc := &branchContext{
		start:    s.state.Clone(),
		ops:      []map[string]int{{}},
		branches: groupID,
		span:     span,
	}
	s.branches = append(s.branches, bc)
	bc.branch = s.openMarker(ctx, domain.BranchTag, span)
}

// nextBranch handles the | separator.
func (s *session) nextBranch(ctx context.Context, span domain.Range) {
	bc := s.currentBranch()
	if bc == nil {
		s.AddError(domain.KindBranch, span, "Branch separator found outside of a text variation.")
		return
	}
	s.closeMarker(bc.branch)
	s.checkBranchDelta(bc, span, "before starting a new branch")

	bc.ends = append(bc.ends, s.state.Clone())
	bc.current++
	bc.ops = append(bc.ops, map[string]int{})
	s.state = bc.start.Clone()
	bc.branch = s.openMarker(ctx, domain.BranchTag, span)
}

// exitVariation handles |>: the last branch is checked and closed, then all
// branches are compared. The state of the last branch continues the document.
func (s *session) exitVariation(ctx context.Context, span domain.Range) {
	bc := s.currentBranch()
	if bc == nil {
		s.AddError(domain.KindBranch, span, "End of text variation found outside of a text variation.")
		return
	}
	s.checkBranchDelta(bc, span, "before the end of the text variation")
	s.closeMarker(bc.branch)
	s.closeMarker(bc.branches)
	bc.ends = append(bc.ends, s.state.Clone())

	sigs := s.branchSignatures(bc)
	for i := 1; i < len(sigs); i++ {
		if !maps.Equal(sigs[0], sigs[i]) {
			parts := make([]string, len(sigs))
			for b, sig := range sigs {
				parts[b] = fmt.Sprintf("branch %d: %s", b+1, domain.FormatSignature(sig))
			}
			s.AddBreakingError(domain.KindBranch, span,
				"Markup operations differ between the branches of this text variation: %s.",
				strings.Join(parts, "; "))
			return
		}
	}

	s.branches = s.branches[:len(s.branches)-1]
	// every branch may have closed the root; the markers were the last open markup
	s.reachEOF()
	// the enclosing branch sees the variation as the operations of its canonical branch
	if outer := s.currentBranch(); outer != nil {
		for key, n := range bc.ops[len(bc.ops)-1] {
			outer.ops[outer.current][key] += n
		}
	}
}

func (s *session) branchSignatures(bc *branchContext) []map[string]int {
	if s.imp.branchPolicy == BranchDelta {
		sigs := make([]map[string]int, len(bc.ends))
		for i, end := range bc.ends {
			sigs[i] = domain.DiffStates(bc.start, end, s.describe).Signature()
		}
		return sigs
	}
	return bc.ops
}

// checkBranchDelta compares the open markup at the end of a branch with the
// open markup at the start of the variation.
func (s *session) checkBranchDelta(bc *branchContext, span domain.Range, when string) {
	startOpen := bc.start.OpenIDs()
	nowOpen := s.state.OpenIDs()
	branchNo := bc.current + 1

	// outermost first, matching document order
	for _, id := range slices.Backward(bc.start.AllOpen.Slice()) {
		if nowOpen[id] || s.markup(id).IsBranchMarker() {
			continue
		}
		s.AddError(domain.KindBranch, span,
			"Markup %s opened before branch %d, should not be closed in a branch.",
			s.markup(id).StartTag(), branchNo)
	}
	for _, id := range slices.Backward(s.state.AllOpen.Slice()) {
		if startOpen[id] || s.markup(id).IsBranchMarker() {
			continue
		}
		s.AddError(domain.KindBranch, span,
			"Markup %s opened in branch %d must be closed %s.",
			s.markup(id).StartTag(), branchNo, when)
	}
}
