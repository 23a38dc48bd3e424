package ports

import (
	"iter"

	"github.com/aretw0/tagml/pkg/domain"
)

// DocumentModel is the graph the import state machine writes into.
// The model owns every Markup it creates; the state machine only keeps ids.
type DocumentModel interface {
	// CreateMarkup stores a new markup and returns its id.
	CreateMarkup(m domain.Markup) domain.MarkupID

	// Markup returns the stored markup for an id, or nil if unknown.
	Markup(id domain.MarkupID) *domain.Markup

	// AddLayer registers a layer, its root markup and its parent layer.
	AddLayer(layer string, root domain.MarkupID, parent string)

	// OpenMarkupInLayer records that markup was opened in a layer.
	OpenMarkupInLayer(id domain.MarkupID, layer string)

	// CloseMarkupInLayer records that markup was closed in a layer.
	CloseMarkupInLayer(id domain.MarkupID, layer string)

	// CreateTextNode stores a text node and returns its id.
	CreateTextNode(content string) domain.TextID

	// AssociateTextWithMarkup links a text node to markup in one layer.
	AssociateTextWithMarkup(text domain.TextID, markup domain.MarkupID, layer string)

	// LastTextNode returns the most recently created text node (0 if none).
	LastTextNode() domain.TextID

	// MarkupsForTextNode iterates over the markup linked to a text node.
	MarkupsForTextNode(text domain.TextID) iter.Seq[domain.MarkupID]

	// Document returns a snapshot of the materialized graph.
	Document() *domain.Document
}

// ModelFactory creates a fresh DocumentModel. Nested rich-text values get their own model.
type ModelFactory func() DocumentModel

// ErrorListener receives diagnostics from the import state machine.
type ErrorListener interface {
	// AddError records a non-fatal diagnostic; processing continues.
	AddError(kind domain.ErrorKind, span domain.Range, format string, args ...any)

	// AddBreakingError records a fatal diagnostic; the remaining events are not processed.
	AddBreakingError(kind domain.ErrorKind, span domain.Range, format string, args ...any)
}
