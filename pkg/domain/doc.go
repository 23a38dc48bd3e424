/*
Package domain contains the core domain models of the TAGML import engine.

It defines the values the import state machine works with: Markup, Layers,
Annotations, the structural Events produced by a tokenizer, the ParserState that
tracks open and suspended markup per layer, and the Diagnostics reported while a
document is imported. This package is kept pure and free of external dependencies
like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - Markup: A tagged span of text, possibly spread over several layers.
  - Layer: An independently nesting hierarchy; markup in different layers may overlap.
  - Event: One structural event (start tag, end tag, text, variation...) in document order.
  - ParserState: A snapshot-able view of open and suspended markup across all layers.
  - Document: The materialized graph of markup and text produced by an import.
*/
package domain
