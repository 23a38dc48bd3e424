/*
Package ports defines the driven ports (interfaces) of the TAGML import engine.

These interfaces decouple the import state machine from the implementations of its
collaborators, allowing the engine to materialize documents into any graph model and
to persist them in various storage backends.

# Key Interfaces

  - DocumentModel: Materializes markup, layers and text nodes while a document is imported.
  - ErrorListener: Receives well-formedness diagnostics (fatal and non-fatal).
  - DocumentStore: Persists and loads imported documents.
  - SourceLoader: Retrieves TAGML sources by ID (e.g., from Loam, a directory or memory).
  - DistributedLocker: Provides distributed locking for concurrent document access.
*/
package ports
