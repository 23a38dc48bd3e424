package domain

import "errors"

// ErrDocumentNotFound is returned when a document ID cannot be found in the store.
var ErrDocumentNotFound = errors.New("document not found")

// ErrSourceNotFound is returned when a loader has no TAGML source for an ID.
var ErrSourceNotFound = errors.New("source not found")

// ErrAborted is returned by event handlers after a breaking error.
// The remaining events of the current document are not processed.
var ErrAborted = errors.New("import aborted by breaking error")
