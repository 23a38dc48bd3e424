package ports

// SourceLoader defines how the importer retrieves TAGML sources.
// This allows the storage layer (Loam, FS, Memory) to be decoupled.
type SourceLoader interface {
	// GetSource retrieves the raw TAGML text of a source by ID.
	// Returns domain.ErrSourceNotFound (possibly wrapped) if the source does not exist.
	GetSource(id string) ([]byte, error)

	// ListSources returns the IDs of all available sources.
	ListSources() ([]string, error)
}
