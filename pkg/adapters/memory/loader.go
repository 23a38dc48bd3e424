package memory

import (
	"fmt"
	"sort"

	"github.com/aretw0/tagml/pkg/domain"
)

// Loader implements ports.SourceLoader using an in-memory map.
type Loader struct {
	sources map[string][]byte
}

// NewLoader creates a new Loader from TAGML sources keyed by id.
func NewLoader(data map[string]string) *Loader {
	sources := make(map[string][]byte)
	for k, v := range data {
		sources[k] = []byte(v)
	}
	return &Loader{
		sources: sources,
	}
}

// GetSource returns the TAGML text of a source.
func (l *Loader) GetSource(id string) ([]byte, error) {
	content, ok := l.sources[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSourceNotFound, id)
	}
	return content, nil
}

// ListSources returns all available source IDs.
func (l *Loader) ListSources() ([]string, error) {
	keys := make([]string, 0, len(l.sources))
	for k := range l.sources {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys, nil
}
