package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/tagml/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Loader adapts the Loam library to the SourceLoader interface.
type Loader struct {
	Repo *loam.TypedRepository[SourceMetadata]
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[SourceMetadata]) *Loader {
	return &Loader{
		Repo: repo,
	}
}

// GetSource returns the TAGML body of a source.
// Loam resolves "poem" to poem.md, so ids are given without extension.
func (l *Loader) GetSource(id string) ([]byte, error) {
	doc, err := l.Repo.Get(context.Background(), id)
	if err != nil {
		return nil, fmt.Errorf("%w: loam get failed for %s: %v", domain.ErrSourceNotFound, id, err)
	}
	return []byte(strings.TrimLeft(doc.Content, "\r\n")), nil
}

// Metadata returns the frontmatter of a source.
func (l *Loader) Metadata(id string) (SourceMetadata, error) {
	doc, err := l.Repo.Get(context.Background(), id)
	if err != nil {
		return SourceMetadata{}, fmt.Errorf("%w: loam get failed for %s: %v", domain.ErrSourceNotFound, id, err)
	}
	meta := doc.Data
	if meta.ID == "" {
		meta.ID = trimExtension(doc.ID)
	}
	return meta, nil
}

// ListSources lists all sources in the repository.
func (l *Loader) ListSources() ([]string, error) {
	ctx := context.Background()
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	ids := make([]string, 0, len(docs))

	for _, doc := range docs {
		// Use the ID from metadata if available, otherwise filename ID
		rawID := doc.Data.ID
		if rawID == "" {
			rawID = doc.ID
		}
		id := trimExtension(rawID)

		if existingPath, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: ID '%s' is defined in both '%s' and '%s'", id, existingPath, doc.ID)
		}
		seen[id] = doc.ID
		ids = append(ids, id)
	}
	return ids, nil
}

// Watch reports the ids of sources that change on disk.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	events, err := l.Repo.Watch(ctx, "**/*.md")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- trimExtension(evt.ID):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}

// DecodeMetadata decodes free-form metadata into a typed value, e.g. the
// "metadata" block of a source into a caller-defined struct.
func DecodeMetadata(src map[string]any, out any) error {
	if err := mapstructure.Decode(src, out); err != nil {
		return fmt.Errorf("failed to decode source metadata: %w", err)
	}
	return nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
