package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aretw0/tagml/pkg/domain"
)

// Ext is the file extension of plain TAGML sources.
const Ext = ".tagml"

// Loader implements ports.SourceLoader over a directory of .tagml files.
// Ids are slash-separated paths relative to the root, without extension.
type Loader struct {
	Root string
}

// NewLoader creates a Loader reading sources below root.
func NewLoader(root string) *Loader {
	return &Loader{Root: root}
}

// GetSource reads the source with the given id.
func (l *Loader) GetSource(id string) ([]byte, error) {
	if id == "" || !filepath.IsLocal(filepath.FromSlash(id)) {
		return nil, fmt.Errorf("%w: invalid id %q", domain.ErrSourceNotFound, id)
	}
	data, err := os.ReadFile(filepath.Join(l.Root, filepath.FromSlash(id)+Ext))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSourceNotFound, id)
		}
		return nil, fmt.Errorf("failed to read source %s: %w", id, err)
	}
	return data, nil
}

// ListSources walks the root directory for .tagml files.
func (l *Loader) ListSources() ([]string, error) {
	var ids []string
	err := filepath.WalkDir(l.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != Ext {
			return nil
		}
		rel, err := filepath.Rel(l.Root, path)
		if err != nil {
			return err
		}
		ids = append(ids, filepath.ToSlash(strings.TrimSuffix(rel, Ext)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list sources in %s: %w", l.Root, err)
	}
	slices.Sort(ids)
	return ids, nil
}
