// Package testutils holds helpers shared by adapter and CLI tests.
package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/stretchr/testify/require"
)

// SetupTestRepo creates a temporary directory and initializes a Loam repository in it.
// It returns the absolute path to the temp dir and the initialized repository.
// It fails the test immediately on error.
func SetupTestRepo(t *testing.T, opts ...loam.Option) (string, core.Repository) {
	t.Helper()

	absPath, err := filepath.Abs(t.TempDir())
	require.NoError(t, err, "Failed to get absolute path for temp dir")

	repo, err := loam.Init(absPath, opts...)
	require.NoError(t, err, "Failed to init loam repo")

	return absPath, repo
}

// WriteSources writes TAGML sources as Markdown files with an id frontmatter.
// files maps ids to TAGML text.
func WriteSources(t *testing.T, dir string, files map[string]string) {
	t.Helper()

	for id, src := range files {
		content := "---\nid: " + id + "\n---\n" + src
		err := os.WriteFile(filepath.Join(dir, id+".md"), []byte(content), 0644)
		require.NoError(t, err, "Failed to write source %s", id)
	}
}
