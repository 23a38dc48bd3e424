package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/tagml/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contractDocument builds a small document exercising layers, text and annotations.
func contractDocument(id string) *domain.Document {
	return &domain.Document{
		ID:   id,
		Name: id + ".tagml",
		Root: 1,
		Markups: []*domain.Markup{
			{ID: 1, Tag: "line", Layers: []string{domain.DefaultLayer}},
			{ID: 2, Tag: "q", Layers: []string{"a"}, Annotations: []domain.Annotation{
				{Name: "who", Value: domain.StringValue("Kirk")},
			}},
		},
		Layers: []domain.Layer{
			{Name: domain.DefaultLayer, RootMarkup: 1},
			{Name: "a", RootMarkup: 2},
		},
		TextNodes: []domain.TextNode{{ID: 1, Content: "text"}},
		Associations: []domain.TextAssociation{
			{Text: 1, Markup: 1, Layer: domain.DefaultLayer},
			{Text: 1, Markup: 2, Layer: "a"},
		},
	}
}

// RunDocumentStoreContract runs a suite of tests to verify that a DocumentStore implementation
// adheres to the defined interface contract.
func RunDocumentStoreContract(t *testing.T, store DocumentStore) {
	ctx := context.Background()
	docID := "contract-test-doc-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		doc := contractDocument(docID)

		err := store.Save(ctx, docID, doc)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, docID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, doc.Root, loaded.Root)
		assert.Equal(t, "text", loaded.Text())
		require.Len(t, loaded.Markups, 2)
		assert.Equal(t, "q|a", loaded.Markups[1].ExtendedTag())
		assert.Equal(t, domain.StringValue("Kirk"), loaded.Markups[1].Annotations[0].Value)
		assert.Equal(t, []string{"text"}, loaded.TextsOf(2))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+docID)
		assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, docID, contractDocument(docID))
		require.NoError(t, err)

		err = store.Delete(ctx, docID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, docID)
		assert.ErrorIs(t, err, domain.ErrDocumentNotFound, "Load after Delete should return ErrDocumentNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := docID + "-1"
		id2 := docID + "-2"
		_ = store.Save(ctx, id1, contractDocument(id1))
		_ = store.Save(ctx, id2, contractDocument(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
