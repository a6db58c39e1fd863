package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDocumentStoreCRUD(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("insert assigns id when absent", func(t *testing.T) {
		t.Parallel()
		s := NewMemoryDocumentStore()

		doc, err := s.Insert(ctx, CollectionSimulations, Document{"name": "dc-1"})
		require.NoError(t, err)
		assert.NotEmpty(t, doc.ID())
	})

	t.Run("insert keeps caller-provided id", func(t *testing.T) {
		t.Parallel()
		s := NewMemoryDocumentStore()

		doc, err := s.Insert(ctx, CollectionSimulations, Document{IDField: "s1", "name": "dc-1"})
		require.NoError(t, err)
		assert.Equal(t, "s1", doc.ID())
	})

	t.Run("fetch by id", func(t *testing.T) {
		t.Parallel()
		s := NewMemoryDocumentStore()
		_, err := s.Insert(ctx, CollectionSimulations, Document{IDField: "s1", "name": "dc-1"})
		require.NoError(t, err)

		doc, err := s.FetchOne(ctx, CollectionSimulations, ByID("s1"))
		require.NoError(t, err)
		assert.Equal(t, "dc-1", doc["name"])

		_, err = s.FetchOne(ctx, CollectionSimulations, ByID("missing"))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("collections are isolated", func(t *testing.T) {
		t.Parallel()
		s := NewMemoryDocumentStore()
		_, err := s.Insert(ctx, CollectionSimulations, Document{IDField: "x"})
		require.NoError(t, err)

		_, err = s.FetchOne(ctx, CollectionPortfolios, ByID("x"))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("update replaces the document", func(t *testing.T) {
		t.Parallel()
		s := NewMemoryDocumentStore()
		_, err := s.Insert(ctx, CollectionSimulations, Document{IDField: "s1", "name": "old"})
		require.NoError(t, err)

		updated, err := s.Update(ctx, CollectionSimulations, "s1", Document{"name": "new"})
		require.NoError(t, err)
		assert.Equal(t, "s1", updated.ID(), "update must preserve the id")
		assert.Equal(t, "new", updated["name"])

		_, err = s.Update(ctx, CollectionSimulations, "missing", Document{})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete returns the deleted document", func(t *testing.T) {
		t.Parallel()
		s := NewMemoryDocumentStore()
		_, err := s.Insert(ctx, CollectionSimulations, Document{IDField: "s1", "name": "dc-1"})
		require.NoError(t, err)

		deleted, err := s.Delete(ctx, CollectionSimulations, "s1")
		require.NoError(t, err)
		assert.Equal(t, "dc-1", deleted["name"])

		_, err = s.Delete(ctx, CollectionSimulations, "s1")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryDocumentStoreContainment(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewMemoryDocumentStore()
	_, err := s.Insert(ctx, CollectionUsers, Document{
		IDField: "u1",
		"sub":   "auth0|alice",
		"email": "alice@example.com",
		"authorizations": []any{
			map[string]any{"simulationId": "s1", "authorizationLevel": "OWN"},
			map[string]any{"simulationId": "s2", "authorizationLevel": "VIEW"},
		},
	})
	require.NoError(t, err)
	_, err = s.Insert(ctx, CollectionUsers, Document{
		IDField:          "u2",
		"sub":            "auth0|bob",
		"email":          "bob@example.com",
		"authorizations": []any{},
	})
	require.NoError(t, err)

	t.Run("scalar equality", func(t *testing.T) {
		t.Parallel()
		doc, err := s.FetchOne(ctx, CollectionUsers, Filter{"sub": "auth0|alice"})
		require.NoError(t, err)
		assert.Equal(t, "u1", doc.ID())
	})

	t.Run("array element containment", func(t *testing.T) {
		t.Parallel()
		docs, err := s.FetchAll(ctx, CollectionUsers, Filter{
			"authorizations": []any{map[string]any{"simulationId": "s1"}},
		})
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "u1", docs[0].ID())
	})

	t.Run("partial object containment inside array elements", func(t *testing.T) {
		t.Parallel()
		// The filter element omits authorizationLevel; containment still
		// matches the fuller stored element.
		docs, err := s.FetchAll(ctx, CollectionUsers, Filter{
			"authorizations": []any{map[string]any{"simulationId": "s2"}},
		})
		require.NoError(t, err)
		assert.Len(t, docs, 1)
	})

	t.Run("no match when element absent", func(t *testing.T) {
		t.Parallel()
		docs, err := s.FetchAll(ctx, CollectionUsers, Filter{
			"authorizations": []any{map[string]any{"simulationId": "s9"}},
		})
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("empty filter matches everything", func(t *testing.T) {
		t.Parallel()
		docs, err := s.FetchAll(ctx, CollectionUsers, Filter{})
		require.NoError(t, err)
		assert.Len(t, docs, 2)
	})

	t.Run("multiple filter entries all required", func(t *testing.T) {
		t.Parallel()
		_, err := s.FetchOne(ctx, CollectionUsers, Filter{
			"sub":   "auth0|alice",
			"email": "bob@example.com",
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
