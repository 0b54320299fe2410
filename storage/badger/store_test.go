package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/normqa/core"
	"github.com/poiesic/normqa/storage"
)

func TestStore_SectionRoundTrip(t *testing.T) {
	store, _, backend, err := NewMemoryStore()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	sections := []*core.Section{
		{
			ID:        "BSI_EN_1991-1-1_4.2.3",
			Code:      "4.2.3",
			Title:     "Density",
			Page:      18,
			Content:   "Densities of construction materials.",
			DocPrefix: "BSI_EN_1991-1-1",
		},
		{
			ID:        "BSI_EN_1991-1-1_6.1",
			Code:      "6.1",
			Title:     "Imposed loads",
			Page:      24,
			Content:   "Categories of use.",
			DocPrefix: "BSI_EN_1991-1-1",
		},
	}

	require.NoError(t, store.PutSections(ctx, sections...))

	got, err := store.GetSection(ctx, "BSI_EN_1991-1-1_4.2.3")
	require.NoError(t, err)
	assert.Equal(t, sections[0], got)

	listed, err := store.ListSections(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestStore_GetSection_NotFound(t *testing.T) {
	store, _, backend, err := NewMemoryStore()
	require.NoError(t, err)
	defer backend.Close()

	_, err = store.GetSection(context.Background(), "BSI_EN_1990_1.1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_PutSections_Invalid(t *testing.T) {
	store, _, backend, err := NewMemoryStore()
	require.NoError(t, err)
	defer backend.Close()

	err = store.PutSections(context.Background(), &core.Section{
		ID:        "BSI_EN_1990_1.1",
		DocPrefix: "BSI_EN_1991-1-1",
	})
	assert.ErrorIs(t, err, core.ErrPrefixMismatch)
}

func TestStore_ObjectRoundTrip(t *testing.T) {
	store, _, backend, err := NewMemoryStore()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	object := &core.Object{
		ID:          "BSI_EN_1991-1-1_Table_6.2",
		Type:        core.ObjectTypeTable,
		Code:        "Table_6.2",
		Title:       "Imposed loads on floors",
		Description: "qk values per category",
		Page:        26,
		DocID:       "BSI_EN_1991-1-1",
	}

	require.NoError(t, store.PutObjects(ctx, object))

	got, err := store.GetObject(ctx, object.ID)
	require.NoError(t, err)
	assert.Equal(t, object, got)

	listed, err := store.ListObjects(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, object.ID, listed[0].ID)

	// Sections and objects live in separate keyspaces.
	_, err = store.GetSection(ctx, object.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_References(t *testing.T) {
	store, _, backend, err := NewMemoryStore()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()

	t.Run("missing entry yields empty list", func(t *testing.T) {
		refs, err := store.GetReferences(ctx, "BSI_EN_1990_1.1")
		require.NoError(t, err)
		assert.Empty(t, refs)
	})

	t.Run("round trip", func(t *testing.T) {
		want := []string{"BSI_EN_1990_6.4.1", "EN 1992-1-1, 6.1", "Table 6.2"}
		require.NoError(t, store.PutReferences(ctx, "BSI_EN_1990_6.1", want))

		refs, err := store.GetReferences(ctx, "BSI_EN_1990_6.1")
		require.NoError(t, err)
		assert.Equal(t, want, refs)
	})

	t.Run("empty id rejected", func(t *testing.T) {
		err := store.PutReferences(ctx, "", []string{"x"})
		assert.ErrorIs(t, err, storage.ErrInvalidQuery)
	})
}

func TestStore_ListPrecedence(t *testing.T) {
	store, _, backend, err := NewMemoryStore()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	rules := []core.PrecedenceRule{
		{
			Key:        "BSI_EN_1991-1-1_foreword",
			Supersedes: []string{"ENV_1991-2-1"},
			Note:       "Supersedes ENV 1991-2-1.",
		},
		{
			Key:  "BSI_EN_1991-1-1_NA.1",
			Note: "National Annex values take precedence.",
		},
		{
			Key:  "BSI_EN_1990_foreword",
			Note: "Supersedes ENV 1991-1.",
		},
	}
	require.NoError(t, store.PutPrecedence(ctx, rules...))

	t.Run("filters by key prefix", func(t *testing.T) {
		got, err := store.ListPrecedence(ctx, "BSI_EN_1991-1-1")
		require.NoError(t, err)
		require.Len(t, got, 2)
		for _, rule := range got {
			assert.Contains(t, rule.Key, "BSI_EN_1991-1-1")
		}
	})

	t.Run("no matches", func(t *testing.T) {
		got, err := store.ListPrecedence(ctx, "BSI_EN_1993")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("empty key rejected", func(t *testing.T) {
		err := store.PutPrecedence(ctx, core.PrecedenceRule{Note: "no key"})
		assert.ErrorIs(t, err, storage.ErrInvalidQuery)
	})
}

func TestStore_Symbols(t *testing.T) {
	store, _, backend, err := NewMemoryStore()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	entries := []core.SymbolEntry{
		{Symbol: "Gk", Definition: "characteristic value of a permanent action", DocID: "BSI_EN_1990"},
		{Symbol: "qk", Definition: "characteristic value of a uniformly distributed load", DocID: "BSI_EN_1991-1-1"},
	}
	require.NoError(t, store.PutSymbols(ctx, entries...))

	got, err := store.ListSymbols(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, entries, got)
}

func TestStore_Documents(t *testing.T) {
	store, _, backend, err := NewMemoryStore()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	document := &core.Document{
		ID:        "BSI_EN_1991-1-1",
		Code:      "EN_1991-1-1",
		Name:      "Eurocode 1: Actions on structures",
		Pages:     44,
		Status:    "current",
		KeyPrefix: "BSI_EN_1991-1-1",
	}
	require.NoError(t, store.PutDocuments(ctx, document))

	got, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, document, got[0])

	// Missing key prefix fails validation.
	err = store.PutDocuments(ctx, &core.Document{ID: "BSI_EN_1990"})
	assert.ErrorIs(t, err, core.ErrEmptyKeyPrefix)
}

func TestStore_PutReplacesExisting(t *testing.T) {
	store, _, backend, err := NewMemoryStore()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	section := &core.Section{ID: "BSI_EN_1990_1.1", Title: "Scope"}
	require.NoError(t, store.PutSections(ctx, section))

	section.Title = "Scope and field of application"
	require.NoError(t, store.PutSections(ctx, section))

	got, err := store.GetSection(ctx, section.ID)
	require.NoError(t, err)
	assert.Equal(t, "Scope and field of application", got.Title)

	listed, err := store.ListSections(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestNewStore_NilBackend(t *testing.T) {
	_, err := NewStore(nil)
	assert.ErrorIs(t, err, ErrBackendRequired)
}
