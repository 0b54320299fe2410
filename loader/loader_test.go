package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/normqa/ai/mock"
	badgerstore "github.com/poiesic/normqa/storage/badger"
)

func writeDump(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadDir(t *testing.T) {
	ctx := context.Background()
	store, index, backend, err := badgerstore.NewMemoryStore()
	require.NoError(t, err)
	defer backend.Close()

	dir := t.TempDir()
	writeDump(t, dir, "documents.json", `{
		"BSI_EN_1991-1-1": {"code": "EN 1991-1-1", "name": "Eurocode 1", "pages": 44, "status": "current", "key_prefix": "BSI_EN_1991-1-1"}
	}`)
	writeDump(t, dir, "sections.json", `{
		"BSI_EN_1991-1-1_4.2.3": {"code": "4.2.3", "title": "Density", "page": 18, "content": "Densities of materials.", "doc_prefix": "BSI_EN_1991-1-1"},
		"BSI_EN_1991-1-1_6.1": {"code": "6.1", "title": "Imposed loads", "page": 24, "content": "Categories of use.", "doc_prefix": "BSI_EN_1991-1-1"}
	}`)
	writeDump(t, dir, "objects.json", `{
		"BSI_EN_1991-1-1_Table_6.2": {"type": "table", "code": "Table_6.2", "title": "Imposed loads on floors", "description": "qk values", "page": 26, "doc_id": "BSI_EN_1991-1-1"}
	}`)
	writeDump(t, dir, "references.json", `{
		"BSI_EN_1991-1-1_6.1": ["BSI_EN_1991-1-1_Table_6.2", "EN_1990_A1.1"]
	}`)
	writeDump(t, dir, "precedence.json", `{
		"BSI_EN_1991-1-1_foreword": {"supersedes": ["ENV_1991-2-1"], "superseded_by": [], "note": "Supersedes ENV 1991-2-1."}
	}`)
	writeDump(t, dir, "symbols.json", `{
		"qk": {"definition": "characteristic value of a uniformly distributed load", "doc_id": "BSI_EN_1991-1-1"}
	}`)

	l, err := New(store, index, mock.NewMockEmbedder(), WithEmbedBatchSize(1))
	require.NoError(t, err)
	defer l.Release()

	stats, err := l.LoadDir(ctx, dir)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Documents)
	assert.Equal(t, 2, stats.Sections)
	assert.Equal(t, 1, stats.Objects)
	assert.Equal(t, 1, stats.References)
	assert.Equal(t, 1, stats.Precedence)
	assert.Equal(t, 1, stats.Symbols)

	// Store round-trip
	section, err := store.GetSection(ctx, "BSI_EN_1991-1-1_4.2.3")
	require.NoError(t, err)
	assert.Equal(t, "Density", section.Title)
	assert.Equal(t, 18, section.Page)

	refs, err := store.GetReferences(ctx, "BSI_EN_1991-1-1_6.1")
	require.NoError(t, err)
	assert.Len(t, refs, 2)

	symbols, err := store.ListSymbols(ctx)
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	assert.Equal(t, "qk", symbols[0].Symbol)

	// Sections were embedded and are searchable.
	vector := mock.DeterministicVector("Density\nDensities of materials.", 384)
	matches, err := index.Search(ctx, vector, 2)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "BSI_EN_1991-1-1_4.2.3", matches[0].ID)
}

func TestLoadDirMissingFiles(t *testing.T) {
	ctx := context.Background()
	store, index, backend, err := badgerstore.NewMemoryStore()
	require.NoError(t, err)
	defer backend.Close()

	dir := t.TempDir()
	writeDump(t, dir, "sections.json", `{
		"BSI_EN_1990_1.1": {"code": "1.1", "title": "Scope", "page": 7, "content": "scope", "doc_prefix": "BSI_EN_1990"}
	}`)

	l, err := New(store, index, mock.NewMockEmbedder())
	require.NoError(t, err)
	defer l.Release()

	stats, err := l.LoadDir(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Documents)
	assert.Equal(t, 1, stats.Sections)
}

func TestLoadDirMalformedFile(t *testing.T) {
	ctx := context.Background()
	store, index, backend, err := badgerstore.NewMemoryStore()
	require.NoError(t, err)
	defer backend.Close()

	dir := t.TempDir()
	writeDump(t, dir, "sections.json", `{not json`)

	l, err := New(store, index, mock.NewMockEmbedder())
	require.NoError(t, err)
	defer l.Release()

	_, err = l.LoadDir(ctx, dir)
	assert.Error(t, err)
}

func TestNewValidation(t *testing.T) {
	store, index, backend, err := badgerstore.NewMemoryStore()
	require.NoError(t, err)
	defer backend.Close()

	t.Run("nil store", func(t *testing.T) {
		_, err := New(nil, index, mock.NewMockEmbedder())
		assert.ErrorIs(t, err, ErrStoreRequired)
	})

	t.Run("nil index", func(t *testing.T) {
		_, err := New(store, nil, mock.NewMockEmbedder())
		assert.ErrorIs(t, err, ErrVectorIndexRequired)
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := New(store, index, nil)
		assert.ErrorIs(t, err, ErrEmbedderRequired)
	})
}
