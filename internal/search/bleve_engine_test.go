//go:build bleve

package search

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pders01/readerlink/internal/reader"
	"github.com/pders01/readerlink/internal/storage"
)

func TestBleveEngineIndexesAndSearches(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewStore(filepath.Join(dir, "test.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = store.SaveEntries("inoreader:1", map[string][]reader.FeedEntry{
		"feed/1": {
			{ID: "a1", Title: "Hello World", URL: "https://example.com/1"},
			{ID: "a2", Title: "Golang Tips", Content: "Using bleve for full text search", URL: "https://example.com/2"},
		},
	})
	require.NoError(t, err)

	idxPath := filepath.Join(dir, "index.bleve")
	eng, err := NewBleveEngine(store, idxPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	res, err := eng.Search("Golang", 10)
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Equal(t, "a2", res[0].Entry.ID)

	res, err = eng.Search("bleve", 10)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(res), 1)

	n, err := eng.DocCount()
	require.NoError(t, err)
	require.Equal(t, 2, n)

	fi, err := os.Stat(idxPath)
	require.NoError(t, err)
	require.True(t, fi.IsDir())
}

func TestBleveEngineUpdatesAndDeletes(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewStore(filepath.Join(dir, "test.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	eng, err := NewBleveEngine(store, filepath.Join(dir, "index.bleve"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	saved, err := store.SaveEntries("newsblur:42", map[string][]reader.FeedEntry{
		"7": {{ID: "h1", Title: "Kubernetes operators"}},
	})
	require.NoError(t, err)
	eng.OnEntriesUpdated(saved)

	res, err := eng.Search("kubernetes", 10)
	require.NoError(t, err)
	require.Len(t, res, 1)

	eng.OnAccountDeleted("newsblur:42")
	n, err := eng.DocCount()
	require.NoError(t, err)
	require.Equal(t, 0, n)
}
