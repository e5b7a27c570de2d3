package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auzzton/RAG-Pipeline-Gemini/internal/chunker"
)

func newTestStore(t *testing.T, dim int) *FlatStore {
	t.Helper()
	dir := t.TempDir()
	store, err := NewFlatStore(dim, filepath.Join(dir, "index.gob"), filepath.Join(dir, "meta.json"))
	require.NoError(t, err)
	return store
}

func metas(texts ...string) []chunker.Metadata {
	out := make([]chunker.Metadata, len(texts))
	for i, text := range texts {
		out[i] = chunker.Metadata{
			Source:      "test.pdf",
			ChunkNumber: i + 1,
			ChunkType:   "default",
			ChunkSize:   len(text),
		}
	}
	return out
}

func TestFlatStore_SearchOrdering(t *testing.T) {
	store := newTestStore(t, 2)

	vectors := [][]float32{
		{10, 0}, // far
		{1, 0},  // near
		{5, 0},  // middle
	}
	texts := []string{"far", "near", "middle"}
	require.NoError(t, store.Add(vectors, metas(texts...), texts, nil))

	results, err := store.Search([]float32{0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "near", results[0].Text)
	assert.Equal(t, "middle", results[1].Text)
	assert.Equal(t, "far", results[2].Text)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].Distance, results[i].Distance)
	}
}

func TestFlatStore_TopKLargerThanIndex(t *testing.T) {
	store := newTestStore(t, 2)

	vectors := [][]float32{{1, 0}, {0, 1}}
	texts := []string{"a", "b"}
	require.NoError(t, store.Add(vectors, metas(texts...), texts, nil))

	results, err := store.Search([]float32{0, 0}, 50)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestFlatStore_SequentialIDs(t *testing.T) {
	store := newTestStore(t, 2)

	texts := []string{"a", "b"}
	require.NoError(t, store.Add([][]float32{{1, 0}, {0, 1}}, metas(texts...), texts, nil))
	require.NoError(t, store.Add([][]float32{{1, 1}}, metas("c"), []string{"c"}, nil))

	results, err := store.Search([]float32{0, 0}, 3)
	require.NoError(t, err)

	seen := map[string]string{}
	for _, r := range results {
		seen[r.Text] = r.ID
	}
	assert.Equal(t, "0", seen["a"])
	assert.Equal(t, "1", seen["b"])
	assert.Equal(t, "2", seen["c"])
}

func TestFlatStore_AddAccumulates(t *testing.T) {
	store := newTestStore(t, 2)

	textsN := []string{"n1", "n2", "n3"}
	require.NoError(t, store.Add([][]float32{{1, 0}, {0, 1}, {1, 1}}, metas(textsN...), textsN, nil))
	assert.Equal(t, 3, store.Count())

	textsM := []string{"m1", "m2"}
	require.NoError(t, store.Add([][]float32{{2, 0}, {0, 2}}, metas(textsM...), textsM, nil))
	assert.Equal(t, 5, store.Count())
}

func TestFlatStore_SaveReloadCorrespondence(t *testing.T) {
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "index.gob")
	metaPath := filepath.Join(dir, "meta.json")

	store, err := NewFlatStore(3, indexPath, metaPath)
	require.NoError(t, err)

	vectors := [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	texts := []string{"alpha", "beta", "gamma"}
	require.NoError(t, store.Add(vectors, metas(texts...), texts, nil))
	require.NoError(t, store.Close())

	reloaded, err := NewFlatStore(3, indexPath, metaPath)
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.Count())

	// Nearest neighbour of each stored vector is still its own entry.
	for i, v := range vectors {
		results, err := reloaded.Search(v, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, texts[i], results[0].Text)
		assert.InDelta(t, 0.0, results[0].Distance, 1e-9)
		assert.Equal(t, i+1, results[0].Metadata.ChunkNumber)
	}
}

func TestFlatStore_DimensionMismatch(t *testing.T) {
	store := newTestStore(t, 2)

	err := store.Add([][]float32{{1, 0, 0}}, metas("a"), []string{"a"}, nil)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))

	_, err = store.Search([]float32{1, 0, 0}, 1)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
}

func TestFlatStore_LengthMismatch(t *testing.T) {
	store := newTestStore(t, 2)

	err := store.Add([][]float32{{1, 0}}, metas("a", "b"), []string{"a"}, nil)
	assert.True(t, errors.Is(err, ErrLengthMismatch))
}

func TestFlatStore_Clear(t *testing.T) {
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "index.gob")
	metaPath := filepath.Join(dir, "meta.json")

	store, err := NewFlatStore(2, indexPath, metaPath)
	require.NoError(t, err)

	texts := []string{"a"}
	require.NoError(t, store.Add([][]float32{{1, 0}}, metas(texts...), texts, nil))
	require.NoError(t, store.Clear())
	assert.Equal(t, 0, store.Count())

	// Clear persists: a reload sees an empty index.
	reloaded, err := NewFlatStore(2, indexPath, metaPath)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.Count())
}

func TestFlatStore_EmptySearch(t *testing.T) {
	store := newTestStore(t, 2)

	results, err := store.Search([]float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		distance float64
		want     float64
	}{
		{0, 1},
		{0.5, 0.5},
		{1, 0},
		{0.12345, 0.8766}, // rounded to 4 decimal places
		{1.5, -0.5},       // distances above 1 yield negative confidence
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Confidence(tt.distance))
	}
}
