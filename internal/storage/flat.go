package storage

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/auzzton/RAG-Pipeline-Gemini/internal/chunker"
)

// FlatStore is an exact nearest-neighbor index: vectors live in a
// dense slice scanned linearly per query, with payloads held in
// parallel slices. Position i in the vector slice corresponds to
// position i in metadata, texts and ids — persistence must restore
// that correspondence exactly.
//
// Every mutation rewrites both persistence files in full. That makes
// Add O(index size), a known ceiling acceptable for small-to-medium
// corpora. Concurrent writers from separate processes are not
// supported (last writer wins); the mutex only guards in-process use.
type FlatStore struct {
	mu        sync.RWMutex
	dim       int
	indexPath string
	metaPath  string

	vectors  [][]float32
	metadata []chunker.Metadata
	texts    []string
	ids      []string
}

// flatIndexFile is the gob-encoded vector block.
type flatIndexFile struct {
	Dim     int
	Vectors [][]float32
}

// flatMetaFile holds the JSON-encoded parallel payload arrays.
type flatMetaFile struct {
	Metadata []chunker.Metadata `json:"metadata"`
	Texts    []string           `json:"texts"`
	IDs      []string           `json:"ids"`
}

// NewFlatStore creates a flat index of the given dimension persisted at
// indexPath (vectors) and metaPath (payloads). Existing files are
// reloaded so a restart sees the same index.
func NewFlatStore(dim int, indexPath, metaPath string) (*FlatStore, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dim)
	}
	s := &FlatStore{
		dim:       dim,
		indexPath: indexPath,
		metaPath:  metaPath,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Add appends entries and writes both files through before returning.
func (s *FlatStore) Add(vectors [][]float32, metadatas []chunker.Metadata, texts []string, ids []string) error {
	if len(vectors) != len(metadatas) || len(vectors) != len(texts) {
		return ErrLengthMismatch
	}
	if ids != nil && len(ids) != len(vectors) {
		return ErrLengthMismatch
	}
	for i, v := range vectors {
		if len(v) != s.dim {
			return fmt.Errorf("%w: vector %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(v), s.dim)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ids == nil {
		ids = make([]string, len(vectors))
		for i := range ids {
			ids[i] = strconv.Itoa(len(s.ids) + i)
		}
	}

	s.vectors = append(s.vectors, vectors...)
	s.metadata = append(s.metadata, metadatas...)
	s.texts = append(s.texts, texts...)
	s.ids = append(s.ids, ids...)

	return s.save()
}

// Search scans every stored vector and returns the topK nearest by
// Euclidean distance, ascending. A query of the wrong dimension is a
// hard failure: silently mismatched dimensions would corrupt distance
// semantics.
func (s *FlatStore) Search(query []float32, topK int) ([]Result, error) {
	if len(query) != s.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(query), s.dim)
	}
	if topK <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		idx  int
		dist float64
	}
	hits := make([]scored, len(s.vectors))
	for i, v := range s.vectors {
		hits[i] = scored{idx: i, dist: l2Distance(query, v)}
	}
	sort.Slice(hits, func(a, b int) bool {
		if hits[a].dist != hits[b].dist {
			return hits[a].dist < hits[b].dist
		}
		return hits[a].idx < hits[b].idx
	})

	if topK > len(hits) {
		topK = len(hits)
	}
	results := make([]Result, 0, topK)
	for _, h := range hits[:topK] {
		results = append(results, Result{
			Text:     s.texts[h.idx],
			Metadata: s.metadata[h.idx],
			ID:       s.ids[h.idx],
			Distance: h.dist,
		})
	}
	return results, nil
}

// Count reports the number of stored entries.
func (s *FlatStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// Clear resets the index to empty and persists the empty state.
func (s *FlatStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = nil
	s.metadata = nil
	s.texts = nil
	s.ids = nil
	return s.save()
}

// Close is a no-op for the file-backed store.
func (s *FlatStore) Close() error { return nil }

// save rewrites both persistence files. Callers hold the write lock.
func (s *FlatStore) save() error {
	f, err := os.Create(s.indexPath)
	if err != nil {
		return fmt.Errorf("write index file: %w", err)
	}
	err = gob.NewEncoder(f).Encode(flatIndexFile{Dim: s.dim, Vectors: s.vectors})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("encode index file: %w", err)
	}

	meta, err := json.Marshal(flatMetaFile{Metadata: s.metadata, Texts: s.texts, IDs: s.ids})
	if err != nil {
		return fmt.Errorf("encode meta file: %w", err)
	}
	if err := os.WriteFile(s.metaPath, meta, 0o644); err != nil {
		return fmt.Errorf("write meta file: %w", err)
	}
	return nil
}

// load restores both files when present. A half-present pair is
// rejected rather than guessed at.
func (s *FlatStore) load() error {
	f, err := os.Open(s.indexPath)
	if os.IsNotExist(err) {
		if _, merr := os.Stat(s.metaPath); merr == nil {
			return fmt.Errorf("meta file %s exists without index file %s", s.metaPath, s.indexPath)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	var idx flatIndexFile
	err = gob.NewDecoder(f).Decode(&idx)
	f.Close()
	if err != nil {
		return fmt.Errorf("decode index file: %w", err)
	}
	if idx.Dim != s.dim {
		return fmt.Errorf("%w: index file has dimension %d, expected %d",
			ErrDimensionMismatch, idx.Dim, s.dim)
	}

	data, err := os.ReadFile(s.metaPath)
	if err != nil {
		return fmt.Errorf("read meta file: %w", err)
	}
	var meta flatMetaFile
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("decode meta file: %w", err)
	}

	if len(idx.Vectors) != len(meta.Texts) || len(idx.Vectors) != len(meta.Metadata) || len(idx.Vectors) != len(meta.IDs) {
		return fmt.Errorf("%w: %d vectors vs %d texts, %d metadata, %d ids",
			ErrLengthMismatch, len(idx.Vectors), len(meta.Texts), len(meta.Metadata), len(meta.IDs))
	}

	s.vectors = idx.Vectors
	s.metadata = meta.Metadata
	s.texts = meta.Texts
	s.ids = meta.IDs
	return nil
}

// l2Distance is the Euclidean distance between two equal-length vectors.
func l2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
