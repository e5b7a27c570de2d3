// Package cache persists chunked documents keyed by a content hash of
// the source file, so unchanged files skip re-extraction and
// re-chunking on subsequent runs. Caching is best-effort: read and
// write failures degrade to cache misses and never fail the pipeline.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/auzzton/RAG-Pipeline-Gemini/internal/chunker"
)

// hashBlockSize is the read block size used when streaming a file
// through the hash.
const hashBlockSize = 4096

// Entry is the persisted cache record for one (filename, content) pair.
type Entry struct {
	FileHash  string          `json:"file_hash"`
	Chunks    []chunker.Chunk `json:"chunks"`
	CreatedAt time.Time       `json:"created_at"`
	FilePath  string          `json:"file_path"`
}

// EntrySummary is the observability view of a cache entry.
type EntrySummary struct {
	Filename   string    `json:"filename"`
	CreatedAt  time.Time `json:"created_at"`
	ChunkCount int       `json:"chunks_count"`
	FileHash   string    `json:"file_hash"` // truncated for display
}

// Cache stores chunk lists on disk, one JSON file per entry.
type Cache struct {
	dir    string
	logger *slog.Logger
}

// New creates a chunk cache rooted at dir, creating it if needed.
func New(dir string, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{dir: dir, logger: logger}, nil
}

// HashFile computes the SHA-256 digest of a file's content, streaming
// it in fixed-size blocks. A hash match is treated as proof of content
// equality everywhere in the cache.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for hashing: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, hashBlockSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// entryPath derives the cache file for a source path and content hash:
// <stem>_<hash>.json under the cache directory.
func (c *Cache) entryPath(path, hash string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return filepath.Join(c.dir, stem+"_"+hash+".json")
}

// Get returns the cached chunks for path, or nil if there is no entry
// whose stored hash matches the file's current content. Any error on
// the way is logged and treated as a miss.
func (c *Cache) Get(path string) []chunker.Chunk {
	hash, err := HashFile(path)
	if err != nil {
		c.logger.Warn("cache hash failed, treating as miss", "path", path, "error", err)
		return nil
	}

	data, err := os.ReadFile(c.entryPath(path, hash))
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn("cache read failed, treating as miss", "path", path, "error", err)
		}
		return nil
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Warn("cache entry corrupt, treating as miss", "path", path, "error", err)
		return nil
	}
	if entry.FileHash != hash {
		// Stale entry under a colliding name; force reprocessing.
		return nil
	}

	c.logger.Debug("cache hit", "path", path, "chunks", len(entry.Chunks))
	return entry.Chunks
}

// Put persists chunks for path under its current content hash. Write
// failures are logged and ignored.
func (c *Cache) Put(path string, chunks []chunker.Chunk) {
	hash, err := HashFile(path)
	if err != nil {
		c.logger.Warn("cache hash failed, skipping write", "path", path, "error", err)
		return
	}

	entry := Entry{
		FileHash:  hash,
		Chunks:    chunks,
		CreatedAt: time.Now(),
		FilePath:  path,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.Warn("cache marshal failed, skipping write", "path", path, "error", err)
		return
	}
	if err := os.WriteFile(c.entryPath(path, hash), data, 0o644); err != nil {
		c.logger.Warn("cache write failed", "path", path, "error", err)
		return
	}
	c.logger.Debug("cached chunks", "path", path, "chunks", len(chunks))
}

// Clear removes the entry for path, or every entry when path is empty.
func (c *Cache) Clear(path string) error {
	if path != "" {
		hash, err := HashFile(path)
		if err != nil {
			return err
		}
		if err := os.Remove(c.entryPath(path, hash)); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}

	files, err := filepath.Glob(filepath.Join(c.dir, "*.json"))
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := os.Remove(f); err != nil {
			return err
		}
	}
	return nil
}

// Entries returns summary metadata for every cache entry. Unreadable
// entries are skipped with a warning.
func (c *Cache) Entries() []EntrySummary {
	files, err := filepath.Glob(filepath.Join(c.dir, "*.json"))
	if err != nil {
		c.logger.Warn("cache listing failed", "error", err)
		return nil
	}

	var out []EntrySummary
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			c.logger.Warn("cache entry unreadable", "file", f, "error", err)
			continue
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			c.logger.Warn("cache entry corrupt", "file", f, "error", err)
			continue
		}
		hash := entry.FileHash
		if len(hash) > 8 {
			hash = hash[:8] + "..."
		}
		out = append(out, EntrySummary{
			Filename:   filepath.Base(entry.FilePath),
			CreatedAt:  entry.CreatedAt,
			ChunkCount: len(entry.Chunks),
			FileHash:   hash,
		})
	}
	return out
}
