// Package pipeline orchestrates the full retrieval flow: document
// extraction, chunking, caching, embedding, indexing and answer
// generation. All components are owned by an explicit Pipeline value;
// there is no package-level state.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/auzzton/RAG-Pipeline-Gemini/internal/cache"
	"github.com/auzzton/RAG-Pipeline-Gemini/internal/chunker"
	"github.com/auzzton/RAG-Pipeline-Gemini/internal/document"
	"github.com/auzzton/RAG-Pipeline-Gemini/internal/generation"
	"github.com/auzzton/RAG-Pipeline-Gemini/internal/storage"
)

// Default retrieval depths. Interactive queries use DefaultTopK; the
// batch question endpoint retrieves deeper for recall.
const (
	DefaultTopK      = 5
	DefaultBatchTopK = 7
)

// Embedder turns texts into vectors.
type Embedder interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces structured decisions and answers from retrieved
// context.
type Generator interface {
	ExtractStructuredQuery(ctx context.Context, query string) generation.StructuredQuery
	GenerateResponse(ctx context.Context, query generation.StructuredQuery, chunks []generation.Source) generation.FinalResponse
	AnswerDirectQuestion(ctx context.Context, question string, chunks []generation.Source) string
	Status() generation.Status
}

// RetrievedChunk is one retrieval hit with its provenance and a
// confidence derived from the index distance.
type RetrievedChunk struct {
	Chunk      string  `json:"chunk"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
}

// IngestResult summarizes a directory ingestion run.
type IngestResult struct {
	Processed   int
	Skipped     int
	Failed      []FailedFile
	TotalChunks int
	Duration    time.Duration
}

// FailedFile records a file that could not be ingested.
type FailedFile struct {
	Path   string
	Reason string
}

// Config assembles a Pipeline. Cache may be nil to disable chunk
// caching altogether.
type Config struct {
	Cache     *cache.Cache
	Embedder  Embedder
	Store     storage.VectorStore
	Generator Generator
	Logger    *slog.Logger
	LogsDir   string
	TopK      int
	BatchTopK int
}

// Pipeline ties the processing stages together for one document set.
type Pipeline struct {
	cache     *cache.Cache
	embedder  Embedder
	store     storage.VectorStore
	generator Generator
	logger    *slog.Logger
	logsDir   string
	topK      int
	batchTopK int

	// extract is swappable for tests.
	extract func(path string) (*document.Extraction, error)
}

// New creates a pipeline from the given components.
func New(cfg Config) *Pipeline {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.LogsDir == "" {
		cfg.LogsDir = "logs"
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.BatchTopK <= 0 {
		cfg.BatchTopK = DefaultBatchTopK
	}
	return &Pipeline{
		cache:     cfg.Cache,
		embedder:  cfg.Embedder,
		store:     cfg.Store,
		generator: cfg.Generator,
		logger:    cfg.Logger,
		logsDir:   cfg.LogsDir,
		topK:      cfg.TopK,
		batchTopK: cfg.BatchTopK,
		extract:   document.Extract,
	}
}

// IngestFile processes one document into the index: cached chunks are
// reused when the file content is unchanged, otherwise the document is
// extracted, classified, chunked and cached. Either way the chunks are
// embedded and added to the index. force bypasses cache reads. Returns
// the number of chunks indexed.
func (p *Pipeline) IngestFile(ctx context.Context, path string, force bool) (int, error) {
	var chunks []chunker.Chunk

	if p.cache != nil && !force {
		chunks = p.cache.Get(path)
		if chunks != nil {
			p.logger.Info("using cached chunks", "path", path, "chunks", len(chunks))
		}
	}

	if chunks == nil {
		extraction, err := p.extract(path)
		if err != nil {
			return 0, fmt.Errorf("extract: %w", err)
		}

		docType := document.DetectType(extraction.Text, filepath.Base(path))
		chunks = chunker.ChunkText(extraction.Text, filepath.Base(path), string(docType))
		for i := range chunks {
			chunks[i].Metadata.FileType = extraction.FileType
			chunks[i].Metadata.TotalPages = extraction.TotalPages
			chunks[i].Metadata.TotalParagraphs = extraction.TotalParagraphs
		}
		p.logger.Info("chunked document",
			"path", path, "type", docType, "chunks", len(chunks))

		if p.cache != nil {
			p.cache.Put(path, chunks)
		}
	}

	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	metadatas := make([]chunker.Metadata, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
		metadatas[i] = c.Metadata
	}

	vectors, err := p.embedder.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embeddings: %w", err)
	}
	if err := p.store.Add(vectors, metadatas, texts, nil); err != nil {
		return 0, fmt.Errorf("index add: %w", err)
	}

	return len(chunks), nil
}

// IngestDir processes every supported document directly under dir.
// Hidden files, editor lock files (~ prefix) and unsupported
// extensions are skipped; a file that fails is recorded and the rest
// continue.
func (p *Pipeline) IngestDir(ctx context.Context, dir string, force bool) (*IngestResult, error) {
	start := time.Now()
	result := &IngestResult{}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read documents directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, "~") || strings.HasPrefix(name, ".") {
			result.Skipped++
			continue
		}
		switch strings.ToLower(filepath.Ext(name)) {
		case ".pdf", ".docx":
		default:
			result.Skipped++
			continue
		}

		path := filepath.Join(dir, name)
		count, err := p.IngestFile(ctx, path, force)
		if err != nil {
			p.logger.Warn("failed to ingest document", "path", path, "error", err)
			result.Failed = append(result.Failed, FailedFile{Path: path, Reason: err.Error()})
			continue
		}
		result.Processed++
		result.TotalChunks += count
	}

	result.Duration = time.Since(start)
	p.logger.Info("ingestion complete",
		"processed", result.Processed,
		"skipped", result.Skipped,
		"failed", len(result.Failed),
		"chunks", result.TotalChunks,
		"duration", result.Duration,
	)
	return result, nil
}

// Retrieve embeds the query and returns the topK nearest chunks. An
// empty index or no hits is an empty slice, not an error.
func (p *Pipeline) Retrieve(ctx context.Context, query string, topK int) ([]RetrievedChunk, error) {
	vectors, err := p.embedder.GenerateEmbeddings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return []RetrievedChunk{}, nil
	}

	results, err := p.store.Search(vectors[0], topK)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	chunks := make([]RetrievedChunk, len(results))
	for i, r := range results {
		chunks[i] = RetrievedChunk{
			Chunk:      r.Text,
			Source:     r.Metadata.Source,
			Confidence: storage.Confidence(r.Distance),
		}
	}
	return chunks, nil
}

// Answer runs the full structured claim evaluation for a query and
// logs the interaction for later inspection.
func (p *Pipeline) Answer(ctx context.Context, query string) (generation.FinalResponse, error) {
	structured := p.generator.ExtractStructuredQuery(ctx, query)

	retrieved, err := p.Retrieve(ctx, query, p.topK)
	if err != nil {
		return generation.FinalResponse{}, err
	}

	response := p.generator.GenerateResponse(ctx, structured, toSources(retrieved))
	p.logInteraction(query, structured, retrieved, response)
	return response, nil
}

// AnswerQuestions answers a batch of free-text questions. Failures are
// isolated per question: a question that cannot be answered yields an
// explanatory string in its slot, never an error for the batch.
func (p *Pipeline) AnswerQuestions(ctx context.Context, questions []string) []string {
	answers := make([]string, len(questions))
	for i, question := range questions {
		p.logger.Info("processing question", "index", i+1, "total", len(questions))
		answers[i] = p.answerQuestion(ctx, question)
	}
	return answers
}

func (p *Pipeline) answerQuestion(ctx context.Context, question string) string {
	retrieved, err := p.Retrieve(ctx, question, p.batchTopK)
	if err != nil {
		p.logger.Error("question retrieval failed", "question", question, "error", err)
		return fmt.Sprintf("Error processing question: %v", err)
	}
	if len(retrieved) == 0 {
		return "I couldn't find relevant information in the document to answer this question."
	}

	answer := strings.TrimSpace(p.generator.AnswerDirectQuestion(ctx, question, toSources(retrieved)))
	if answer == "" {
		return "Unable to generate a proper response."
	}
	return answer
}

// Status reports provider availability from the underlying generator.
func (p *Pipeline) Status() generation.Status {
	return p.generator.Status()
}

// IndexCount reports how many chunks are currently indexed.
func (p *Pipeline) IndexCount() int {
	return p.store.Count()
}

// ResetIndex drops all indexed chunks. Used when switching to a new
// document set.
func (p *Pipeline) ResetIndex() error {
	return p.store.Clear()
}

// CacheEntries lists cached documents, or nil when caching is disabled.
func (p *Pipeline) CacheEntries() []cache.EntrySummary {
	if p.cache == nil {
		return nil
	}
	return p.cache.Entries()
}

func toSources(retrieved []RetrievedChunk) []generation.Source {
	sources := make([]generation.Source, len(retrieved))
	for i, r := range retrieved {
		sources[i] = generation.Source{
			Chunk:      r.Chunk,
			Source:     r.Source,
			Confidence: r.Confidence,
		}
	}
	return sources
}

// logInteraction writes the full query/answer exchange as a timestamped
// JSON file. Best-effort: failures are logged and swallowed.
func (p *Pipeline) logInteraction(query string, structured generation.StructuredQuery, retrieved []RetrievedChunk, response generation.FinalResponse) {
	if err := os.MkdirAll(p.logsDir, 0o755); err != nil {
		p.logger.Warn("failed to create logs directory", "error", err)
		return
	}

	record := struct {
		Query           string                     `json:"query"`
		StructuredQuery generation.StructuredQuery `json:"structured_query"`
		RetrievedChunks []RetrievedChunk           `json:"retrieved_chunks"`
		FinalResponse   generation.FinalResponse   `json:"final_response"`
	}{query, structured, retrieved, response}

	data, err := json.MarshalIndent(record, "", "    ")
	if err != nil {
		p.logger.Warn("failed to marshal interaction log", "error", err)
		return
	}

	path := filepath.Join(p.logsDir, time.Now().Format("20060102_150405")+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		p.logger.Warn("failed to write interaction log", "path", path, "error", err)
	}
}
