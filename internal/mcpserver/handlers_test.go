package mcpserver

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auzzton/RAG-Pipeline-Gemini/internal/cache"
	"github.com/auzzton/RAG-Pipeline-Gemini/internal/generation"
	"github.com/auzzton/RAG-Pipeline-Gemini/internal/pipeline"
	"github.com/auzzton/RAG-Pipeline-Gemini/internal/storage"
)

type stubEmbedder struct{}

func (stubEmbedder) GenerateEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1, 0}
	}
	return out, nil
}

type stubGenerator struct{}

func (stubGenerator) ExtractStructuredQuery(context.Context, string) generation.StructuredQuery {
	return generation.StructuredQuery{}
}

func (stubGenerator) GenerateResponse(_ context.Context, _ generation.StructuredQuery, chunks []generation.Source) generation.FinalResponse {
	return generation.FinalResponse{Decision: "Approved", Justification: "ok", Sources: chunks}
}

func (stubGenerator) AnswerDirectQuestion(context.Context, string, []generation.Source) string {
	return "answer"
}

func (stubGenerator) Status() generation.Status {
	return generation.Status{ActiveProvider: "gemini", GeminiAvailable: true, GeminiModel: "gemini-1.5-flash"}
}

func newTestPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	chunkCache, err := cache.New(filepath.Join(dir, "cache"), logger)
	require.NoError(t, err)

	store, err := storage.NewFlatStore(3,
		filepath.Join(dir, "index.gob"), filepath.Join(dir, "meta.json"))
	require.NoError(t, err)

	return pipeline.New(pipeline.Config{
		Cache:     chunkCache,
		Embedder:  stubEmbedder{},
		Store:     store,
		Generator: stubGenerator{},
		Logger:    logger,
		LogsDir:   filepath.Join(dir, "logs"),
	})
}

func TestSearchHandler_EmptyIndex(t *testing.T) {
	p := newTestPipeline(t)
	handler := makeSearchHandler(p)

	_, out, err := handler(context.Background(), nil, SearchPolicyInput{Query: "anything"})
	require.NoError(t, err)
	assert.Empty(t, out.Results)
	assert.NotEmpty(t, out.Message)
}

func TestAskHandler(t *testing.T) {
	p := newTestPipeline(t)
	handler := makeAskHandler(p)

	_, out, err := handler(context.Background(), nil, AskPolicyInput{Query: "is knee surgery covered"})
	require.NoError(t, err)
	assert.Equal(t, "Approved", out.Decision)
}

func TestCacheStatusHandler_Empty(t *testing.T) {
	p := newTestPipeline(t)
	handler := makeCacheStatusHandler(p)

	_, out, err := handler(context.Background(), nil, CacheStatusInput{})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Count)
	assert.Empty(t, out.Entries)
}

func TestIndexStatusHandler(t *testing.T) {
	p := newTestPipeline(t)
	handler := makeIndexStatusHandler(p, "flat")

	_, out, err := handler(context.Background(), nil, IndexStatusInput{})
	require.NoError(t, err)
	assert.Equal(t, "flat", out.Backend)
	assert.Equal(t, 0, out.TotalChunks)
	assert.Equal(t, "gemini", out.ActiveProvider)
	assert.Equal(t, "gemini-1.5-flash", out.GeminiModel)
}
