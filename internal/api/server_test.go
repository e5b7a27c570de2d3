package api

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auzzton/RAG-Pipeline-Gemini/internal/generation"
	"github.com/auzzton/RAG-Pipeline-Gemini/internal/pipeline"
	"github.com/auzzton/RAG-Pipeline-Gemini/internal/storage"
)

const testAPIKey = "test-api-key"

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
	return generation.FinalResponse{Decision: "Approved", Sources: chunks}
}

func (stubGenerator) AnswerDirectQuestion(_ context.Context, question string, _ []generation.Source) string {
	return "answer to: " + question
}

func (stubGenerator) Status() generation.Status {
	return generation.Status{ActiveProvider: "stub"}
}

// writeTestDOCX builds a minimal valid DOCX file.
func writeTestDOCX(t *testing.T, dir string, paragraphs ...string) string {
	t.Helper()

	var body bytes.Buffer
	for _, p := range paragraphs {
		fmt.Fprintf(&body, `<w:p><w:r><w:t>%s</w:t></w:r></w:p>`, p)
	}
	documentXML := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>` + body.String() + `</w:body></w:document>`

	path := filepath.Join(dir, "policy.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	entry, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = entry.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	return path
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()

	store, err := storage.NewFlatStore(3,
		filepath.Join(dir, "index.gob"), filepath.Join(dir, "meta.json"))
	require.NoError(t, err)

	p := pipeline.New(pipeline.Config{
		Embedder:  stubEmbedder{},
		Store:     store,
		Generator: stubGenerator{},
		Logger:    quietLogger(),
		LogsDir:   filepath.Join(dir, "logs"),
	})

	return NewServer(p, testAPIKey, ":0", quietLogger())
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func runRequest(t *testing.T, body RunRequest, token string) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/hackrx/run", bytes.NewReader(data))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestHandleRun(t *testing.T) {
	server := newTestServer(t)
	handler := server.Handler()

	docPath := writeTestDOCX(t, t.TempDir(), "This insurance policy covers knee surgery with a 30 day waiting period.")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, runRequest(t, RunRequest{
		Documents: docPath,
		Questions: []string{"What is the waiting period?", "Is knee surgery covered?"},
	}, testAPIKey))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp RunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.QuestionsProcessed)
	require.Len(t, resp.Answers, 2)
	assert.Equal(t, "answer to: What is the waiting period?", resp.Answers[0])
	assert.NotEmpty(t, resp.ProcessingTime)
	assert.NotEmpty(t, resp.Timestamp)
}

func TestHandleRun_InvalidToken(t *testing.T) {
	server := newTestServer(t)
	handler := server.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, runRequest(t, RunRequest{Documents: "/x.pdf", Questions: []string{"q"}}, "wrong-key"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, runRequest(t, RunRequest{Documents: "/x.pdf", Questions: []string{"q"}}, ""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleRun_BadBody(t *testing.T) {
	server := newTestServer(t)
	handler := server.Handler()

	req := httptest.NewRequest(http.MethodPost, "/hackrx/run", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Authorization", "Bearer "+testAPIKey)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRun_MissingFields(t *testing.T) {
	server := newTestServer(t)
	handler := server.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, runRequest(t, RunRequest{Documents: "", Questions: nil}, testAPIKey))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRun_DocumentFailure(t *testing.T) {
	server := newTestServer(t)
	handler := server.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, runRequest(t, RunRequest{
		Documents: "/does/not/exist.pdf",
		Questions: []string{"q1", "q2"},
	}, testAPIKey))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp RunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
	assert.Equal(t, 0, resp.QuestionsProcessed)
	require.Len(t, resp.Answers, 2)
	for _, a := range resp.Answers {
		assert.Contains(t, a, "Error processing question")
	}
}

func TestHandleRun_ReusesIndexedDocument(t *testing.T) {
	server := newTestServer(t)
	handler := server.Handler()

	docPath := writeTestDOCX(t, t.TempDir(), "Policy text for reuse test.")

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, runRequest(t, RunRequest{
			Documents: docPath,
			Questions: []string{"q"},
		}, testAPIKey))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	// Second request must not re-ingest: index still holds one pass.
	assert.Equal(t, 1, server.pipeline.IndexCount())
}

func TestHandleRun_DownloadsRemoteDocument(t *testing.T) {
	docDir := t.TempDir()
	docPath := writeTestDOCX(t, docDir, "Remote policy document text.")
	docBytes, err := os.ReadFile(docPath)
	require.NoError(t, err)

	fileServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(docBytes)
	}))
	defer fileServer.Close()

	server := newTestServer(t)
	handler := server.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, runRequest(t, RunRequest{
		Documents: fileServer.URL + "/policy.docx",
		Questions: []string{"what does it say"},
	}, testAPIKey))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp RunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, server.pipeline.IndexCount())
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t)
	handler := server.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestRootEndpoint(t *testing.T) {
	server := newTestServer(t)
	handler := server.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Document Processing API", body["message"])

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
