// Package api exposes the question-answering pipeline over HTTP. The
// main endpoint accepts a document reference plus a list of questions
// and returns one answer per question.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/auzzton/RAG-Pipeline-Gemini/internal/pipeline"
)

// RunRequest is the body of POST /hackrx/run. Documents is a URL or a
// local path to a single document.
type RunRequest struct {
	Documents string   `json:"documents"`
	Questions []string `json:"questions"`
}

// RunResponse is the success and error envelope of POST /hackrx/run.
type RunResponse struct {
	Answers            []string `json:"answers"`
	Success            bool     `json:"success"`
	Error              string   `json:"error,omitempty"`
	ProcessingTime     string   `json:"processing_time"`
	QuestionsProcessed int      `json:"questions_processed"`
	Timestamp          string   `json:"timestamp"`
}

// Server serves the pipeline over HTTP.
type Server struct {
	pipeline *pipeline.Pipeline
	apiKey   string
	addr     string
	logger   *slog.Logger

	// mu serializes document switches against question answering.
	mu              sync.Mutex
	currentDocument string
}

// NewServer creates an HTTP server around the given pipeline. apiKey
// is the bearer token required on the run endpoint.
func NewServer(p *pipeline.Pipeline, apiKey, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		pipeline: p,
		apiKey:   apiKey,
		addr:     addr,
		logger:   logger,
	}
}

// Handler returns the full route table with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/hackrx/run", s.handleRun)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleRoot)
	return corsMiddleware(s.loggingMiddleware(mux))
}

// Start runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 300 * time.Second, // LLM calls are slow
	}

	s.logger.Info("http server starting", "addr", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid API key"})
		return
	}

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
		return
	}
	if req.Documents == "" || len(req.Questions) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "documents and questions are required"})
		return
	}

	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureDocument(r.Context(), req.Documents); err != nil {
		s.logger.Error("document processing failed", "documents", req.Documents, "error", err)
		writeJSON(w, http.StatusOK, errorResponse(req.Questions, err, start))
		return
	}

	answers := s.pipeline.AnswerQuestions(r.Context(), req.Questions)

	writeJSON(w, http.StatusOK, RunResponse{
		Answers:            answers,
		Success:            true,
		ProcessingTime:     fmt.Sprintf("%.2fs", time.Since(start).Seconds()),
		QuestionsProcessed: len(req.Questions),
		Timestamp:          time.Now().Format(time.RFC3339),
	})
}

// ensureDocument ingests the referenced document, but only when it
// differs from the one already indexed.
func (s *Server) ensureDocument(ctx context.Context, documents string) error {
	if s.currentDocument == documents {
		return nil
	}

	var path string
	switch input := pipeline.ResolveInput(documents).(type) {
	case pipeline.LocalPath:
		path = string(input)
		s.logger.Info("using local document", "path", path)
	case pipeline.RemoteURL:
		s.logger.Info("downloading document", "url", string(input))
		fetched, cleanup, err := pipeline.Fetch(ctx, input)
		if err != nil {
			return err
		}
		defer cleanup()
		path = fetched
	}

	if err := s.pipeline.ResetIndex(); err != nil {
		return fmt.Errorf("reset index: %w", err)
	}
	count, err := s.pipeline.IngestFile(ctx, path, false)
	if err != nil {
		return err
	}
	s.logger.Info("document indexed", "path", path, "chunks", count)

	s.currentDocument = documents
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Document Processing API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"main":   "/hackrx/run",
			"health": "/health",
		},
	})
}

func (s *Server) authorized(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	return ok && token == s.apiKey
}

func errorResponse(questions []string, err error, start time.Time) RunResponse {
	answers := make([]string, len(questions))
	for i := range answers {
		answers[i] = fmt.Sprintf("Error processing question: %v", err)
	}
	return RunResponse{
		Answers:            answers,
		Success:            false,
		Error:              err.Error(),
		ProcessingTime:     fmt.Sprintf("%.2fs", time.Since(start).Seconds()),
		QuestionsProcessed: 0,
		Timestamp:          time.Now().Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}
