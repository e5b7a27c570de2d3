// Package main provides the HTTP and MCP server entry point for the
// policy document question answering service.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/auzzton/RAG-Pipeline-Gemini/internal/api"
	"github.com/auzzton/RAG-Pipeline-Gemini/internal/cache"
	"github.com/auzzton/RAG-Pipeline-Gemini/internal/config"
	"github.com/auzzton/RAG-Pipeline-Gemini/internal/embedding"
	"github.com/auzzton/RAG-Pipeline-Gemini/internal/generation"
	"github.com/auzzton/RAG-Pipeline-Gemini/internal/mcpserver"
	"github.com/auzzton/RAG-Pipeline-Gemini/internal/pipeline"
	"github.com/auzzton/RAG-Pipeline-Gemini/internal/storage"
)

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := slog.Default()

	// Initialize embedding client
	embeddingClient, err := embedding.NewClient()
	if err != nil {
		log.Fatalf("failed to create embedding client: %v", err)
	}
	embedder := embedding.NewEmbedder(embeddingClient,
		cfg.Embedding.Model, cfg.Embedding.BatchSize, cfg.Embedding.Normalize)

	// Initialize vector store
	var store storage.VectorStore
	switch cfg.Index.Backend {
	case "qdrant":
		store, err = storage.NewQdrantStorage(
			cfg.Index.Qdrant.Host, cfg.Index.Qdrant.Port, cfg.Embedding.Dimension)
	default:
		store, err = storage.NewFlatStore(
			cfg.Embedding.Dimension, cfg.Index.Path, cfg.Index.MetaPath)
	}
	if err != nil {
		log.Fatalf("failed to open vector store: %v", err)
	}
	defer store.Close()

	chunkCache, err := cache.New(cfg.CacheDir, logger)
	if err != nil {
		log.Fatalf("failed to create chunk cache: %v", err)
	}

	generator := generation.New(generation.Config{
		OpenAIClient: embeddingClient.Client(),
		OpenAIModel:  cfg.Generation.OpenAIModel,
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  cfg.Generation.GeminiModel,
		LogsDir:      cfg.LogsDir,
		Logger:       logger,
	})

	p := pipeline.New(pipeline.Config{
		Cache:     chunkCache,
		Embedder:  embedder,
		Store:     store,
		Generator: generator,
		Logger:    logger,
		LogsDir:   cfg.LogsDir,
		TopK:      cfg.TopK,
		BatchTopK: cfg.BatchTopK,
	})

	apiKey := os.Getenv(cfg.Server.APIKeyEnv)
	if apiKey == "" {
		log.Fatalf("%s must be set for the HTTP API", cfg.Server.APIKeyEnv)
	}

	// MCP over stdio when requested (local agent clients); HTTP API
	// otherwise.
	if getEnv("MCP_MODE", "false") == "true" {
		server := mcpserver.NewServer(&mcpserver.Config{
			Pipeline: p,
			Backend:  cfg.Index.Backend,
		})
		log.Println("Starting policy MCP server (stdio mode)...")
		if err := server.Run(ctx); err != nil {
			log.Printf("server error: %v", err)
			os.Exit(1)
		}
		return
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Server.Port)
	httpServer := api.NewServer(p, apiKey, addr, logger)

	// Mount the MCP streamable HTTP transport alongside the REST API.
	mcpSrv := mcpserver.NewServer(&mcpserver.Config{
		Pipeline: p,
		Backend:  cfg.Index.Backend,
	})
	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpserver.NewHTTPHandler(mcpSrv, nil))
	mux.Handle("/", httpServer.Handler())

	log.Printf("Starting server on %s (API at /hackrx/run, MCP at /mcp, health at /health)", addr)
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("HTTP server error: %v", err)
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
