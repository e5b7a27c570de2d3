// Package main provides the policyrag CLI for ingesting policy
// documents and querying them.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/auzzton/RAG-Pipeline-Gemini/internal/cache"
	"github.com/auzzton/RAG-Pipeline-Gemini/internal/config"
	"github.com/auzzton/RAG-Pipeline-Gemini/internal/embedding"
	"github.com/auzzton/RAG-Pipeline-Gemini/internal/generation"
	"github.com/auzzton/RAG-Pipeline-Gemini/internal/pipeline"
	"github.com/auzzton/RAG-Pipeline-Gemini/internal/storage"
)

var (
	cfgFile string
	force   bool
)

var rootCmd = &cobra.Command{
	Use:   "policyrag",
	Short: "Policy document question answering tool",
	Long:  "CLI for ingesting policy documents (PDF, DOCX) into a vector index and evaluating claims against them",
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Chunk, embed and index all documents in a directory",
	Long: `Processes every PDF and DOCX document in the directory.

For each file:
1. Looks up cached chunks by content hash (skipped with --force)
2. Extracts text, classifies the document type, chunks per type profile
3. Generates embeddings and adds the chunks to the vector index

Environment variables:
  OPENAI_API_KEY OpenAI API key for embeddings (required)
  QDRANT_HOST    Qdrant hostname, qdrant backend only (default: localhost)
  QDRANT_PORT    Qdrant gRPC port, qdrant backend only (default: 6334)`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

var askCmd = &cobra.Command{
	Use:   "ask [query]",
	Short: "Evaluate a claim query against the indexed documents",
	Long:  "Extracts structured claim fields, retrieves the most relevant clauses and generates a decision. With no argument, starts an interactive loop.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAsk,
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the chunk cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached documents",
	RunE:  runCacheList,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [file]",
	Short: "Remove cache entries for one file, or all entries",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCacheClear,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index size, cache contents and LLM provider availability",
	RunE:  runStatus,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "path to config file")
	ingestCmd.Flags().BoolVar(&force, "force", false, "re-extract and re-chunk even when cached")

	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	dir := cfg.DocsPath
	if len(args) > 0 {
		dir = args[0]
	}

	p, closeStore, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	fmt.Printf("Ingesting documents from %s...\n", dir)
	result, err := p.IngestDir(context.Background(), dir, force)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Ingestion complete!")
	fmt.Printf("  Processed: %d\n", result.Processed)
	fmt.Printf("  Skipped: %d\n", result.Skipped)
	fmt.Printf("  Chunks: %d\n", result.TotalChunks)
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Millisecond))

	if len(result.Failed) > 0 {
		fmt.Println()
		fmt.Println("Failed documents:")
		for _, failed := range result.Failed {
			fmt.Printf("  - %s: %s\n", failed.Path, failed.Reason)
		}
	}

	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	p, closeStore, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if p.IndexCount() == 0 {
		fmt.Println("The index is empty. Run 'policyrag ingest' first.")
		return nil
	}

	if len(args) > 0 {
		return askOnce(p, args[0])
	}

	fmt.Println("Interactive mode. Type 'exit' to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nEnter your query: ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if strings.EqualFold(query, "exit") {
			break
		}
		if err := askOnce(p, query); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
	return scanner.Err()
}

func askOnce(p *pipeline.Pipeline, query string) error {
	response, err := p.Answer(context.Background(), query)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("Decision: %s\n", response.Decision)
	if response.Amount != nil {
		fmt.Printf("Amount: %s\n", *response.Amount)
	}
	fmt.Printf("Justification: %s\n", response.Justification)

	if len(response.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, src := range response.Sources {
			fmt.Printf("  - %s (confidence %.4f)\n", src.Source, src.Confidence)
		}
	}
	return nil
}

func runCacheList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	chunkCache, err := cache.New(cfg.CacheDir, slog.Default())
	if err != nil {
		return err
	}

	entries := chunkCache.Entries()
	if len(entries) == 0 {
		fmt.Println("Cache is empty.")
		return nil
	}

	fmt.Printf("Cached documents (%d):\n", len(entries))
	for _, e := range entries {
		fmt.Printf("  %s  chunks=%d  hash=%s  cached=%s\n",
			e.Filename, e.ChunkCount, e.FileHash, e.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	chunkCache, err := cache.New(cfg.CacheDir, slog.Default())
	if err != nil {
		return err
	}

	target := ""
	if len(args) > 0 {
		target = args[0]
	}
	if err := chunkCache.Clear(target); err != nil {
		return err
	}

	if target == "" {
		fmt.Println("Cache cleared.")
	} else {
		fmt.Printf("Cache entries for %s cleared.\n", target)
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	p, closeStore, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	fmt.Printf("Index backend: %s\n", cfg.Index.Backend)
	fmt.Printf("Indexed chunks: %d\n", p.IndexCount())
	fmt.Printf("Cached documents: %d\n", len(p.CacheEntries()))

	status := p.Status()
	fmt.Println()
	fmt.Printf("Active provider: %s\n", orNone(status.ActiveProvider))
	fmt.Printf("  OpenAI: available=%t model=%s\n", status.OpenAIAvailable, orNone(status.OpenAIModel))
	fmt.Printf("  Gemini: available=%t model=%s\n", status.GeminiAvailable, orNone(status.GeminiModel))
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

// buildPipeline wires the full component stack from configuration.
// The returned func closes the vector store.
func buildPipeline(cfg *config.Config) (*pipeline.Pipeline, func(), error) {
	logger := slog.Default()

	embeddingClient, err := embedding.NewClient()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create embedding client: %w", err)
	}
	embedder := embedding.NewEmbedder(embeddingClient,
		cfg.Embedding.Model, cfg.Embedding.BatchSize, cfg.Embedding.Normalize)

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
		return nil, nil, fmt.Errorf("failed to open vector store: %w", err)
	}

	chunkCache, err := cache.New(cfg.CacheDir, logger)
	if err != nil {
		store.Close()
		return nil, nil, err
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

	return p, func() { store.Close() }, nil
}
