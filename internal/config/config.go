// Package config loads application configuration from YAML with
// environment overrides for deployment-specific values.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// IndexConfig selects and configures the vector index backend.
type IndexConfig struct {
	// Backend is "flat" (local files) or "qdrant".
	Backend  string       `yaml:"backend"`
	Path     string       `yaml:"path"`
	MetaPath string       `yaml:"meta_path"`
	Qdrant   QdrantConfig `yaml:"qdrant"`
}

// QdrantConfig contains connection details for a Qdrant backend.
type QdrantConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// EmbeddingConfig configures the embedding client.
type EmbeddingConfig struct {
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
	Normalize bool   `yaml:"normalize"`
}

// GenerationConfig configures the LLM backends.
type GenerationConfig struct {
	OpenAIModel string `yaml:"openai_model"`
	GeminiModel string `yaml:"gemini_model"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port"`
	// APIKeyEnv names the environment variable holding the bearer
	// token for the HTTP API.
	APIKeyEnv string `yaml:"api_key_env"`
}

// Config is the root application configuration.
type Config struct {
	DocsPath   string           `yaml:"docs_path"`
	CacheDir   string           `yaml:"cache_dir"`
	LogsDir    string           `yaml:"logs_dir"`
	Index      IndexConfig      `yaml:"index"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Server     ServerConfig     `yaml:"server"`
	TopK       int              `yaml:"top_k"`
	BatchTopK  int              `yaml:"batch_top_k"`
}

// Load reads configuration from path. A missing file yields defaults;
// a present but malformed file is an error. Environment overrides are
// applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DocsPath: "data/docs",
		CacheDir: "chunk_cache",
		LogsDir:  "logs",
		Index: IndexConfig{
			Backend:  "flat",
			Path:     "vector_index.gob",
			MetaPath: "vector_index_meta.json",
			Qdrant:   QdrantConfig{Host: "localhost", Port: 6334},
		},
		Embedding: EmbeddingConfig{
			Model:     "text-embedding-3-small",
			Dimension: 1536,
			BatchSize: 500,
			Normalize: true,
		},
		Generation: GenerationConfig{
			OpenAIModel: "gpt-4o",
			GeminiModel: "gemini-1.5-flash",
		},
		Server: ServerConfig{
			Port:      8000,
			APIKeyEnv: "API_KEY",
		},
		TopK:      5,
		BatchTopK: 7,
	}
}

// applyDefaults fills zero values left by a partial YAML file.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.DocsPath == "" {
		cfg.DocsPath = def.DocsPath
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = def.CacheDir
	}
	if cfg.LogsDir == "" {
		cfg.LogsDir = def.LogsDir
	}
	if cfg.Index.Backend == "" {
		cfg.Index.Backend = def.Index.Backend
	}
	if cfg.Index.Path == "" {
		cfg.Index.Path = def.Index.Path
	}
	if cfg.Index.MetaPath == "" {
		cfg.Index.MetaPath = def.Index.MetaPath
	}
	if cfg.Index.Qdrant.Host == "" {
		cfg.Index.Qdrant.Host = def.Index.Qdrant.Host
	}
	if cfg.Index.Qdrant.Port == 0 {
		cfg.Index.Qdrant.Port = def.Index.Qdrant.Port
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = def.Embedding.Model
	}
	if cfg.Embedding.Dimension == 0 {
		cfg.Embedding.Dimension = def.Embedding.Dimension
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = def.Embedding.BatchSize
	}
	if cfg.Generation.OpenAIModel == "" {
		cfg.Generation.OpenAIModel = def.Generation.OpenAIModel
	}
	if cfg.Generation.GeminiModel == "" {
		cfg.Generation.GeminiModel = def.Generation.GeminiModel
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.APIKeyEnv == "" {
		cfg.Server.APIKeyEnv = def.Server.APIKeyEnv
	}
	if cfg.TopK == 0 {
		cfg.TopK = def.TopK
	}
	if cfg.BatchTopK == 0 {
		cfg.BatchTopK = def.BatchTopK
	}
}

// applyEnvOverrides lets deployments override connection details
// without editing the config file.
func applyEnvOverrides(cfg *Config) {
	cfg.Index.Qdrant.Host = getEnv("QDRANT_HOST", cfg.Index.Qdrant.Host)
	cfg.Index.Qdrant.Port = getEnvInt("QDRANT_PORT", cfg.Index.Qdrant.Port)
	cfg.Generation.OpenAIModel = getEnv("GPT_MODEL", cfg.Generation.OpenAIModel)
	cfg.Generation.GeminiModel = getEnv("GEMINI_MODEL", cfg.Generation.GeminiModel)
	cfg.Server.Port = getEnvInt("PORT", cfg.Server.Port)
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}
