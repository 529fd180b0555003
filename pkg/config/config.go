package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/hieutran512/ragkit/internal/ann"
	"github.com/hieutran512/ragkit/internal/chunk"
	"github.com/hieutran512/ragkit/internal/folder"
	"github.com/hieutran512/ragkit/pkg/ignore"
)

// Config holds all configuration for the ragkit indexing/search toolkit.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Indexing   IndexingConfig   `yaml:"indexing"`
	Search     SearchConfig     `yaml:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	ANN        ANNConfig        `yaml:"ann"`
	Cache      CacheConfig      `yaml:"cache"`
	Logging    LoggingConfig    `yaml:"logging"`
	Ignore     IgnoreConfig     `yaml:"ignore_patterns"`
}

type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// ChunkingConfig sizes chunks in characters, not lines.
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	MinChunkSize int `yaml:"min_chunk_size"`
}

type IndexingConfig struct {
	EmbedBatchSize    int      `yaml:"embed_batch_size"`
	FileConcurrency   int      `yaml:"file_concurrency"`
	MaxFileSizeBytes  int64    `yaml:"max_file_size_bytes"`
	IncludeExtensions []string `yaml:"include_extensions"`
	ExcludeFolders    []string `yaml:"exclude_folders"`
	OutputFolder      string   `yaml:"output_folder"`
}

type SearchConfig struct {
	TopK                 int `yaml:"top_k"`
	QueryCacheTTLMs      int `yaml:"query_cache_ttl_ms"`
	QueryEmbedCacheMax   int `yaml:"query_embed_cache_max"`
	QueryResultCacheMax  int `yaml:"query_result_cache_max"`
	QueryResultCacheTopK int `yaml:"query_result_cache_top_k"`
}

type EmbeddingsConfig struct {
	Model      string `yaml:"model"`
	OllamaURL  string `yaml:"ollama_url"`
	TimeoutSec int    `yaml:"timeout_seconds"`
}

// ANNConfig configures the sign-projection LSH index.
type ANNConfig struct {
	ProjectionDim         int `yaml:"projection_dim"`
	MaxHammingDistance    int `yaml:"max_hamming_distance"`
	FallbackMinCandidates int `yaml:"fallback_min_candidates"`
	MaxRerankCandidates   int `yaml:"max_rerank_candidates"`
}

type CacheConfig struct {
	HealthRefreshIntervalMs int `yaml:"health_refresh_interval_ms"`
	StaleThresholdMs        int `yaml:"stale_threshold_ms"`
}

type LoggingConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Directory string `yaml:"directory"`
	Level     string `yaml:"level"`
}

type IgnoreConfig struct {
	Patterns []string `yaml:"patterns"`
}

// Load starts from DefaultConfig, overlays a config file if one is
// found, then applies environment-variable overrides on top.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := getConfigPath()
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	cfg.Logging.Directory = expandPath(cfg.Logging.Directory)
	cfg.Indexing.OutputFolder = expandPath(cfg.Indexing.OutputFolder)

	return cfg, nil
}

// DefaultConfig returns the toolkit's default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Name:    "ragkit",
			Version: "0.1.0",
		},
		Chunking: ChunkingConfig{
			ChunkSize:    chunk.DefaultChunkSize,
			ChunkOverlap: chunk.DefaultChunkOverlap,
			MinChunkSize: chunk.DefaultMinChunkSize,
		},
		Indexing: IndexingConfig{
			EmbedBatchSize:    folder.DefaultEmbedBatchSize,
			FileConcurrency:   folder.DefaultConcurrency,
			MaxFileSizeBytes:  1048576,
			IncludeExtensions: append([]string(nil), folder.DefaultIncludeExtensions...),
			ExcludeFolders:    append([]string(nil), folder.DefaultExcludeFolders...),
		},
		Search: SearchConfig{
			TopK:                 folder.DefaultTopK,
			QueryCacheTTLMs:      int(folder.QueryCacheTTL.Milliseconds()),
			QueryEmbedCacheMax:   folder.QueryEmbedCacheMax,
			QueryResultCacheMax:  folder.QueryResultCacheMax,
			QueryResultCacheTopK: folder.QueryResultCacheTopK,
		},
		Embeddings: EmbeddingsConfig{
			Model:      "nomic-embed-text",
			OllamaURL:  "http://localhost:11434",
			TimeoutSec: 60,
		},
		ANN: ANNConfig{
			ProjectionDim:         ann.DefaultProjectionDim,
			MaxHammingDistance:    ann.DefaultMaxHammingDistance,
			FallbackMinCandidates: ann.DefaultFallbackMinCandidates,
			MaxRerankCandidates:   ann.DefaultMaxRerankCandidates,
		},
		Cache: CacheConfig{
			HealthRefreshIntervalMs: int(folder.HealthRefreshInterval.Milliseconds()),
			StaleThresholdMs:        int(folder.StaleThresholdMs),
		},
		Logging: LoggingConfig{
			Enabled:   true,
			Directory: "~/.ragkit/logs",
			Level:     "info",
		},
		Ignore: IgnoreConfig{
			Patterns: ignore.DefaultPatterns(),
		},
	}
}

// ANNParams converts ANNConfig into the ann.Params value the LSH index
// is built with.
func (c ANNConfig) ANNParams() ann.Params {
	return ann.Params{
		ProjectionDim:         c.ProjectionDim,
		MaxHammingDistance:    c.MaxHammingDistance,
		FallbackMinCandidates: c.FallbackMinCandidates,
		MaxRerankCandidates:   c.MaxRerankCandidates,
	}
}

func getConfigPath() string {
	if path := os.Getenv("RAGKIT_CONFIG"); path != "" {
		return path
	}

	if _, err := os.Stat("ragkit.yaml"); err == nil {
		return "ragkit.yaml"
	}

	home, err := os.UserHomeDir()
	if err == nil {
		path := filepath.Join(home, ".ragkit", "config.yaml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Config) {
	if url := os.Getenv("OLLAMA_URL"); url != "" {
		cfg.Embeddings.OllamaURL = url
	}
	if model := os.Getenv("EMBEDDING_MODEL"); model != "" {
		cfg.Embeddings.Model = model
	}
	if output := os.Getenv("RAGKIT_OUTPUT_FOLDER"); output != "" {
		cfg.Indexing.OutputFolder = output
	}
}

func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
