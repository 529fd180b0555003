// Package cmd provides the CLI commands for ragctl.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hieutran512/ragkit/internal/chunk"
	"github.com/hieutran512/ragkit/internal/embedclient"
	"github.com/hieutran512/ragkit/internal/folder"
	"github.com/hieutran512/ragkit/pkg/config"
)

var cfgFlag string

// NewRootCmd builds the ragctl root command and wires every subcommand.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ragctl",
		Short: "Index and search codebases for retrieval-augmented generation",
		Long: `ragctl indexes a folder's code and docs into symbol-aware,
embedded chunks, then answers natural-language queries against them
with an LSH-accelerated approximate nearest-neighbor search.

Run 'ragctl index .' once, then 'ragctl search <query>' or
'ragctl serve' to expose the same index over MCP.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFlag, "config", "", "Path to a ragkit.yaml config file (overrides RAGKIT_CONFIG)")

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newClearCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig loads configuration honoring --config, falling back to
// the package's own search order.
func loadConfig() (*config.Config, error) {
	if cfgFlag != "" {
		if err := os.Setenv("RAGKIT_CONFIG", cfgFlag); err != nil {
			return nil, fmt.Errorf("set RAGKIT_CONFIG: %w", err)
		}
	}
	return config.Load()
}

// buildManager wires a folder.Manager from cfg's embedding, chunking,
// and ANN settings: an Ollama embedding client, a text chunker, a
// tree-sitter-backed code chunker, and the configured LSH parameters.
func buildManager(cfg *config.Config) *folder.Manager {
	provider := embedclient.NewCached(embedclient.New(embedclient.Config{
		BaseURL: cfg.Embeddings.OllamaURL,
		Model:   cfg.Embeddings.Model,
		Timeout: secondsToDuration(cfg.Embeddings.TimeoutSec),
	}), embedclient.DefaultEmbedCacheSize)

	textChunker := chunk.NewTextChunker(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap)
	codeChunker := chunk.NewCodeChunker(textChunker, chunk.NewTreeSitterExtractor())

	return folder.NewManager(provider, textChunker, codeChunker, cfg.ANN.ANNParams())
}

func indexOptionsFrom(cfg *config.Config) folder.IndexOptions {
	return folder.IndexOptions{
		IncludeExtensions: cfg.Indexing.IncludeExtensions,
		ExcludeFolders:    cfg.Indexing.ExcludeFolders,
		MaxFileSize:       cfg.Indexing.MaxFileSizeBytes,
		Concurrency:       cfg.Indexing.FileConcurrency,
		EmbedBatchSize:    cfg.Indexing.EmbedBatchSize,
		OutputFolder:      cfg.Indexing.OutputFolder,
	}
}

func secondsToDuration(sec int) time.Duration {
	if sec <= 0 {
		return 0
	}
	return time.Duration(sec) * time.Second
}
