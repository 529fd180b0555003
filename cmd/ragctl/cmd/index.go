package cmd

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hieutran512/ragkit/internal/models"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Index a folder for searching",
		Long: `Index a folder to enable semantic search over its contents.

Scans the folder, chunks code symbol-aware and text by sliding window,
embeds every changed chunk, and rebuilds the ANN index. Unchanged files
(by modification time, size, and content hash) are skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveFolderArg(args)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			manager := buildManager(cfg)

			start := time.Now()
			opts := indexOptionsFrom(cfg)
			opts.OnProgress = func(s models.Status) {
				if s.Phase == models.PhaseEmbedding && s.FilesToEmbed > 0 {
					log.Printf("embedding %d/%d files", s.EmbeddedFiles, s.FilesToEmbed)
				}
			}

			status, err := manager.Index(ctx, path, opts)
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}
			if status.Phase == models.PhaseError {
				return fmt.Errorf("indexing failed: %s", status.Message)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "indexed %s: %d files, %d chunks (%d skipped unchanged) in %s\n",
				path, status.TotalFiles, status.TotalChunks, status.SkippedUnchanged, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}

	return cmd
}

// resolveFolderArg turns an optional positional path argument into an
// absolute folder path, defaulting to the working directory.
func resolveFolderArg(args []string) (string, error) {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", path, err)
	}
	return abs, nil
}
