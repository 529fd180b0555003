package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hieutran512/ragkit/internal/folder"
)

func newSearchCmd() *cobra.Command {
	var (
		folderFlag  string
		topKFlag    int
		contextFlag bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search an indexed folder with a natural-language query",
		Long: `Search an indexed folder. The query is embedded, matched against the
folder's ANN index, and the best chunks are reranked by exact cosine
similarity. Run 'ragctl index' first.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			path, err := resolveFolderArg([]string{folderFlag})
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			manager := buildManager(cfg)

			opts := folder.SearchOptions{TopK: topKFlag, OutputFolder: cfg.Indexing.OutputFolder}
			if opts.TopK <= 0 {
				opts.TopK = cfg.Search.TopK
			}

			if contextFlag {
				block, err := manager.GetContext(cmd.Context(), path, query, opts)
				if err != nil {
					return fmt.Errorf("search: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), block)
				return nil
			}

			result, err := manager.Search(cmd.Context(), path, query, opts)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(result.Matches) == 0 {
				fmt.Fprintf(out, "no matches (%d chunks searched in %dms)\n", result.TotalChunks, result.DurationMs)
				return nil
			}
			for i, m := range result.Matches {
				fmt.Fprintf(out, "%d. %s (score %.3f)\n", i+1, m.FilePath, m.Score)
				for _, line := range previewLines(m.Content, 5) {
					fmt.Fprintf(out, "   | %s\n", line)
				}
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "%d matches from %d chunks in %dms\n", len(result.Matches), result.TotalChunks, result.DurationMs)
			return nil
		},
	}

	cmd.Flags().StringVarP(&folderFlag, "folder", "f", ".", "Folder to search (must be indexed)")
	cmd.Flags().IntVarP(&topKFlag, "top-k", "k", 0, "Maximum number of matches to return")
	cmd.Flags().BoolVar(&contextFlag, "context", false, "Print results as an LLM-ready context block")

	return cmd
}

func previewLines(content string, max int) []string {
	lines := strings.Split(content, "\n")
	if len(lines) <= max {
		return lines
	}
	out := append([]string(nil), lines[:max]...)
	out = append(out, fmt.Sprintf("... (%d more lines)", len(lines)-max))
	return out
}
