package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear [path]",
		Short: "Delete a folder's persisted index",
		Long: `Delete a folder's in-memory cache and its on-disk .rag-ts directory.
The folder must be reindexed before it can be searched again.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveFolderArg(args)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			manager := buildManager(cfg)

			if err := manager.ClearFolder(path, cfg.Indexing.OutputFolder); err != nil {
				return fmt.Errorf("clear: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "cleared index for %s\n", path)
			return nil
		},
	}

	return cmd
}
