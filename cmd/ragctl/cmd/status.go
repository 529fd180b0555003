package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "status [path]",
		Short: "Report a folder's indexing status and drift",
		Args:  cobra.MaximumNArgs(1),
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

			if cfg.Indexing.OutputFolder != "" {
				if _, err := manager.EnsureLoaded(path, cfg.Indexing.OutputFolder); err != nil {
					return fmt.Errorf("load folder: %w", err)
				}
			}

			status, err := manager.GetStatus(cmd.Context(), path)
			if err != nil {
				return fmt.Errorf("status: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonFlag {
				data, err := json.MarshalIndent(status, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			fmt.Fprintf(out, "folder:   %s\n", status.FolderPath)
			fmt.Fprintf(out, "phase:    %s\n", status.Phase)
			fmt.Fprintf(out, "files:    %d (%d chunks, %d bytes on disk)\n", status.TotalFiles, status.TotalChunks, status.DBSizeBytes)
			if status.LastIndexedAt > 0 {
				fmt.Fprintf(out, "indexed:  %s\n", time.UnixMilli(status.LastIndexedAt).Format(time.RFC3339))
			} else {
				fmt.Fprintf(out, "indexed:  never\n")
			}
			if status.StaleWarning {
				fmt.Fprintf(out, "stale:    yes (%s old)\n", time.Duration(status.StaleAgeMs)*time.Millisecond)
			}
			if status.FileChangeDrift {
				fmt.Fprintf(out, "drift:    +%d added, ~%d modified, -%d deleted\n",
					status.DriftAddedFiles, status.DriftModifiedFiles, status.DriftDeletedFiles)
			}
			if status.Message != "" {
				fmt.Fprintf(out, "message:  %s\n", status.Message)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the full status object as JSON")

	return cmd
}
