package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hieutran512/ragkit/internal/mcpserver"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the index/search tools over MCP on stdio",
		Long: `Run an MCP server exposing index_folder, search_code,
get_index_status, and clear_index as tools over stdio, so an MCP client
can drive the same indexing and search pipeline the CLI uses.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			manager := buildManager(cfg)

			return mcpserver.NewServer(cfg, manager).Start(ctx)
		},
	}

	return cmd
}
