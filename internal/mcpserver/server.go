// Package mcpserver exposes the indexing/search toolkit over the Model
// Context Protocol, so an LLM-facing client can index, search, and
// inspect a folder's cache through four tools instead of a direct API.
package mcpserver

import (
	"context"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/server"

	"github.com/hieutran512/ragkit/internal/folder"
	"github.com/hieutran512/ragkit/pkg/config"
)

// Server wraps an MCP server bound to a folder.Manager.
type Server struct {
	cfg       *config.Config
	mcpServer *server.MCPServer
	manager   *folder.Manager
}

// NewServer builds an MCP server around manager, registering the
// index/search/status/clear tools.
func NewServer(cfg *config.Config, manager *folder.Manager) *Server {
	s := &Server{cfg: cfg, manager: manager}

	mcpServer := server.NewMCPServer(cfg.Server.Name, cfg.Server.Version)
	for _, tool := range s.tools() {
		mcpServer.AddTool(tool, s.handlerFor(tool.Name))
	}
	s.mcpServer = mcpServer

	log.Printf("mcp server initialized: %s v%s", cfg.Server.Name, cfg.Server.Version)
	log.Printf("registered %d tools", len(s.tools()))

	return s
}

// Start runs the server over stdio until the client disconnects.
func (s *Server) Start(ctx context.Context) error {
	log.Printf("starting mcp server on stdio transport")
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
