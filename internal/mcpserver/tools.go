package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hieutran512/ragkit/internal/folder"
)

func (s *Server) tools() []mcp.Tool {
	return []mcp.Tool{
		{
			Name:        "index_folder",
			Description: "Index a folder so its code and docs become searchable. Use this the first time a folder is referenced, or after the user asks to refresh/reindex it. Performs an incremental reindex: unchanged files are skipped.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"folder_path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the folder to index",
					},
				},
				Required: []string{"folder_path"},
			},
		},
		{
			Name:        "search_code",
			Description: "Search an indexed folder with a natural-language query. Returns ranked chunks with file path, similarity score, and content. The folder must already be indexed with index_folder.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"folder_path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the indexed folder",
					},
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Natural language search query",
					},
					"top_k": map[string]interface{}{
						"type":        "number",
						"description": "Maximum number of matches to return",
						"default":     folder.DefaultTopK,
					},
				},
				Required: []string{"folder_path", "query"},
			},
		},
		{
			Name:        "get_index_status",
			Description: "Report a folder's indexing status: phase, file/chunk counts, staleness, and file-change drift since the last index.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"folder_path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the folder",
					},
				},
				Required: []string{"folder_path"},
			},
		},
		{
			Name:        "clear_index",
			Description: "Delete a folder's persisted index and in-memory cache. The folder must be reindexed with index_folder before it can be searched again.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"folder_path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the folder whose index should be cleared",
					},
				},
				Required: []string{"folder_path"},
			},
		},
	}
}

func (s *Server) handlerFor(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			args = make(map[string]interface{})
		}

		switch name {
		case "index_folder":
			return s.handleIndexFolder(ctx, args)
		case "search_code":
			return s.handleSearchCode(ctx, args)
		case "get_index_status":
			return s.handleGetIndexStatus(ctx, args)
		case "clear_index":
			return s.handleClearIndex(ctx, args)
		default:
			return errorResult(fmt.Sprintf("unknown tool: %s", name)), nil
		}
	}
}

func (s *Server) handleIndexFolder(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	folderPath, ok := args["folder_path"].(string)
	if !ok || folderPath == "" {
		return errorResult("folder_path is required and must be a string"), nil
	}

	status, err := s.manager.Index(ctx, folderPath, folder.IndexOptions{
		IncludeExtensions: s.cfg.Indexing.IncludeExtensions,
		ExcludeFolders:    s.cfg.Indexing.ExcludeFolders,
		MaxFileSize:       s.cfg.Indexing.MaxFileSizeBytes,
		Concurrency:       s.cfg.Indexing.FileConcurrency,
		EmbedBatchSize:    s.cfg.Indexing.EmbedBatchSize,
		OutputFolder:      s.cfg.Indexing.OutputFolder,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("indexing failed: %v", err)), nil
	}
	return successResult(status), nil
}

func (s *Server) handleSearchCode(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	folderPath, ok := args["folder_path"].(string)
	if !ok || folderPath == "" {
		return errorResult("folder_path is required and must be a string"), nil
	}
	query, ok := args["query"].(string)
	if !ok || query == "" {
		return errorResult("query is required and must be a string"), nil
	}

	topK := s.cfg.Search.TopK
	if v, ok := args["top_k"].(float64); ok && v > 0 {
		topK = int(v)
	}

	result, err := s.manager.Search(ctx, folderPath, query, folder.SearchOptions{TopK: topK})
	if err != nil {
		return errorResult(fmt.Sprintf("search failed: %v", err)), nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: formatMatches(result)},
		},
	}, nil
}

func (s *Server) handleGetIndexStatus(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	folderPath, ok := args["folder_path"].(string)
	if !ok || folderPath == "" {
		return errorResult("folder_path is required and must be a string"), nil
	}

	status, err := s.manager.GetStatus(ctx, folderPath)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to get status: %v", err)), nil
	}
	return successResult(status), nil
}

func (s *Server) handleClearIndex(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	folderPath, ok := args["folder_path"].(string)
	if !ok || folderPath == "" {
		return errorResult("folder_path is required and must be a string"), nil
	}

	if err := s.manager.ClearFolder(folderPath, s.cfg.Indexing.OutputFolder); err != nil {
		return errorResult(fmt.Sprintf("failed to clear index: %v", err)), nil
	}
	return successResult(map[string]interface{}{
		"message": "index cleared",
		"folder":  folderPath,
	}), nil
}

func successResult(data interface{}) *mcp.CallToolResult {
	jsonData, _ := json.MarshalIndent(data, "", "  ")
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: string(jsonData)},
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: fmt.Sprintf("Error: %s", message)},
		},
		IsError: true,
	}
}

func formatMatches(result folder.SearchResult) string {
	if len(result.Matches) == 0 {
		return "No results found."
	}

	var out strings.Builder
	fmt.Fprintf(&out, "Found %d results in %dms:\n\n", len(result.Matches), result.DurationMs)
	for i, m := range result.Matches {
		fmt.Fprintf(&out, "%d. %s (score: %.3f)\n", i+1, m.FilePath, m.Score)

		lines := strings.Split(m.Content, "\n")
		preview := lines
		if len(preview) > 5 {
			preview = preview[:5]
		}
		for _, line := range preview {
			fmt.Fprintf(&out, "   | %s\n", strings.TrimRight(line, " \t"))
		}
		if len(lines) > len(preview) {
			fmt.Fprintf(&out, "   | ... (%d more lines)\n", len(lines)-len(preview))
		}
		out.WriteString("\n")
	}
	return out.String()
}
