package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kestrel-data/resolve-engine/pkg/resolver"
)

type healthResult struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	IndexReady bool   `json:"index_ready"`
}

// RegisterHealthTool adds a health check tool to the MCP server. The
// tool reports server status, version, and whether an index is active.
func RegisterHealthTool(s *server.MCPServer, version string, res *resolver.Resolver) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status, version, and index readiness"),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := json.Marshal(healthResult{
			Status:     "ok",
			Version:    version,
			IndexReady: res.Ready(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal health result: %w", err)
		}
		return mcp.NewToolResultText(string(result)), nil
	})
}
