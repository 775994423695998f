package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/kestrel-data/resolve-engine/pkg/services"
)

// OnboardToolDeps contains dependencies for the onboarding tool.
type OnboardToolDeps struct {
	Onboarding *services.OnboardingService
	Logger     *zap.Logger
}

// RegisterOnboardTool adds onboard_datasource, which runs the full
// profile-index-validate pipeline against the configured datasource and
// activates the result on success.
func RegisterOnboardTool(s *server.MCPServer, deps *OnboardToolDeps) {
	tool := mcp.NewTool(
		"onboard_datasource",
		mcp.WithDescription(
			"Profile the configured datasource, build the entity value index, learn "+
				"abbreviations, and self-validate. On success the new index replaces the "+
				"active one atomically; on failure the previous index keeps serving. "+
				"Returns the full onboarding report either way.",
		),
		mcp.WithString("label",
			mcp.Description("Human-readable label for this run, e.g. 'prod refresh'"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		label := req.GetString("label", "default")

		result := deps.Onboarding.Onboard(ctx, label)

		jsonBytes, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal onboarding result: %w", err)
		}
		if !result.Success {
			return NewErrorResultWithDetails("onboarding_failed",
				"onboarding did not activate a new index",
				json.RawMessage(jsonBytes)), nil
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}
