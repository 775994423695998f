// Package tools provides MCP tool implementations for resolve-engine.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/kestrel-data/resolve-engine/pkg/apperrors"
	"github.com/kestrel-data/resolve-engine/pkg/resolver"
)

// ResolveToolDeps contains dependencies for the resolution tools.
type ResolveToolDeps struct {
	Resolver *resolver.Resolver
	Logger   *zap.Logger
}

// RegisterResolveTools registers the entity resolution MCP tools.
func RegisterResolveTools(s *server.MCPServer, deps *ResolveToolDeps) {
	registerResolveEntityTool(s, deps)
	registerConfirmEntityTool(s, deps)
	registerIndexStatsTool(s, deps)
}

// registerResolveEntityTool adds resolve_entity, the main lookup: map a
// free-text mention to a canonical database value, or get back ranked
// candidates and a clarification question when the mention is ambiguous.
func registerResolveEntityTool(s *server.MCPServer, deps *ResolveToolDeps) {
	tool := mcp.NewTool(
		"resolve_entity",
		mcp.WithDescription(
			"Resolve a free-text entity mention (a company, client, project, product, person, "+
				"location, or department name) to the canonical value stored in the database. "+
				"Returns either a confident match, a ranked candidate list with a clarification "+
				"question, or no match. Pass the full user question as query_context so the "+
				"resolver can use it to disambiguate.",
		),
		mcp.WithString("mention",
			mcp.Required(),
			mcp.Description("The entity mention exactly as the user wrote it, e.g. 'acme' or 'IBM'"),
		),
		mcp.WithString("query_context",
			mcp.Description("The full natural-language question the mention appeared in"),
		),
		mcp.WithString("user_id",
			mcp.Description("Stable caller identity; enables remembered clarification answers"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		mention, err := req.RequireString("mention")
		if err != nil {
			return NewErrorResult("missing_parameter", "mention is required"), nil
		}
		queryContext := req.GetString("query_context", "")
		userID := req.GetString("user_id", "")

		if fingerprint, bad := checkInjection(mention); bad {
			deps.Logger.Warn("Rejected mention with injection pattern",
				zap.String("fingerprint", fingerprint))
			return NewErrorResultWithDetails(
				"unsafe_input",
				"mention contains a SQL injection pattern and was not resolved",
				map[string]any{"fingerprint": fingerprint},
			), nil
		}

		result, err := deps.Resolver.Resolve(userID, mention, queryContext)
		if err != nil {
			if errors.Is(err, apperrors.ErrIndexNotReady) {
				return NewErrorResult("index_not_ready",
					"no datasource has been onboarded yet; run onboard_datasource first"), nil
			}
			return nil, fmt.Errorf("resolve mention: %w", err)
		}

		jsonBytes, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal resolution result: %w", err)
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

// registerConfirmEntityTool adds confirm_entity, which records the
// user's answer to a clarification so the same question is not asked
// again.
func registerConfirmEntityTool(s *server.MCPServer, deps *ResolveToolDeps) {
	tool := mcp.NewTool(
		"confirm_entity",
		mcp.WithDescription(
			"Record which candidate the user picked after a resolve_entity clarification. "+
				"Future resolutions of the same mention by the same user return the confirmed "+
				"entity directly. The last confirmation wins.",
		),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("Stable caller identity the preference is scoped to"),
		),
		mcp.WithString("mention",
			mcp.Required(),
			mcp.Description("The original mention that was clarified"),
		),
		mcp.WithString("canonical_value",
			mcp.Required(),
			mcp.Description("The chosen candidate's canonical_value"),
		),
		mcp.WithString("table",
			mcp.Required(),
			mcp.Description("The chosen candidate's table_name"),
		),
		mcp.WithString("column",
			mcp.Required(),
			mcp.Description("The chosen candidate's column_name"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := req.RequireString("user_id")
		if err != nil {
			return NewErrorResult("missing_parameter", "user_id is required"), nil
		}
		mention, err := req.RequireString("mention")
		if err != nil {
			return NewErrorResult("missing_parameter", "mention is required"), nil
		}
		canonical, err := req.RequireString("canonical_value")
		if err != nil {
			return NewErrorResult("missing_parameter", "canonical_value is required"), nil
		}
		table, err := req.RequireString("table")
		if err != nil {
			return NewErrorResult("missing_parameter", "table is required"), nil
		}
		column, err := req.RequireString("column")
		if err != nil {
			return NewErrorResult("missing_parameter", "column is required"), nil
		}

		entry, err := deps.Resolver.ConfirmPreference(userID, mention, canonical, table, column)
		if err != nil {
			if errors.Is(err, apperrors.ErrIndexNotReady) {
				return NewErrorResult("index_not_ready",
					"no datasource has been onboarded yet; run onboard_datasource first"), nil
			}
			return NewErrorResult("entity_not_found", err.Error()), nil
		}

		jsonBytes, err := json.Marshal(map[string]any{
			"confirmed": true,
			"mention":   mention,
			"entity":    entry,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal confirmation: %w", err)
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

// registerIndexStatsTool adds index_stats, reporting the active index's
// totals.
func registerIndexStatsTool(s *server.MCPServer, deps *ResolveToolDeps) {
	tool := mcp.NewTool(
		"index_stats",
		mcp.WithDescription("Returns entry and variation totals for the active value index"),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := deps.Resolver.Stats()
		if err != nil {
			if errors.Is(err, apperrors.ErrIndexNotReady) {
				return NewErrorResult("index_not_ready",
					"no datasource has been onboarded yet; run onboard_datasource first"), nil
			}
			return nil, fmt.Errorf("read index stats: %w", err)
		}

		jsonBytes, err := json.Marshal(stats)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal index stats: %w", err)
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}
