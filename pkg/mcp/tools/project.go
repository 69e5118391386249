// Package tools provides the MCP tool implementations for the project
// API.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	mcpauth "github.com/vibeship/vibeship-engine/pkg/mcp/auth"
	"github.com/vibeship/vibeship-engine/pkg/services"
)

// ProjectToolDeps contains dependencies for the project tools.
type ProjectToolDeps struct {
	ProjectService  services.ProjectService
	ActivityService services.ActivityService
	Logger          *zap.Logger
}

// RegisterProjectTools registers the project context and update tools.
func RegisterProjectTools(s *server.MCPServer, deps *ProjectToolDeps) {
	registerGetProjectContextTool(s, deps)
	registerUpdateProjectTool(s, deps)
}

// registerGetProjectContextTool adds the get_project_context tool.
func registerGetProjectContextTool(s *server.MCPServer, deps *ProjectToolDeps) {
	tool := mcp.NewTool(
		"get_project_context",
		mcp.WithDescription(
			"Get the tracked project's full context: name, status, description, tags, "+
				"GitHub stats, where-I-left-off notes, and lessons learned. "+
				"Call this at the start of a session to pick up where the last one stopped.",
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		project, ok := mcpauth.ProjectFromContext(ctx)
		if !ok {
			return nil, errors.New("no authenticated project in context")
		}

		project, tags, err := deps.ProjectService.GetWithTags(ctx, project.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load project: %w", err)
		}

		deps.ActivityService.Record(ctx, project.ID, "read", nil)

		response := services.FormatProjectContext(project, tags)
		jsonBytes, err := json.MarshalIndent(response, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal project context: %w", err)
		}

		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

// registerUpdateProjectTool adds the update_project tool. It runs the
// same allow-list validation as PATCH /api/v1/project: one bad field
// rejects the whole update.
func registerUpdateProjectTool(s *server.MCPServer, deps *ProjectToolDeps) {
	tool := mcp.NewTool(
		"update_project",
		mcp.WithDescription(
			"Update the tracked project. Writable fields: where_i_left_off, lessons_learned, "+
				"status (active, paused, shipped, graveyard), and description. "+
				"Optionally replace the tag set with {tag_type, tag_value} objects where tag_type is "+
				"model, framework, or tool. At the end of a working session, update where_i_left_off "+
				"so the next session can resume.",
		),
		mcp.WithString(
			"where_i_left_off",
			mcp.Description("Progress note describing the current state of the work"),
		),
		mcp.WithString(
			"lessons_learned",
			mcp.Description("Accumulated lessons worth remembering"),
		),
		mcp.WithString(
			"status",
			mcp.Description("Lifecycle status: active, paused, shipped, or graveyard"),
		),
		mcp.WithString(
			"description",
			mcp.Description("Short project description"),
		),
		mcp.WithArray(
			"tags",
			mcp.Description("Replacement tag set: objects with tag_type (model, framework, tool) and tag_value"),
		),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		project, ok := mcpauth.ProjectFromContext(ctx)
		if !ok {
			return nil, errors.New("no authenticated project in context")
		}

		// Re-encode the provided arguments so the update flows through
		// the same validation as the HTTP PATCH surface.
		raw := make(map[string]json.RawMessage)
		for name, value := range req.GetArguments() {
			encoded, err := json.Marshal(value)
			if err != nil {
				return NewErrorResult("invalid_argument", fmt.Sprintf("argument %q is not encodable", name)), nil
			}
			raw[name] = encoded
		}

		update, err := deps.ProjectService.ParseAgentUpdate(raw)
		if err != nil {
			var vErr *services.ValidationError
			if errors.As(err, &vErr) {
				return NewErrorResult("invalid_update", vErr.Message), nil
			}
			return nil, err
		}

		result, err := deps.ProjectService.ApplyAgentUpdate(ctx, project.ID, update)
		if err != nil {
			return nil, fmt.Errorf("failed to update project: %w", err)
		}

		jsonBytes, err := json.Marshal(map[string]any{
			"success":      true,
			"updated":      result.UpdatedFields,
			"tags_updated": result.TagsUpdated,
		})
		if err != nil {
			return nil, err
		}

		deps.Logger.Debug("MCP project update applied",
			zap.String("project_id", project.ID.String()),
			zap.Strings("updated_fields", result.UpdatedFields))

		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}
