package handlers

import (
	"net/http"

	"go.uber.org/zap"
)

// agentInstructions is the static usage guide served to AI assistants.
// It is key-independent: project-specific detail (the key itself, the
// project's current state) comes from GET /api/v1/project.
const agentInstructions = `# Project API — Assistant Instructions

You have been given an API key for a tracked side project. Use it as a
Bearer token against these endpoints.

## Read the project

    GET /api/v1/project
    Authorization: Bearer <key>

Returns the project's name, status, description, tags, GitHub stats,
"where I left off" notes, and lessons learned. Read this at the start
of a session to pick up context.

## Update the project

    PATCH /api/v1/project
    Authorization: Bearer <key>
    Content-Type: application/json

Writable fields: where_i_left_off, lessons_learned, status, description.
Valid statuses: active, paused, shipped, graveyard.
Tags may be replaced by sending a "tags" array of
{"tag_type": "model|framework|tool", "tag_value": "..."} objects; the
array replaces the full tag set.

Any other field is rejected and the whole update is discarded, so send
only writable fields. At the end of a working session, update
where_i_left_off so the next session can resume.

## Upload a screenshot

    POST /api/v1/project/screenshot
    Authorization: Bearer <key>
    Content-Type: application/json

    {"image": "data:image/png;base64,...."}

Maximum decoded size is 5 MB. PNG, JPEG, GIF, and WebP are accepted.

## Notes

- Every call is visible to the project owner in the activity log.
- Keys are project-scoped: one key reads and writes one project only.
- Do not write the key into code, commits, or logs.
`

// InstructionsHandler serves static usage instructions for AI
// assistants working against the agent API.
type InstructionsHandler struct {
	logger *zap.Logger
}

// NewInstructionsHandler creates a new instructions handler.
func NewInstructionsHandler(logger *zap.Logger) *InstructionsHandler {
	return &InstructionsHandler{logger: logger}
}

// RegisterRoutes registers the instructions handler's routes on the given mux.
func (h *InstructionsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/instructions", h.Get)
}

// Get handles GET /api/v1/instructions
// The document is identical for every caller, so no authentication and
// an hour of caching.
func (h *InstructionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(agentInstructions)); err != nil {
		h.logger.Error("Failed to write instructions response", zap.Error(err))
	}
}
