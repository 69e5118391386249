// Package auth authenticates MCP requests with project API keys and
// scopes each session to the key's project.
package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/vibeship/vibeship-engine/pkg/models"
	"github.com/vibeship/vibeship-engine/pkg/services"
)

// projectKey is the context key carrying the authenticated project.
type projectKey struct{}

// ProjectFromContext retrieves the key-authenticated project set by the
// middleware. Returns nil and false when the request was not
// authenticated through a project key.
func ProjectFromContext(ctx context.Context) (*models.Project, bool) {
	p, ok := ctx.Value(projectKey{}).(*models.Project)
	return p, ok
}

// Middleware authenticates MCP HTTP requests with a project API key.
type Middleware struct {
	apiKeyService services.APIKeyService
	logger        *zap.Logger
}

// NewMiddleware creates a new MCP auth middleware.
func NewMiddleware(apiKeyService services.APIKeyService, logger *zap.Logger) *Middleware {
	return &Middleware{
		apiKeyService: apiKeyService,
		logger:        logger,
	}
}

// RequireKey validates the Authorization bearer key and attaches the
// resolved project and agent actor identity to the request context.
func (m *Middleware) RequireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result, err := m.apiKeyService.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			reason := "Authentication failed"
			if result != nil && result.Reason != "" {
				reason = result.Reason
			}
			m.logger.Debug("MCP key authentication failed",
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("reason", reason))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":   "unauthorized",
				"message": reason,
			})
			return
		}

		ctx := context.WithValue(r.Context(), projectKey{}, result.Project)
		ctx = models.WithAgentActor(ctx, r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
