package handlers

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/vibeship/vibeship-engine/pkg/config"
	"github.com/vibeship/vibeship-engine/pkg/github"
	"github.com/vibeship/vibeship-engine/pkg/models"
	"github.com/vibeship/vibeship-engine/pkg/services"
)

// maxWebhookBodyBytes caps webhook payload reads. GitHub caps payloads
// at 25 MB; anything larger is not a legitimate delivery.
const maxWebhookBodyBytes = 25 << 20

// WebhookHandler handles GitHub webhook deliveries.
type WebhookHandler struct {
	webhookService services.WebhookService
	cfg            *config.Config
	logger         *zap.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(webhookService services.WebhookService, cfg *config.Config, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
		cfg:            cfg,
		logger:         logger,
	}
}

// RegisterRoutes registers the webhook handler's routes on the given mux.
func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/webhooks/github", h.Receive)
	mux.HandleFunc("GET /api/webhooks/github", h.Info)
}

// Info handles GET /api/webhooks/github
// Lets operators confirm the endpoint is reachable when configuring
// the webhook on the GitHub side.
func (h *WebhookHandler) Info(w http.ResponseWriter, r *http.Request) {
	if err := WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ready",
		"message": "POST GitHub webhook deliveries to this URL",
	}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Receive handles POST /api/webhooks/github
// Verifies the HMAC-SHA256 signature, then routes the event to every
// linked project. Delivery outcomes are reported per project.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	if h.cfg.GitHub.WebhookSecret == "" {
		h.logger.Error("Webhook received but GITHUB_WEBHOOK_SECRET is not configured")
		if err := ErrorResponse(w, http.StatusInternalServerError, "not_configured", "Webhook secret not configured"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "read_failed", "Failed to read request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	signature := r.Header.Get("X-Hub-Signature-256")
	if !github.VerifySignature(body, signature, h.cfg.GitHub.WebhookSecret) {
		h.logger.Warn("Webhook signature verification failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.String("event", r.Header.Get("X-GitHub-Event")))
		if err := ErrorResponse(w, http.StatusUnauthorized, "invalid_signature", "Invalid webhook signature"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	eventType := r.Header.Get("X-GitHub-Event")
	deliveryID := r.Header.Get("X-GitHub-Delivery")

	ctx := models.WithWebhookActor(r.Context())
	result, err := h.webhookService.Process(ctx, eventType, body)
	if err != nil {
		var whErr *services.WebhookError
		if errors.As(err, &whErr) {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_payload", whErr.Message); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Webhook processing failed",
			zap.String("event", eventType),
			zap.String("delivery_id", deliveryID),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to process webhook"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	h.logger.Info("Processed webhook delivery",
		zap.String("event", eventType),
		zap.String("delivery_id", deliveryID),
		zap.Int("projects", len(result.Results)))

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
