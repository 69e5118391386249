package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vibeship/vibeship-engine/pkg/apperrors"
	"github.com/vibeship/vibeship-engine/pkg/models"
	"github.com/vibeship/vibeship-engine/pkg/repositories"
)

// APIKeyPrefix identifies vibeship project keys in logs and tooling.
const APIKeyPrefix = "vs_"

// bearerScheme is the required Authorization header scheme.
const bearerScheme = "Bearer "

// AuthResult is the outcome of a bearer-key authentication attempt.
// Every failure maps to HTTP 401 regardless of Reason; the specific
// reason is surfaced in the response body for debuggability (this API
// is developer-facing, not public-internet-adversarial).
type AuthResult struct {
	Project *models.Project
	Reason  string
}

// APIKeyService manages per-project bearer keys for the AI-agent API.
type APIKeyService interface {
	// Generate creates and stores a new random key for a project,
	// replacing any existing one. Returns the plain key — it is shown
	// once and held only in the project row.
	Generate(ctx context.Context, projectID uuid.UUID) (string, error)

	// Get retrieves the project's live key, or "" when revoked.
	Get(ctx context.Context, projectID uuid.UUID) (string, error)

	// Revoke nulls the project's key.
	Revoke(ctx context.Context, projectID uuid.UUID) error

	// Authenticate resolves a project from an Authorization header
	// value. The header must be present, carry the Bearer scheme, and
	// exactly equal a project's stored key.
	Authenticate(ctx context.Context, authorizationHeader string) (*AuthResult, error)
}

type apiKeyService struct {
	projectRepo repositories.ProjectRepository
	logger      *zap.Logger
}

// NewAPIKeyService creates a new API key service.
func NewAPIKeyService(projectRepo repositories.ProjectRepository, logger *zap.Logger) APIKeyService {
	return &apiKeyService{
		projectRepo: projectRepo,
		logger:      logger.Named("api-key-service"),
	}
}

var _ APIKeyService = (*apiKeyService)(nil)

// Generate creates a new random key: "vs_" plus 32 random bytes hex
// encoded (64 hex chars).
func (s *apiKeyService) Generate(ctx context.Context, projectID uuid.UUID) (string, error) {
	keyBytes := make([]byte, 32)
	if _, err := rand.Read(keyBytes); err != nil {
		return "", fmt.Errorf("failed to generate random key: %w", err)
	}

	key := APIKeyPrefix + hex.EncodeToString(keyBytes)

	if err := s.projectRepo.SetAPIKey(ctx, projectID, &key); err != nil {
		return "", fmt.Errorf("failed to store key: %w", err)
	}

	s.logger.Info("Generated project API key",
		zap.String("project_id", projectID.String()))

	return key, nil
}

func (s *apiKeyService) Get(ctx context.Context, projectID uuid.UUID) (string, error) {
	project, err := s.projectRepo.Get(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("failed to get project: %w", err)
	}
	if project.APIKey == nil {
		return "", nil
	}
	return *project.APIKey, nil
}

func (s *apiKeyService) Revoke(ctx context.Context, projectID uuid.UUID) error {
	if err := s.projectRepo.SetAPIKey(ctx, projectID, nil); err != nil {
		return fmt.Errorf("failed to revoke key: %w", err)
	}

	s.logger.Info("Revoked project API key",
		zap.String("project_id", projectID.String()))

	return nil
}

// Authenticate resolves a project from an Authorization header.
//
// The lookup is by exact string equality against the stored key. A
// constant-time comparison would require fetching the candidate row
// first; the keys are high-entropy random strings scoped to single
// projects, so plain equality is the accepted tradeoff here (unlike the
// webhook signature check, which is constant time).
func (s *apiKeyService) Authenticate(ctx context.Context, authorizationHeader string) (*AuthResult, error) {
	if authorizationHeader == "" {
		return &AuthResult{Reason: "Missing Authorization header"}, apperrors.ErrMissingAPIKey
	}
	if !strings.HasPrefix(authorizationHeader, bearerScheme) {
		return &AuthResult{Reason: "Authorization header must use the Bearer scheme"}, apperrors.ErrMissingAPIKey
	}

	key := strings.TrimPrefix(authorizationHeader, bearerScheme)
	if key == "" {
		return &AuthResult{Reason: "Missing Authorization header"}, apperrors.ErrMissingAPIKey
	}

	project, err := s.projectRepo.GetByAPIKey(ctx, key)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &AuthResult{Reason: "Invalid API key"}, apperrors.ErrInvalidAPIKey
		}
		return nil, fmt.Errorf("failed to look up API key: %w", err)
	}

	return &AuthResult{Project: project}, nil
}
