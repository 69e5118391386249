package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vibeship/vibeship-engine/pkg/apperrors"
	"github.com/vibeship/vibeship-engine/pkg/models"
	"github.com/vibeship/vibeship-engine/pkg/repositories"
)

// allowedImageTypes maps accepted data-URI image subtypes to file
// extensions.
var allowedImageTypes = map[string]string{
	"png":  "png",
	"jpeg": "jpg",
	"jpg":  "jpg",
	"gif":  "gif",
	"webp": "webp",
}

// ScreenshotService stores project screenshots uploaded through the
// agent API as base64 data URIs.
type ScreenshotService interface {
	// Upload decodes a "data:image/<type>;base64,<data>" URI, enforces
	// the size cap, stores the binary keyed by owner/project/timestamp,
	// and updates the project's screenshot reference. Validation
	// failures reject before any mutation.
	Upload(ctx context.Context, project *models.Project, dataURI string) (string, error)
}

type screenshotService struct {
	projectRepo repositories.ProjectRepository
	activity    ActivityService
	rootDir     string
	maxBytes    int64
	logger      *zap.Logger
}

// NewScreenshotService creates a new screenshot service storing files
// under rootDir with decoded sizes capped at maxBytes.
func NewScreenshotService(
	projectRepo repositories.ProjectRepository,
	activity ActivityService,
	rootDir string,
	maxBytes int64,
	logger *zap.Logger,
) ScreenshotService {
	return &screenshotService{
		projectRepo: projectRepo,
		activity:    activity,
		rootDir:     rootDir,
		maxBytes:    maxBytes,
		logger:      logger.Named("screenshot-service"),
	}
}

var _ ScreenshotService = (*screenshotService)(nil)

func (s *screenshotService) Upload(ctx context.Context, project *models.Project, dataURI string) (string, error) {
	ext, data, err := s.decode(dataURI)
	if err != nil {
		return "", err
	}

	relPath := filepath.Join(
		project.OwnerID.String(),
		project.ID.String(),
		fmt.Sprintf("%d.%s", time.Now().UnixMilli(), ext),
	)
	fullPath := filepath.Join(s.rootDir, relPath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create screenshot directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}

	if err := s.projectRepo.SetScreenshotPath(ctx, project.ID, relPath); err != nil {
		return "", err
	}

	s.activity.Record(ctx, project.ID, models.ActionUploadScreenshot, map[string]any{
		"path":  relPath,
		"bytes": len(data),
	})

	return relPath, nil
}

// decode parses and validates a base64 image data URI.
func (s *screenshotService) decode(dataURI string) (ext string, data []byte, err error) {
	const prefix = "data:image/"
	if !strings.HasPrefix(dataURI, prefix) {
		return "", nil, apperrors.ErrInvalidImage
	}

	rest := strings.TrimPrefix(dataURI, prefix)
	typePart, b64, found := strings.Cut(rest, ";base64,")
	if !found {
		return "", nil, apperrors.ErrInvalidImage
	}

	ext, ok := allowedImageTypes[typePart]
	if !ok {
		return "", nil, apperrors.ErrInvalidImage
	}

	// Cheap pre-check on encoded length: base64 expands 3 bytes to 4
	// characters, so anything longer than 4/3 of the cap cannot decode
	// under it.
	if int64(len(b64)) > (s.maxBytes*4)/3+4 {
		return "", nil, apperrors.ErrImageTooLarge
	}

	data, err = base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", nil, apperrors.ErrInvalidImage
	}
	if int64(len(data)) > s.maxBytes {
		return "", nil, apperrors.ErrImageTooLarge
	}

	return ext, data, nil
}
