package services

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/vibeship/vibeship-engine/pkg/models"
	"github.com/vibeship/vibeship-engine/pkg/repositories"
)

// TagCatalogService maintains the global deduplicated list of known
// tag values used as an autocomplete source.
type TagCatalogService interface {
	// RecordTags adds any unknown tag values to the catalog. Failures
	// are logged and swallowed — the catalog is best-effort and must
	// not fail tag assignment.
	RecordTags(ctx context.Context, tags []models.ProjectTag)

	// Search returns catalog tags matching a value prefix, optionally
	// filtered by type.
	Search(ctx context.Context, tagType models.TagType, prefix string, limit int) ([]models.CatalogTag, error)

	// SeedFromFile loads an initial catalog from a YAML file. Missing
	// path is a no-op.
	SeedFromFile(ctx context.Context, path string) error
}

type tagCatalogService struct {
	repo   repositories.TagCatalogRepository
	logger *zap.Logger
}

// NewTagCatalogService creates a new tag catalog service.
func NewTagCatalogService(repo repositories.TagCatalogRepository, logger *zap.Logger) TagCatalogService {
	return &tagCatalogService{
		repo:   repo,
		logger: logger.Named("tag-catalog"),
	}
}

var _ TagCatalogService = (*tagCatalogService)(nil)

func (s *tagCatalogService) RecordTags(ctx context.Context, tags []models.ProjectTag) {
	if len(tags) == 0 {
		return
	}
	if err := s.repo.Upsert(ctx, tags); err != nil {
		s.logger.Error("Failed to record tags in catalog", zap.Error(err))
	}
}

func (s *tagCatalogService) Search(ctx context.Context, tagType models.TagType, prefix string, limit int) ([]models.CatalogTag, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	return s.repo.Search(ctx, tagType, prefix, limit)
}

// seedFile is the YAML shape of a tag catalog seed:
//
//	models: [GPT-4o, Claude]
//	frameworks: [Next.js]
//	tools: [Vim]
type seedFile struct {
	Models     []string `yaml:"models"`
	Frameworks []string `yaml:"frameworks"`
	Tools      []string `yaml:"tools"`
}

func (s *tagCatalogService) SeedFromFile(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Warn("Tag catalog seed file not found, skipping", zap.String("path", path))
			return nil
		}
		return fmt.Errorf("failed to read tag catalog seed: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse tag catalog seed: %w", err)
	}

	var tags []models.ProjectTag
	for _, v := range seed.Models {
		tags = append(tags, models.ProjectTag{TagType: models.TagTypeModel, TagValue: v})
	}
	for _, v := range seed.Frameworks {
		tags = append(tags, models.ProjectTag{TagType: models.TagTypeFramework, TagValue: v})
	}
	for _, v := range seed.Tools {
		tags = append(tags, models.ProjectTag{TagType: models.TagTypeTool, TagValue: v})
	}

	if err := s.repo.Upsert(ctx, tags); err != nil {
		return fmt.Errorf("failed to seed tag catalog: %w", err)
	}

	s.logger.Info("Seeded tag catalog", zap.Int("tags", len(tags)), zap.String("path", path))
	return nil
}
