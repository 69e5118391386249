package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vibeship/vibeship-engine/pkg/database"
	"github.com/vibeship/vibeship-engine/pkg/models"
)

// TagCatalogRepository provides data access for the global tag catalog.
// The catalog is deduplicated by (tag_type, tag_value) and only grows.
type TagCatalogRepository interface {
	// Upsert records tag values in the catalog, ignoring known ones.
	Upsert(ctx context.Context, tags []models.ProjectTag) error

	// Search returns catalog tags whose value matches the prefix,
	// optionally filtered by type. Used for autocomplete.
	Search(ctx context.Context, tagType models.TagType, prefix string, limit int) ([]models.CatalogTag, error)
}

type tagCatalogRepository struct {
	db *database.DB
}

// NewTagCatalogRepository creates a new tag catalog repository.
func NewTagCatalogRepository(db *database.DB) TagCatalogRepository {
	return &tagCatalogRepository{db: db}
}

var _ TagCatalogRepository = (*tagCatalogRepository)(nil)

// Upsert inserts any unknown tag values. ON CONFLICT DO NOTHING keeps
// the catalog monotone and deduplicated.
func (r *tagCatalogRepository) Upsert(ctx context.Context, tags []models.ProjectTag) error {
	for _, tag := range tags {
		_, err := r.db.Exec(ctx, `
			INSERT INTO tag_catalog (id, tag_type, tag_value, created_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (tag_type, tag_value) DO NOTHING`,
			uuid.New(), tag.TagType, tag.TagValue,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert catalog tag %s/%s: %w", tag.TagType, tag.TagValue, err)
		}
	}
	return nil
}

// Search returns matching catalog tags ordered by value. An empty
// tagType matches all types; an empty prefix matches everything.
func (r *tagCatalogRepository) Search(ctx context.Context, tagType models.TagType, prefix string, limit int) ([]models.CatalogTag, error) {
	query := `
		SELECT id, tag_type, tag_value, created_at
		FROM tag_catalog
		WHERE ($1 = '' OR tag_type = $1)
		  AND tag_value ILIKE $2 || '%'
		ORDER BY tag_value
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, string(tagType), prefix, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search tag catalog: %w", err)
	}
	defer rows.Close()

	var tags []models.CatalogTag
	for rows.Next() {
		var t models.CatalogTag
		if err := rows.Scan(&t.ID, &t.TagType, &t.TagValue, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan catalog tag: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tag catalog: %w", err)
	}

	return tags, nil
}
