package models

import (
	"time"

	"github.com/google/uuid"
)

// TagType categorizes a tag as an AI model, a framework, or a tool.
type TagType string

const (
	TagTypeModel     TagType = "model"
	TagTypeFramework TagType = "framework"
	TagTypeTool      TagType = "tool"
)

// IsValid returns true if the tag type is one of the three known types.
func (t TagType) IsValid() bool {
	switch t {
	case TagTypeModel, TagTypeFramework, TagTypeTool:
		return true
	default:
		return false
	}
}

// ProjectTag is a (tag_type, tag_value) pair attached to a project.
// At most one row per (project, tag_type, tag_value); deleting the
// project cascades.
type ProjectTag struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
	TagType   TagType   `json:"tag_type"`
	TagValue  string    `json:"tag_value"`
	CreatedAt time.Time `json:"created_at"`
}

// CatalogTag is a globally known tag value with its type, used as an
// autocomplete source. The catalog is deduplicated by (type, value) and
// grows monotonically as new tags are coined.
type CatalogTag struct {
	ID        uuid.UUID `json:"id"`
	TagType   TagType   `json:"tag_type"`
	TagValue  string    `json:"tag_value"`
	CreatedAt time.Time `json:"created_at"`
}

// GroupedTags is a project's tags grouped by type, each type's values
// in insertion order. This is the shape the AI-facing read response and
// the public project views use.
type GroupedTags struct {
	Models     []string `json:"models"`
	Frameworks []string `json:"frameworks"`
	Tools      []string `json:"tools"`
}

// GroupTags groups a flat tag list by type, preserving order.
func GroupTags(tags []ProjectTag) GroupedTags {
	g := GroupedTags{
		Models:     []string{},
		Frameworks: []string{},
		Tools:      []string{},
	}
	for _, t := range tags {
		switch t.TagType {
		case TagTypeModel:
			g.Models = append(g.Models, t.TagValue)
		case TagTypeFramework:
			g.Frameworks = append(g.Frameworks, t.TagValue)
		case TagTypeTool:
			g.Tools = append(g.Tools, t.TagValue)
		}
	}
	return g
}
