package models

import (
	"time"

	"github.com/raphaelgruber/matsim/internal/property"
)

// Material is a catalog entry compared by the similarity engine.
// Properties are converted to typed values when the material is loaded
// from a store and never mutated afterwards.
type Material struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	MaterialType string       `json:"material_type,omitempty"`
	Properties   property.Map `json:"properties"`
	Created      time.Time    `json:"created,omitempty"`
	Updated      time.Time    `json:"updated,omitempty"`
}

// MaterialInput is the input structure for creating or replacing materials.
type MaterialInput struct {
	ID           string         `json:"id" yaml:"id"`
	Name         string         `json:"name" yaml:"name"`
	MaterialType string         `json:"material_type,omitempty" yaml:"material_type,omitempty"`
	Properties   map[string]any `json:"properties" yaml:"properties"`
}

// ToMaterial converts the raw property bag into a Material.
func (in MaterialInput) ToMaterial() (*Material, error) {
	props, err := property.FromMap(in.Properties)
	if err != nil {
		return nil, err
	}
	return &Material{
		ID:           in.ID,
		Name:         in.Name,
		MaterialType: in.MaterialType,
		Properties:   props,
	}, nil
}

// CandidateFilter narrows the materials considered by a similarity search.
type CandidateFilter struct {
	MaterialType string   // empty matches every type
	ExcludeIDs   []string // typically the reference material
	Limit        int      // 0 means no limit
}
