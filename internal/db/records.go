package db

import (
	"fmt"
	"time"

	"github.com/raphaelgruber/matsim/internal/models"
	"github.com/raphaelgruber/matsim/internal/property"
	"github.com/raphaelgruber/matsim/internal/weights"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Row types mirror the stored shape. They are converted to models at the
// package boundary so that property bags are typed exactly once.

type materialRow struct {
	ID           surrealmodels.RecordID `json:"id"`
	Name         string                 `json:"name"`
	MaterialType *string                `json:"material_type,omitempty"`
	Properties   map[string]any         `json:"properties"`
	Created      time.Time              `json:"created,omitempty"`
	Updated      time.Time              `json:"updated,omitempty"`
}

func (r materialRow) toModel() (*models.Material, error) {
	id, err := models.RecordIDString(r.ID)
	if err != nil {
		return nil, fmt.Errorf("material id: %w", err)
	}
	props, err := property.FromMap(r.Properties)
	if err != nil {
		return nil, fmt.Errorf("material %s: %w", id, err)
	}
	m := &models.Material{
		ID:         id,
		Name:       r.Name,
		Properties: props,
		Created:    r.Created,
		Updated:    r.Updated,
	}
	if r.MaterialType != nil {
		m.MaterialType = *r.MaterialType
	}
	return m, nil
}

type presetRow struct {
	ID           surrealmodels.RecordID `json:"id"`
	Name         string                 `json:"name"`
	Description  *string                `json:"description,omitempty"`
	Weights      map[string]float64     `json:"weights"`
	MaterialType *string                `json:"material_type,omitempty"`
	IncludePaths []string               `json:"include_paths"`
	ExcludePaths []string               `json:"exclude_paths"`
	IsDefault    bool                   `json:"is_default"`
	CreatedAt    time.Time              `json:"created_at,omitempty"`
	UpdatedAt    time.Time              `json:"updated_at,omitempty"`
}

func (r presetRow) toModel() (*models.ComparisonPreset, error) {
	id, err := models.RecordIDString(r.ID)
	if err != nil {
		return nil, fmt.Errorf("preset id: %w", err)
	}
	return &models.ComparisonPreset{
		ID:           id,
		Name:         r.Name,
		Description:  r.Description,
		Weights:      weights.Map(r.Weights),
		MaterialType: r.MaterialType,
		IncludePaths: r.IncludePaths,
		ExcludePaths: r.ExcludePaths,
		IsDefault:    r.IsDefault,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}, nil
}

type comparisonRow struct {
	Path        string  `json:"path"`
	DisplayName string  `json:"display_name"`
	Left        any     `json:"left"`
	Right       any     `json:"right"`
	Similarity  float64 `json:"similarity"`
	Weight      float64 `json:"weight"`
	Importance  string  `json:"importance"`
	Unit        string  `json:"unit,omitempty"`
}

type resultRow struct {
	ID                  surrealmodels.RecordID `json:"id"`
	MaterialIDs         []string               `json:"material_ids"`
	OverallSimilarity   float64                `json:"overall_similarity"`
	PropertyComparisons []comparisonRow        `json:"property_comparisons"`
	PresetID            *string                `json:"preset_id,omitempty"`
	CreatedAt           time.Time              `json:"created_at"`
}

func comparisonRows(comps []models.PropertyComparison) []map[string]any {
	out := make([]map[string]any, len(comps))
	for i, c := range comps {
		row := map[string]any{
			"path":         c.Path,
			"display_name": c.DisplayName,
			"left":         c.Left.Native(),
			"right":        c.Right.Native(),
			"similarity":   c.Similarity,
			"weight":       c.Weight,
			"importance":   string(c.Importance),
		}
		if c.Unit != "" {
			row["unit"] = c.Unit
		}
		out[i] = row
	}
	return out
}

func (r resultRow) toModel() (*models.ComparisonResult, error) {
	id, err := models.RecordIDString(r.ID)
	if err != nil {
		return nil, fmt.Errorf("result id: %w", err)
	}
	comps := make([]models.PropertyComparison, len(r.PropertyComparisons))
	for i, c := range r.PropertyComparisons {
		left, err := property.FromAny(c.Left)
		if err != nil {
			return nil, fmt.Errorf("result %s: %w", id, err)
		}
		right, err := property.FromAny(c.Right)
		if err != nil {
			return nil, fmt.Errorf("result %s: %w", id, err)
		}
		comps[i] = models.PropertyComparison{
			Path:        c.Path,
			DisplayName: c.DisplayName,
			Left:        left,
			Right:       right,
			Similarity:  c.Similarity,
			Weight:      c.Weight,
			Importance:  weights.Importance(c.Importance),
			Unit:        c.Unit,
		}
	}
	return &models.ComparisonResult{
		ID:                  id,
		MaterialIDs:         r.MaterialIDs,
		OverallSimilarity:   r.OverallSimilarity,
		PropertyComparisons: comps,
		PresetID:            r.PresetID,
		CreatedAt:           r.CreatedAt,
	}, nil
}
