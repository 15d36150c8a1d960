package models

import (
	"time"

	"github.com/raphaelgruber/matsim/internal/property"
	"github.com/raphaelgruber/matsim/internal/weights"
)

// PropertyComparison is the per-property outcome of comparing two materials.
type PropertyComparison struct {
	Path        string             `json:"path"`
	DisplayName string             `json:"display_name"`
	Left        property.Value     `json:"left"`
	Right       property.Value     `json:"right"`
	Similarity  float64            `json:"similarity"`
	Weight      float64            `json:"weight"`
	Importance  weights.Importance `json:"importance"`
	Unit        string             `json:"unit,omitempty"`
}

// ComparisonResult is the immutable outcome of one pairwise comparison.
type ComparisonResult struct {
	ID                  string               `json:"id"`
	MaterialIDs         []string             `json:"material_ids"`
	OverallSimilarity   float64              `json:"overall_similarity"`
	PropertyComparisons []PropertyComparison `json:"property_comparisons"`
	PresetID            *string              `json:"preset_id,omitempty"`
	CreatedAt           time.Time            `json:"created_at"`
}

// SimilarMatch is one ranked candidate of a similarity search.
type SimilarMatch struct {
	CandidateID string               `json:"candidate_id"`
	Name        string               `json:"name,omitempty"`
	Similarity  float64              `json:"similarity"`
	Comparisons []PropertyComparison `json:"comparisons"`
}
