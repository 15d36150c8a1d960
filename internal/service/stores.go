package service

import (
	"context"

	"github.com/raphaelgruber/matsim/internal/models"
)

// MaterialStore supplies the materials being compared.
// GetMaterial returns an error wrapping errs.ErrNotFound for unknown ids.
type MaterialStore interface {
	GetMaterial(ctx context.Context, id string) (*models.Material, error)
	ListCandidates(ctx context.Context, filter models.CandidateFilter) ([]models.Material, error)
}

// PresetStore supplies named comparison presets.
// GetPreset returns an error wrapping errs.ErrNotFound for unknown ids.
type PresetStore interface {
	GetPreset(ctx context.Context, id string) (*models.ComparisonPreset, error)
	ListPresets(ctx context.Context, filter models.PresetFilter) ([]models.ComparisonPreset, error)
}

// ResultStore records comparison results. Failures are logged by the
// caller and never surface to the requester of the comparison.
type ResultStore interface {
	SaveComparisonResult(ctx context.Context, result *models.ComparisonResult) error
}
