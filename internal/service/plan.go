package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/raphaelgruber/matsim/internal/errs"
	"github.com/raphaelgruber/matsim/internal/models"
	"github.com/raphaelgruber/matsim/internal/weights"
)

// plan is a resolved weight plan plus the preset it came from, if any.
type plan struct {
	weights.Plan
	presetID *string
}

// sharedType returns the material type common to every material, or "" when
// they differ. It does not depend on argument order.
func sharedType(mats ...*models.Material) string {
	if len(mats) == 0 {
		return ""
	}
	t := strings.TrimSpace(mats[0].MaterialType)
	for _, m := range mats[1:] {
		if !strings.EqualFold(t, strings.TrimSpace(m.MaterialType)) {
			return ""
		}
	}
	return strings.ToLower(t)
}

// resolvePlan merges, lowest precedence first: the default weights, the
// material-type table, the preset's weights and the caller's weights.
// entityType is used when opts names no material type; it picks the type
// table and the default preset. Malformed presets and overrides are rejected
// before any comparison runs.
func (s *ComparisonService) resolvePlan(ctx context.Context, opts CompareOptions, entityType string) (plan, error) {
	if err := weights.Validate("weights", opts.Weights); err != nil {
		return plan{}, err
	}
	if err := weights.ValidateMaterialType("material_type", opts.MaterialType); err != nil {
		return plan{}, err
	}

	materialType := opts.MaterialType
	if materialType == "" {
		materialType = entityType
	}

	preset, err := s.lookupPreset(ctx, opts.PresetID, materialType)
	if err != nil {
		return plan{}, err
	}

	var (
		presetWeights    weights.Map
		include, exclude []string
		presetID         *string
	)
	if preset != nil {
		if err := preset.Validate(); err != nil {
			return plan{}, fmt.Errorf("preset %s: %w", preset.ID, err)
		}
		presetWeights = preset.Weights
		include, exclude = preset.IncludePaths, preset.ExcludePaths
		if opts.MaterialType == "" && preset.MaterialTypeOrEmpty() != "" {
			materialType = preset.MaterialTypeOrEmpty()
		}
		id := preset.ID
		presetID = &id
	}
	if len(opts.IncludePaths) > 0 {
		include = opts.IncludePaths
	}
	if len(opts.ExcludePaths) > 0 {
		exclude = opts.ExcludePaths
	}

	return plan{
		Plan:     weights.NewPlan(materialType, include, exclude, presetWeights, opts.Weights),
		presetID: presetID,
	}, nil
}

// lookupPreset returns the named preset, or the default preset for
// materialType when no name is given. It returns nil without error when no
// preset applies.
func (s *ComparisonService) lookupPreset(ctx context.Context, id, materialType string) (*models.ComparisonPreset, error) {
	if s.presets == nil {
		if id != "" {
			return nil, errs.NotFound("preset", id)
		}
		return nil, nil
	}

	if id != "" {
		preset, err := s.presets.GetPreset(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get preset: %w", err)
		}
		if preset == nil {
			return nil, errs.NotFound("preset", id)
		}
		return preset, nil
	}

	if materialType == "" {
		return nil, nil
	}
	defaults, err := s.presets.ListPresets(ctx, models.PresetFilter{MaterialType: materialType, DefaultOnly: true})
	if err != nil {
		return nil, fmt.Errorf("list default presets: %w", err)
	}
	if len(defaults) == 0 {
		return nil, nil
	}
	return &defaults[0], nil
}
