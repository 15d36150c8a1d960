package models

import (
	"testing"

	"github.com/raphaelgruber/matsim/internal/errs"
	"github.com/raphaelgruber/matsim/internal/property"
	"github.com/raphaelgruber/matsim/internal/weights"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresetValidate(t *testing.T) {
	valid := ComparisonPreset{
		ID:           "tile-technical",
		Name:         "Tile technical",
		Weights:      weights.Map{"technicalSpecs": 0.9, "color": 0.2},
		MaterialType: ptr("tile"),
		IncludePaths: []string{"technicalSpecs", "dimensions"},
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(p *ComparisonPreset)
		want   []string
	}{
		{"missing name", func(p *ComparisonPreset) { p.Name = "" }, []string{"Name", "is required"}},
		{"missing id", func(p *ComparisonPreset) { p.ID = "" }, []string{"ID"}},
		{"negative weight", func(p *ComparisonPreset) { p.Weights = weights.Map{"color": -0.5} }, []string{"weights.color"}},
		{"unknown material type", func(p *ComparisonPreset) { p.MaterialType = ptr("plasma") }, []string{"plasma"}},
		{"empty include prefix", func(p *ComparisonPreset) { p.IncludePaths = []string{""} }, []string{"IncludePaths[0]"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)

			err := p.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, errs.ErrValidation)
			for _, w := range tt.want {
				assert.Contains(t, err.Error(), w)
			}
		})
	}
}

func TestPresetValidateReportsEveryProblem(t *testing.T) {
	p := ComparisonPreset{Weights: weights.Map{"color": -1}, MaterialType: ptr("plasma")}

	err := p.Validate()
	require.Error(t, err)
	for _, w := range []string{"ID", "Name", "weights.color", "plasma"} {
		assert.Contains(t, err.Error(), w)
	}
}

func TestMaterialInputToMaterial(t *testing.T) {
	in := MaterialInput{
		ID:           "tile-1",
		Name:         "Carrara look",
		MaterialType: "tile",
		Properties:   map[string]any{"color": "white", "dimensions": map[string]any{"width": 600}},
	}

	m, err := in.ToMaterial()
	require.NoError(t, err)
	assert.Equal(t, "tile-1", m.ID)
	assert.Equal(t, property.Number(600), property.Flatten(m.Properties)["dimensions.width"])

	in.Properties = map[string]any{"bad": make(chan int)}
	_, err = in.ToMaterial()
	assert.ErrorIs(t, err, errs.ErrInvalidEntityShape)
}

func ptr[T any](v T) *T { return &v }
