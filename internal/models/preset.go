package models

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/raphaelgruber/matsim/internal/errs"
	"github.com/raphaelgruber/matsim/internal/weights"
)

// ComparisonPreset is a named, reusable weight and filter configuration.
type ComparisonPreset struct {
	ID           string      `json:"id" yaml:"id" validate:"required,max=128"`
	Name         string      `json:"name" yaml:"name" validate:"required,max=200"`
	Description  *string     `json:"description,omitempty" yaml:"description,omitempty"`
	Weights      weights.Map `json:"weights" yaml:"weights"`
	MaterialType *string     `json:"material_type,omitempty" yaml:"material_type,omitempty"`
	IncludePaths []string    `json:"include_paths,omitempty" yaml:"include_paths,omitempty" validate:"dive,required"`
	ExcludePaths []string    `json:"exclude_paths,omitempty" yaml:"exclude_paths,omitempty" validate:"dive,required"`
	IsDefault    bool        `json:"is_default" yaml:"is_default"`
	CreatedAt    time.Time   `json:"created_at,omitempty" yaml:"-"`
	UpdatedAt    time.Time   `json:"updated_at,omitempty" yaml:"-"`
}

// PresetFilter narrows ListPresets.
type PresetFilter struct {
	MaterialType string // empty matches every preset
	DefaultOnly  bool
}

// MaterialTypeOrEmpty returns the preset's material type, or "".
func (p *ComparisonPreset) MaterialTypeOrEmpty() string {
	if p.MaterialType == nil {
		return ""
	}
	return *p.MaterialType
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate rejects presets with missing identity fields, empty filter
// prefixes, negative or non-finite weights, or an unknown material type.
// Every problem is reported; the error satisfies errors.Is(err, errs.ErrValidation).
func (p *ComparisonPreset) Validate() error {
	var result *multierror.Error

	if err := getValidator().Struct(p); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("validate preset: %w", err)
		}
		for _, fe := range fieldErrs {
			result = multierror.Append(result, errs.Invalid(fe.Namespace(), "%s", describe(fe)))
		}
	}
	if err := weights.Validate("weights", p.Weights); err != nil {
		result = multierror.Append(result, err)
	}
	if err := weights.ValidateMaterialType("material_type", p.MaterialTypeOrEmpty()); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "failed " + fe.Tag() + " check"
	}
}
