package weights

import (
	"math"
	"slices"

	"github.com/agnivade/levenshtein"
	"github.com/hashicorp/go-multierror"
	"github.com/raphaelgruber/matsim/internal/errs"
)

// Validate checks that every weight in m is a finite, non-negative number
// keyed by a non-empty path. All problems are reported together; the
// returned error satisfies errors.Is(err, errs.ErrValidation).
func Validate(field string, m Map) error {
	var result *multierror.Error

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		w := m[k]
		switch {
		case k == "":
			result = multierror.Append(result, errs.Invalid(field, "empty property path"))
		case math.IsNaN(w) || math.IsInf(w, 0):
			result = multierror.Append(result, errs.Invalid(field+"."+k, "weight must be finite"))
		case w < 0:
			result = multierror.Append(result, errs.Invalid(field+"."+k, "weight must be >= 0, got %g", w))
		}
	}
	return result.ErrorOrNil()
}

// ValidateMaterialType rejects material types without a weight table.
// The empty string means "any" and is accepted.
func ValidateMaterialType(field, materialType string) error {
	if materialType == "" || KnownMaterialType(materialType) {
		return nil
	}
	if guess := closestType(materialType); guess != "" {
		return errs.Invalid(field, "unknown material type %q, did you mean %q? (known: %v)", materialType, guess, MaterialTypes())
	}
	return errs.Invalid(field, "unknown material type %q (known: %v)", materialType, MaterialTypes())
}

// closestType returns the known type within two edits of t, or "".
func closestType(t string) string {
	t = normalizeType(t)
	best, bestDist := "", 3
	for _, known := range MaterialTypes() {
		if d := levenshtein.ComputeDistance(t, known); d < bestDist {
			best, bestDist = known, d
		}
	}
	return best
}
