package service

import (
	"cmp"
	"math"
	"slices"

	"github.com/raphaelgruber/matsim/internal/models"
	"github.com/raphaelgruber/matsim/internal/property"
	"github.com/raphaelgruber/matsim/internal/similarity"
	"github.com/raphaelgruber/matsim/internal/weights"
)

// CompareProperties compares two property bags path by path.
// Paths rejected by the plan's filters and paths missing from both bags are
// skipped. The result is ordered by descending weight, then by path.
func CompareProperties(a, b property.Map, plan weights.Plan) []models.PropertyComparison {
	left := property.Flatten(a)
	right := property.Flatten(b)

	paths := property.Paths(left, right)
	out := make([]models.PropertyComparison, 0, len(paths))
	for _, p := range paths {
		if !plan.Allows(p) {
			continue
		}
		lv, rv := left[p], right[p]
		score, ok := similarity.Compare(p, lv, rv)
		if !ok {
			continue
		}

		w := plan.Weight(p)
		meta := similarity.Lookup(p)
		out = append(out, models.PropertyComparison{
			Path:        p,
			DisplayName: meta.DisplayName,
			Left:        lv,
			Right:       rv,
			Similarity:  score,
			Weight:      w,
			Importance:  weights.ImportanceOf(w),
			Unit:        meta.Unit,
		})
	}

	// paths are already sorted, so a stable sort keeps path order within equal weights
	slices.SortStableFunc(out, func(x, y models.PropertyComparison) int {
		return cmp.Compare(y.Weight, x.Weight)
	})
	return out
}

// Aggregate returns the weighted mean of the comparisons' similarities.
// Weights are scaled by the largest one first so that huge weights cannot
// overflow the sums. An empty list or a zero total weight yields 0.
func Aggregate(comparisons []models.PropertyComparison) float64 {
	var top float64
	for _, c := range comparisons {
		top = max(top, c.Weight)
	}
	if top <= 0 || math.IsInf(top, 0) || math.IsNaN(top) {
		return 0
	}

	var sum, total float64
	for _, c := range comparisons {
		w := c.Weight / top
		if math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
			continue
		}
		sum += c.Similarity * w
		total += w
	}
	if total <= 0 {
		return 0
	}
	r := sum / total
	if math.IsNaN(r) {
		return 0
	}
	return min(max(r, 0), 1)
}
