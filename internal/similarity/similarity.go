// Package similarity scores pairs of property values in [0, 1].
//
// Each value kind has its own scoring rule; mismatched kinds and a present
// value paired with a missing one score 0. Every function is pure.
package similarity

import (
	"math"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/raphaelgruber/matsim/internal/property"
)

// epsilon keeps the scale-relative numeric score defined near zero.
const epsilon = 1e-9

// Compare scores a against b for the property at path.
// ok is false when both values are missing: the property is skipped and
// must not take part in aggregation.
func Compare(path property.Path, a, b property.Value) (score float64, ok bool) {
	switch {
	case a.IsMissing() && b.IsMissing():
		return 0, false
	case a.IsMissing() || b.IsMissing():
		return 0, true
	case a.Kind() != b.Kind():
		return 0, true
	case a.Equal(b):
		return 1, true
	}

	switch a.Kind() {
	case property.KindNumber:
		x, _ := a.Num()
		y, _ := b.Num()
		return Number(path, x, y), true
	case property.KindText:
		x, _ := a.Str()
		y, _ := b.Str()
		return Text(x, y), true
	case property.KindBool:
		x, _ := a.Flag()
		y, _ := b.Flag()
		return Boolean(x, y), true
	case property.KindList:
		x, _ := a.Items()
		y, _ := b.Items()
		return List(x, y), true
	default:
		// Nested values are never leaves after flattening.
		return 0, true
	}
}

// Number scores two numbers. Paths with a known physical range are
// normalized into it; others use the difference relative to the larger
// magnitude.
func Number(path property.Path, a, b float64) float64 {
	if a == b || (math.IsNaN(a) && math.IsNaN(b)) {
		return 1
	}
	if math.IsNaN(a) || math.IsNaN(b) {
		return 0
	}

	if meta := Lookup(path); meta.HasRange && meta.Max > meta.Min {
		span := meta.Max - meta.Min
		na := (a - meta.Min) / span
		nb := (b - meta.Min) / span
		return clamp01(1 - math.Abs(na-nb))
	}

	scale := math.Max(math.Max(math.Abs(a), math.Abs(b)), epsilon)
	return clamp01(1 - math.Abs(a-b)/scale)
}

// Text scores two strings by normalized Levenshtein distance over runes,
// after lowercasing, trimming and collapsing whitespace.
func Text(a, b string) float64 {
	a = property.NormalizeText(a)
	b = property.NormalizeText(b)
	if a == b {
		return 1
	}

	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	dist := levenshtein.ComputeDistance(a, b)
	return clamp01(1 - float64(dist)/float64(longest))
}

// Boolean scores 1 for equal flags, 0 otherwise.
func Boolean(a, b bool) float64 {
	if a == b {
		return 1
	}
	return 0
}

// List scores two lists by the Jaccard index of their element sets.
// Two empty lists score 1; one empty list scores 0.
func List(a, b []property.Value) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	left := keySet(a)
	right := keySet(b)

	inter := 0
	for k := range left {
		if _, ok := right[k]; ok {
			inter++
		}
	}
	union := len(left) + len(right) - inter
	if union == 0 {
		return 1
	}
	return float64(inter) / float64(union)
}

func keySet(items []property.Value) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item.Key()] = struct{}{}
	}
	return set
}

func clamp01(f float64) float64 {
	switch {
	case math.IsNaN(f), f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
