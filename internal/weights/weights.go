// Package weights resolves per-property weights from defaults, material-type
// tables, presets and caller overrides.
package weights

import (
	"maps"
	"slices"
	"strings"

	"github.com/raphaelgruber/matsim/internal/property"
)

// DefaultWeight applies to any path without an explicit or prefix weight.
const DefaultWeight = 1.0

// Map maps a property path, or a path prefix, to a non-negative weight.
type Map map[string]float64

// Importance buckets a weight for display.
type Importance string

const (
	ImportanceHigh   Importance = "high"
	ImportanceMedium Importance = "medium"
	ImportanceLow    Importance = "low"
)

// ImportanceOf returns high for weights >= 0.8, medium for >= 0.5, low otherwise.
func ImportanceOf(w float64) Importance {
	switch {
	case w >= 0.8:
		return ImportanceHigh
	case w >= 0.5:
		return ImportanceMedium
	default:
		return ImportanceLow
	}
}

// defaults weight the properties every material shares.
var defaults = Map{
	"color":      0.9,
	"dimensions": 0.8,
	"finish":     0.8,
	"pattern":    0.7,
	"texture":    0.6,
	"category":   0.7,
}

// byMaterialType raises the weight of the specs that matter for one kind
// of material.
var byMaterialType = map[string]Map{
	"tile": {
		"technicalSpecs.waterAbsorption": 0.9,
		"technicalSpecs.slipResistance":  0.85,
		"technicalSpecs.peiRating":       0.85,
		"technicalSpecs.frostResistant":  0.8,
		"technicalSpecs.hardness":        0.7,
		"dimensions.thickness":           0.8,
	},
	"stone": {
		"technicalSpecs.hardness":        0.9,
		"technicalSpecs.waterAbsorption": 0.8,
		"technicalSpecs.density":         0.7,
		"origin":                         0.7,
		"pattern":                        0.8,
	},
	"wood": {
		"species":                        0.95,
		"texture":                        0.8,
		"technicalSpecs.hardness":        0.8,
		"technicalSpecs.moistureContent": 0.7,
	},
	"laminate": {
		"technicalSpecs.abrasionClass":  0.9,
		"dimensions.thickness":          0.85,
		"technicalSpecs.waterResistant": 0.8,
	},
	"fabric": {
		"composition":               0.9,
		"pattern":                   0.85,
		"technicalSpecs.martindale": 0.8,
		"technicalSpecs.fireRating": 0.7,
	},
	"metal": {
		"alloy":                              0.9,
		"finish":                             0.9,
		"technicalSpecs.thermalConductivity": 0.6,
	},
}

// Defaults returns a copy of the built-in default table.
func Defaults() Map { return maps.Clone(defaults) }

// ForMaterialType returns a copy of the table for materialType, or nil.
func ForMaterialType(materialType string) Map {
	return maps.Clone(byMaterialType[normalizeType(materialType)])
}

// KnownMaterialType reports whether materialType has a weight table.
func KnownMaterialType(materialType string) bool {
	_, ok := byMaterialType[normalizeType(materialType)]
	return ok
}

// MaterialTypes lists the material types with a weight table.
func MaterialTypes() []string {
	return slices.Sorted(maps.Keys(byMaterialType))
}

func normalizeType(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

// Merge returns a new map holding every layer's entries; later layers win
// on key collisions. Layers are not modified.
func Merge(layers ...Map) Map {
	n := 0
	for _, l := range layers {
		n += len(l)
	}
	out := make(Map, n)
	for _, l := range layers {
		maps.Copy(out, l)
	}
	return out
}

// Resolve merges the default table, the table for materialType and the
// given override layers, in that order.
func Resolve(materialType string, overrides ...Map) Map {
	layers := make([]Map, 0, len(overrides)+2)
	layers = append(layers, defaults, byMaterialType[normalizeType(materialType)])
	layers = append(layers, overrides...)
	return Merge(layers...)
}

// Lookup returns the weight for p: an exact entry first, then the longest
// entry that is a dotted prefix of p, then DefaultWeight.
func (m Map) Lookup(p property.Path) float64 {
	if w, ok := m[p]; ok {
		return w
	}
	for prefix := p; ; {
		i := strings.LastIndexByte(prefix, '.')
		if i < 0 {
			return DefaultWeight
		}
		prefix = prefix[:i]
		if w, ok := m[prefix]; ok {
			return w
		}
	}
}

// Plan is a resolved weight map plus the path filters applied at
// comparison time.
type Plan struct {
	Weights Map
	Include []string
	Exclude []string
}

// NewPlan resolves weights for materialType and attaches the filters.
func NewPlan(materialType string, include, exclude []string, overrides ...Map) Plan {
	return Plan{
		Weights: Resolve(materialType, overrides...),
		Include: slices.Clone(include),
		Exclude: slices.Clone(exclude),
	}
}

// Allows reports whether p survives the include and exclude filters.
// With a non-empty include list, p must start with one of its prefixes;
// a path starting with any exclude prefix is dropped.
func (p Plan) Allows(path property.Path) bool {
	if len(p.Include) > 0 && !hasAnyPrefix(path, p.Include) {
		return false
	}
	return !hasAnyPrefix(path, p.Exclude)
}

// Weight returns the weight for path.
func (p Plan) Weight(path property.Path) float64 {
	return p.Weights.Lookup(path)
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
