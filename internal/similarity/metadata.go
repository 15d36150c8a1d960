package similarity

import (
	"strings"
	"unicode"

	"github.com/raphaelgruber/matsim/internal/property"
)

// Meta describes a well-known property path.
type Meta struct {
	DisplayName string
	Unit        string
	// Min and Max bound the physical range; HasRange is false when unknown.
	Min, Max float64
	HasRange bool
}

func ranged(name, unit string, lo, hi float64) Meta {
	return Meta{DisplayName: name, Unit: unit, Min: lo, Max: hi, HasRange: true}
}

// knownPaths is a small hand-maintained table keyed by exact path.
// Paths outside it fall back to scale-relative numeric comparison and a
// display name derived from the last path segment.
var knownPaths = map[property.Path]Meta{
	"dimensions.width":     ranged("Width", "mm", 0, 3000),
	"dimensions.length":    ranged("Length", "mm", 0, 3000),
	"dimensions.height":    ranged("Height", "mm", 0, 3000),
	"dimensions.thickness": ranged("Thickness", "mm", 0, 50),
	"dimensions.diameter":  ranged("Diameter", "mm", 0, 3000),

	"technicalSpecs.hardness":            ranged("Hardness", "Mohs", 1, 10),
	"technicalSpecs.waterAbsorption":     ranged("Water Absorption", "%", 0, 20),
	"technicalSpecs.slipResistance":      ranged("Slip Resistance", "PTV", 0, 100),
	"technicalSpecs.breakingStrength":    ranged("Breaking Strength", "N", 0, 5000),
	"technicalSpecs.density":             ranged("Density", "g/cm³", 0, 5),
	"technicalSpecs.weight":              ranged("Weight", "kg/m²", 0, 200),
	"technicalSpecs.thermalConductivity": ranged("Thermal Conductivity", "W/(m·K)", 0, 5),
	"technicalSpecs.moistureContent":     ranged("Moisture Content", "%", 0, 30),
	"technicalSpecs.fireRating":          {DisplayName: "Fire Rating"},
	"technicalSpecs.frostResistant":      {DisplayName: "Frost Resistant"},
	"technicalSpecs.peiRating":           ranged("PEI Rating", "", 0, 5),

	"color":   {DisplayName: "Color"},
	"finish":  {DisplayName: "Finish"},
	"pattern": {DisplayName: "Pattern"},
	"texture": {DisplayName: "Texture"},
}

// Lookup returns metadata for p, synthesizing a display name for unknown paths.
func Lookup(p property.Path) Meta {
	if m, ok := knownPaths[p]; ok {
		if m.DisplayName == "" {
			m.DisplayName = DisplayName(p)
		}
		return m
	}
	return Meta{DisplayName: DisplayName(p)}
}

// DisplayName turns the last segment of p into words: "waterAbsorption"
// becomes "Water Absorption", "grain_direction" becomes "Grain Direction".
func DisplayName(p property.Path) string {
	seg := property.LastSegment(p)
	if seg == "" {
		return ""
	}

	var words []string
	var cur []rune
	runes := []rune(seg)
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || unicode.IsSpace(r):
			flush()
			continue
		case unicode.IsUpper(r) && len(cur) > 0:
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			// "slipR" starts a word; inside an acronym ("PEIRating") only the
			// last capital before a lowercase letter does.
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()

	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
